// Package mailer sends transactional email over SMTP.
package mailer

import (
	"fmt"
	"log/slog"

	"notesync/internal/config"

	"gopkg.in/gomail.v2"
)

// SMTP sends mail through a configured SMTP relay.
type SMTP struct {
	dialer *gomail.Dialer
	sender string
}

func NewSMTP(cfg config.Config) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		sender: cfg.SMTPSender,
	}
}

// SendPasswordReset emails a password reset link to the given address.
func (m *SMTP) SendPasswordReset(to, resetURL string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", fmt.Sprintf(`
		<p>We received a request to reset the password for your account.</p>
		<p><a href="%s">Reset password</a></p>
		<p>The link expires shortly. If you did not request this, you can ignore this email.</p>
	`, resetURL))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// Log is a mailer that only logs, used when SMTP is not configured.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (m *Log) SendPasswordReset(to, resetURL string) error {
	m.log.Info("password reset email (smtp disabled)", "to", to, "reset_url", resetURL)
	return nil
}

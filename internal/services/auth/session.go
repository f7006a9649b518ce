package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MsgResetEmailSent confirms a password reset request regardless of whether
// the address is registered.
const MsgResetEmailSent = "Password reset email sent. Check your inbox."

// SessionState is a point-in-time view of the authentication session.
// Message carries both status confirmations and error text.
type SessionState struct {
	IsAuthenticated bool
	UserID          bson.ObjectID
	Email           string
	IsLoading       bool
	Message         string
}

// Session tracks the signed-in user for a single client session and drives
// the auth flows against the service. It satisfies the notes layer's
// current-user lookup.
type Session struct {
	svc *Service
	log *slog.Logger

	mu           sync.RWMutex
	state        SessionState
	refreshToken string
}

func NewSession(svc *Service, log *slog.Logger) *Session {
	return &Session{svc: svc, log: log}
}

// State returns a copy of the current session state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentUserID reports the signed-in user's ID, if any.
func (s *Session) CurrentUserID() (bson.ObjectID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.IsAuthenticated {
		return bson.ObjectID{}, false
	}
	return s.state.UserID, true
}

// RefreshToken returns the current refresh token, empty when signed out.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) begin() {
	s.mu.Lock()
	s.state.IsLoading = true
	s.state.Message = ""
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state.IsLoading = false
	s.state.Message = err.Error()
	s.mu.Unlock()
}

func (s *Session) establish(resp *AuthResponse) {
	s.mu.Lock()
	s.state = SessionState{
		IsAuthenticated: true,
		UserID:          resp.User.ID,
		Email:           resp.User.Email,
	}
	s.refreshToken = resp.RefreshToken
	s.mu.Unlock()
}

// SignUpWithEmail registers a new account and signs it in.
func (s *Session) SignUpWithEmail(ctx context.Context, email, password string) error {
	s.begin()
	resp, err := s.svc.SignUp(ctx, SignUpRequest{Email: email, Password: password})
	if err != nil {
		s.fail(err)
		return err
	}
	s.establish(resp)
	return nil
}

// SignInWithEmail authenticates with an email and password.
func (s *Session) SignInWithEmail(ctx context.Context, email, password string) error {
	s.begin()
	resp, err := s.svc.SignIn(ctx, SignInRequest{Email: email, Password: password})
	if err != nil {
		s.fail(err)
		return err
	}
	s.establish(resp)
	return nil
}

// SignInWithGoogle authenticates with a Google authorization code.
func (s *Session) SignInWithGoogle(ctx context.Context, code string) error {
	s.begin()
	resp, err := s.svc.SignInWithGoogle(ctx, GoogleSignInRequest{Code: code})
	if err != nil {
		s.fail(err)
		return err
	}
	s.establish(resp)
	return nil
}

// SignOut revokes the session's refresh token and clears local state. Local
// state is cleared even when revocation fails.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.RLock()
	userID, token, authed := s.state.UserID, s.refreshToken, s.state.IsAuthenticated
	s.mu.RUnlock()

	var err error
	if authed && token != "" {
		if err = s.svc.SignOut(ctx, userID, token); err != nil {
			s.log.Warn("refresh token revocation failed on sign-out", "error", err)
		}
	}

	s.mu.Lock()
	s.state = SessionState{}
	s.refreshToken = ""
	s.mu.Unlock()
	return err
}

// ResetPassword requests a password reset email. On success the session
// message confirms the send without revealing whether the address exists.
func (s *Session) ResetPassword(ctx context.Context, email string) error {
	s.begin()
	if err := s.svc.RequestPasswordReset(ctx, email); err != nil {
		s.fail(err)
		return err
	}
	s.mu.Lock()
	s.state.IsLoading = false
	s.state.Message = MsgResetEmailSent
	s.mu.Unlock()
	return nil
}

// Restore re-establishes a session from a stored refresh token.
func (s *Session) Restore(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("no refresh token to restore from")
	}
	s.begin()
	resp, err := s.svc.Refresh(ctx, refreshToken)
	if err != nil {
		s.fail(err)
		return err
	}
	s.establish(resp)
	return nil
}

// ClearMessage discards the current status or error message.
func (s *Session) ClearMessage() {
	s.mu.Lock()
	s.state.Message = ""
	s.mu.Unlock()
}

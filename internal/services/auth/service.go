package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notesync/internal/config"
	"notesync/internal/utils/crypto"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	refreshTokenBytes = 32
	resetTokenBytes   = 32
)

// Service handles authentication business logic
type Service struct {
	users   UsersRepo
	refresh RefreshTokensRepo
	resets  ResetTokensRepo
	google  GoogleVerifier
	mail    Mailer
	cfg     config.Config
	log     *slog.Logger
}

// NewService creates a new auth service. google may be nil when the Google
// flow is not configured; mail may be nil when reset mail is disabled.
func NewService(users UsersRepo, refresh RefreshTokensRepo, resets ResetTokensRepo, google GoogleVerifier, mail Mailer, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		users:   users,
		refresh: refresh,
		resets:  resets,
		google:  google,
		mail:    mail,
		cfg:     cfg,
		log:     log,
	}
}

// SignUp registers a new user and signs them in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrRegistrationFailed
	}

	hash, err := crypto.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		s.log.Error("failed to hash password", "error", err)
		return nil, errors.New("failed to process password")
	}

	now := time.Now().UTC()
	user := &User{
		ID:           bson.NewObjectID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrRegistrationFailed
		}
		s.log.Error("failed to create user", "error", err)
		return nil, errors.New("failed to create user")
	}

	return s.issueTokens(ctx, user)
}

// SignIn authenticates a user by email and password.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.log.Info("sign-in for unknown email", "error", err)
		return nil, ErrInvalidCredentials
	}

	// Google-only accounts have no password hash and cannot sign in here.
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := crypto.CheckPassword(req.Password, user.PasswordHash); err != nil {
		s.log.Info("password mismatch", "user_id", user.ID.Hex())
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// SignInWithGoogle exchanges a Google authorization code for a signed-in
// session, creating the account on first sign-in and linking the Google
// identity to an existing email account when one exists.
func (s *Service) SignInWithGoogle(ctx context.Context, req GoogleSignInRequest) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrGoogleSignInDisabled
	}

	profile, err := s.google.Exchange(ctx, req.Code)
	if err != nil {
		s.log.Info("google code exchange failed", "error", err)
		return nil, ErrInvalidCredentials
	}

	user, err := s.findOrCreateGoogleUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *Service) findOrCreateGoogleUser(ctx context.Context, profile *GoogleProfile) (*User, error) {
	if user, err := s.users.FindByGoogleID(ctx, profile.Sub); err == nil {
		return user, nil
	}

	email := normalizeEmail(profile.Email)
	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		if err := s.users.LinkGoogleID(ctx, user.ID, profile.Sub); err != nil {
			s.log.Error("failed to link google id", "error", err, "user_id", user.ID.Hex())
			return nil, errors.New("failed to link google account")
		}
		user.GoogleID = profile.Sub
		return user, nil
	}

	now := time.Now().UTC()
	user := &User{
		ID:        bson.NewObjectID(),
		Email:     email,
		GoogleID:  profile.Sub,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.log.Error("failed to create google user", "error", err)
		return nil, errors.New("failed to create user")
	}
	return user, nil
}

// Refresh exchanges a valid refresh token for a fresh access token,
// rotating the refresh token when configured to.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (*AuthResponse, error) {
	token, err := s.refresh.FindActive(ctx, rawRefreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if !s.cfg.RefreshTokenRotate {
		access, err := s.generateJWT(user)
		if err != nil {
			return nil, ErrGenAccessToken
		}
		return &AuthResponse{User: user, AccessToken: access, RefreshToken: rawRefreshToken}, nil
	}

	if err := s.refresh.Revoke(ctx, token.ID); err != nil {
		s.log.Error("failed to revoke rotated refresh token", "error", err, "token_id", token.ID.Hex())
		return nil, ErrInvalidRefreshToken
	}

	return s.issueTokens(ctx, user)
}

// SignOut revokes the presented refresh token. The access token keeps
// working until it expires; clients drop it locally.
func (s *Service) SignOut(ctx context.Context, userID bson.ObjectID, rawRefreshToken string) error {
	token, err := s.refresh.FindActive(ctx, rawRefreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if token.UserID != userID {
		return ErrInvalidRefreshToken
	}
	return s.refresh.Revoke(ctx, token.ID)
}

// SignOutAll revokes every refresh token of the user.
func (s *Service) SignOutAll(ctx context.Context, userID bson.ObjectID) error {
	return s.refresh.RevokeAllForUser(ctx, userID)
}

// RequestPasswordReset mails a single-use reset link. It reports success for
// unknown emails too, so the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		s.log.Info("password reset for unknown email")
		return nil
	}

	raw, err := crypto.RandomToken(resetTokenBytes)
	if err != nil {
		s.log.Error("failed to generate reset token", "error", err)
		return errors.New("failed to generate reset token")
	}

	expiresAt := time.Now().UTC().Add(time.Duration(s.cfg.ResetTokenMinutes) * time.Minute)
	if err := s.resets.Create(ctx, user.ID, raw, expiresAt); err != nil {
		s.log.Error("failed to store reset token", "error", err, "user_id", user.ID.Hex())
		return errors.New("failed to create reset token")
	}

	if s.mail == nil {
		s.log.Warn("reset mail disabled, token created but not delivered", "user_id", user.ID.Hex())
		return nil
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.AppBaseURL, "/"), raw)
	if err := s.mail.SendPasswordReset(user.Email, resetURL); err != nil {
		s.log.Error("failed to send reset mail", "error", err, "user_id", user.ID.Hex())
		return errors.New("failed to send reset email")
	}

	return nil
}

// CompletePasswordReset consumes a mailed token, sets the new password and
// revokes every open session of the user.
func (s *Service) CompletePasswordReset(ctx context.Context, rawToken, newPassword string) error {
	token, err := s.resets.Consume(ctx, rawToken)
	if err != nil {
		return ErrResetTokenInvalid
	}

	hash, err := crypto.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		s.log.Error("failed to hash new password", "error", err)
		return errors.New("failed to process password")
	}

	if err := s.users.SetPassword(ctx, token.UserID, hash); err != nil {
		s.log.Error("failed to set password", "error", err, "user_id", token.UserID.Hex())
		return errors.New("failed to update password")
	}

	// Old sessions must not survive a password reset.
	if err := s.refresh.RevokeAllForUser(ctx, token.UserID); err != nil {
		s.log.Error("failed to revoke sessions after reset", "error", err, "user_id", token.UserID.Hex())
	}

	return nil
}

func (s *Service) issueTokens(ctx context.Context, user *User) (*AuthResponse, error) {
	access, err := s.generateJWT(user)
	if err != nil {
		s.log.Error(ErrGenAccessToken.Error(), "error", err)
		return nil, ErrGenAccessToken
	}

	raw, err := crypto.RandomToken(refreshTokenBytes)
	if err != nil {
		s.log.Error("failed to generate refresh token", "error", err)
		return nil, errors.New("failed to generate refresh token")
	}

	expiresAt := time.Now().UTC().Add(time.Duration(s.cfg.RefreshTokenDays) * 24 * time.Hour)
	if err := s.refresh.Create(ctx, user.ID, raw, expiresAt); err != nil {
		s.log.Error("failed to store refresh token", "error", err, "user_id", user.ID.Hex())
		return nil, errors.New("failed to store refresh token")
	}

	return &AuthResponse{User: user, AccessToken: access, RefreshToken: raw}, nil
}

func (s *Service) generateJWT(user *User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"exp":     now.Add(time.Duration(s.cfg.AccessTokenMinutes) * time.Minute).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

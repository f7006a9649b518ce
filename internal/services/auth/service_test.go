package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"notesync/internal/config"
	"notesync/internal/utils/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() config.Config {
	return config.Config{
		JWTSecret:          "test-secret-which-is-long-enough",
		BcryptCost:         4,
		AccessTokenMinutes: 15,
		RefreshTokenDays:   30,
		RefreshTokenRotate: true,
		ResetTokenMinutes:  30,
		AppBaseURL:         "http://localhost:8080",
	}
}

// MockUsersRepo is a mock implementation of UsersRepo
type MockUsersRepo struct {
	mock.Mock
}

func (m *MockUsersRepo) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsersRepo) FindByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUsersRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUsersRepo) FindByGoogleID(ctx context.Context, googleID string) (*User, error) {
	args := m.Called(ctx, googleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUsersRepo) LinkGoogleID(ctx context.Context, userID bson.ObjectID, googleID string) error {
	args := m.Called(ctx, userID, googleID)
	return args.Error(0)
}

func (m *MockUsersRepo) SetPassword(ctx context.Context, userID bson.ObjectID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

// MockRefreshTokensRepo is a mock implementation of RefreshTokensRepo
type MockRefreshTokensRepo struct {
	mock.Mock
}

func (m *MockRefreshTokensRepo) Create(ctx context.Context, userID bson.ObjectID, rawToken string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, rawToken, expiresAt)
	return args.Error(0)
}

func (m *MockRefreshTokensRepo) FindActive(ctx context.Context, rawToken string) (*RefreshToken, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RefreshToken), args.Error(1)
}

func (m *MockRefreshTokensRepo) Revoke(ctx context.Context, tokenID bson.ObjectID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockRefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID bson.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockResetTokensRepo is a mock implementation of ResetTokensRepo
type MockResetTokensRepo struct {
	mock.Mock
}

func (m *MockResetTokensRepo) Create(ctx context.Context, userID bson.ObjectID, rawToken string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, rawToken, expiresAt)
	return args.Error(0)
}

func (m *MockResetTokensRepo) Consume(ctx context.Context, rawToken string) (*PasswordResetToken, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PasswordResetToken), args.Error(1)
}

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(to, resetURL string) error {
	args := m.Called(to, resetURL)
	return args.Error(0)
}

// MockGoogleVerifier is a mock implementation of GoogleVerifier
type MockGoogleVerifier struct {
	mock.Mock
}

func (m *MockGoogleVerifier) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GoogleProfile), args.Error(1)
}

type testDeps struct {
	users   *MockUsersRepo
	refresh *MockRefreshTokensRepo
	resets  *MockResetTokensRepo
	google  *MockGoogleVerifier
	mail    *MockMailer
}

func newTestService(cfg config.Config) (*Service, *testDeps) {
	d := &testDeps{
		users:   &MockUsersRepo{},
		refresh: &MockRefreshTokensRepo{},
		resets:  &MockResetTokensRepo{},
		google:  &MockGoogleVerifier{},
		mail:    &MockMailer{},
	}
	svc := NewService(d.users, d.refresh, d.resets, d.google, d.mail, cfg, silentLogger)
	return svc, d
}

func parseAccessToken(t *testing.T, raw, secret string) jwt.MapClaims {
	t.Helper()
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(secret), nil })
	require.NoError(t, err)
	require.True(t, token.Valid)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestSignUp(t *testing.T) {
	cfg := testConfig()

	t.Run("success issues both tokens", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, ErrUserNotFound)
		d.users.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)
		d.refresh.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.SignUp(context.Background(), SignUpRequest{Email: "New@Example.com ", Password: "Password123"})

		require.NoError(t, err)
		assert.Equal(t, "new@example.com", resp.User.Email)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		claims := parseAccessToken(t, resp.AccessToken, cfg.JWTSecret)
		assert.Equal(t, resp.User.ID.Hex(), claims["user_id"])
		assert.Equal(t, "new@example.com", claims["email"])
	})

	t.Run("existing email is masked as registration failure", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "taken@example.com").Return(&User{Email: "taken@example.com"}, nil)

		_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "taken@example.com", Password: "Password123"})

		assert.ErrorIs(t, err, ErrRegistrationFailed)
		d.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate insert race is masked the same way", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "race@example.com").Return(nil, ErrUserNotFound)
		d.users.On("Create", mock.Anything, mock.Anything).Return(ErrDuplicate)

		_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "race@example.com", Password: "Password123"})

		assert.ErrorIs(t, err, ErrRegistrationFailed)
	})
}

func TestSignIn(t *testing.T) {
	cfg := testConfig()
	hash, _ := crypto.HashPassword("Password123", cfg.BcryptCost)
	user := &User{ID: bson.NewObjectID(), Email: "u@example.com", PasswordHash: hash}

	t.Run("success", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "u@example.com").Return(user, nil)
		d.refresh.On("Create", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.SignIn(context.Background(), SignInRequest{Email: "u@example.com", Password: "Password123"})

		require.NoError(t, err)
		assert.Equal(t, user.ID, resp.User.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound)

		_, err := svc.SignIn(context.Background(), SignInRequest{Email: "ghost@example.com", Password: "Password123"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "u@example.com").Return(user, nil)

		_, err := svc.SignIn(context.Background(), SignInRequest{Email: "u@example.com", Password: "WrongPass1"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("google-only account cannot use password sign-in", func(t *testing.T) {
		svc, d := newTestService(cfg)
		googleUser := &User{ID: bson.NewObjectID(), Email: "g@example.com", GoogleID: "sub-1"}
		d.users.On("FindByEmail", mock.Anything, "g@example.com").Return(googleUser, nil)

		_, err := svc.SignIn(context.Background(), SignInRequest{Email: "g@example.com", Password: "Password123"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestSignInWithGoogle(t *testing.T) {
	cfg := testConfig()
	profile := &GoogleProfile{Sub: "sub-42", Email: "G@Example.com", Name: "G"}

	t.Run("disabled when no verifier", func(t *testing.T) {
		d := &testDeps{users: &MockUsersRepo{}, refresh: &MockRefreshTokensRepo{}, resets: &MockResetTokensRepo{}, mail: &MockMailer{}}
		svc := NewService(d.users, d.refresh, d.resets, nil, d.mail, cfg, silentLogger)

		_, err := svc.SignInWithGoogle(context.Background(), GoogleSignInRequest{Code: "code"})

		assert.ErrorIs(t, err, ErrGoogleSignInDisabled)
	})

	t.Run("existing linked account signs straight in", func(t *testing.T) {
		svc, d := newTestService(cfg)
		user := &User{ID: bson.NewObjectID(), Email: "g@example.com", GoogleID: "sub-42"}
		d.google.On("Exchange", mock.Anything, "code").Return(profile, nil)
		d.users.On("FindByGoogleID", mock.Anything, "sub-42").Return(user, nil)
		d.refresh.On("Create", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.SignInWithGoogle(context.Background(), GoogleSignInRequest{Code: "code"})

		require.NoError(t, err)
		assert.Equal(t, user.ID, resp.User.ID)
	})

	t.Run("email match links the google identity", func(t *testing.T) {
		svc, d := newTestService(cfg)
		user := &User{ID: bson.NewObjectID(), Email: "g@example.com"}
		d.google.On("Exchange", mock.Anything, "code").Return(profile, nil)
		d.users.On("FindByGoogleID", mock.Anything, "sub-42").Return(nil, ErrUserNotFound)
		d.users.On("FindByEmail", mock.Anything, "g@example.com").Return(user, nil)
		d.users.On("LinkGoogleID", mock.Anything, user.ID, "sub-42").Return(nil)
		d.refresh.On("Create", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.SignInWithGoogle(context.Background(), GoogleSignInRequest{Code: "code"})

		require.NoError(t, err)
		assert.Equal(t, "sub-42", resp.User.GoogleID)
		d.users.AssertExpectations(t)
	})

	t.Run("first sign-in creates a passwordless account", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.google.On("Exchange", mock.Anything, "code").Return(profile, nil)
		d.users.On("FindByGoogleID", mock.Anything, "sub-42").Return(nil, ErrUserNotFound)
		d.users.On("FindByEmail", mock.Anything, "g@example.com").Return(nil, ErrUserNotFound)
		d.users.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)
		d.refresh.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.SignInWithGoogle(context.Background(), GoogleSignInRequest{Code: "code"})

		require.NoError(t, err)
		assert.Equal(t, "g@example.com", resp.User.Email)
		assert.Empty(t, resp.User.PasswordHash)
	})

	t.Run("failed code exchange", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.google.On("Exchange", mock.Anything, "bad").Return(nil, errors.New("exchange failed"))

		_, err := svc.SignInWithGoogle(context.Background(), GoogleSignInRequest{Code: "bad"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	user := &User{ID: bson.NewObjectID(), Email: "u@example.com"}
	stored := &RefreshToken{ID: bson.NewObjectID(), UserID: user.ID}

	t.Run("rotation revokes the old token and issues a new one", func(t *testing.T) {
		cfg := testConfig()
		svc, d := newTestService(cfg)
		d.refresh.On("FindActive", mock.Anything, "raw-token").Return(stored, nil)
		d.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		d.refresh.On("Revoke", mock.Anything, stored.ID).Return(nil)
		d.refresh.On("Create", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.Refresh(context.Background(), "raw-token")

		require.NoError(t, err)
		assert.NotEqual(t, "raw-token", resp.RefreshToken)
		d.refresh.AssertExpectations(t)
	})

	t.Run("without rotation the old token is returned", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefreshTokenRotate = false
		svc, d := newTestService(cfg)
		d.refresh.On("FindActive", mock.Anything, "raw-token").Return(stored, nil)
		d.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		resp, err := svc.Refresh(context.Background(), "raw-token")

		require.NoError(t, err)
		assert.Equal(t, "raw-token", resp.RefreshToken)
		d.refresh.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, d := newTestService(testConfig())
		d.refresh.On("FindActive", mock.Anything, "stale").Return(nil, ErrInvalidRefreshToken)

		_, err := svc.Refresh(context.Background(), "stale")

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestSignOut(t *testing.T) {
	userID := bson.NewObjectID()
	stored := &RefreshToken{ID: bson.NewObjectID(), UserID: userID}

	t.Run("revokes the matching token", func(t *testing.T) {
		svc, d := newTestService(testConfig())
		d.refresh.On("FindActive", mock.Anything, "raw").Return(stored, nil)
		d.refresh.On("Revoke", mock.Anything, stored.ID).Return(nil)

		assert.NoError(t, svc.SignOut(context.Background(), userID, "raw"))
	})

	t.Run("rejects a token belonging to someone else", func(t *testing.T) {
		svc, d := newTestService(testConfig())
		d.refresh.On("FindActive", mock.Anything, "raw").Return(stored, nil)

		err := svc.SignOut(context.Background(), bson.NewObjectID(), "raw")

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		d.refresh.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})
}

func TestRequestPasswordReset(t *testing.T) {
	cfg := testConfig()
	user := &User{ID: bson.NewObjectID(), Email: "u@example.com"}

	t.Run("stores a token and mails the link", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "u@example.com").Return(user, nil)
		d.resets.On("Create", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)
		d.mail.On("SendPasswordReset", "u@example.com", mock.MatchedBy(func(url string) bool {
			return len(url) > len(cfg.AppBaseURL)
		})).Return(nil)

		require.NoError(t, svc.RequestPasswordReset(context.Background(), "u@example.com"))
		d.mail.AssertExpectations(t)
	})

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound)

		require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
		d.resets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.mail.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything)
	})
}

func TestCompletePasswordReset(t *testing.T) {
	cfg := testConfig()
	userID := bson.NewObjectID()
	stored := &PasswordResetToken{ID: bson.NewObjectID(), UserID: userID}

	t.Run("sets the password and revokes all sessions", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.resets.On("Consume", mock.Anything, "raw").Return(stored, nil)
		d.users.On("SetPassword", mock.Anything, userID, mock.AnythingOfType("string")).Return(nil)
		d.refresh.On("RevokeAllForUser", mock.Anything, userID).Return(nil)

		require.NoError(t, svc.CompletePasswordReset(context.Background(), "raw", "NewPass123"))
		d.refresh.AssertExpectations(t)
	})

	t.Run("invalid token", func(t *testing.T) {
		svc, d := newTestService(cfg)
		d.resets.On("Consume", mock.Anything, "bad").Return(nil, ErrResetTokenInvalid)

		err := svc.CompletePasswordReset(context.Background(), "bad", "NewPass123")

		assert.ErrorIs(t, err, ErrResetTokenInvalid)
		d.users.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

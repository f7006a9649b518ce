package auth

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UsersRepo defines the interface for user persistence.
type UsersRepo interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	LinkGoogleID(ctx context.Context, userID bson.ObjectID, googleID string) error
	SetPassword(ctx context.Context, userID bson.ObjectID, passwordHash string) error
}

// RefreshTokensRepo defines the interface for refresh token persistence.
// Raw tokens are hashed before storage; FindActive matches the raw value
// against stored hashes.
type RefreshTokensRepo interface {
	Create(ctx context.Context, userID bson.ObjectID, rawToken string, expiresAt time.Time) error
	FindActive(ctx context.Context, rawToken string) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenID bson.ObjectID) error
	RevokeAllForUser(ctx context.Context, userID bson.ObjectID) error
}

// ResetTokensRepo defines the interface for password-reset token persistence.
type ResetTokensRepo interface {
	Create(ctx context.Context, userID bson.ObjectID, rawToken string, expiresAt time.Time) error
	// Consume atomically marks the token used and returns it, or
	// ErrResetTokenInvalid when it is unknown, expired or already used.
	Consume(ctx context.Context, rawToken string) (*PasswordResetToken, error)
}

// Mailer delivers the password-reset mail.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
}

package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a user in the system. PasswordHash is empty for accounts
// created through Google sign-in only.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	Email        string        `bson:"email" json:"email" example:"test@example.com"`
	PasswordHash string        `bson:"password_hash,omitempty" json:"-"`
	GoogleID     string        `bson:"google_id,omitempty" json:"-"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// RefreshToken is a long-lived credential stored hashed; the raw value only
// ever lives on the client.
type RefreshToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	TokenHash string        `bson:"token_hash"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
	RevokedAt *time.Time    `bson:"revoked_at,omitempty"`
}

// PasswordResetToken is a single-use credential mailed to the user.
type PasswordResetToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	TokenHash string        `bson:"token_hash"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
	UsedAt    *time.Time    `bson:"used_at,omitempty"`
}

// SignUpRequest represents a user registration request
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email" example:"test@example.com"`
	Password string `json:"password" validate:"required,password" example:"Password123"`
}

// SignInRequest represents a user login request
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email" example:"test@example.com"`
	Password string `json:"password" validate:"required" example:"Password123"`
}

// GoogleSignInRequest carries the authorization code obtained from Google's
// consent screen.
type GoogleSignInRequest struct {
	Code string `json:"code" validate:"required"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SignOutRequest revokes one refresh token.
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ResetPasswordRequest triggers a password-reset mail.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CompleteResetRequest sets a new password using a mailed token.
type CompleteResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

// AuthResponse represents the response for successful authentication
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

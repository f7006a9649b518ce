package auth

import "errors"

var (
	// ErrDuplicate is returned by repositories when an email is already taken.
	ErrDuplicate = errors.New("user with this email already exists")

	// ErrUserNotFound - no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials masks every sign-in failure mode.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRegistrationFailed masks duplicate-email sign-ups so the endpoint
	// cannot be used to enumerate accounts.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrInvalidRefreshToken - the presented refresh token is unknown,
	// expired or revoked.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrResetTokenInvalid - the password-reset token is unknown, expired
	// or already used.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")

	// ErrGoogleSignInDisabled - the Google credential flow is not configured.
	ErrGoogleSignInDisabled = errors.New("google sign-in is not configured")

	// ErrGenAccessToken is returned when we cannot create a JWT.
	ErrGenAccessToken = errors.New("failed to generate access token")
)

package auth

import (
	"context"
	"errors"

	"notesync/cmd/server/ctxkeys"
	"notesync/cmd/server/handlers/httperr"
	"notesync/internal/logger"
	"notesync/internal/services/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthService defines the interface for auth service
type AuthService interface {
	SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.AuthResponse, error)
	SignIn(ctx context.Context, req auth.SignInRequest) (*auth.AuthResponse, error)
	SignInWithGoogle(ctx context.Context, req auth.GoogleSignInRequest) (*auth.AuthResponse, error)
	Refresh(ctx context.Context, rawRefreshToken string) (*auth.AuthResponse, error)
	SignOut(ctx context.Context, userID bson.ObjectID, rawRefreshToken string) error
	SignOutAll(ctx context.Context, userID bson.ObjectID) error
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, rawToken, newPassword string) error
}

// Handlers contains the auth HTTP handlers
type Handlers struct {
	authService AuthService
	validator   *validator.Validate
}

// NewHandlers creates new auth handlers
func NewHandlers(authService AuthService, validator *validator.Validate) *Handlers {
	return &Handlers{
		authService: authService,
		validator:   validator,
	}
}

// SignUp handles user registration
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var req auth.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse signup request body", "handler", "SignUp", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("signup request validation failed", "handler", "SignUp", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.SignUp(c.Context(), req)
	if err != nil {
		logger.L().Error("signup service failed", "handler", "SignUp", "email", req.Email, "error", err)
		return httperr.Fail(httperr.E{
			Status:  400,
			Message: err.Error(),
		})
	}

	return c.Status(201).JSON(resp)
}

// SignIn handles user authentication
func (h *Handlers) SignIn(c *fiber.Ctx) error {
	var req auth.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse signin request body", "handler", "SignIn", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("signin request validation failed", "handler", "SignIn", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.SignIn(c.Context(), req)
	if err != nil {
		logger.L().Error("signin service failed", "handler", "SignIn", "email", req.Email, "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: err.Error(),
		})
	}

	return c.JSON(resp)
}

// SignInGoogle handles authentication with a Google authorization code
func (h *Handlers) SignInGoogle(c *fiber.Ctx) error {
	var req auth.GoogleSignInRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse google signin request body", "handler", "SignInGoogle", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("google signin request validation failed", "handler", "SignInGoogle", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.SignInWithGoogle(c.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrGoogleSignInDisabled) {
			return httperr.Fail(httperr.E{Status: 501, Message: err.Error()})
		}
		logger.L().Error("google signin service failed", "handler", "SignInGoogle", "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: err.Error(),
		})
	}

	return c.JSON(resp)
}

// Refresh handles token refresh requests
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req auth.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse refresh request body", "handler", "Refresh", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.L().Warn("refresh request validation failed", "handler", "Refresh", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			logger.L().Info("invalid refresh token reuse detected", "remote", c.IP(), "error", err)
			return httperr.Fail(httperr.ErrUnauthorized)
		}
		logger.L().Error("refresh service failed", "handler", "Refresh", "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: err.Error(),
		})
	}

	return c.JSON(resp)
}

// SignOut handles user sign out requests
func (h *Handlers) SignOut(c *fiber.Ctx) error {
	userID, err := h.userIDFromLocals(c, "SignOut")
	if err != nil {
		return err
	}

	var req auth.SignOutRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse signout request body", "handler", "SignOut", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.L().Warn("signout request validation failed", "handler", "SignOut", "error", err)
		return httperr.InvalidInput(err)
	}

	if err := h.authService.SignOut(c.Context(), userID, req.RefreshToken); err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			return httperr.Fail(httperr.ErrUnauthorized)
		}
		logger.L().Error("signout service failed", "handler", "SignOut", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}

	return c.JSON(map[string]string{"message": "Successfully signed out"})
}

// SignOutAll handles user sign out from all devices
func (h *Handlers) SignOutAll(c *fiber.Ctx) error {
	userID, err := h.userIDFromLocals(c, "SignOutAll")
	if err != nil {
		return err
	}

	if err := h.authService.SignOutAll(c.Context(), userID); err != nil {
		logger.L().Error("signout all service failed", "handler", "SignOutAll", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.InternalError(err.Error()))
	}

	return c.JSON(map[string]string{"message": "Signed out everywhere"})
}

// ResetPassword handles password reset requests. The response is the same
// whether or not the email exists.
func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	var req auth.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse reset request body", "handler", "ResetPassword", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.L().Warn("reset request validation failed", "handler", "ResetPassword", "error", err)
		return httperr.InvalidInput(err)
	}

	if err := h.authService.RequestPasswordReset(c.Context(), req.Email); err != nil {
		logger.L().Error("password reset request failed", "handler", "ResetPassword", "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}

	return c.JSON(map[string]string{"message": "If the email exists, a reset link has been sent"})
}

// ResetPasswordComplete consumes a mailed reset token and sets a new password
func (h *Handlers) ResetPasswordComplete(c *fiber.Ctx) error {
	var req auth.CompleteResetRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse reset completion body", "handler", "ResetPasswordComplete", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.L().Warn("reset completion validation failed", "handler", "ResetPasswordComplete", "error", err)
		return httperr.InvalidInput(err)
	}

	if err := h.authService.CompletePasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrResetTokenInvalid) {
			return httperr.Fail(httperr.E{Status: 400, Message: err.Error()})
		}
		logger.L().Error("password reset completion failed", "handler", "ResetPasswordComplete", "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}

	return c.JSON(map[string]string{"message": "Password has been reset"})
}

func (h *Handlers) userIDFromLocals(c *fiber.Ctx, handlerName string) (bson.ObjectID, error) {
	userIDStr := c.Locals(ctxkeys.UserIDKey)
	if userIDStr == nil {
		logger.L().Warn("missing user ID in token context", "handler", handlerName)
		return bson.ObjectID{}, httperr.Fail(httperr.ErrUserNotAuthenticated)
	}

	userID, err := bson.ObjectIDFromHex(userIDStr.(string))
	if err != nil {
		logger.L().Warn("invalid user ID format", "handler", handlerName, "userID", userIDStr, "error", err)
		return bson.ObjectID{}, httperr.Fail(httperr.ErrInvalidUserID)
	}

	return userID, nil
}

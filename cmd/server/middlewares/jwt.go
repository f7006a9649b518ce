package middlewares

import (
	"notesync/cmd/server/ctxkeys"
	"notesync/cmd/server/handlers/httperr"
	"notesync/internal/config"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWT builds the bearer-token guard for authenticated routes. It verifies
// the signature against cfg.JWTSecret, requires the "user_id" and "email"
// claims, and copies them into request locals under ctxkeys so handlers
// never touch the raw token. Any failure surfaces as a 401 envelope.
func JWT(cfg config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		SuccessHandler: func(c *fiber.Ctx) error {
			// Signature already checked by the middleware.
			token := c.Locals("user").(*jwt.Token)
			claims, _ := token.Claims.(jwt.MapClaims)

			userID, ok := claims["user_id"].(string)
			if !ok || userID == "" {
				return httperr.Fail(httperr.E{Status: 401, Message: "invalid token: missing user_id"})
			}

			userEmail, ok := claims["email"].(string)
			if !ok || userEmail == "" {
				return httperr.Fail(httperr.E{Status: 401, Message: "invalid token: missing email"})
			}

			c.Locals(ctxkeys.UserIDKey, userID)
			c.Locals(ctxkeys.UserEmailKey, userEmail)
			return c.Next()
		},

		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httperr.Fail(httperr.E{Status: 401, Message: "Unauthorized: " + err.Error()})
		},
	})
}

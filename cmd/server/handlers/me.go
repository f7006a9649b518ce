package handlers

import (
	"notesync/cmd/server/ctxkeys"

	"github.com/gofiber/fiber/v2"
)

// Me returns the current user information.
func Me(c *fiber.Ctx) error {
	userID := c.Locals(ctxkeys.UserIDKey).(string)
	userEmail := c.Locals(ctxkeys.UserEmailKey).(string)
	return c.JSON(fiber.Map{
		"uid":   userID,
		"email": userEmail,
	})
}

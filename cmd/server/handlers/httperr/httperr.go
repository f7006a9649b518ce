// Package httperr is the single error envelope the HTTP layer speaks.
// Handlers return an E and the global Fiber error handler turns it into
// a JSON body; nothing else ever reaches the client.
package httperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// E is an HTTP error with status code and client-facing message.
type E struct {
	Status  int    `json:"-" example:"400"`
	Message string `json:"error" example:"Bad Request"`
}

func (e E) Error() string {
	return e.Message
}

// JSON writes the error as the response body.
func (e E) JSON(c *fiber.Ctx) error {
	return c.Status(e.Status).JSON(e)
}

// Fail hands the error to Fiber's global error handler.
func Fail(err E) error {
	return err
}

// InvalidInput wraps a validation error into the standard 400 response.
func InvalidInput(err error) error {
	return Fail(E{
		Status:  400,
		Message: "Invalid input: " + err.Error(),
	})
}

// InternalError builds a 500 with the given message.
func InternalError(message string) E {
	return E{Status: 500, Message: message}
}

var (
	ErrBadRequest           = E{Status: 400, Message: "Bad Request"}
	ErrInvalidUserID        = E{Status: 400, Message: "Invalid user ID"}
	ErrUnauthorized         = E{Status: 401, Message: "Unauthorized"}
	ErrUserNotAuthenticated = E{Status: 401, Message: "User not authenticated"}
	ErrTooManyRequests      = E{Status: 429, Message: "Too Many Requests"}
	ErrInternal             = InternalError("Internal Server Error")
)

// Handler is installed as the app-wide Fiber error handler. Unknown error
// types collapse to a bare 500 so internals never leak.
func Handler(c *fiber.Ctx, err error) error {
	var e E
	if errors.As(err, &e) {
		return e.JSON(c)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		return c.Status(fiberError.Code).JSON(E{
			Status:  fiberError.Code,
			Message: fiberError.Message,
		})
	}

	return ErrInternal.JSON(c)
}

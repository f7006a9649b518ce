package middlewares

import (
	"strings"
	"time"

	"notesync/cmd/server/handlers/httperr"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// BuildRateLimiter allows up to max requests per expiration window and
// answers 429 past that. A max of zero or less returns a pass-through
// handler, so a disabled limiter needs no special-casing at the call site.
// Paths starting with any of skipPrefixes bypass the limiter entirely.
func BuildRateLimiter(max int, expiration time.Duration, skipPrefixes ...string) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	cfg := limiter.Config{
		Max:        max,
		Expiration: expiration,
		LimitReached: func(c *fiber.Ctx) error {
			return httperr.Fail(httperr.ErrTooManyRequests)
		},
	}

	if len(skipPrefixes) > 0 {
		cfg.Next = func(c *fiber.Ctx) bool {
			for _, p := range skipPrefixes {
				if strings.HasPrefix(c.Path(), p) {
					return true
				}
			}
			return false
		}
	}

	return limiter.New(cfg)
}

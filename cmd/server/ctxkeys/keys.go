// Package ctxkeys holds the keys used for fiber.Ctx.Locals values shared
// between middlewares and handlers.
package ctxkeys

const (
	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
	ParentCtxKey = "parentCtx"
)

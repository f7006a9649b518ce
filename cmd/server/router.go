package main

import (
	"context"
	"time"

	"notesync/cmd/server/handlers"
	authHandlers "notesync/cmd/server/handlers/auth"
	"notesync/cmd/server/handlers/httperr"
	notesHandlers "notesync/cmd/server/handlers/notes"
	"notesync/cmd/server/middlewares"
	"notesync/internal/clients/mongo"
	"notesync/internal/config"
	"notesync/internal/logger"
	"notesync/internal/mailer"
	authServices "notesync/internal/services/auth"
	notesServices "notesync/internal/services/notes"
	"notesync/internal/utils/crypto"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(ctx context.Context, cfg config.Config) *fiber.App {

	// Initialize validator and register password validation
	v := validator.New()
	if err := crypto.RegisterPasswordValidator(v); err != nil {
		logger.L().Error("failed to register password validator", "err", err)
		panic(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app)
	}

	// Health check endpoint, outside versioned API to appease scanners and to avoid logging
	app.Get("/healthz", handlers.Healthz)

	var v1 fiber.Router
	if cfg.RequestLogEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(cfg)

	limiterMW := middlewares.BuildRateLimiter(cfg.SignInRatePerMin, RateLimitExpiration)

	authGrp := v1.Group("/auth", limiterMW)

	usersRepo := mongo.NewUsersRepo(mongo.DB())
	refreshTokensRepo := mongo.NewRefreshTokensRepo(mongo.DB())
	resetTokensRepo := mongo.NewResetTokensRepo(mongo.DB())

	var mail authServices.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(cfg)
	} else {
		mail = mailer.NewLog(logger.L())
	}

	google := authServices.NewGoogleVerifier(cfg)
	if google == nil {
		logger.L().Info("google sign-in disabled")
	}

	authSvc := authServices.NewService(usersRepo, refreshTokensRepo, resetTokensRepo, google, mail, cfg, logger.L())
	authH := authHandlers.NewHandlers(authSvc, v)

	authGrp.Post("/sign-up", authH.SignUp)
	authGrp.Post("/sign-in", authH.SignIn)
	authGrp.Post("/sign-in/google", authH.SignInGoogle)
	authGrp.Post("/refresh", authH.Refresh)
	authGrp.Post("/reset-password", authH.ResetPassword)
	authGrp.Post("/reset-password/complete", authH.ResetPasswordComplete)
	authGrp.Post("/sign-out", jwtMiddleware, authH.SignOut)
	authGrp.Post("/sign-out-all", jwtMiddleware, authH.SignOutAll)

	// Notes routes
	notesRepo, err := mongo.NewNotesRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error("failed to create notes repository", "error", err)
		panic(err)
	}
	watchers := notesServices.NewWatchers(cfg.WSOutboxBuffer)
	notesSvc := notesServices.NewService(notesRepo, watchers, logger.L())
	notesH := notesHandlers.NewHandlers(notesSvc, v)

	notesGrp := v1.Group("/notes", jwtMiddleware)
	notesGrp.Post("/", notesH.Create)
	notesGrp.Get("/", notesH.List)
	notesGrp.Get("/search", notesH.Search)
	notesGrp.Get("/:id", notesH.Get)
	notesGrp.Put("/:id", notesH.Update)
	notesGrp.Delete("/:id", notesH.Delete)

	// WebSocket routes
	wsHandlers := notesHandlers.NewWebSocketHandlers(notesSvc, cfg.JWTSecret, cfg.WSMaxSessionSec)
	app.Use("/ws", notesHandlers.LogWSConnections(cfg.JWTSecret))
	app.Get("/ws/notes/stream", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSNotesStream))

	// User profile endpoint
	v1.Get("/me", jwtMiddleware, handlers.Me)

	return app
}

package main

import (
	"context"
	"errors"
	"time"

	"co2monitor/internal/config"
	"co2monitor/internal/database"
	"co2monitor/internal/handlers"
	"co2monitor/internal/middleware"
	"co2monitor/internal/security"
	"co2monitor/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// NewApp wires services and handlers on top of an open store. publisher may be nil.
func NewApp(cfg config.Config, store *database.Store, publisher services.AlertEventPublisher, log *zap.Logger) *fiber.App {
	tokens := security.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	authService := services.NewAuthService(store.Users, hasher, tokens, log)
	alertService := services.NewAlertService(store.Alerts, publisher, log)

	authHandler := handlers.NewAuthHandler(authService, log)
	alertHandler := handlers.NewAlertHandler(alertService, log)

	app := fiber.New(fiber.Config{
		AppName:               "co2monitor",
		DisableStartupMessage: true,
		ErrorHandler:          jsonErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	app.Use(middleware.DBDeadline(cfg.Database.Timeout))

	authRequired := middleware.AuthRequired(tokens, log)

	api := app.Group("/api")
	authHandler.RegisterRoutes(api, authRequired)
	app.Get("/profile", authRequired, authHandler.HandleProfile)
	alertHandler.RegisterRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
		defer cancel()

		status, state, code := "healthy", "connected", fiber.StatusOK
		if err := store.Ping(ctx); err != nil {
			log.Warn("health check: database ping failed", zap.Error(err))
			status, state, code = "unhealthy", "unreachable", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"time":     time.Now().Format(time.RFC3339),
			"database": state,
		})
	})

	return app
}

// jsonErrorHandler renders errors that escaped a handler, including recovered
// panics and unknown routes, as {"message": ...}.
func jsonErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}

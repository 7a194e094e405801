package main

import (
	"context"
	"errors"
	"time"

	"contactbook/internal/config"
	"contactbook/internal/database"
	"contactbook/internal/handlers"
	"contactbook/internal/middleware"
	"contactbook/internal/repositories"
	"contactbook/internal/services"
	"contactbook/internal/storage"
	"contactbook/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// multipartOverhead leaves room for the form fields around a photo so that an
// oversized photo reaches the handler and gets the proper 413 message.
const multipartOverhead = 1 << 20

// newApp wires services and handlers into a Fiber app. events may be nil.
func newApp(cfg *config.Config, log *logger.Logger, pool *database.Pool, photos *storage.PhotoStore, events services.EventPublisher) *fiber.App {
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	accountService := services.NewAccountService(pool, repositories.NewAccountRepositoryFactory(), authService, events, log)
	contactService := services.NewContactService(
		pool,
		repositories.NewContactRepositoryFactory(),
		photos,
		services.NewContactValidator(cfg.Phone.DefaultRegion),
		events,
		log,
	)

	accountHandler := handlers.NewAccountHandler(accountService, log)
	contactHandler := handlers.NewContactHandler(contactService, cfg.Upload.TempDir, cfg.Upload.MaxFileSizeBytes, log)

	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.Upload.MaxFileSizeBytes) + multipartOverhead,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	auth := middleware.AuthRequired(authService, log)
	accountHandler.RegisterRoutes(app, auth)
	contactHandler.RegisterRoutes(app, auth)

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status, code := "healthy", fiber.StatusOK
		if err := pool.Ping(ctx); err != nil {
			log.Warn("health check failed", "error", err)
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		stats := pool.Stats()
		return c.Status(code).JSON(fiber.Map{
			"status":          status,
			"time":            time.Now().Format(time.RFC3339),
			"database":        pool.Dialect(),
			"openConnections": stats.OpenConnections,
			"inUse":           stats.InUse,
			"events":          events != nil,
		})
	})

	return app
}

// errorHandler renders errors that escape a handler, such as unknown routes
// and recovered panics, in the same shape as handler errors.
func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message := fiber.StatusInternalServerError, "Something Went Wrong! Please Try Again Later."
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			if code < fiber.StatusInternalServerError {
				message = fiberErr.Message
			}
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{
			"status":     "error",
			"statusCode": code,
			"message":    message,
		})
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/huddle-app/huddle-backend/internal/config"
	"github.com/huddle-app/huddle-backend/internal/database"
	"github.com/huddle-app/huddle-backend/internal/logger"
	"github.com/huddle-app/huddle-backend/internal/ratelimit"
	"github.com/huddle-app/huddle-backend/internal/routes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Options{ServiceName: "huddle-api"}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	format := cfg.LogFormat
	if cfg.IsDevelopment() {
		format = "console"
	}
	log := logger.New(logger.Options{
		ServiceName: "huddle-api",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// 2. Connect to Database
	if cfg.DBUrl == "" {
		return errors.New("DB_URL is required")
	}
	db, err := database.Connect(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled() {
		limiter, err = ratelimit.New(ctx, cfg.RedisURL, cfg.MessageRateLimit, cfg.MessageRateWindow)
		if err != nil {
			return err
		}
		defer limiter.Close()
	} else {
		log.Warn(ctx, "REDIS_URL not set, message rate limiting disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 3. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(ctx, app, cfg, routes.Dependencies{
		DB:       db,
		Limiter:  limiter,
		Registry: registry,
		Log:      log,
	}); err != nil {
		return err
	}

	// 4. Start Server
	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting on port "+cfg.Port)
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

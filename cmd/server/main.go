package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/tutordesk/backend/internal/config"
	"github.com/tutordesk/backend/internal/database"
	"github.com/tutordesk/backend/internal/logging"
	"github.com/tutordesk/backend/internal/routes"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logging.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		appLogger.Fatal("DB_URL is required")
	}
	pool, err := database.ConnectDB(ctx, cfg.DBUrl, appLogger)
	if err != nil {
		appLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// 3. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:               "tutordesk",
		DisableStartupMessage: !cfg.IsDevelopment(),
		BodyLimit:             4 * 1024 * 1024,
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(recover.New())

	// Routes
	routes.RegisterRoutes(ctx, app, cfg, pool, appLogger)

	// 4. Start Server
	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		serverErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		appLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/joho/godotenv"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/nagaralert/alerthub/internal/analysis"
	"github.com/nagaralert/alerthub/internal/config"
	"github.com/nagaralert/alerthub/internal/database"
	"github.com/nagaralert/alerthub/internal/geocoding"
	"github.com/nagaralert/alerthub/internal/handlers"
	"github.com/nagaralert/alerthub/internal/logging"
	"github.com/nagaralert/alerthub/internal/middleware"
	"github.com/nagaralert/alerthub/internal/notifications"
	"github.com/nagaralert/alerthub/internal/realtime"
	"github.com/nagaralert/alerthub/internal/routes"
	"github.com/nagaralert/alerthub/internal/scheduler"
	"github.com/nagaralert/alerthub/internal/services"
	"github.com/nagaralert/alerthub/internal/storage"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Realtime: the hub serves local websocket sessions. With the postgres
	// backend, writers notify and every instance's bridge feeds its own hub.
	hub := realtime.NewHub(64)
	var publisher realtime.Publisher = hub
	if cfg.RealtimeBackend == "postgres" {
		publisher = realtime.NewPGPublisher(database.DB, cfg.RealtimeChannel)
		bridge := realtime.NewPGBridge(cfg.DSN(), cfg.RealtimeChannel, hub)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				slog.Error("realtime bridge stopped", "error", err)
			}
		}()
	}

	// Collaborators
	images := services.NewImageService(newImageStore(ctx, cfg), cfg.MaxImageBytes)
	notifier, broker := newNotifier(cfg)
	analyzer := newAnalyzer(cfg)
	geocoder := geocoding.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeUserAgent, cfg.GeocodeTimeout)

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	profileService := services.NewProfileService(database.DB)
	alertService := services.NewAlertService(database.DB, images, publisher)
	feedService := services.NewFeedService(alertService)
	moderationService := services.NewModerationService(database.DB, publisher, notifier, images)
	voteService := services.NewVoteService(database.DB, publisher)
	commentService := services.NewCommentService(database.DB, services.NewContentFilter())
	analyticsService := services.NewAnalyticsService(database.DB)

	// Scheduled maintenance
	jobs := scheduler.NewService(cfg, voteService, database.DB)
	if err := jobs.Start(); err != nil {
		slog.Error("scheduler failed to start", "error", err)
		os.Exit(1)
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app. The body limit leaves room for a 5MB photo plus form fields.
	app := fiber.New(fiber.Config{
		BodyLimit:    6 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, cfg, database.DB, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(database.DB, cfg.RealtimeBackend),
		Profile:    handlers.NewProfileHandler(profileService),
		Alert:      handlers.NewAlertHandler(alertService, feedService, images),
		Engagement: handlers.NewEngagementHandler(alertService, voteService, commentService),
		Moderation: handlers.NewModerationHandler(moderationService, feedService, analyticsService),
		Geocode:    handlers.NewGeocodeHandler(geocoder),
		Analysis:   handlers.NewAnalysisHandler(analyzer, alertService, cfg.AITimeout),
		Live:       handlers.NewLiveHandler(hub, feedService, alertService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "realtime", cfg.RealtimeBackend)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	stop()
	hub.Close()
	jobs.Stop()

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if broker != nil {
		if err := broker.Close(); err != nil {
			slog.Error("broker close error", "error", err)
		}
	}
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// newImageStore prefers Azure Blob, then Cloudinary. With neither configured
// uploads are refused and text-only submissions keep working.
func newImageStore(ctx context.Context, cfg *config.Config) storage.ImageStore {
	if cfg.AzureStorageConnString != "" || cfg.AzureStorageAccount != "" {
		store, err := storage.NewAzureStore(ctx, cfg.AzureStorageAccount, cfg.AzureStorageConnString, cfg.AzureStorageContainer)
		if err == nil {
			slog.Info("image storage ready", "backend", "azure", "container", cfg.AzureStorageContainer)
			return store
		}
		slog.Error("azure image storage unavailable", "error", err)
	}
	if cfg.CloudinaryCloudName != "" {
		store, err := storage.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err == nil {
			slog.Info("image storage ready", "backend", "cloudinary", "folder", cfg.CloudinaryFolder)
			return store
		}
		slog.Error("cloudinary image storage unavailable", "error", err)
	}
	slog.Warn("image uploads disabled: no storage backend configured")
	return nil
}

func newNotifier(cfg *config.Config) (notifications.Notifier, *notifications.Broker) {
	var broker *notifications.Broker
	if cfg.AMQPURL != "" {
		b, err := notifications.NewBroker(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			slog.Error("broker unavailable, moderation events will not be published", "error", err)
		} else {
			broker = b
		}
	}
	return notifications.NewService(cfg, broker), broker
}

func newAnalyzer(cfg *config.Config) analysis.Analyzer {
	if cfg.OpenAIAPIKey == "" {
		slog.Info("alert analysis using stub analyzer")
		return analysis.Stub{}
	}
	return analysis.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.OpenAIModel)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

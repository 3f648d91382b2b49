package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/geowatch/geowatch/internal/api"
	"github.com/geowatch/geowatch/internal/billing"
	"github.com/geowatch/geowatch/internal/config"
	"github.com/geowatch/geowatch/internal/monitor"
	"github.com/geowatch/geowatch/internal/observability"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	rediscache "github.com/geowatch/geowatch/internal/repository/redis"
	"github.com/geowatch/geowatch/internal/services/monitoring"
	"github.com/geowatch/geowatch/internal/services/reporting"
	"github.com/geowatch/geowatch/internal/storage"
)

func main() {
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.Env, cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting GeoWatch API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
	)

	// Connect to PostgreSQL
	db, err := postgres.New(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
	)

	// Connect to Redis (optional)
	var cache *rediscache.Cache
	cache, err = rediscache.New(cfg.Redis)
	if err != nil {
		logger.Warn("Failed to connect to Redis, caching disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	// Connect to object storage (optional, screenshots only)
	var store monitor.ScreenshotStore
	if cfg.Storage.Enabled {
		minioClient, err := storage.NewMinIOClient(cfg.Storage)
		if err != nil {
			logger.Warn("Failed to connect to object storage, screenshots disabled", zap.Error(err))
		} else if err := minioClient.EnsureBucket(context.Background()); err != nil {
			logger.Warn("Failed to ensure storage bucket, screenshots disabled", zap.Error(err))
		} else {
			store = minioClient
			logger.Info("Connected to object storage", zap.String("bucket", cfg.Storage.Bucket))
		}
	}

	// Initialize repositories and services
	repos := postgres.NewRepositories(db)
	metrics := observability.NewMetrics("geowatch")
	billingSvc := billing.NewService(repos.Subscriptions, &quotaStore{repos: repos}, logger)
	emailSvc := reporting.NewEmailService(cfg.Email, logger)

	// Register answer-engine providers
	providers := []monitor.Provider{
		monitor.NewGoogleAIModeProvider(cfg.Oxylabs, logger),
	}
	if !cfg.Oxylabs.Configured() {
		logger.Warn("Oxylabs credentials not configured, google_ai_mode queries will fail")
	}
	chatgpt := monitor.NewChatGPTProvider(cfg.ChatGPT, store, logger)
	defer chatgpt.Close()
	providers = append(providers, chatgpt)

	orchestrator := monitoring.NewOrchestrator(providers, repos.Results, repos.Keywords, metrics, cfg.Monitor.HTTPConcurrency, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:           db,
		Repos:        repos,
		Cache:        cache,
		Orchestrator: orchestrator,
		Billing:      billingSvc,
		Email:        emailSvc,
		Metrics:      metrics,
		Logger:       logger,
		CronSecret:   cfg.Cron.Secret,
		EnableCORS:   cfg.Server.EnableCORS,
		RateLimit:    cfg.Server.RateLimitRPM,
		Development:  cfg.IsDevelopment(),
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
	}
}

// quotaStore adapts the repositories to the billing quota surface
type quotaStore struct {
	repos *postgres.Repositories
}

func (q *quotaStore) CountAppsByUserID(ctx context.Context, userID string) (int, error) {
	return q.repos.Apps.CountByUserID(ctx, userID)
}

func (q *quotaStore) CountKeywordsByAppID(ctx context.Context, appID uuid.UUID) (int, error) {
	return q.repos.Keywords.CountByAppID(ctx, appID)
}

// initLogger creates a configured zap logger
func initLogger(env config.Environment, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zapCfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

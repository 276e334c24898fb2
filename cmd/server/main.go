package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sebishield/validation-engine/internal/aggregator"
	"github.com/sebishield/validation-engine/internal/audit"
	"github.com/sebishield/validation-engine/internal/cache"
	"github.com/sebishield/validation-engine/internal/config"
	"github.com/sebishield/validation-engine/internal/database"
	"github.com/sebishield/validation-engine/internal/events"
	"github.com/sebishield/validation-engine/internal/handlers"
	"github.com/sebishield/validation-engine/internal/limits"
	"github.com/sebishield/validation-engine/internal/metrics"
	"github.com/sebishield/validation-engine/internal/rules"
	"github.com/sebishield/validation-engine/internal/scheduler"
	"github.com/sebishield/validation-engine/internal/semantic"
	"github.com/sebishield/validation-engine/internal/tracker"
	"github.com/sebishield/validation-engine/internal/validator"
)

const (
	serviceName = "validation-engine"
	version     = "1.0.0"
)

func main() {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "SEBI compliance validation engine for advisor content",
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the validation HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogging(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting validation engine",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Environment))

	collector := metrics.NewCollector()

	ruleEngine, err := rules.NewEngine(logger)
	if err != nil {
		return fmt.Errorf("failed to load rule pack: %w", err)
	}
	collector.SetActiveRules(ruleEngine.Count())

	var redisClient *redis.Client
	needRedis := cfg.Validation.CacheBackend == "redis" || cfg.Validation.LimiterBackend == "redis"
	if needRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()
	}

	var store cache.Store
	switch cfg.Validation.CacheBackend {
	case "redis":
		store = cache.NewRedisStore(redisClient, cfg.Validation.CacheTTL, logger)
	default:
		store = cache.NewMemoryStore(cfg.Validation.CacheTTL, cfg.Validation.CacheMaxEntries, logger)
	}

	loc := cfg.Validation.Location()
	var counter limits.Counter
	switch cfg.Validation.LimiterBackend {
	case "redis":
		counter = limits.NewRedisCounter(redisClient, loc)
	case "postgres":
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to usage store: %w", err)
		}
		defer db.Close()
		if err := database.RunMigrations(db, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		counter = database.NewUsageRepository(db, loc, logger)
	default:
		counter = limits.NewMemoryCounter(loc)
	}
	limiter := limits.NewLimiter(counter, cfg.Validation.DailyLimit)

	var reviewer semantic.Reviewer = semantic.DisabledReviewer{}
	if cfg.Semantic.Enabled {
		reviewer = semantic.NewOpenAIReviewer(cfg.Semantic, logger)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to kafka: %w", err)
		}
		publisher = kafkaPublisher
	}
	defer publisher.Close() //nolint:errcheck

	auditLogger := audit.NewLogger(cfg.Audit, logger)
	auditLogger.Start(context.Background())
	defer auditLogger.Stop()

	perf := tracker.New(cfg.Validation.WindowSize, cfg.Validation.SLAThreshold, collector, logger)
	agg := aggregator.New(aggregator.PolicyFromConfig(cfg.Validation), logger)

	pipeline := validator.New(
		cfg.Validation,
		logger,
		ruleEngine,
		reviewer,
		agg,
		store,
		limiter,
		perf,
		collector,
		publisher,
		auditLogger,
	)

	sched := scheduler.New(loc, limiter, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := handlers.NewValidationHandler(pipeline, ruleEngine, perf, collector, logger)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-sigChan:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Validation engine stopped")
	return nil
}

func setupLogging(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/supplyline/go-sellers-cache/internal/sellers/config"
	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/internal/sellers/events"
	"github.com/supplyline/go-sellers-cache/internal/sellers/fetcher"
	"github.com/supplyline/go-sellers-cache/internal/sellers/handler"
	"github.com/supplyline/go-sellers-cache/internal/sellers/metrics"
	"github.com/supplyline/go-sellers-cache/internal/sellers/resolver"
	"github.com/supplyline/go-sellers-cache/internal/sellers/service"
	"github.com/supplyline/go-sellers-cache/internal/sellers/store"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize cache store backend
	cacheStore, closeStore, err := initStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache store", zap.Error(err))
	}
	defer closeStore()

	// Initialize event publisher; events are optional and the service runs
	// without brokers configured.
	var publisher domain.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			logger.Fatal("Failed to initialize event publisher", zap.Error(err))
		}
		publisher = kafkaPublisher
	} else {
		publisher = events.NewNoopPublisher()
	}
	defer publisher.Close()

	// Initialize dependencies
	urlResolver := resolver.New(cfg.Resolver.OverrideMap())
	metricsCollector := metrics.NewInMemoryMetrics()

	documentFetcher := fetcher.New(
		urlResolver,
		cacheStore,
		publisher,
		metricsCollector,
		logger,
		fetcher.Config{
			Timeout:           time.Duration(cfg.Fetcher.TimeoutSeconds) * time.Second,
			MaxBodyBytes:      int64(cfg.Fetcher.MaxBodyMB) << 20,
			MaxRedirects:      cfg.Fetcher.MaxRedirects,
			UserAgent:         cfg.Fetcher.UserAgent,
			RequestsPerSecond: cfg.Fetcher.RequestsPerSecond,
			Burst:             cfg.Fetcher.Burst,
		},
	)

	// Initialize services
	refreshService := service.NewRefreshService(cacheStore, documentFetcher, logger)
	lookupService := service.NewLookupService(
		refreshService,
		cacheStore,
		metricsCollector,
		logger,
		service.Config{
			StreamTimeoutCap:     time.Duration(cfg.Lookup.StreamTimeoutCapMs) * time.Millisecond,
			DefaultMaxConcurrent: cfg.Lookup.DefaultMaxConcurrent,
		},
	)

	// Start HTTP server
	errChan := make(chan error, 1)

	go func() {
		httpHandler := handler.NewHTTPHandler(lookupService, refreshService, metricsCollector, logger)
		router := setupHTTPRouter(httpHandler)

		srv := &http.Server{
			Addr:    cfg.Server.HTTPPort,
			Handler: router,
		}

		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Fatal("Server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Server stopped")
}

func initStore(cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := initDB(cfg.Database)
		if err != nil {
			return nil, nil, err
		}

		pgStore := store.NewPostgresStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		logger.Info("Using postgres cache store")
		return pgStore, func() { db.Close() }, nil

	case "redis":
		client := initRedis(cfg.Redis)
		logger.Info("Using redis cache store")
		return store.NewRedisStore(client), func() { client.Close() }, nil

	default:
		logger.Info("Using in-memory cache store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

func initDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func setupHTTPRouter(handler *handler.HTTPHandler) *gin.Engine {
	router := gin.Default()

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Register routes
	handler.RegisterRoutes(router)

	return router
}

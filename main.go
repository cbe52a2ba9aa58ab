package main

import (
	"context"
	"fmt"
	"os"

	"github.com/safelink/scan-gateway/internal/api"
	"github.com/safelink/scan-gateway/internal/config"
	"github.com/safelink/scan-gateway/internal/handler"
	"github.com/safelink/scan-gateway/internal/identity"
	"github.com/safelink/scan-gateway/internal/logger"
	"github.com/safelink/scan-gateway/internal/metrics"
	"github.com/safelink/scan-gateway/internal/pipeline"
	"github.com/safelink/scan-gateway/internal/profiling"
	"github.com/safelink/scan-gateway/internal/quota"
	"github.com/safelink/scan-gateway/internal/scanner"

	"github.com/redis/go-redis/v9"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Start profiling server (if enabled)
	profiling.StartPprofServer()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Initialize logger
	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	// Optional continuous profiling
	profiler, err := profiling.StartPyroscope(cfg.Service.Name)
	if err != nil {
		log.Warn("Continuous profiling unavailable", logger.Error(err))
	}
	defer func() { _ = profiler.Stop() }()

	// Connect to Redis
	redisClient, err := connectRedis(cfg, log)
	if err != nil {
		log.Error("Failed to connect to Redis", logger.Error(err))
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	// Run server
	return runServer(cfg, log, redisClient)
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Path("config.yml"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// createLogger creates a logger instance from configuration.
func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

// connectRedis opens and verifies the Redis connection for the quota store.
func connectRedis(cfg *config.Config, log logger.Logger) (*redis.Client, error) {
	client, err := quota.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	log.Info("Redis connected",
		logger.String("address", cfg.Redis.Address),
		logger.Int("db", cfg.Redis.DB),
	)
	return client, nil
}

// runServer creates all dependencies and starts the HTTP server.
func runServer(cfg *config.Config, log logger.Logger, redisClient *redis.Client) int {
	m := metrics.New()

	verifier := identity.NewJWTVerifier(cfg.Auth.JWTSecret)
	store := quota.NewStore(redisClient, cfg.Quota.DailyLimit, log)
	lookup := scanner.NewClient(scanner.Config{
		APIKey:        cfg.Scanner.APIKey,
		BaseURL:       cfg.Scanner.BaseURL,
		ClientID:      cfg.Scanner.ClientID,
		ClientVersion: cfg.Scanner.ClientVersion,
		Timeout:       cfg.Scanner.Timeout,
	}, log)

	admission := pipeline.New(verifier, store, nil, m, log)

	scanHandler := handler.NewScanHandler(admission, lookup, m, log)
	statsHandler := handler.NewStatsHandler(store, log)

	// done signals background goroutines (IP limiter cleanup) on shutdown
	done := make(chan struct{})
	defer close(done)

	server := api.NewServer(cfg, api.Dependencies{
		ScanHandler:  scanHandler,
		StatsHandler: statsHandler,
		Verifier:     verifier,
		Metrics:      m,
		RedisPing: func(ctx context.Context) error {
			return store.Ping(ctx)
		},
		Done: done,
	}, log)

	log.Info("Scan gateway starting",
		logger.Int("port", cfg.Service.Port),
		logger.Int("daily_limit", cfg.Quota.DailyLimit),
	)

	if err := server.RunWithGracefulShutdown(context.Background()); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Scan gateway exited cleanly")
	return 0
}

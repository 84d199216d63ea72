package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/dealscope/scoreq/config"
	"github.com/dealscope/scoreq/internal/bootstrap"
	"github.com/dealscope/scoreq/internal/devseed"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	// Log startup info
	logStartupInfo(ctx, logger, &cfg)

	cfgPtr := &cfg

	// Validate configuration
	if err = bootstrap.ValidateServiceConfig(cfgPtr); err != nil {
		return err
	}

	// Initialize infrastructure
	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	// Seed sample jobs if enabled
	if cfg.SeedSampleJobs {
		if seedErr := seedSampleJobs(ctx, redisClient, cfgPtr, logger); seedErr != nil {
			logger.WarnContext(ctx, "sample job seeding failed", "error", seedErr)
		}
	}

	// Initialize and run services
	services := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfgPtr,
		RedisClient: redisClient,
		Logger:      logger,
	})

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:      cfgPtr,
		Services:    services,
		RedisClient: redisClient,
		Logger:      logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	enabledServices := bootstrap.GetEnabledServices(cfg)
	logger.InfoContext(ctx, "starting scoreq service",
		"redis_uri", cfg.Redis.URI,
		"queue", cfg.Worker.QueueName,
		"enabled_services", enabledServices)
}

func seedSampleJobs(
	ctx context.Context,
	redisClient redis.UniversalClient,
	cfg *config.AppConfig,
	logger *slog.Logger,
) error {
	logger.InfoContext(ctx, "seeding sample businesses")
	return devseed.Run(ctx, devseed.NewServices(redisClient, cfg.Worker), logger)
}

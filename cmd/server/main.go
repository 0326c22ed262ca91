package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mcoot/levelgrid/internal/api"
	"github.com/mcoot/levelgrid/internal/factory"
	"github.com/mcoot/levelgrid/internal/services/deletecheck"
	"github.com/mcoot/levelgrid/internal/services/identity"
	redisstorage "github.com/mcoot/levelgrid/internal/storage/redis"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	cfg, err := configFromEnv(logger)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:              logger,
		Clock:               app.Clock,
		DeleteCheckService:  app.DeleteCheckService,
		LevelService:        app.LevelService,
		SchedulerSecretHash: []byte(os.Getenv("SCHEDULER_SECRET_HASH")),
		MetricsHandler:      app.MetricsHandler(),
	})
	if os.Getenv("SCHEDULER_SECRET_HASH") == "" {
		logger.Warn("SCHEDULER_SECRET_HASH not set, the scheduler trigger is unauthenticated")
	}

	// Create server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid PORT", slog.String("port", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Run the deletion check in-process when an interval is configured
	if app.DeleteCheckConfig.ScheduleInterval > 0 {
		go func() {
			if err := app.Scheduler.Start(ctx); err != nil {
				logger.Error("scheduler error", slog.String("error", err.Error()))
			}
		}()
		defer app.Scheduler.Stop()
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// configFromEnv builds the factory config from environment variables
func configFromEnv(logger *slog.Logger) (factory.Config, error) {
	cfg := factory.Config{
		Logger:      logger,
		StorageType: os.Getenv("STORAGE_TYPE"),
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			return cfg, errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	if identityURL := os.Getenv("IDENTITY_URL"); identityURL != "" {
		identityCfg := identity.DefaultHTTPConfig()
		identityCfg.BaseURL = identityURL
		identityCfg.Token = os.Getenv("IDENTITY_TOKEN")
		cfg.IdentityConfig = &identityCfg
	}
	if raw := os.Getenv("IDENTITY_STATIC"); raw != "" {
		static, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("IDENTITY_STATIC: %w", err)
		}
		cfg.StaticIdentity = static
	}

	dcCfg := deletecheck.DefaultConfig()
	var err error
	if dcCfg.StalenessWindow, err = envDuration("DELETECHECK_STALENESS_WINDOW", dcCfg.StalenessWindow); err != nil {
		return cfg, err
	}
	if dcCfg.TimeBudget, err = envDuration("DELETECHECK_TIME_BUDGET", dcCfg.TimeBudget); err != nil {
		return cfg, err
	}
	if dcCfg.ScheduleInterval, err = envDuration("DELETECHECK_SCHEDULE_INTERVAL", dcCfg.ScheduleInterval); err != nil {
		return cfg, err
	}
	if raw := os.Getenv("DELETECHECK_RUN_LEASE"); raw != "" {
		if dcCfg.RunLeaseEnabled, err = strconv.ParseBool(raw); err != nil {
			return cfg, fmt.Errorf("DELETECHECK_RUN_LEASE: %w", err)
		}
	}
	cfg.DeleteCheckConfig = &dcCfg

	return cfg, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", name)
	}
	return d, nil
}

func logLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

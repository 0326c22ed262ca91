package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mcoot/levelgrid/internal/dependencies/clock"
	"github.com/mcoot/levelgrid/internal/dependencies/random"
	"github.com/mcoot/levelgrid/internal/metrics"
	"github.com/mcoot/levelgrid/internal/services/deletecheck"
	"github.com/mcoot/levelgrid/internal/services/identity"
	"github.com/mcoot/levelgrid/internal/services/levels"
	"github.com/mcoot/levelgrid/internal/storage"
	"github.com/mcoot/levelgrid/internal/storage/memory"
	redisstorage "github.com/mcoot/levelgrid/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	Random   random.Random
	Identity identity.Provider

	// Metrics
	Registry           *prometheus.Registry
	DeleteCheckMetrics *metrics.DeleteCheck

	// Services
	LevelService       *levels.Service
	AccountCleanup     *levels.AccountCleanup
	Reconciler         *deletecheck.Reconciler
	DeleteCheckService *deletecheck.Service
	Scheduler          *deletecheck.Scheduler

	DeleteCheckConfig deletecheck.Config
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// IdentityConfig configures the upstream identity service.
	// Required unless StaticIdentity is set.
	IdentityConfig *identity.HTTPConfig
	// StaticIdentity opts in to an empty in-memory identity provider for local development.
	// Every lookup reports absent, so every stale registration is retired and its levels deleted.
	StaticIdentity bool
	// DeleteCheckConfig overrides deletecheck.DefaultConfig() when set
	DeleteCheckConfig *deletecheck.Config
}

// ErrIdentityNotConfigured is returned by New when neither an identity service nor
// the static provider is configured
var ErrIdentityNotConfigured = errors.New("identity service not configured: set IdentityConfig or StaticIdentity")

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	var provider identity.Provider
	switch {
	case cfg.IdentityConfig != nil:
		httpProvider, err := identity.NewHTTPProvider(*cfg.IdentityConfig, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		provider = httpProvider
	case cfg.StaticIdentity:
		logger.Warn("using static identity provider, every registered identifier will be treated as deleted")
		provider = identity.NewStaticProvider()
	default:
		_ = store.Close()
		return nil, ErrIdentityNotConfigured
	}

	dcCfg := deletecheck.DefaultConfig()
	if cfg.DeleteCheckConfig != nil {
		dcCfg = *cfg.DeleteCheckConfig
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return newWithDependencies(store, provider, clock.New(), random.New(), reg, dcCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	provider identity.Provider,
	clk clock.Clock,
	rnd random.Random,
	reg *prometheus.Registry,
	dcCfg deletecheck.Config,
	logger *slog.Logger,
) *App {
	dcMetrics := metrics.NewDeleteCheck(reg)

	// Create services
	levelService := levels.New(store, clk, logger)
	cleanup := levels.NewAccountCleanup(store, logger)
	reconciler := deletecheck.NewReconciler(store, provider, cleanup, clk, dcCfg, logger, deletecheck.WithMetrics(dcMetrics))
	dcService := deletecheck.NewService(store, store, reconciler, clk, dcCfg, logger, dcMetrics)
	scheduler := deletecheck.NewScheduler(dcService, dcCfg.ScheduleInterval, rnd, logger)

	return &App{
		Storage:            store,
		Clock:              clk,
		Random:             rnd,
		Identity:           provider,
		Registry:           reg,
		DeleteCheckMetrics: dcMetrics,
		LevelService:       levelService,
		AccountCleanup:     cleanup,
		Reconciler:         reconciler,
		DeleteCheckService: dcService,
		Scheduler:          scheduler,
		DeleteCheckConfig:  dcCfg,
	}
}

// MetricsHandler serves the app's Prometheus registry
func (a *App) MetricsHandler() http.Handler {
	return metrics.Handler(a.Registry)
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}

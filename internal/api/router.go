package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/levelgrid/internal/api/handler"
	"github.com/mcoot/levelgrid/internal/api/middleware"
	"github.com/mcoot/levelgrid/internal/dependencies/clock"
	"github.com/mcoot/levelgrid/internal/services/deletecheck"
	"github.com/mcoot/levelgrid/internal/services/levels"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	Clock              clock.Clock
	DeleteCheckService *deletecheck.Service
	LevelService       *levels.Service

	// SchedulerSecretHash is the bcrypt hash of the trigger secret; empty disables the check
	SchedulerSecretHash []byte

	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	registrationHandler := handler.NewRegistrationHandler(cfg.DeleteCheckService, cfg.Clock)
	levelHandler := handler.NewLevelHandler(cfg.LevelService)
	schedulerHandler := handler.NewSchedulerHandler(cfg.DeleteCheckService, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Deletion check registration routes
	registrations := api.PathPrefix("/deletecheck/registrations").Subrouter()
	registrations.HandleFunc("", registrationHandler.Register).Methods(http.MethodPost)
	registrations.HandleFunc("", registrationHandler.List).Methods(http.MethodGet)
	registrations.HandleFunc("/{key}", registrationHandler.Unregister).Methods(http.MethodDelete)

	// Level routes
	api.HandleFunc("/levels", levelHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/levels/{name}", levelHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/levels/{name}", levelHandler.Put).Methods(http.MethodPut)
	api.HandleFunc("/levels/{name}", levelHandler.Delete).Methods(http.MethodDelete)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Scheduler trigger, outside the public API prefix
	internal := r.PathPrefix("/internal/scheduler").Subrouter()
	internal.Use(middleware.TriggerRecovery(cfg.Logger))
	internal.Use(loggingMiddleware)
	internal.Use(middleware.SchedulerSecret(cfg.SchedulerSecretHash, cfg.Logger))
	internal.HandleFunc("/delete-check", schedulerHandler.DeleteCheck).Methods(http.MethodPost)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

package deletecheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/levelgrid/internal/dependencies/clock"
	"github.com/mcoot/levelgrid/internal/metrics"
	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/services/identity"
	"github.com/mcoot/levelgrid/internal/storage"
)

// Reconciler runs bounded passes over the registration store, retiring identifiers
// that the identity provider no longer knows about
type Reconciler struct {
	store    storage.RegistrationStore
	provider identity.Provider
	handler  DeletionHandler
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.DeleteCheck
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithMetrics records per-item outcomes
func WithMetrics(m *metrics.DeleteCheck) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// NewReconciler creates a new Reconciler
func NewReconciler(
	store storage.RegistrationStore,
	provider identity.Provider,
	handler DeletionHandler,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		store:    store,
		provider: provider,
		handler:  handler,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one reconciliation pass as of now.
// Only a *StoreError aborts the run; provider and handler failures are logged and the
// affected key is left untouched for the next run.
func (r *Reconciler) Run(ctx context.Context, now time.Time) (*model.RunSummary, error) {
	return r.run(ctx, newRunID(), now)
}

func (r *Reconciler) run(ctx context.Context, runID string, now time.Time) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		RunID:       runID,
		StartedAt:   now,
		StaleCutoff: now.Add(-r.cfg.StalenessWindow),
	}
	logger := r.logger.With(slog.String("run_id", runID))

	candidates, err := r.store.SelectStale(ctx, summary.StaleCutoff)
	if err != nil {
		return nil, &StoreError{Op: "select stale", Err: err}
	}
	summary.Candidates = len(candidates)

	if len(candidates) == 0 {
		summary.Duration = r.clock.Since(now)
		logger.Debug("no stale registrations")
		return summary, nil
	}

	logger.Info("deletion check started",
		slog.Int("candidates", len(candidates)),
		slog.Time("stale_cutoff", summary.StaleCutoff),
	)

	// Oldest first, so a truncated run still services the most overdue keys
	for i, candidate := range candidates {
		if err := r.process(ctx, logger, candidate, now, summary); err != nil {
			logger.Error("deletion check aborted",
				slog.String("key", candidate.Key),
				slog.Int("processed", summary.Processed),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		summary.Processed++

		if i < len(candidates)-1 && r.clock.Since(now) > r.cfg.TimeBudget {
			summary.Truncated = true
			break
		}
	}

	summary.Duration = r.clock.Since(now)

	logger.Info("deletion check finished",
		slog.Int("processed", summary.Processed),
		slog.Int("still_exists", summary.StillExists),
		slog.Int("deleted_found", summary.DeletedFound),
		slog.Int("removed", summary.Removed),
		slog.Int("failed", summary.Failed),
		slog.Bool("truncated", summary.Truncated),
		slog.Duration("duration", summary.Duration),
	)

	return summary, nil
}

// process runs one candidate's full branch. Every return leaves the key either
// re-stamped, removed, or untouched.
func (r *Reconciler) process(
	ctx context.Context,
	logger *slog.Logger,
	candidate model.RegisteredIdentifier,
	now time.Time,
	summary *model.RunSummary,
) error {
	key := candidate.Key
	space := candidate.Space()

	exists, err := r.lookup(ctx, key, space)
	if err != nil {
		logger.Warn("identity lookup failed, will retry next run",
			slog.String("key", key),
			slog.String("space", space.String()),
			slog.String("error", err.Error()),
		)
		summary.Failed++
		r.metrics.ObserveItem(metrics.ItemOutcomeProviderError)
		return nil
	}

	if exists {
		if err := r.store.Touch(ctx, key, now); err != nil {
			return &StoreError{Op: "touch", Key: key, Err: err}
		}
		summary.StillExists++
		r.metrics.ObserveItem(metrics.ItemOutcomeStillExists)
		return nil
	}

	summary.DeletedFound++
	if err := r.notify(ctx, key, space == model.IdentifierSpaceAccountID); err != nil {
		logger.Warn("deletion handler failed, will retry next run",
			slog.String("key", key),
			slog.String("space", space.String()),
			slog.String("error", err.Error()),
		)
		summary.Failed++
		r.metrics.ObserveItem(metrics.ItemOutcomeCallbackError)
		return nil
	}

	if err := r.store.Unregister(ctx, key); err != nil {
		return &StoreError{Op: "unregister", Key: key, Err: err}
	}
	summary.Removed++
	r.metrics.ObserveItem(metrics.ItemOutcomeRemoved)

	logger.Info("retired deleted identifier",
		slog.String("key", key),
		slog.String("space", space.String()),
	)
	return nil
}

func (r *Reconciler) lookup(ctx context.Context, key string, space model.IdentifierSpace) (bool, error) {
	if space == model.IdentifierSpaceAccountID {
		return r.provider.ExistsByID(ctx, key)
	}
	return r.provider.ExistsByName(ctx, key)
}

// notify calls the deletion handler, converting a panic into a CallbackError
func (r *Reconciler) notify(ctx context.Context, key string, wasAccountID bool) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &CallbackError{Key: key, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	if err := r.handler.OnDeleted(ctx, key, wasAccountID); err != nil {
		return &CallbackError{Key: key, Err: err}
	}
	return nil
}

func newRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

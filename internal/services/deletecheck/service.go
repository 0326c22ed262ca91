package deletecheck

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/levelgrid/internal/dependencies/clock"
	"github.com/mcoot/levelgrid/internal/metrics"
	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/storage"
)

// releaseTimeout bounds the lease release after a run, independent of the run context
const releaseTimeout = 5 * time.Second

// Service is the entry point for registration and triggered runs
type Service struct {
	store      storage.RegistrationStore
	lease      storage.RunLease
	reconciler *Reconciler
	clock      clock.Clock
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.DeleteCheck
}

// NewService creates a new deletion check Service. lease may be nil when
// cfg.RunLeaseEnabled is false.
func NewService(
	store storage.RegistrationStore,
	lease storage.RunLease,
	reconciler *Reconciler,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
	m *metrics.DeleteCheck,
) *Service {
	return &Service{
		store:      store,
		lease:      lease,
		reconciler: reconciler,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// RegisterUserForDeleteCheck starts monitoring key. Calling it again refreshes
// the last-checked time.
func (s *Service) RegisterUserForDeleteCheck(ctx context.Context, key string) error {
	key, err := model.NormalizeIdentifier(key)
	if err != nil {
		return err
	}
	return s.store.Register(ctx, key, s.clock.Now())
}

// UnregisterUserForDeleteCheck stops monitoring key. Unknown keys are ignored.
func (s *Service) UnregisterUserForDeleteCheck(ctx context.Context, key string) error {
	key, err := model.NormalizeIdentifier(key)
	if err != nil {
		return err
	}
	return s.store.Unregister(ctx, key)
}

// ListRegistrations returns registrations last checked at or before staleBefore, oldest first
func (s *Service) ListRegistrations(ctx context.Context, staleBefore time.Time) ([]model.RegisteredIdentifier, error) {
	return s.store.SelectStale(ctx, staleBefore)
}

// RunOnce performs one reconciliation pass as of the current time.
// Returns model.ErrRunInProgress when another run holds the lease.
// Once started, the run is bounded by the time budget only: cancelling ctx does not
// abort it partway through.
func (s *Service) RunOnce(ctx context.Context) (*model.RunSummary, error) {
	ctx = context.WithoutCancel(ctx)
	runID := newRunID()

	if s.cfg.RunLeaseEnabled && s.lease != nil {
		ok, err := s.lease.AcquireRunLease(ctx, runID, s.cfg.leaseTTL())
		if err != nil {
			s.metrics.ObserveRun(metrics.RunResultError, nil)
			return nil, &StoreError{Op: "acquire lease", Err: err}
		}
		if !ok {
			s.logger.Info("deletion check skipped, another run holds the lease", slog.String("run_id", runID))
			s.metrics.ObserveRun(metrics.RunResultSkipped, nil)
			return nil, model.ErrRunInProgress
		}
		defer s.releaseLease(ctx, runID)
	}

	summary, err := s.reconciler.run(ctx, runID, s.clock.Now())
	if err != nil {
		s.metrics.ObserveRun(metrics.RunResultError, nil)
		return nil, err
	}

	s.metrics.ObserveRun(metrics.RunResultComplete, summary)
	return summary, nil
}

func (s *Service) releaseLease(ctx context.Context, runID string) {
	releaseCtx, cancel := context.WithTimeout(ctx, releaseTimeout)
	defer cancel()

	// The lease expires on its own; a failed release only delays the next run
	if err := s.lease.ReleaseRunLease(releaseCtx, runID); err != nil {
		s.logger.Warn("failed to release deletion check lease",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
	}
}

// IsStoreError reports whether err aborted a run because of the registration store
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

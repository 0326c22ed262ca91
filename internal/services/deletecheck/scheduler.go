package deletecheck

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/levelgrid/internal/dependencies/random"
	"github.com/mcoot/levelgrid/internal/model"
)

// Scheduler triggers RunOnce on a fixed interval from inside the server process.
// Deployments with an external cron hitting the trigger endpoint leave it disabled.
type Scheduler struct {
	service  *Service
	interval time.Duration
	random   random.Random
	logger   *slog.Logger

	mu         sync.Mutex
	started    bool
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// ErrSchedulerStarted is returned by Start on a Scheduler that has already been started
var ErrSchedulerStarted = errors.New("deletion check scheduler already started")

// NewScheduler creates a new Scheduler
func NewScheduler(service *Service, interval time.Duration, random random.Random, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: interval,
		random:   random,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// nextInterval applies up to ±10% jitter so replicas do not fire together
func (s *Scheduler) nextInterval() time.Duration {
	jitter := s.interval / 10
	if jitter <= 0 {
		return s.interval
	}
	offset := time.Duration(s.random.Intn(int(2*jitter))) - jitter
	return s.interval + offset
}

// Start runs the loop until ctx is cancelled or Stop is called. Blocks.
// A Scheduler runs once: later calls return ErrSchedulerStarted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSchedulerStarted
	}
	s.started = true
	if s.interval <= 0 {
		s.mu.Unlock()
		close(s.done)
		return errors.New("deletion check schedule interval must be positive")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		close(s.done)
	}()

	s.logger.Info("deletion check scheduler started", slog.Duration("interval", s.interval))

	timer := time.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if loopCtx.Err() != nil {
				continue
			}
			s.tick(loopCtx)
			timer.Reset(s.nextInterval())
		case <-loopCtx.Done():
			s.logger.Info("deletion check scheduler stopping")
			return nil
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to finish.
// The run itself is not cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-s.done
}

func (s *Scheduler) tick(ctx context.Context) {
	summary, err := s.service.RunOnce(ctx)
	switch {
	case errors.Is(err, model.ErrRunInProgress):
		return
	case err != nil:
		s.logger.Error("scheduled deletion check failed", slog.String("error", err.Error()))
	case summary.Truncated:
		s.logger.Info("scheduled deletion check truncated",
			slog.String("run_id", summary.RunID),
			slog.Int("remaining", summary.Remaining()),
		)
	}
}

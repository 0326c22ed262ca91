package deletecheck

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/levelgrid/internal/dependencies/mocks"
	"github.com/mcoot/levelgrid/internal/services/identity"
	"github.com/mcoot/levelgrid/internal/storage/memory"
	"github.com/mcoot/levelgrid/internal/testutil"
)

func newTestScheduler(t *testing.T, interval time.Duration, handler DeletionHandler) (*Scheduler, *mocks.MockRandom, *Service) {
	t.Helper()
	clk := mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewWithClock(clk)
	logger := testutil.NopLogger()
	cfg := DefaultConfig()
	reconciler := NewReconciler(store, identity.NewStaticProvider(), handler, clk, cfg, logger)
	service := NewService(store, store, reconciler, clk, cfg, logger, nil)
	rnd := mocks.NewMockRandom()
	return NewScheduler(service, interval, rnd, logger), rnd, service
}

func noopHandler() DeletionHandler {
	return DeletionHandlerFunc(func(ctx context.Context, key string, wasAccountID bool) error {
		return nil
	})
}

func TestSchedulerNextIntervalAppliesJitter(t *testing.T) {
	scheduler, rnd, _ := newTestScheduler(t, 10*time.Second, noopHandler())
	rnd.QueueIntn(0, int(time.Second), int(2*time.Second)-1)

	assert.Equal(t, 9*time.Second, scheduler.nextInterval())
	assert.Equal(t, 10*time.Second, scheduler.nextInterval())
	assert.Equal(t, 11*time.Second-1, scheduler.nextInterval())
}

func TestSchedulerStartRejectsNonPositiveInterval(t *testing.T) {
	scheduler, _, _ := newTestScheduler(t, 0, noopHandler())

	err := scheduler.Start(context.Background())
	require.Error(t, err)
}

func TestSchedulerStopWithoutStartReturns(t *testing.T) {
	scheduler, _, _ := newTestScheduler(t, time.Minute, noopHandler())
	scheduler.Stop()
}

func TestSchedulerRunsChecksUntilStopped(t *testing.T) {
	var calls atomic.Int32
	handler := DeletionHandlerFunc(func(ctx context.Context, key string, wasAccountID bool) error {
		calls.Add(1)
		return nil
	})
	scheduler, _, service := newTestScheduler(t, 10*time.Millisecond, handler)

	ctx := context.Background()
	require.NoError(t, service.store.Register(ctx, "t2_gone", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	errCh := make(chan error, 1)
	go func() { errCh <- scheduler.Start(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	scheduler.Stop()
	require.NoError(t, <-errCh)

	entries, err := service.ListRegistrations(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSchedulerStopsWithContext(t *testing.T) {
	scheduler, _, _ := newTestScheduler(t, time.Hour, noopHandler())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- scheduler.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestSchedulerStartTwiceReturnsError(t *testing.T) {
	scheduler, _, _ := newTestScheduler(t, 0, noopHandler())

	require.Error(t, scheduler.Start(context.Background()))
	assert.ErrorIs(t, scheduler.Start(context.Background()), ErrSchedulerStarted)
}

func TestSchedulerStopLetsInFlightRunFinish(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var handlerCtxErr atomic.Value
	handler := DeletionHandlerFunc(func(ctx context.Context, key string, wasAccountID bool) error {
		close(entered)
		<-release
		handlerCtxErr.Store(fmt.Sprint(ctx.Err()))
		return nil
	})
	scheduler, _, service := newTestScheduler(t, 10*time.Millisecond, handler)

	ctx := context.Background()
	require.NoError(t, service.store.Register(ctx, "t2_gone", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	errCh := make(chan error, 1)
	go func() { errCh <- scheduler.Start(ctx) }()
	<-entered

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight run finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-stopped
	require.NoError(t, <-errCh)

	assert.Equal(t, "<nil>", handlerCtxErr.Load())
	entries, err := service.ListRegistrations(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package deletecheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/levelgrid/internal/dependencies/mocks"
	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/services/identity"
	"github.com/mcoot/levelgrid/internal/storage"
	"github.com/mcoot/levelgrid/internal/storage/memory"
	"github.com/mcoot/levelgrid/internal/testutil"
)

// contextStore fails every write once ctx is done, the way a network-backed store does
type contextStore struct {
	storage.RegistrationStore
}

func (c *contextStore) Touch(ctx context.Context, key string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.RegistrationStore.Touch(ctx, key, at)
}

func (c *contextStore) Unregister(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.RegistrationStore.Unregister(ctx, key)
}

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	provider *identity.StaticProvider
	handler  *recordingHandler
	clock    *mocks.MockClock
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.storage = memory.NewWithClock(s.clock)
	s.provider = identity.NewStaticProvider()
	s.handler = &recordingHandler{failFor: map[string]error{}}
	s.ctx = context.Background()
	s.service = s.newService(DefaultConfig())
}

func (s *ServiceSuite) newService(cfg Config) *Service {
	logger := testutil.NopLogger()
	reconciler := NewReconciler(s.storage, s.provider, s.handler, s.clock, cfg, logger)
	return NewService(s.storage, s.storage, reconciler, s.clock, cfg, logger, nil)
}

// Registration

func (s *ServiceSuite) TestRegisterStampsCurrentTime() {
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "t2_abc"))

	entries, err := s.service.ListRegistrations(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("t2_abc", entries[0].Key)
	s.Equal(s.clock.Now().UnixMilli(), entries[0].LastCheckedAt.UnixMilli())
}

func (s *ServiceSuite) TestRegisterAgainRefreshesTimestamp() {
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "alice"))
	s.clock.Advance(time.Hour)
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "alice"))

	entries, err := s.service.ListRegistrations(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(s.clock.Now().UnixMilli(), entries[0].LastCheckedAt.UnixMilli())
}

func (s *ServiceSuite) TestRegisterRejectsBlankKey() {
	err := s.service.RegisterUserForDeleteCheck(s.ctx, "  ")
	s.ErrorIs(err, model.ErrInvalidIdentifier)
}

func (s *ServiceSuite) TestRegisterTrimsKey() {
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, " t2_x "))

	entries, err := s.service.ListRegistrations(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("t2_x", entries[0].Key)

	s.Require().NoError(s.service.UnregisterUserForDeleteCheck(s.ctx, "t2_x\t"))
	entries, err = s.service.ListRegistrations(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServiceSuite) TestUnregisterRemovesKey() {
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "alice"))
	s.Require().NoError(s.service.UnregisterUserForDeleteCheck(s.ctx, "alice"))

	entries, err := s.service.ListRegistrations(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServiceSuite) TestUnregisterUnknownKeyIsNoOp() {
	s.NoError(s.service.UnregisterUserForDeleteCheck(s.ctx, "nobody"))
}

func (s *ServiceSuite) TestUnregisterRejectsBlankKey() {
	s.ErrorIs(s.service.UnregisterUserForDeleteCheck(s.ctx, ""), model.ErrInvalidIdentifier)
}

func (s *ServiceSuite) TestListRegistrationsFiltersByCutoff() {
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "old"))
	cutoff := s.clock.Now()
	s.clock.Advance(time.Minute)
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "new"))

	entries, err := s.service.ListRegistrations(s.ctx, cutoff)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("old", entries[0].Key)
}

// RunOnce

func (s *ServiceSuite) TestRunOnceRetiresDeletedRegistration() {
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "t2_abc"))
	s.clock.Advance(25 * time.Hour)

	summary, err := s.service.RunOnce(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, summary.DeletedFound)
	s.Equal(1, summary.Removed)
	s.Equal([]deletion{{key: "t2_abc", wasAccountID: true}}, s.handler.calls)
}

func (s *ServiceSuite) TestRunOnceReleasesLease() {
	_, err := s.service.RunOnce(s.ctx)
	s.Require().NoError(err)

	ok, err := s.storage.AcquireRunLease(s.ctx, "someone-else", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestRunOnceSkipsWhileLeaseHeld() {
	s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, "t2_abc"))
	s.clock.Advance(25 * time.Hour)

	ok, err := s.storage.AcquireRunLease(s.ctx, "other-run", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	summary, err := s.service.RunOnce(s.ctx)
	s.Nil(summary)
	s.ErrorIs(err, model.ErrRunInProgress)
	s.Empty(s.handler.calls)

	// Once the other run's lease lapses the next trigger does the work
	s.clock.Advance(2 * time.Minute)
	summary, err = s.service.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Removed)
}

func (s *ServiceSuite) TestRunOnceWithoutLeaseIgnoresHeldLease() {
	cfg := DefaultConfig()
	cfg.RunLeaseEnabled = false
	service := s.newService(cfg)

	ok, err := s.storage.AcquireRunLease(s.ctx, "other-run", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	_, err = service.RunOnce(s.ctx)
	s.NoError(err)
}

func (s *ServiceSuite) TestRunOnceSurfacesStoreError() {
	logger := testutil.NopLogger()
	store := &faultyStore{RegistrationStore: s.storage, selectErr: errors.New("connection refused")}
	cfg := DefaultConfig()
	reconciler := NewReconciler(store, s.provider, s.handler, s.clock, cfg, logger)
	service := NewService(store, s.storage, reconciler, s.clock, cfg, logger, nil)

	_, err := service.RunOnce(s.ctx)
	s.True(IsStoreError(err))

	// The lease is released even though the run failed
	ok, err := s.storage.AcquireRunLease(s.ctx, "next", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestRunOnceFinishesAfterCallerCancels() {
	logger := testutil.NopLogger()
	store := &contextStore{RegistrationStore: s.storage}
	cfg := DefaultConfig()
	reconciler := NewReconciler(store, s.provider, s.handler, s.clock, cfg, logger)
	service := NewService(store, s.storage, reconciler, s.clock, cfg, logger, nil)

	for _, key := range []string{"t2_a", "t2_b", "t2_c"} {
		s.Require().NoError(s.service.RegisterUserForDeleteCheck(s.ctx, key))
	}
	s.provider.AddID("t2_a", "t2_b")
	s.clock.Advance(25 * time.Hour)

	// The caller goes away during the first lookup
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.provider.OnLookup = func(string) { cancel() }

	summary, err := service.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(3, summary.Processed)
	s.Equal(2, summary.StillExists)
	s.Equal(1, summary.Removed)
	s.False(summary.Truncated)

	entries, err := s.service.ListRegistrations(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	for _, entry := range entries {
		s.Equal(s.clock.Now().UnixMilli(), entry.LastCheckedAt.UnixMilli())
	}
	s.Equal([]deletion{{key: "t2_c", wasAccountID: true}}, s.handler.calls)
}

func (s *ServiceSuite) TestIsStoreErrorUnwrapsWrappedErrors() {
	wrapped := errors.Join(errors.New("context"), &StoreError{Op: "touch", Key: "k", Err: errors.New("boom")})
	s.True(IsStoreError(wrapped))
	s.False(IsStoreError(errors.New("plain")))
	s.False(IsStoreError(&CallbackError{Key: "k", Err: errors.New("boom")}))
}

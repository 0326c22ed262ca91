// Package storagetest holds the behaviour every storage backend must share.
// Backend test suites embed Suite and set Storage in their SetupTest.
package storagetest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/storage"
)

// Suite is a testify suite exercising the storage.Storage contract
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
	Now     time.Time
}

// Registration tests

func (s *Suite) TestRegisterFreshEntryIsNotStale() {
	s.Require().NoError(s.Storage.Register(s.Ctx, "t2_abc", s.Now))

	stale, err := s.Storage.SelectStale(s.Ctx, s.Now.Add(-time.Millisecond))
	s.Require().NoError(err)
	s.Empty(stale)
}

func (s *Suite) TestRegisterIsIdempotent() {
	s.Require().NoError(s.Storage.Register(s.Ctx, "alice", s.Now.Add(-2*time.Hour)))
	s.Require().NoError(s.Storage.Register(s.Ctx, "alice", s.Now.Add(-time.Hour)))

	stale, err := s.Storage.SelectStale(s.Ctx, s.Now)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal("alice", stale[0].Key)
	// Score refreshed to the latest registration
	s.True(s.Now.Add(-time.Hour).Equal(stale[0].LastCheckedAt))
}

func (s *Suite) TestSelectStaleOrdersOldestFirst() {
	s.Require().NoError(s.Storage.Register(s.Ctx, "middle", s.Now.Add(-2*time.Hour)))
	s.Require().NoError(s.Storage.Register(s.Ctx, "newest", s.Now.Add(-time.Hour)))
	s.Require().NoError(s.Storage.Register(s.Ctx, "oldest", s.Now.Add(-3*time.Hour)))
	s.Require().NoError(s.Storage.Register(s.Ctx, "fresh", s.Now))

	stale, err := s.Storage.SelectStale(s.Ctx, s.Now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().Len(stale, 3)
	s.Equal("oldest", stale[0].Key)
	s.Equal("middle", stale[1].Key)
	s.Equal("newest", stale[2].Key)
}

func (s *Suite) TestSelectStaleCutoffIsInclusive() {
	s.Require().NoError(s.Storage.Register(s.Ctx, "edge", s.Now.Add(-time.Hour)))

	stale, err := s.Storage.SelectStale(s.Ctx, s.Now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Len(stale, 1)
}

func (s *Suite) TestSelectStaleEmptyStore() {
	stale, err := s.Storage.SelectStale(s.Ctx, s.Now)
	s.Require().NoError(err)
	s.Empty(stale)
}

func (s *Suite) TestUnregisterRemovesEntry() {
	s.Require().NoError(s.Storage.Register(s.Ctx, "t2_abc", s.Now.Add(-time.Hour)))
	s.Require().NoError(s.Storage.Unregister(s.Ctx, "t2_abc"))

	stale, err := s.Storage.SelectStale(s.Ctx, s.Now.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(stale)
}

func (s *Suite) TestUnregisterAbsentKeySucceeds() {
	s.NoError(s.Storage.Unregister(s.Ctx, "missing"))
}

func (s *Suite) TestTouchUpdatesScore() {
	s.Require().NoError(s.Storage.Register(s.Ctx, "alice", s.Now.Add(-48*time.Hour)))
	s.Require().NoError(s.Storage.Touch(s.Ctx, "alice", s.Now))

	stale, err := s.Storage.SelectStale(s.Ctx, s.Now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Empty(stale)

	stale, err = s.Storage.SelectStale(s.Ctx, s.Now)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.True(s.Now.Equal(stale[0].LastCheckedAt))
}

func (s *Suite) TestTouchDoesNotAddMembership() {
	s.Require().NoError(s.Storage.Touch(s.Ctx, "ghost", s.Now))

	stale, err := s.Storage.SelectStale(s.Ctx, s.Now.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(stale)
}

// Level tests

func (s *Suite) TestSaveAndGetLevel() {
	level := &model.Level{
		Name:      "level-1",
		Owner:     "t2_abc",
		Data:      json.RawMessage(`{"grid":[[1,0],[0,1]]}`),
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	}
	s.Require().NoError(s.Storage.SaveLevel(s.Ctx, level))

	retrieved, err := s.Storage.GetLevel(s.Ctx, "level-1")
	s.Require().NoError(err)
	s.Equal(level.Name, retrieved.Name)
	s.Equal(level.Owner, retrieved.Owner)
	s.JSONEq(string(level.Data), string(retrieved.Data))
}

func (s *Suite) TestGetLevelNotFound() {
	_, err := s.Storage.GetLevel(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrLevelNotFound)
}

func (s *Suite) TestSaveLevelReindexesOnOwnerChange() {
	s.Require().NoError(s.Storage.SaveLevel(s.Ctx, &model.Level{Name: "level-1", Owner: "alice", Data: json.RawMessage(`{}`)}))
	s.Require().NoError(s.Storage.SaveLevel(s.Ctx, &model.Level{Name: "level-1", Owner: "bob", Data: json.RawMessage(`{}`)}))

	aliceLevels, err := s.Storage.ListLevelsByOwner(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Empty(aliceLevels)

	bobLevels, err := s.Storage.ListLevelsByOwner(s.Ctx, "bob")
	s.Require().NoError(err)
	s.Equal([]string{"level-1"}, bobLevels)
}

func (s *Suite) TestDeleteLevel() {
	s.Require().NoError(s.Storage.SaveLevel(s.Ctx, &model.Level{Name: "level-1", Owner: "alice", Data: json.RawMessage(`{}`)}))
	s.Require().NoError(s.Storage.DeleteLevel(s.Ctx, "level-1"))

	_, err := s.Storage.GetLevel(s.Ctx, "level-1")
	s.ErrorIs(err, model.ErrLevelNotFound)

	names, err := s.Storage.ListLevelsByOwner(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Empty(names)

	// Deleting again is fine
	s.NoError(s.Storage.DeleteLevel(s.Ctx, "level-1"))
}

func (s *Suite) TestDeleteLevelsByOwner() {
	s.Require().NoError(s.Storage.SaveLevel(s.Ctx, &model.Level{Name: "a-1", Owner: "alice", Data: json.RawMessage(`{}`)}))
	s.Require().NoError(s.Storage.SaveLevel(s.Ctx, &model.Level{Name: "a-2", Owner: "alice", Data: json.RawMessage(`{}`)}))
	s.Require().NoError(s.Storage.SaveLevel(s.Ctx, &model.Level{Name: "b-1", Owner: "bob", Data: json.RawMessage(`{}`)}))

	deleted, err := s.Storage.DeleteLevelsByOwner(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(2, deleted)

	_, err = s.Storage.GetLevel(s.Ctx, "a-1")
	s.ErrorIs(err, model.ErrLevelNotFound)
	_, err = s.Storage.GetLevel(s.Ctx, "b-1")
	s.NoError(err)

	deleted, err = s.Storage.DeleteLevelsByOwner(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Zero(deleted)
}

// Run lease tests

func (s *Suite) TestRunLeaseIsExclusive() {
	ok, err := s.Storage.AcquireRunLease(s.Ctx, "run-1", time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.Storage.AcquireRunLease(s.Ctx, "run-2", time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *Suite) TestReleaseRunLeaseOnlyByHolder() {
	ok, err := s.Storage.AcquireRunLease(s.Ctx, "run-1", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Require().NoError(s.Storage.ReleaseRunLease(s.Ctx, "run-2"))
	ok, err = s.Storage.AcquireRunLease(s.Ctx, "run-2", time.Minute)
	s.Require().NoError(err)
	s.False(ok, "lease should still belong to run-1")

	s.Require().NoError(s.Storage.ReleaseRunLease(s.Ctx, "run-1"))
	ok, err = s.Storage.AcquireRunLease(s.Ctx, "run-2", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

package factory

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/services/deletecheck"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) saveLevel(name, owner string) {
	_, err := s.app.LevelService.SaveLevel(s.ctx, name, owner, json.RawMessage(`{"cells":[1,0,1]}`))
	s.Require().NoError(err)
}

// Test: a deleted account loses its registration and its levels after the window passes
func (s *IntegrationSuite) TestDeletedAccountIsCleanedUp() {
	// Step 1: Two users register and save levels
	s.app.Provider.AddID("t2_keep")
	s.Require().NoError(s.app.DeleteCheckService.RegisterUserForDeleteCheck(s.ctx, "t2_keep"))
	s.Require().NoError(s.app.DeleteCheckService.RegisterUserForDeleteCheck(s.ctx, "t2_gone"))
	s.saveLevel("kept-level", "t2_keep")
	s.saveLevel("doomed-level", "t2_gone")

	// Step 2: A run inside the window does nothing
	summary, err := s.app.DeleteCheckService.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, summary.Candidates)

	// Step 3: After the window both are checked
	s.app.MockClock.Advance(25 * time.Hour)
	summary, err = s.app.DeleteCheckService.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, summary.Processed)
	s.Equal(1, summary.StillExists)
	s.Equal(1, summary.DeletedFound)
	s.Equal(1, summary.Removed)

	// Step 4: The deleted account's levels are gone, the other's remain
	_, err = s.app.LevelService.GetLevel(s.ctx, "doomed-level")
	s.ErrorIs(err, model.ErrLevelNotFound)
	_, err = s.app.LevelService.GetLevel(s.ctx, "kept-level")
	s.NoError(err)

	entries, err := s.app.DeleteCheckService.ListRegistrations(s.ctx, s.app.MockClock.Now())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("t2_keep", entries[0].Key)
	s.Equal(s.app.MockClock.Now().UnixMilli(), entries[0].LastCheckedAt.UnixMilli())
}

// Test: the reference end-to-end scenario
func (s *IntegrationSuite) TestStaleAbsentAccountScenario() {
	now := s.app.MockClock.Now()
	s.Require().NoError(s.app.Storage.Register(s.ctx, "t2_abc", time.UnixMilli(now.UnixMilli()-90000000)))

	summary, err := s.app.DeleteCheckService.RunOnce(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, summary.DeletedFound)
	s.Equal(1, summary.Processed)
	s.False(summary.Truncated)

	entries, err := s.app.DeleteCheckService.ListRegistrations(s.ctx, now.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(entries)
}

// Test: a truncated run leaves the remainder for the next one
func (s *IntegrationSuite) TestTruncatedRunResumes() {
	for _, key := range []string{"a", "b", "c", "d"} {
		s.Require().NoError(s.app.DeleteCheckService.RegisterUserForDeleteCheck(s.ctx, key))
		s.app.MockClock.Advance(time.Second)
	}
	s.app.Provider.AddName("a", "b", "c", "d")
	s.app.Provider.OnLookup = func(string) { s.app.MockClock.Advance(10 * time.Second) }
	s.app.MockClock.Advance(25 * time.Hour)

	first, err := s.app.DeleteCheckService.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(first.Truncated)
	s.Equal(2, first.Processed)

	second, err := s.app.DeleteCheckService.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, second.Candidates)
	s.Equal(2, second.Processed)
	s.False(second.Truncated)
}

// Test: runs are counted in the Prometheus registry
func (s *IntegrationSuite) TestRunsAreRecordedInMetrics() {
	_, err := s.app.DeleteCheckService.RunOnce(s.ctx)
	s.Require().NoError(err)

	expected := `
# HELP levelgrid_deletecheck_runs_total Deletion check runs by result
# TYPE levelgrid_deletecheck_runs_total counter
levelgrid_deletecheck_runs_total{result="complete"} 1
`
	s.NoError(promtestutil.GatherAndCompare(s.app.Registry, strings.NewReader(expected), "levelgrid_deletecheck_runs_total"))
}

// Test: the production factory wires an in-memory app
func (s *IntegrationSuite) TestNewWithDefaults() {
	app, err := New(Config{})
	s.Require().NoError(err)
	defer app.Close()

	s.Equal(deletecheck.DefaultConfig(), app.DeleteCheckConfig)
	s.NotNil(app.Scheduler)
}

// Test: an unknown storage type is rejected
func (s *IntegrationSuite) TestNewRejectsUnknownStorage() {
	_, err := New(Config{StorageType: "postgres"})
	s.Error(err)
}

// Test: redis storage requires connection settings
func (s *IntegrationSuite) TestNewRedisRequiresConfig() {
	_, err := New(Config{StorageType: StorageTypeRedis})
	s.Error(err)
}

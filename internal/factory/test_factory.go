package factory

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/levelgrid/internal/dependencies/mocks"
	"github.com/mcoot/levelgrid/internal/services/deletecheck"
	"github.com/mcoot/levelgrid/internal/services/identity"
	"github.com/mcoot/levelgrid/internal/storage/memory"
	"github.com/mcoot/levelgrid/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Provider   *identity.StaticProvider
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(deletecheck.DefaultConfig())
}

// NewTestAppWithConfig is NewTestApp with a custom deletion check configuration
func NewTestAppWithConfig(dcCfg deletecheck.Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	store := memory.NewWithClock(mockClock)
	provider := identity.NewStaticProvider()

	app := newWithDependencies(store, provider, mockClock, mockRandom, prometheus.NewRegistry(), dcCfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Provider:   provider,
		Memory:     store,
	}
}

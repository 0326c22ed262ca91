package storage

import (
	"context"
	"time"

	"github.com/mcoot/levelgrid/internal/model"
)

// RegistrationStore is the ordered set of identifiers monitored for upstream deletion,
// scored by last-checked time. Every operation touches exactly one key.
type RegistrationStore interface {
	// Register upserts key with score at. Re-registering refreshes the score.
	Register(ctx context.Context, key string, at time.Time) error
	// Unregister removes key. Removing an absent key succeeds.
	Unregister(ctx context.Context, key string) error
	// SelectStale returns every entry with score <= cutoff, oldest first
	SelectStale(ctx context.Context, cutoff time.Time) ([]model.RegisteredIdentifier, error)
	// Touch updates the score of an existing key without changing membership
	Touch(ctx context.Context, key string, at time.Time) error
}

// LevelStore is the key-value store for level payloads
type LevelStore interface {
	GetLevel(ctx context.Context, name string) (*model.Level, error)
	SaveLevel(ctx context.Context, level *model.Level) error
	DeleteLevel(ctx context.Context, name string) error
	ListLevelsByOwner(ctx context.Context, owner string) ([]string, error)
	DeleteLevelsByOwner(ctx context.Context, owner string) (int, error)
}

// RunLease guards against overlapping deletion check runs
type RunLease interface {
	// AcquireRunLease takes the lease for holder if it is free. Returns false if held.
	AcquireRunLease(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	// ReleaseRunLease frees the lease only if holder still owns it
	ReleaseRunLease(ctx context.Context, holder string) error
}

// Storage defines the interface for data persistence
type Storage interface {
	RegistrationStore
	LevelStore
	RunLease

	Close() error
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/levelgrid/internal/dependencies/clock"
	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	clock clock.Clock

	registrations map[string]int64 // key -> last checked (ms since epoch)
	levels        map[string]*model.Level
	ownerIndex    map[string]map[string]struct{}

	leaseHolder  string
	leaseExpires time.Time
}

// New creates a new in-memory storage instance
func New() *Storage {
	return NewWithClock(clock.New())
}

// NewWithClock creates an in-memory storage that expires run leases against clk
func NewWithClock(clk clock.Clock) *Storage {
	return &Storage{
		clock:         clk,
		registrations: make(map[string]int64),
		levels:        make(map[string]*model.Level),
		ownerIndex:    make(map[string]map[string]struct{}),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// Registration operations

func (s *Storage) Register(ctx context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[key] = model.ScoreFromTime(at)
	return nil
}

func (s *Storage) Unregister(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registrations, key)
	return nil
}

func (s *Storage) SelectStale(ctx context.Context, cutoff time.Time) ([]model.RegisteredIdentifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxScore := model.ScoreFromTime(cutoff)

	type entry struct {
		key   string
		score int64
	}
	entries := make([]entry, 0)
	for key, score := range s.registrations {
		if score <= maxScore {
			entries = append(entries, entry{key, score})
		}
	}

	// Same ordering as a Redis sorted set: score, then key lexicographically
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score < entries[j].score
		}
		return entries[i].key < entries[j].key
	})

	result := make([]model.RegisteredIdentifier, len(entries))
	for i, e := range entries {
		result[i] = model.RegisteredIdentifier{
			Key:           e.key,
			LastCheckedAt: model.TimeFromScore(e.score),
		}
	}
	return result, nil
}

func (s *Storage) Touch(ctx context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[key]; ok {
		s.registrations[key] = model.ScoreFromTime(at)
	}
	return nil
}

// Level operations

func (s *Storage) GetLevel(ctx context.Context, name string) (*model.Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	level, ok := s.levels[name]
	if !ok {
		return nil, model.ErrLevelNotFound
	}
	return copyLevel(level), nil
}

func (s *Storage) SaveLevel(ctx context.Context, level *model.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-index if the owner changed
	if existing, ok := s.levels[level.Name]; ok && existing.Owner != level.Owner {
		s.removeFromOwnerIndex(existing.Owner, existing.Name)
	}

	s.levels[level.Name] = copyLevel(level)
	if level.Owner != "" {
		names, ok := s.ownerIndex[level.Owner]
		if !ok {
			names = make(map[string]struct{})
			s.ownerIndex[level.Owner] = names
		}
		names[level.Name] = struct{}{}
	}
	return nil
}

func (s *Storage) DeleteLevel(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.levels[name]; ok {
		s.removeFromOwnerIndex(existing.Owner, name)
		delete(s.levels, name)
	}
	return nil
}

func (s *Storage) ListLevelsByOwner(ctx context.Context, owner string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.ownerIndex[owner]))
	for name := range s.ownerIndex[owner] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) DeleteLevelsByOwner(ctx context.Context, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.ownerIndex[owner]
	for name := range names {
		delete(s.levels, name)
	}
	delete(s.ownerIndex, owner)
	return len(names), nil
}

func (s *Storage) removeFromOwnerIndex(owner, name string) {
	if owner == "" {
		return
	}
	names, ok := s.ownerIndex[owner]
	if !ok {
		return
	}
	delete(names, name)
	if len(names) == 0 {
		delete(s.ownerIndex, owner)
	}
}

func copyLevel(l *model.Level) *model.Level {
	c := *l
	c.Data = append([]byte(nil), l.Data...)
	return &c
}

// Run lease operations

func (s *Storage) AcquireRunLease(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if s.leaseHolder != "" && now.Before(s.leaseExpires) {
		return false, nil
	}
	s.leaseHolder = holder
	s.leaseExpires = now.Add(ttl)
	return true, nil
}

func (s *Storage) ReleaseRunLease(ctx context.Context, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaseHolder == holder {
		s.leaseHolder = ""
		s.leaseExpires = time.Time{}
	}
	return nil
}

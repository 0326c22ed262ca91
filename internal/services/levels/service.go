package levels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/levelgrid/internal/dependencies/clock"
	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/storage"
)

// maxNameLength bounds level names, which end up in store keys and URLs
const maxNameLength = 128

// Service manages stored levels
type Service struct {
	store  storage.LevelStore
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new levels Service
func New(store storage.LevelStore, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// GetLevel retrieves a level by name
func (s *Service) GetLevel(ctx context.Context, name string) (*model.Level, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.store.GetLevel(ctx, name)
}

// SaveLevel creates or overwrites a level. Overwrites keep the original CreatedAt.
func (s *Service) SaveLevel(ctx context.Context, name, owner string, data json.RawMessage) (*model.Level, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if len(data) == 0 || !json.Valid(data) {
		return nil, fmt.Errorf("%w: data must be valid JSON", model.ErrInvalidLevel)
	}

	now := s.clock.Now()
	level := &model.Level{
		Name:      name,
		Owner:     strings.TrimSpace(owner),
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	existing, err := s.store.GetLevel(ctx, name)
	switch {
	case err == nil:
		level.CreatedAt = existing.CreatedAt
	case !errors.Is(err, model.ErrLevelNotFound):
		return nil, err
	}

	if err := s.store.SaveLevel(ctx, level); err != nil {
		return nil, err
	}
	return level, nil
}

// DeleteLevel removes a level. Returns model.ErrLevelNotFound if it does not exist.
func (s *Service) DeleteLevel(ctx context.Context, name string) error {
	if _, err := s.GetLevel(ctx, name); err != nil {
		return err
	}
	return s.store.DeleteLevel(ctx, name)
}

// ListLevelsByOwner returns the names of levels owned by owner, sorted
func (s *Service) ListLevelsByOwner(ctx context.Context, owner string) ([]string, error) {
	owner, err := model.NormalizeIdentifier(owner)
	if err != nil {
		return nil, err
	}
	return s.store.ListLevelsByOwner(ctx, owner)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", model.ErrInvalidLevel)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", model.ErrInvalidLevel, maxNameLength)
	}
	if strings.ContainsAny(name, "/:") {
		return fmt.Errorf("%w: name must not contain '/' or ':'", model.ErrInvalidLevel)
	}
	return nil
}

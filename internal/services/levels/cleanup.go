package levels

import (
	"context"
	"log/slog"

	"github.com/mcoot/levelgrid/internal/storage"
)

// AccountCleanup removes the levels of identifiers that were deleted upstream.
// It satisfies deletecheck.DeletionHandler.
type AccountCleanup struct {
	store  storage.LevelStore
	logger *slog.Logger
}

// NewAccountCleanup creates a new AccountCleanup
func NewAccountCleanup(store storage.LevelStore, logger *slog.Logger) *AccountCleanup {
	return &AccountCleanup{
		store:  store,
		logger: logger,
	}
}

// OnDeleted deletes every level owned by key. Safe to call repeatedly.
func (c *AccountCleanup) OnDeleted(ctx context.Context, key string, wasAccountID bool) error {
	n, err := c.store.DeleteLevelsByOwner(ctx, key)
	if err != nil {
		return err
	}
	if n > 0 {
		c.logger.Info("deleted levels of removed account",
			slog.String("owner", key),
			slog.Bool("was_account_id", wasAccountID),
			slog.Int("levels", n),
		)
	}
	return nil
}

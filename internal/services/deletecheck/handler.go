package deletecheck

import "context"

// DeletionHandler cleans up after an identifier that no longer exists upstream.
// It may be called more than once for the same key and must be safe to retry.
type DeletionHandler interface {
	OnDeleted(ctx context.Context, key string, wasAccountID bool) error
}

// DeletionHandlerFunc adapts a function to DeletionHandler
type DeletionHandlerFunc func(ctx context.Context, key string, wasAccountID bool) error

// OnDeleted calls f
func (f DeletionHandlerFunc) OnDeleted(ctx context.Context, key string, wasAccountID bool) error {
	return f(ctx, key, wasAccountID)
}

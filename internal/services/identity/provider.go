package identity

import (
	"context"
	"fmt"
)

// Provider answers whether an upstream account still exists.
// Only presence or absence matters; profile data is never read.
type Provider interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// ProviderError is a failed lookup that says nothing about existence
type ProviderError struct {
	Lookup     string // "id" or "name"
	Identifier string
	StatusCode int // 0 when the request never got a response
	Err        error
}

// Error implements error interface
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("identity lookup by %s %q: status %d", e.Lookup, e.Identifier, e.StatusCode)
	}
	return fmt.Sprintf("identity lookup by %s %q: %v", e.Lookup, e.Identifier, e.Err)
}

// Unwrap returns the underlying cause
func (e *ProviderError) Unwrap() error {
	return e.Err
}

package identity

import (
	"context"
	"errors"
	"sync"
)

// ErrLookupFailed is returned by StaticProvider for identifiers marked as failing
var ErrLookupFailed = errors.New("lookup failed")

// StaticProvider is an in-memory Provider for development mode and tests
type StaticProvider struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	names   map[string]struct{}
	failing map[string]struct{}

	// OnLookup is called before every lookup, if set
	OnLookup func(identifier string)
}

// NewStaticProvider creates an empty StaticProvider: every lookup reports absent
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		ids:     make(map[string]struct{}),
		names:   make(map[string]struct{}),
		failing: make(map[string]struct{}),
	}
}

// Ensure StaticProvider implements Provider
var _ Provider = (*StaticProvider)(nil)

// AddID marks account IDs as existing
func (p *StaticProvider) AddID(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.ids[id] = struct{}{}
	}
}

// AddName marks usernames as existing
func (p *StaticProvider) AddName(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range names {
		p.names[name] = struct{}{}
	}
}

// Remove deletes an identifier from both spaces
func (p *StaticProvider) Remove(identifier string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ids, identifier)
	delete(p.names, identifier)
}

// Fail makes lookups of the identifier return an error
func (p *StaticProvider) Fail(identifier string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[identifier] = struct{}{}
}

// Recover clears a failure set by Fail
func (p *StaticProvider) Recover(identifier string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failing, identifier)
}

// ExistsByID checks an account ID
func (p *StaticProvider) ExistsByID(ctx context.Context, id string) (bool, error) {
	return p.lookup("id", id, p.ids)
}

// ExistsByName checks a username
func (p *StaticProvider) ExistsByName(ctx context.Context, name string) (bool, error) {
	return p.lookup("name", name, p.names)
}

func (p *StaticProvider) lookup(kind, identifier string, set map[string]struct{}) (bool, error) {
	if p.OnLookup != nil {
		p.OnLookup(identifier)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.failing[identifier]; ok {
		return false, &ProviderError{Lookup: kind, Identifier: identifier, Err: ErrLookupFailed}
	}
	_, ok := set[identifier]
	return ok, nil
}

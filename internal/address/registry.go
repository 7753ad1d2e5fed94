package address

import (
	"log/slog"
	"sync"
	"time"
)

// Registry holds one Resolver per open form, keyed by draft ID, so the
// option cache and generations survive between htmx requests.
type Registry struct {
	source Source
	policy Policy
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	resolver *Resolver
	lastUsed time.Time
}

// NewRegistry returns an empty registry. A nil logger uses slog.Default.
func NewRegistry(source Source, policy Policy, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		source:  source,
		policy:  policy,
		logger:  logger,
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the resolver of a form, creating it on first use. enabled is
// only consulted on creation.
func (g *Registry) Get(formID string, enabled bool) *Resolver {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[formID]
	if !ok {
		e = &registryEntry{
			resolver: NewResolver(g.source, enabled, g.policy, g.logger.With("form", formID)),
		}
		g.entries[formID] = e
	}
	e.lastUsed = time.Now()
	return e.resolver
}

// Drop forgets the resolver of a form.
func (g *Registry) Drop(formID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, formID)
}

// Purge drops resolvers unused since cutoff and returns how many.
func (g *Registry) Purge(cutoff time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for id, e := range g.entries {
		if e.lastUsed.Before(cutoff) {
			delete(g.entries, id)
			n++
		}
	}
	return n
}

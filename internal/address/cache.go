package address

import (
	"slices"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

type cacheKey struct {
	level domain.AddressLevel
	key   string
}

// Cache maps a (level, parent value) pair to the options fetched for it.
// Entries are never modified after Put. Callers synchronise access.
type Cache struct {
	entries map[cacheKey][]domain.Option
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]domain.Option)}
}

// Get returns a copy of the cached options.
func (c *Cache) Get(level domain.AddressLevel, key string) ([]domain.Option, bool) {
	opts, ok := c.entries[cacheKey{level, key}]
	if !ok {
		return nil, false
	}
	return slices.Clone(opts), true
}

// Put stores a copy of opts. An existing entry is kept as is.
func (c *Cache) Put(level domain.AddressLevel, key string, opts []domain.Option) {
	k := cacheKey{level, key}
	if _, ok := c.entries[k]; ok {
		return
	}
	stored := slices.Clone(opts)
	if stored == nil {
		stored = []domain.Option{}
	}
	c.entries[k] = stored
}

// Len returns the number of cached lists.
func (c *Cache) Len() int {
	return len(c.entries)
}

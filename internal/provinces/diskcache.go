package provinces

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

// DiskCache stores raw API responses on disk with a time to live.
//
// Keys look like "p_01": the part before the underscore becomes the
// directory, the rest the file name.
type DiskCache struct {
	d   *diskv.Diskv
	ttl time.Duration
	now func() time.Time
}

type cachedBody struct {
	FetchedAt time.Time       `json:"fetchedAt"`
	Body      json.RawMessage `json:"body"`
}

// NewDiskCache keeps entries under dir for ttl. Up to 1 MB of entries is
// also held in memory.
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		d: diskv.New(diskv.Options{
			BasePath:          dir,
			AdvancedTransform: keyToPath,
			InverseTransform:  pathToKey,
			CacheSizeMax:      1024 * 1024,
		}),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the body stored under key unless it has expired.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	raw, err := c.d.Read(key)
	if err != nil {
		return nil, false
	}
	var entry cachedBody
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil, false
	}
	return entry.Body, true
}

// Set stores body under key.
func (c *DiskCache) Set(key string, body []byte) error {
	raw, err := json.Marshal(cachedBody{FetchedAt: c.now(), Body: body})
	if err != nil {
		return err
	}
	return c.d.Write(key, raw)
}

// Erase removes key. Missing keys are ignored.
func (c *DiskCache) Erase(key string) {
	_ = c.d.Erase(key)
}

// Purge erases expired entries and returns how many it removed.
func (c *DiskCache) Purge(ctx context.Context) int {
	if c.ttl <= 0 {
		return 0
	}
	var expired []string
	for key := range c.d.Keys(ctx.Done()) {
		if _, ok := c.Get(key); !ok {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		c.Erase(key)
	}
	return len(expired)
}

func keyToPath(key string) *diskv.PathKey {
	dir, file, ok := strings.Cut(key, "_")
	if !ok {
		return &diskv.PathKey{FileName: key}
	}
	return &diskv.PathKey{Path: []string{dir}, FileName: file}
}

func pathToKey(pk *diskv.PathKey) string {
	if len(pk.Path) == 0 {
		return pk.FileName
	}
	return strings.Join(pk.Path, "_") + "_" + pk.FileName
}

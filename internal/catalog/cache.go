package catalog

import (
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMatchNotFound indicates a match identifier that was never issued or
// has expired from the cache.
var ErrMatchNotFound = errors.New("catalog: match not found or expired")

type cacheEntry struct {
	match   Match
	expires time.Time
}

// MatchCache issues opaque identifiers for search matches so a later
// acquisition request can name its target without re-searching. Entries
// expire after a fixed TTL; expired entries behave exactly like entries
// that never existed.
type MatchCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMatchCache creates a cache with the given entry lifetime.
func NewMatchCache(ttl time.Duration) *MatchCache {
	return &MatchCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a match and returns its new opaque identifier. Every call
// issues a fresh identifier, even for a match already cached.
func (c *MatchCache) Put(match Match) string {
	id := uuid.New()
	key := hex.EncodeToString(id[:])

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	c.entries[key] = cacheEntry{match: match, expires: c.now().Add(c.ttl)}
	return key
}

// Get resolves a match identifier. Expired entries are removed on access.
func (c *MatchCache) Get(key string) (Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Match{}, ErrMatchNotFound
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return Match{}, ErrMatchNotFound
	}
	return entry.match, nil
}

// Len reports the number of live entries.
func (c *MatchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	return len(c.entries)
}

func (c *MatchCache) sweepLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}

package drafts

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PendingLinkage ties a conversation to the bundle it just drafted, so the
// next dispatched payment link can carry the bundle code.
type PendingLinkage struct {
	BundleCode string
	TotalToPay decimal.Decimal
	RawText    string
	CreatedAt  time.Time
}

// LinkageCache is a bounded in-memory map conversationID -> pending linkage.
// Entries expire after the configured TTL and are pruned opportunistically on
// writes. The cache is deliberately non-durable: after a process restart the
// next dispatch simply proceeds without a bundle attached.
type LinkageCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	entries    map[string]PendingLinkage
}

// NewLinkageCache builds the cache. A nil clock defaults to time.Now.
func NewLinkageCache(ttl time.Duration, maxEntries int, clock func() time.Time) *LinkageCache {
	if clock == nil {
		clock = time.Now
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &LinkageCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        clock,
		entries:    make(map[string]PendingLinkage),
	}
}

// Put stores the linkage for a conversation, replacing any previous entry.
func (c *LinkageCache) Put(conversationID string, linkage PendingLinkage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if linkage.CreatedAt.IsZero() {
		linkage.CreatedAt = c.now()
	}
	c.pruneLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[conversationID] = linkage
}

// Get returns the live linkage for a conversation, if any.
func (c *LinkageCache) Get(conversationID string) (PendingLinkage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[conversationID]
	if !ok {
		return PendingLinkage{}, false
	}
	if c.expiredLocked(entry) {
		delete(c.entries, conversationID)
		return PendingLinkage{}, false
	}
	return entry, true
}

// Take returns and removes the live linkage for a conversation.
func (c *LinkageCache) Take(conversationID string) (PendingLinkage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[conversationID]
	if !ok {
		return PendingLinkage{}, false
	}
	delete(c.entries, conversationID)
	if c.expiredLocked(entry) {
		return PendingLinkage{}, false
	}
	return entry, true
}

// Len reports the number of stored entries, expired or not.
func (c *LinkageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LinkageCache) expiredLocked(entry PendingLinkage) bool {
	return c.ttl > 0 && c.now().Sub(entry.CreatedAt) > c.ttl
}

func (c *LinkageCache) pruneLocked() {
	for key, entry := range c.entries {
		if c.expiredLocked(entry) {
			delete(c.entries, key)
		}
	}
}

func (c *LinkageCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.CreatedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

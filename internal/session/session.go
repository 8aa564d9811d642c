// Package session tracks UDP peer liveness for diagnostics: the sender
// records each peer that completes the handshake and logs when a peer that
// is still cached handshakes again. The cache never skips or shortens the
// handshake itself.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL is how long a peer is considered live after it was last
// touched (by Touch or MarkHandshaked).
const DefaultTTL = 5 * time.Minute

// Liveness is the cached fact about one remote peer: when the handshake
// completed, and the per-session identifier assigned to it for log
// correlation.
type Liveness struct {
	SessionID  uuid.UUID
	Handshaked bool
	LastSeen   time.Time
}

// Cache is a TTL-keyed map from remote address to Liveness.
type Cache struct {
	tc *ttlcache.Cache[string, *Liveness]
}

// NewCache builds a Cache with entries expiring after ttl (DefaultTTL if
// zero) and starts its background eviction loop.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	tc := ttlcache.New[string, *Liveness](
		ttlcache.WithTTL[string, *Liveness](ttl),
	)
	go tc.Start()
	return &Cache{tc: tc}
}

// Touch records that addr was just seen, creating a fresh Liveness (with a
// new SessionID) if this is the first time addr has been observed.
func (c *Cache) Touch(addr string) *Liveness {
	item := c.tc.Get(addr)
	if item == nil {
		live := &Liveness{SessionID: uuid.New(), LastSeen: time.Now()}
		c.tc.Set(addr, live, ttlcache.DefaultTTL)
		return live
	}
	live := item.Value()
	live.LastSeen = time.Now()
	c.tc.Set(addr, live, ttlcache.DefaultTTL)
	return live
}

// MarkHandshaked records that addr completed the UDP handshake.
func (c *Cache) MarkHandshaked(addr string) {
	live := c.Touch(addr)
	live.Handshaked = true
	c.tc.Set(addr, live, ttlcache.DefaultTTL)
}

// IsHandshaked reports whether addr has a live, already-handshaked entry.
func (c *Cache) IsHandshaked(addr string) bool {
	item := c.tc.Get(addr)
	if item == nil {
		return false
	}
	return item.Value().Handshaked
}

// Stop halts the cache's background eviction goroutine.
func (c *Cache) Stop() {
	c.tc.Stop()
}

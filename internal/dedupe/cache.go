// ABOUTME: Thread-safe TTL cache for deduplicating eviction alerts.
// ABOUTME: Prevents re-announcing the same (session, reason) inside the window.

package dedupe

import (
	"sync"
	"time"
)

// Cache tracks recently seen alert keys for a fixed TTL. It is used so that
// removing and re-adding a finished session cannot re-emit the same eviction
// notice within the window.
type Cache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	done   chan struct{}
	closed bool
}

// New creates a dedupe cache with the given TTL. A background goroutine
// periodically drops expired keys.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// CheckAndMark atomically checks whether a key was seen inside the TTL and
// marks it if not. Returns true if the key was already seen (duplicate).
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.seen[key]; ok && time.Since(at) < c.ttl {
		return true
	}
	c.seen[key] = time.Now()
	return false
}

// cleanup periodically removes expired keys until Close is called.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, at := range c.seen {
				if now.Sub(at) > c.ttl {
					delete(c.seen, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}

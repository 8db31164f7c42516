package apiclient

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	resp     *Response
	storedAt time.Time
	ttl      time.Duration
	tags     map[string]struct{}
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// responseCache is an in-memory TTL cache for GET responses. Expired entries
// are dropped when looked up and swept whenever a new entry is stored.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	now     func() time.Time
}

func newResponseCache(now func() time.Time) *responseCache {
	return &responseCache{
		entries: make(map[string]*cacheEntry),
		now:     now,
	}
}

// cacheKey combines method, URL and a SHA-256 of the body.
func cacheKey(method, url string, body []byte) string {
	h := sha256.Sum256(body)
	return fmt.Sprintf("%s %s %x", method, url, h[:8])
}

func (c *responseCache) get(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.resp.clone(), true
}

func (c *responseCache) set(key string, resp *Response, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		return
	}
	e := &cacheEntry{
		resp:     resp.clone(),
		storedAt: c.now(),
		ttl:      ttl,
		tags:     make(map[string]struct{}, len(tags)),
	}
	for _, t := range tags {
		e.tags[t] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, old := range c.entries {
		if old.expired(e.storedAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = e
}

// invalidateTag removes every entry carrying tag, expired or not.
func (c *responseCache) invalidateTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if _, ok := e.tags[tag]; ok {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// invalidateURLPrefix removes entries whose request URL starts with prefix.
func (c *responseCache) invalidateURLPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		// key layout: "<METHOD> <URL> <hash>"
		parts := strings.SplitN(k, " ", 3)
		if len(parts) == 3 && strings.HasPrefix(parts[1], prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *responseCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

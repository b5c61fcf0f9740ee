package validation

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formadvisor/pkg/schema"
)

// Cache memoises compiled validators by schema fingerprint. A schema whose
// contents change gets a new fingerprint and is compiled again; compiled
// validators are never patched in place. Concurrent requests for the same
// uncompiled schema share a single compile.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Validator
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Validator)}
}

// Get returns the validator for s, compiling it on first use. Schema errors
// are returned to every waiting caller and are not cached.
func (c *Cache) Get(s schema.FormSchema) (*Validator, error) {
	frozen := s.Clone()
	key := frozen.Fingerprint()

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		existing, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		compiled, err := compile(frozen)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = compiled
		c.mu.Unlock()
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Validator), nil
}

// Len reports how many validators are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every cached validator.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Validator)
}

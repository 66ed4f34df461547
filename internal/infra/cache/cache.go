// Package cache keeps rendered member contexts for quick reads.
// The snapshot is the source of truth; entries are keyed by snapshot
// version so a commit makes older entries unreachable.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ContextCache maps (snapshot version, member) to a rendered context.
type ContextCache struct {
	entries *lru.Cache[string, string]
}

// NewContextCache creates a cache holding at most size contexts.
func NewContextCache(size int) (*ContextCache, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}
	return &ContextCache{entries: c}, nil
}

func contextKey(version uint64, memberID string) string {
	return fmt.Sprintf("v%d:%s", version, memberID)
}

// Get returns the cached context of a member at a snapshot version.
func (c *ContextCache) Get(version uint64, memberID string) (string, bool) {
	return c.entries.Get(contextKey(version, memberID))
}

// Put stores a rendered context.
func (c *ContextCache) Put(version uint64, memberID, text string) {
	c.entries.Add(contextKey(version, memberID), text)
}

// GetOrRender returns the cached context or renders and stores it.
// Nothing is stored when render reports false.
func (c *ContextCache) GetOrRender(version uint64, memberID string, render func() (string, bool)) (string, bool) {
	if text, ok := c.Get(version, memberID); ok {
		return text, true
	}
	text, ok := render()
	if ok {
		c.Put(version, memberID, text)
	}
	return text, ok
}

// Purge drops every entry, used after a reset rewinds the version.
func (c *ContextCache) Purge() {
	c.entries.Purge()
}

// Len reports the number of cached contexts.
func (c *ContextCache) Len() int {
	return c.entries.Len()
}

package assetcache

import (
	"context"
	"sync"
)

// Memory is an implementation of Cache that stores entries in memory.
type Memory struct {
	m       sync.RWMutex
	entries map[string]Entry
}

// Load returns the entry with the given key.
func (c *Memory) Load(_ context.Context, key string) (Entry, bool, error) {
	c.m.RLock()
	defer c.m.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false, nil
	}

	return e.clone(), true, nil
}

// Save stores e under the given key, replacing any existing entry.
func (c *Memory) Save(_ context.Context, key string, e Entry) error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.entries == nil {
		c.entries = map[string]Entry{}
	}

	c.entries[key] = e.clone()

	return nil
}

// Package cache remembers fingerprints of items that were already persisted,
// so unchanged feed entries skip the database on the next poll.
package cache

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultTTL      = 72 * time.Hour
	DefaultCapacity = 10000
)

type entry struct {
	key string
	ts  time.Time
}

// Memory is a process-local seen set bounded by capacity and ttl.
type Memory struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		items:    make(map[string]time.Time),
		order:    make([]entry, 0, 64),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Seen reports whether key was marked within the ttl window.
func (c *Memory) Seen(_ context.Context, key string) (bool, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.items[key]
	return ok && now.Sub(ts) <= c.ttl, nil
}

func (c *Memory) Mark(_ context.Context, key string) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
	return nil
}

func (c *Memory) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]time.Time)
	c.order = c.order[:0]
	return nil
}

func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Memory) Close() error { return nil }

func (c *Memory) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// a re-marked key has a newer entry further down the queue
		if ts, ok := c.items[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}

package cache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is an in-process cache. When full, new keys are not stored until
// expired entries are swept or the cache is cleared.
type Memory struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	m          *xsync.MapOf[string, entry]
}

func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		m:          xsync.NewMapOf[string, entry](),
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.m.Load(key)
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		c.m.Delete(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte) error {
	if _, exists := c.m.Load(key); !exists && c.m.Size() >= c.maxEntries {
		if c.sweep() == 0 {
			return nil
		}
	}
	c.m.Store(key, entry{val: append([]byte(nil), val...), expires: c.now().Add(c.ttl)})
	return nil
}

// sweep removes expired entries and returns how many were removed.
func (c *Memory) sweep() int {
	now := c.now()
	n := 0
	c.m.Range(func(k string, e entry) bool {
		if !now.Before(e.expires) {
			c.m.Delete(k)
			n++
		}
		return true
	})
	return n
}

func (c *Memory) Len() int { return c.m.Size() }

func (c *Memory) Clear(context.Context) error {
	c.m.Clear()
	return nil
}

func (c *Memory) Close() error { return nil }

package inline

import (
	"context"
	"sync"
)

// MemoryCache keeps values in process. The byte quota applies to each owner
// namespace separately, the way a browser's storage quota applies per user.
type MemoryCache struct {
	mu     sync.Mutex
	quota  int
	used   map[string]int
	values map[string]string
}

// NewMemoryCache creates a cache that holds at most quota bytes of keys and
// values per namespace. A non-positive quota disables the limit.
func NewMemoryCache(quota int) *MemoryCache {
	return &MemoryCache{quota: quota, used: make(map[string]int), values: make(map[string]string)}
}

func (c *MemoryCache) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ns := namespace(key)
	used := c.used[ns]
	if old, ok := c.values[key]; ok {
		used -= len(key) + len(old)
	}
	if c.quota > 0 && used+len(key)+len(value) > c.quota {
		return ErrQuotaExceeded
	}
	c.values[key] = value
	c.used[ns] = used + len(key) + len(value)
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.values[key]; ok {
		ns := namespace(key)
		c.used[ns] -= len(key) + len(old)
		if c.used[ns] <= 0 {
			delete(c.used, ns)
		}
		delete(c.values, key)
	}
	return nil
}

// Used reports the bytes currently held across all namespaces.
func (c *MemoryCache) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.used {
		total += n
	}
	return total
}

var _ Cache = (*MemoryCache)(nil)

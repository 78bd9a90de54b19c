package cache

import (
	"sync"

	"github.com/volcanica/petro-cli/internal/model"
)

// MemoryAggregateCache is an in-memory AggregateCache for tests and
// ephemeral runs.
type MemoryAggregateCache struct {
	mu     sync.Mutex
	locs   []model.AggregatedLocation
	loaded bool
}

// NewMemoryAggregateCache creates an empty in-memory aggregate cache.
func NewMemoryAggregateCache() *MemoryAggregateCache {
	return &MemoryAggregateCache{}
}

func (c *MemoryAggregateCache) Load() ([]model.AggregatedLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil, ErrMiss
	}
	out := make([]model.AggregatedLocation, len(c.locs))
	copy(out, c.locs)
	return out, nil
}

func (c *MemoryAggregateCache) Store(locs []model.AggregatedLocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locs = make([]model.AggregatedLocation, len(locs))
	copy(c.locs, locs)
	c.loaded = true
	return nil
}

func (c *MemoryAggregateCache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locs = nil
	c.loaded = false
	return nil
}

// MemoryProfileCache is an in-memory ProfileCache for tests.
type MemoryProfileCache struct {
	mu      sync.Mutex
	buckets map[string][]model.MajorRockProfile
}

// NewMemoryProfileCache creates an empty in-memory profile cache.
func NewMemoryProfileCache() *MemoryProfileCache {
	return &MemoryProfileCache{buckets: make(map[string][]model.MajorRockProfile)}
}

func (c *MemoryProfileCache) Load(bucket string) ([]model.MajorRockProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	profiles, ok := c.buckets[bucket]
	if !ok {
		return nil, ErrMiss
	}
	out := make([]model.MajorRockProfile, len(profiles))
	copy(out, profiles)
	return out, nil
}

func (c *MemoryProfileCache) Store(bucket string, profiles []model.MajorRockProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.MajorRockProfile, len(profiles))
	copy(out, profiles)
	c.buckets[bucket] = out
	return nil
}

func (c *MemoryProfileCache) Invalidate(bucket string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, bucket)
	return nil
}

// Interface checks.
var (
	_ AggregateCache = (*MemoryAggregateCache)(nil)
	_ AggregateCache = (*FileAggregateCache)(nil)
	_ ProfileCache   = (*MemoryProfileCache)(nil)
	_ ProfileCache   = (*FileProfileCache)(nil)
)

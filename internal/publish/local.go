package publish

import (
	"context"
	"sync"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// LocalCache is the in-process sink. Readers get copies.
type LocalCache struct {
	mu    sync.RWMutex
	cfg   domain.ServiceConfigMap
	ready bool
}

func NewLocalCache() *LocalCache { return &LocalCache{} }

func (c *LocalCache) Publish(_ context.Context, m domain.ServiceConfigMap) error {
	cp := m.Clone()
	if cp == nil {
		cp = domain.ServiceConfigMap{}
	}
	c.mu.Lock()
	c.cfg = cp
	c.ready = true
	c.mu.Unlock()
	return nil
}

// Snapshot returns the last published map, or nil before the first publish.
func (c *LocalCache) Snapshot() domain.ServiceConfigMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Clone()
}

// Service returns the endpoints of one service; ok is false for a name that
// is not in the published map.
func (c *LocalCache) Service(name string) ([]domain.ResolvedEndpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	eps, ok := c.cfg[name]
	if !ok {
		return nil, false
	}
	out := make([]domain.ResolvedEndpoint, len(eps))
	copy(out, eps)
	return out, true
}

func (c *LocalCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

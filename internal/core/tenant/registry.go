package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
)

// Registry resolves tenants by ID. The backing store lives in
// infrastructure; domain and transport code depend only on this interface.
type Registry interface {
	Get(ctx context.Context, tenantID id.ID) (*Tenant, error)
}

// CachedRegistry wraps a Registry with a TTL cache. Tenant settings change
// rarely; resolving the tenant on every request must not hit the database.
type CachedRegistry struct {
	inner Registry
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[id.ID]cacheEntry
}

type cacheEntry struct {
	tenant  *Tenant
	expires time.Time
}

// NewCachedRegistry creates a caching wrapper around inner.
func NewCachedRegistry(inner Registry, ttl time.Duration) *CachedRegistry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRegistry{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[id.ID]cacheEntry),
	}
}

// Get returns the tenant, serving from cache when fresh.
func (r *CachedRegistry) Get(ctx context.Context, tenantID id.ID) (*Tenant, error) {
	r.mu.RLock()
	entry, ok := r.entries[tenantID]
	r.mu.RUnlock()

	if ok && time.Now().Before(entry.expires) {
		return entry.tenant, nil
	}

	t, err := r.inner.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[tenantID] = cacheEntry{tenant: t, expires: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return t, nil
}

// Invalidate drops a tenant from the cache (settings updated out of band).
func (r *CachedRegistry) Invalidate(tenantID id.ID) {
	r.mu.Lock()
	delete(r.entries, tenantID)
	r.mu.Unlock()
}

package permission

import (
	"context"
	"sync"
)

// Loader fetches the authenticated user's grant list from the backend.
type Loader interface {
	LoadGrants(ctx context.Context) ([]Grant, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]Grant, error)

func (f LoaderFunc) LoadGrants(ctx context.Context) ([]Grant, error) { return f(ctx) }

// Cache is the session-scoped source of truth for capability checks.
// It is either fully unloaded (every check denied) or holds the last
// completed snapshot; callers never observe a partial state. Load
// failures degrade to a loaded-but-empty snapshot so the rest of the
// application has exactly one failure path: treat the user as having
// no permissions.
type Cache struct {
	loader Loader

	mu       sync.Mutex
	snap     *Snapshot
	gen      uint64
	inflight bool
}

func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// Init fetches grants and installs a new snapshot. It never returns an
// error: any failure installs the empty fail-closed snapshot instead.
// A call overlapping an in-flight Init is a no-op; a Reset issued while
// a load is in flight wins over the stale result.
func (c *Cache) Init(ctx context.Context) {
	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		return
	}
	c.inflight = true
	gen := c.gen
	c.mu.Unlock()

	grants, err := c.loader.LoadGrants(ctx)
	var snap *Snapshot
	if err != nil {
		snap = EmptySnapshot(err)
	} else {
		snap = BuildSnapshot(grants)
	}

	c.mu.Lock()
	c.inflight = false
	if c.gen == gen {
		c.snap = snap
	}
	c.mu.Unlock()
}

// Reset returns the cache to the unloaded state. Idempotent; used on
// logout.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.snap = nil
	c.gen++
	c.mu.Unlock()
}

// Snapshot returns the current snapshot; nil-safe for checks via the
// Snapshot zero-value semantics.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Cache) Loaded() bool {
	return c.Snapshot().Loaded()
}

// LoadErr reports the error retained by the last failed load, if any.
func (c *Cache) LoadErr() error {
	return c.Snapshot().Err()
}

func (c *Cache) Can(collection string, action Action) bool {
	return c.Snapshot().Can(collection, action)
}

func (c *Cache) CanField(collection, field string) bool {
	return c.Snapshot().CanField(collection, field)
}

func (c *Cache) AccessibleCollections() []string {
	return c.Snapshot().AccessibleCollections()
}

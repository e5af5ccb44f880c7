package bootstrap

import (
	"context"

	app "github.com/turtacn/BlindDock/internal/application/docking"
)

// CacheRecorder counts result cache hits and misses.
type CacheRecorder interface {
	RecordCacheAccess(hit bool)
}

// meteredCache reports cache accesses to a recorder.  It keeps the
// coalescing behaviour of caches that implement app.TableLoader.
type meteredCache struct {
	inner app.ResultCache
	rec   CacheRecorder
}

func newMeteredCache(inner app.ResultCache, rec CacheRecorder) app.ResultCache {
	if rec == nil {
		return inner
	}
	if _, ok := inner.(app.TableLoader); ok {
		return &meteredLoader{meteredCache{inner: inner, rec: rec}}
	}
	return &meteredCache{inner: inner, rec: rec}
}

func (c *meteredCache) GetTable(ctx context.Context, jobID string) (*app.Table, error) {
	t, err := c.inner.GetTable(ctx, jobID)
	c.rec.RecordCacheAccess(err == nil)
	return t, err
}

func (c *meteredCache) PutTable(ctx context.Context, jobID string, t *app.Table) error {
	return c.inner.PutTable(ctx, jobID, t)
}

// Invalidate forwards to the inner cache when it supports invalidation.
func (c *meteredCache) Invalidate(ctx context.Context, jobID string) error {
	if inv, ok := c.inner.(app.CacheInvalidator); ok {
		return inv.Invalidate(ctx, jobID)
	}
	return nil
}

type meteredLoader struct{ meteredCache }

// GetOrLoad counts a miss when load had to run.
func (c *meteredLoader) GetOrLoad(ctx context.Context, jobID string, load app.TableLoadFunc) (*app.Table, error) {
	loaded := false
	t, err := c.inner.(app.TableLoader).GetOrLoad(ctx, jobID, func(ctx context.Context) (*app.Table, bool, error) {
		loaded = true
		return load(ctx)
	})
	if err == nil {
		c.rec.RecordCacheAccess(!loaded)
	}
	return t, err
}

//Personal.AI order the ending

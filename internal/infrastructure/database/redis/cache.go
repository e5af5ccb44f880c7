package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// ResultCache stores ranked result tables as JSON under
// "<prefix>results:<job>".  It implements docking.ResultCache and
// docking.TableLoader.
type ResultCache struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
	group  singleflight.Group
}

// NewResultCache returns a cache whose entries expire after ttl (zero keeps
// them until evicted).
func NewResultCache(client *Client, ttl time.Duration, log logging.Logger) *ResultCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ResultCache{client: client, ttl: ttl, logger: log.Named("result-cache")}
}

func (c *ResultCache) key(jobID string) string { return c.client.Key("results", jobID) }

// GetTable returns the cached table of jobID or ErrCacheMiss.
func (c *ResultCache) GetTable(ctx context.Context, jobID string) (*app.Table, error) {
	if c.client.isClosed() {
		return nil, ErrClientClosed
	}
	data, err := c.client.rdb.Get(ctx, c.key(jobID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCache, "failed to get from cache").WithDetail(jobID)
	}
	var t app.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "corrupt cache entry").WithDetail(jobID)
	}
	return &t, nil
}

// PutTable caches t for jobID.
func (c *ResultCache) PutTable(ctx context.Context, jobID string, t *app.Table) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "serialization failed").WithDetail(jobID)
	}
	if err := c.client.rdb.Set(ctx, c.key(jobID), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCache, "failed to set cache").WithDetail(jobID)
	}
	return nil
}

// Invalidate drops the cached table of jobID.
func (c *ResultCache) Invalidate(ctx context.Context, jobID string) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	return c.client.rdb.Del(ctx, c.key(jobID)).Err()
}

// GetOrLoad returns the cached table or calls load once per job id across
// concurrent callers.  The loaded table is cached only when load reports it
// cacheable.  Cache failures fall through to load.
func (c *ResultCache) GetOrLoad(ctx context.Context, jobID string, load app.TableLoadFunc) (*app.Table, error) {
	t, err := c.GetTable(ctx, jobID)
	if err == nil {
		return t, nil
	}
	if !errors.IsNotFound(err) {
		c.logger.Warn("result cache unavailable", logging.JobID(jobID), logging.Err(err))
	}

	v, err, _ := c.group.Do(jobID, func() (interface{}, error) {
		t, cacheable, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if err := c.PutTable(ctx, jobID, t); err != nil {
				c.logger.Warn("result table not cached", logging.JobID(jobID), logging.Err(err))
			}
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*app.Table), nil
}

//Personal.AI order the ending

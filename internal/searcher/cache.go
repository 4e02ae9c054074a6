package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/FinesserULTRA/Search-Engine/pkg/config"
	"github.com/FinesserULTRA/Search-Engine/pkg/metrics"
	pkgredis "github.com/FinesserULTRA/Search-Engine/pkg/redis"
	"github.com/FinesserULTRA/Search-Engine/pkg/resilience"
)

const cacheKeyPrefix = "search:"

// QueryCache caches ranked responses in Redis. Concurrent misses for the
// same key collapse into one engine execution via singleflight. A circuit
// breaker around the Redis calls turns a dead cache into fast misses
// instead of a per-request connection timeout.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewQueryCache wraps a Redis client as a search-response cache.
func NewQueryCache(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns a cached response, or ok=false on miss or any cache error.
func (c *QueryCache) Get(ctx context.Context, req Request) (*Response, bool) {
	key := c.buildKey(req)
	var data string
	var miss bool
	err := c.breaker.Execute(func() error {
		v, err := c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			// A miss is a healthy reply; only real errors trip the breaker.
			miss = true
			return nil
		}
		if err != nil {
			return err
		}
		data = v
		return nil
	})
	if err != nil || miss {
		if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.metrics.QueryCacheMisses.Inc()
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.metrics.QueryCacheMisses.Inc()
		return nil, false
	}
	c.metrics.QueryCacheHits.Inc()
	return &resp, true
}

// Set stores a response under the request's key with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, req Request, resp *Response) {
	key := c.buildKey(req)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response or computes, caches, and returns
// a fresh one. cached reports whether the response came from the cache.
func (c *QueryCache) GetOrCompute(ctx context.Context, req Request,
	computeFn func() (*Response, error)) (*Response, bool, error) {
	if resp, ok := c.Get(ctx, req); ok {
		return resp, true, nil
	}
	key := c.buildKey(req)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if resp, ok := c.Get(ctx, req); ok {
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Response), false, nil
}

// Invalidate drops every cached search response. Called after indexing
// writes so stale rankings do not outlive the documents they rank.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) buildKey(req Request) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(req.Query)), " ")
	raw := fmt.Sprintf("%s:target=%s:mode=%s:loc=%s:class=%g:limit=%d",
		normalized, req.Target, req.Mode,
		strings.ToLower(req.Filters.Locality), req.Filters.MinClass, req.Limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}

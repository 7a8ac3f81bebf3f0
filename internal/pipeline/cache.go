package pipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

// DefaultCacheTTL is how long processed documents are kept.
const DefaultCacheTTL = 10 * time.Minute

// CachedEngine memoizes ProcessFile results by file identity. Concurrent
// requests for the same file share one run, which is not canceled when one
// of the waiting callers gives up.
type CachedEngine struct {
	engine  *Engine
	process func(ctx context.Context, path string) (*Result, error)
	cache   *ttlcache.Cache[uint64, *Result]
	sfGroup singleflight.Group
	logger  *zap.Logger
}

// NewCachedEngine wraps engine with a result cache. The cache expiry loop
// runs until Close.
func NewCachedEngine(engine *Engine, ttl time.Duration, logger *zap.Logger) *CachedEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[uint64, *Result](ttl),
	)
	go cache.Start()
	return &CachedEngine{engine: engine, process: engine.ProcessFile, cache: cache, logger: logger}
}

// Engine returns the wrapped engine.
func (c *CachedEngine) Engine() *Engine {
	return c.engine
}

// ProcessFile returns the cached result for path, processing the file when
// it is absent or the file changed since.
func (c *CachedEngine) ProcessFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		// let the source report the typed error
		return c.process(ctx, path)
	}
	key := cacheKey(path, info)

	if item := c.cache.Get(key); item != nil {
		c.engine.metrics.cache("hit")
		c.logger.Debug("result cache hit", zap.String("path", path))
		return item.Value(), nil
	}
	c.engine.metrics.cache("miss")

	detached := context.WithoutCancel(ctx)
	ch := c.sfGroup.DoChan(strconv.FormatUint(key, 16), func() (any, error) {
		if item := c.cache.Get(key); item != nil {
			return item.Value(), nil
		}
		res, err := c.process(detached, path)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, res, ttlcache.DefaultTTL)
		return res, nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Shared {
		c.logger.Debug("result shared between concurrent requests", zap.String("path", path))
	}
	res, ok := r.Val.(*Result)
	if !ok {
		return nil, errors.New(errors.ErrorTypeUnknown, "unexpected cached value").WithDocument(path)
	}
	return res, nil
}

// Len returns the number of cached results.
func (c *CachedEngine) Len() int {
	return c.cache.Len()
}

// Close stops the expiry loop.
func (c *CachedEngine) Close() {
	c.cache.Stop()
}

func cacheKey(path string, info os.FileInfo) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano()))
}

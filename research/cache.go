package research

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/BaSui01/courtflow/internal/cache"
	"github.com/BaSui01/courtflow/workflow"
	"go.uber.org/zap"
)

// CacheObserver 接收缓存命中与未命中事件，例如指标采集器。
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// CachedResearcher 把检索结果缓存到 Redis。缓存故障只记录日志，不影响检索。
type CachedResearcher struct {
	inner    workflow.Researcher
	cache    *cache.Manager
	ttl      time.Duration
	logger   *zap.Logger
	observer CacheObserver
}

// WithCache 返回带缓存的检索源，ttl 为 0 时使用缓存管理器的默认 TTL。
func WithCache(inner workflow.Researcher, manager *cache.Manager, ttl time.Duration, logger *zap.Logger) *CachedResearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResearcher{
		inner:  inner,
		cache:  manager,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "research_cache")),
	}
}

// WithObserver 设置缓存事件观察者。
func (c *CachedResearcher) WithObserver(o CacheObserver) *CachedResearcher {
	c.observer = o
	return c
}

// CacheEntry 是一条缓存的检索结果。
type CacheEntry struct {
	Query     string    `json:"query"`
	Summary   string    `json:"summary"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CacheKey 返回 query 对应的缓存键。
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "research:" + hex.EncodeToString(sum[:])
}

// Search 实现 workflow.Researcher。
func (c *CachedResearcher) Search(ctx context.Context, query string) (string, error) {
	key := CacheKey(query)

	var entry CacheEntry
	err := c.cache.GetJSON(ctx, key, &entry)
	switch {
	case err == nil && entry.Query == query:
		c.hit()
		c.logger.Debug("research cache hit", zap.String("query", query), zap.Time("fetched_at", entry.FetchedAt))
		return entry.Summary, nil
	case err == nil:
		c.logger.Warn("research cache entry does not match query, dropping it", zap.String("query", query))
		c.drop(ctx, key)
	case cache.IsCacheMiss(err):
	case errors.Is(err, cache.ErrClosed):
		c.logger.Warn("research cache read failed", zap.String("query", query), zap.Error(err))
	default:
		c.logger.Warn("research cache read failed, dropping entry", zap.String("query", query), zap.Error(err))
		c.drop(ctx, key)
	}
	c.miss()

	summary, err := c.inner.Search(ctx, query)
	if err != nil {
		return "", err
	}
	entry = CacheEntry{Query: query, Summary: summary, FetchedAt: time.Now().UTC()}
	if err := c.cache.SetJSON(ctx, key, entry, c.ttl); err != nil {
		c.logger.Warn("research cache write failed", zap.String("query", query), zap.Error(err))
	}
	return summary, nil
}

func (c *CachedResearcher) drop(ctx context.Context, key string) {
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("research cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// LookupCached 返回 query 的缓存条目及其剩余有效期，未缓存时返回 cache.ErrCacheMiss。
func LookupCached(ctx context.Context, manager *cache.Manager, query string) (*CacheEntry, time.Duration, error) {
	key := CacheKey(query)
	var entry CacheEntry
	if err := manager.GetJSON(ctx, key, &entry); err != nil {
		return nil, 0, err
	}
	ttl, err := manager.TTL(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	return &entry, ttl, nil
}

// ForgetCached 删除 queries 的缓存条目，下次检索会重新访问数据源。
func ForgetCached(ctx context.Context, manager *cache.Manager, queries ...string) error {
	keys := make([]string, len(queries))
	for i, q := range queries {
		keys[i] = CacheKey(q)
	}
	return manager.Delete(ctx, keys...)
}

func (c *CachedResearcher) hit() {
	if c.observer != nil {
		c.observer.CacheHit()
	}
}

func (c *CachedResearcher) miss() {
	if c.observer != nil {
		c.observer.CacheMiss()
	}
}

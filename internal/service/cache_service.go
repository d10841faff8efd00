package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

const suggestionKeyPrefix = "suggest:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// GenerationStore is implemented by cache backends shared between processes.
// The generation then lives in the backend, so a write on any process retires
// the entries every other process stored.
type GenerationStore interface {
	Generation(ctx context.Context) (uint64, error)
	NextGeneration(ctx context.Context) (uint64, error)
}

// SuggestionCache memoises complete suggestion results. Keys embed a generation
// counter that every write bumps, so a stale entry can never be served after an upsert.
// Backends implementing GenerationStore hold the counter; otherwise it is per process.
type SuggestionCache struct {
	repo       CacheRepository
	shared     GenerationStore
	metrics    *MetricsService
	ttl        time.Duration
	logger     *zap.Logger
	generation atomic.Uint64
	group      singleflight.Group
}

// NewSuggestionCache constructs a cache. A nil repo disables caching but keeps request coalescing.
func NewSuggestionCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *SuggestionCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := &SuggestionCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger}
	if shared, ok := repo.(GenerationStore); ok {
		cache.shared = shared
	}
	return cache
}

// Enabled indicates whether results are stored.
func (c *SuggestionCache) Enabled() bool {
	return c != nil && c.repo != nil
}

// Key builds the cache key for a normalised query at the current generation.
// cacheable is false when the shared generation could not be read; the key then
// only serves to coalesce callers and must not be used for Get or Set.
func (c *SuggestionCache) Key(ctx context.Context, limit int, normalized string) (key string, cacheable bool) {
	generation := c.generation.Load()
	if c.Enabled() && c.shared != nil {
		current, err := c.shared.Generation(ctx)
		if err != nil {
			c.logger.Warn("suggestion cache generation unavailable", zap.Error(err))
			return fmt.Sprintf("local:%d:%d:%s", generation, limit, normalized), false
		}
		generation = current
	}
	return fmt.Sprintf("%s%d:%d:%s", suggestionKeyPrefix, generation, limit, normalized), true
}

// Get returns the cached subjects for key. Lookup failures count as misses.
func (c *SuggestionCache) Get(ctx context.Context, key string) ([]models.Subject, bool) {
	if !c.Enabled() {
		return nil, false
	}
	start := time.Now()
	var subjects []models.Subject
	err := c.repo.Get(ctx, key, &subjects)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("suggestion cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return subjects, true
}

// Set stores a complete result. Failures are logged and otherwise ignored.
func (c *SuggestionCache) Set(ctx context.Context, key string, subjects []models.Subject) {
	if !c.Enabled() {
		return
	}
	if err := c.repo.Set(ctx, key, subjects, c.ttl); err != nil {
		c.logger.Warn("suggestion cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Do runs fn once for all concurrent callers sharing key.
func (c *SuggestionCache) Do(key string, fn func() ([]models.Subject, error)) ([]models.Subject, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	subjects, _ := v.([]models.Subject)
	return subjects, err
}

// Invalidate moves to a new generation and drops entries of older ones.
func (c *SuggestionCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	c.generation.Add(1)
	if !c.Enabled() {
		return
	}
	if c.shared != nil {
		if _, err := c.shared.NextGeneration(ctx); err != nil {
			c.logger.Warn("suggestion cache generation bump failed", zap.Error(err))
		}
	}
	if err := c.repo.DeletePrefix(ctx, suggestionKeyPrefix); err != nil {
		c.logger.Warn("suggestion cache invalidate failed", zap.Error(err))
	}
}

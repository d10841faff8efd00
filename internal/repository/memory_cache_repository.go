package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

const (
	defaultMemoryCacheSize = 512
	defaultMemoryCacheTTL  = 10 * time.Minute
)

// MemoryCacheRepository is an in-process LRU with a fixed TTL. Values are stored
// encoded so callers never share mutable state with the cache.
type MemoryCacheRepository struct {
	cache *expirable.LRU[string, []byte]
}

// NewMemoryCacheRepository builds an LRU holding at most size entries for ttl.
func NewMemoryCacheRepository(size int, ttl time.Duration) *MemoryCacheRepository {
	if size <= 0 {
		size = defaultMemoryCacheSize
	}
	if ttl <= 0 {
		ttl = defaultMemoryCacheTTL
	}
	return &MemoryCacheRepository{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get decodes the cached value into dest or returns ErrCacheMiss.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.cache.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		r.cache.Remove(key)
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value. The per-call ttl is ignored; entries expire after the cache-wide TTL.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.cache.Add(key, payload)
	return nil
}

// DeletePrefix drops every entry whose key starts with prefix.
func (r *MemoryCacheRepository) DeletePrefix(_ context.Context, prefix string) error {
	for _, key := range r.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Remove(key)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (r *MemoryCacheRepository) Len() int {
	return r.cache.Len()
}

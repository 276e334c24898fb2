package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/compliance"
)

// MemoryStore is an in-process TTL cache with a capacity bound. When full it
// sheds expired entries; if still full the write is dropped, which keeps the
// memory bound without promising any particular eviction order.
type MemoryStore struct {
	cache      *gocache.Cache
	maxEntries int
	logger     *zap.Logger
}

// NewMemoryStore creates a memory store. defaultTTL applies when Put is
// called with a non-positive ttl.
func NewMemoryStore(defaultTTL time.Duration, maxEntries int, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		cache:      gocache.New(defaultTTL, defaultTTL/2+time.Second),
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Get returns a deep copy so callers cannot mutate the cached verdict.
func (s *MemoryStore) Get(ctx context.Context, key string) (*compliance.ValidationResult, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	result, ok := v.(*compliance.ValidationResult)
	if !ok {
		return nil, false
	}
	return result.Clone(), true
}

func (s *MemoryStore) Put(ctx context.Context, key string, result *compliance.ValidationResult, ttl time.Duration) {
	if result == nil || result.FallbackUsed {
		return
	}
	if s.maxEntries > 0 && s.cache.ItemCount() >= s.maxEntries {
		s.cache.DeleteExpired()
		if s.cache.ItemCount() >= s.maxEntries {
			if _, exists := s.cache.Get(key); !exists {
				s.logger.Debug("Verdict cache full, dropping write", zap.String("key", key))
				return
			}
		}
	}
	s.cache.Set(key, result.Clone(), ttl)
}

func (s *MemoryStore) Invalidate(ctx context.Context, key string) {
	s.cache.Delete(key)
}

// Len returns the current entry count, expired entries included until the
// janitor runs.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

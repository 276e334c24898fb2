package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/compliance"
)

const redisKeyPrefix = "verdict:"

// RedisStore keeps verdicts in Redis so multiple engine instances share a
// cache. Capacity is Redis's concern (maxmemory policy); this store only
// manages TTLs.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewRedisStore creates a Redis-backed verdict store.
func NewRedisStore(client *redis.Client, defaultTTL time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, defaultTTL: defaultTTL, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*compliance.ValidationResult, bool) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Verdict cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var result compliance.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("Corrupt verdict cache entry, invalidating", zap.String("key", key), zap.Error(err))
		s.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}
	return &result, true
}

func (s *RedisStore) Put(ctx context.Context, key string, result *compliance.ValidationResult, ttl time.Duration) {
	if result == nil || result.FallbackUsed {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("Failed to marshal verdict for cache", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		s.logger.Warn("Verdict cache write failed", zap.Error(err))
	}
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		s.logger.Warn("Verdict cache invalidation failed", zap.Error(err))
	}
}

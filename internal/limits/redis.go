package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCounter keeps daily counts in Redis so multiple engine instances share
// the quota. Keys carry the local date and expire shortly after midnight, so
// Reset is a no-op.
type RedisCounter struct {
	client   *redis.Client
	location *time.Location
}

// NewRedisCounter creates a Redis-backed counter using loc for the local-day
// boundary.
func NewRedisCounter(client *redis.Client, loc *time.Location) *RedisCounter {
	if loc == nil {
		loc = time.UTC
	}
	return &RedisCounter{client: client, location: loc}
}

func (c *RedisCounter) key(advisorID string) string {
	return fmt.Sprintf("daily_usage:%s:%s", advisorID, time.Now().In(c.location).Format("2006-01-02"))
}

func (c *RedisCounter) Increment(ctx context.Context, advisorID string) (int, error) {
	key := c.key(advisorID)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment daily usage: %w", err)
	}
	if n == 1 {
		// First call of the day sets the expiry: until local midnight plus
		// an hour of slack for late readers.
		now := time.Now().In(c.location)
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, c.location)
		c.client.Expire(ctx, key, midnight.Sub(now)+time.Hour)
	}
	return int(n), nil
}

func (c *RedisCounter) Count(ctx context.Context, advisorID string) (int, error) {
	n, err := c.client.Get(ctx, c.key(advisorID)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read daily usage: %w", err)
	}
	return n, nil
}

func (c *RedisCounter) Reset(ctx context.Context) error {
	return nil
}

package limits

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebishield/validation-engine/internal/compliance"
)

func TestMemoryCounter_Increment(t *testing.T) {
	c := NewMemoryCounter(time.UTC)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		n, err := c.Increment(ctx, "INA000000001")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := c.Count(ctx, "INA000000001")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryCounter_AdvisorsAreIndependent(t *testing.T) {
	c := NewMemoryCounter(time.UTC)
	ctx := context.Background()

	_, err := c.Increment(ctx, "INA000000001")
	require.NoError(t, err)

	n, err := c.Count(ctx, "INA000000002")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryCounter_Reset(t *testing.T) {
	c := NewMemoryCounter(time.UTC)
	ctx := context.Background()

	_, err := c.Increment(ctx, "INA000000001")
	require.NoError(t, err)
	require.NoError(t, c.Reset(ctx))

	n, err := c.Count(ctx, "INA000000001")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryCounter_RollsOverOnDayChange(t *testing.T) {
	c := NewMemoryCounter(time.UTC)
	ctx := context.Background()

	_, err := c.Increment(ctx, "INA000000001")
	require.NoError(t, err)

	// Pretend the counter was created yesterday.
	c.mu.Lock()
	c.day = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	c.mu.Unlock()

	n, err := c.Count(ctx, "INA000000001")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "counts from a previous day must not carry over")
}

func TestMemoryCounter_ConcurrentIncrements(t *testing.T) {
	c := NewMemoryCounter(time.UTC)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if _, err := c.Increment(ctx, "INA000000001"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	n, err := c.Count(ctx, "INA000000001")
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
}

func TestLimiter_AllowUpToLimit(t *testing.T) {
	l := NewLimiter(NewMemoryCounter(time.UTC), 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Allow(ctx, "INA000000001"))
	}

	err := l.Allow(ctx, "INA000000001")
	require.Error(t, err)

	var limitErr *compliance.LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "INA000000001", limitErr.AdvisorID)
	assert.Equal(t, 5, limitErr.Limit)
}

func TestLimiter_RejectionIsSticky(t *testing.T) {
	l := NewLimiter(NewMemoryCounter(time.UTC), 1)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "INA000000001"))
	assert.Error(t, l.Allow(ctx, "INA000000001"))
	assert.Error(t, l.Allow(ctx, "INA000000001"))
}

func TestLimiter_ConcurrentAllowAdmitsExactlyLimit(t *testing.T) {
	const limit = 50
	l := NewLimiter(NewMemoryCounter(time.UTC), limit)
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	for g := 0; g < 100; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx, "INA000000001") == nil {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted)
}

type failingCounter struct{}

func (failingCounter) Increment(context.Context, string) (int, error) {
	return 0, errors.New("store unreachable")
}
func (failingCounter) Count(context.Context, string) (int, error) {
	return 0, errors.New("store unreachable")
}
func (failingCounter) Reset(context.Context) error { return nil }

func TestLimiter_FailsOpenOnCounterError(t *testing.T) {
	l := NewLimiter(failingCounter{}, 1)
	ctx := context.Background()

	assert.NoError(t, l.Allow(ctx, "INA000000001"))
	assert.NoError(t, l.Allow(ctx, "INA000000001"))
	assert.Equal(t, 0, l.Usage(ctx, "INA000000001"))
}

func TestLimiter_Usage(t *testing.T) {
	l := NewLimiter(NewMemoryCounter(time.UTC), 10)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "INA000000001"))
	require.NoError(t, l.Allow(ctx, "INA000000001"))

	assert.Equal(t, 2, l.Usage(ctx, "INA000000001"))
	assert.Equal(t, 10, l.Limit())
}

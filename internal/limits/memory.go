package limits

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter keeps per-advisor daily counts in process memory. Counts
// roll over lazily when the local day changes, and the scheduler calls Reset
// at midnight as a belt-and-braces sweep.
type MemoryCounter struct {
	mu       sync.Mutex
	counts   map[string]int
	day      string
	location *time.Location
}

// NewMemoryCounter creates a counter using loc for the local-day boundary.
func NewMemoryCounter(loc *time.Location) *MemoryCounter {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryCounter{
		counts:   make(map[string]int),
		day:      time.Now().In(loc).Format("2006-01-02"),
		location: loc,
	}
}

func (c *MemoryCounter) rollover() {
	today := time.Now().In(c.location).Format("2006-01-02")
	if today != c.day {
		c.counts = make(map[string]int)
		c.day = today
	}
}

func (c *MemoryCounter) Increment(ctx context.Context, advisorID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	c.counts[advisorID]++
	return c.counts[advisorID], nil
}

func (c *MemoryCounter) Count(ctx context.Context, advisorID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	return c.counts[advisorID], nil
}

func (c *MemoryCounter) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
	c.day = time.Now().In(c.location).Format("2006-01-02")
	return nil
}

// Package tracker records per-advisor and global validation latency against
// the sub-1.5s SLA. Each advisor gets a fixed-size FIFO window; derived
// metrics are computed over the window contents at query time.
package tracker

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/compliance"
	"github.com/sebishield/validation-engine/internal/metrics"
)

// window is a fixed-capacity ring of latency samples, oldest evicted first.
type window struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	filled  bool
}

func newWindow(size int) *window {
	return &window{samples: make([]time.Duration, 0, size)}
}

func (w *window) add(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.filled && len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, d)
		if len(w.samples) == cap(w.samples) {
			w.filled = true
		}
		return
	}
	w.samples[w.next] = d
	w.next = (w.next + 1) % cap(w.samples)
}

// snapshot copies the current samples. Order does not matter for the derived
// metrics.
func (w *window) snapshot() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]time.Duration, len(w.samples))
	copy(out, w.samples)
	return out
}

// Tracker owns the per-advisor performance windows. Windows are mutated only
// through Record; reads may return a slightly stale snapshot.
type Tracker struct {
	mu           sync.RWMutex
	windows      map[string]*window
	windowSize   int
	slaThreshold time.Duration
	collector    *metrics.Collector
	logger       *zap.Logger
}

// New creates a tracker with the given window size and SLA threshold.
func New(windowSize int, slaThreshold time.Duration, collector *metrics.Collector, logger *zap.Logger) *Tracker {
	if windowSize <= 0 {
		windowSize = 1
	}
	return &Tracker{
		windows:      make(map[string]*window),
		windowSize:   windowSize,
		slaThreshold: slaThreshold,
		collector:    collector,
		logger:       logger,
	}
}

// Record adds a latency sample to the advisor's window.
func (t *Tracker) Record(advisorID string, d time.Duration) {
	t.mu.RLock()
	w, ok := t.windows[advisorID]
	t.mu.RUnlock()
	if !ok {
		t.mu.Lock()
		if w, ok = t.windows[advisorID]; !ok {
			w = newWindow(t.windowSize)
			t.windows[advisorID] = w
		}
		t.mu.Unlock()
	}
	w.add(d)
}

// Metrics returns avg and p95 over the advisor's current window. Zero values
// when no samples were recorded.
func (t *Tracker) Metrics(advisorID string) compliance.AdvisorMetrics {
	out := compliance.AdvisorMetrics{AdvisorID: advisorID}

	t.mu.RLock()
	w, ok := t.windows[advisorID]
	t.mu.RUnlock()
	if !ok {
		return out
	}

	samples := w.snapshot()
	if len(samples) == 0 {
		return out
	}

	var total time.Duration
	for _, d := range samples {
		total += d
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	idx := (95*len(samples) + 99) / 100
	if idx > 0 {
		idx--
	}

	out.AvgTime = total / time.Duration(len(samples))
	out.P95Time = samples[idx]
	out.Samples = len(samples)
	return out
}

// TrackSLA counts a breach when the duration exceeds the configured
// threshold. A breach is a counter for external alerting, never an error.
func (t *Tracker) TrackSLA(d time.Duration, mode, contentType string) {
	if d <= t.slaThreshold {
		return
	}
	if t.collector != nil {
		t.collector.SLABreach(mode, contentType)
	}
	t.logger.Warn("Validation SLA breached",
		zap.Duration("duration", d),
		zap.Duration("threshold", t.slaThreshold),
		zap.String("mode", mode),
		zap.String("content_type", contentType))
}

// Package audit keeps a buffered trail of pipeline decisions. Entries are
// batched off the request path and flushed to the structured log, where the
// log shipper owns retention.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/config"
)

// Entry records one pipeline decision for one validation request.
type Entry struct {
	ID        string
	RequestID string
	AdvisorID string
	Stage     string
	Decision  string
	Timestamp time.Time
}

// NewEntry stamps an entry with a fresh id and the current time.
func NewEntry(requestID, advisorID, stage, decision string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		RequestID: requestID,
		AdvisorID: advisorID,
		Stage:     stage,
		Decision:  decision,
		Timestamp: time.Now(),
	}
}

// Logger batches audit entries and flushes them on size or interval. Record
// never blocks the validation path: entries are dropped (and counted) when
// the buffer is full.
type Logger struct {
	cfg     config.AuditConfig
	logger  *zap.Logger
	entries chan Entry
	stop    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	dropped int64
	running bool
}

// NewLogger creates a stopped audit logger; call Start before Record.
func NewLogger(cfg config.AuditConfig, logger *zap.Logger) *Logger {
	return &Logger{
		cfg:     cfg,
		logger:  logger,
		entries: make(chan Entry, cfg.BufferSize),
		stop:    make(chan struct{}),
	}
}

// Start launches the flush loop.
func (l *Logger) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.wg.Add(1)
	go l.run(ctx)
}

// Stop flushes pending entries and halts the loop.
func (l *Logger) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	close(l.stop)
	l.wg.Wait()
}

// Record enqueues an entry without blocking.
func (l *Logger) Record(entry Entry) {
	select {
	case l.entries <- entry:
	default:
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
	}
}

// Dropped returns how many entries were shed under pressure.
func (l *Logger) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Logger) run(ctx context.Context) {
	defer l.wg.Done()

	batch := make([]Entry, 0, l.cfg.BatchSize)
	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			l.logger.Info("audit",
				zap.String("audit_id", e.ID),
				zap.String("request_id", e.RequestID),
				zap.String("advisor_id", e.AdvisorID),
				zap.String("stage", e.Stage),
				zap.String("decision", e.Decision),
				zap.Time("at", e.Timestamp))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-l.entries:
			batch = append(batch, entry)
			if len(batch) >= l.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		case <-l.stop:
			// Drain whatever is buffered before shutting down.
			for {
				select {
				case entry := <-l.entries:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Package scheduler runs the periodic housekeeping of the engine: the
// local-midnight daily counter reset and usage pruning.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/limits"
)

// Scheduler owns the cron runner. All jobs fire in the configured timezone
// so "daily" means the advisor's local day.
type Scheduler struct {
	cron    *cron.Cron
	limiter *limits.Limiter
	logger  *zap.Logger
}

// New creates a scheduler in the given location.
func New(loc *time.Location, limiter *limits.Limiter, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		limiter: limiter,
		logger:  logger,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * *", s.resetDailyCounters); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) resetDailyCounters() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.limiter.Reset(ctx); err != nil {
		s.logger.Error("Failed to reset daily counters", zap.Error(err))
		return
	}
	s.logger.Info("Daily validation counters reset")
}

// Package scheduler triggers the daily processing run at a configured
// local time.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is the work fired on each scheduled run.
type Job func(ctx context.Context) error

// Scheduler fires a job once per day at a fixed hour and minute.
type Scheduler struct {
	hour   int
	minute int
	job    Job
	logger *zap.Logger
	stopCh chan struct{}
}

// New creates a scheduler for the given daily fire time.
func New(hour, minute int, job Job, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		hour:   hour,
		minute: minute,
		job:    job,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// nextFire returns the next occurrence of the configured time after
// now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start runs the schedule loop until Stop is called or the context is
// canceled. It blocks; run it in its own goroutine if needed.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Scheduler started",
		zap.Int("hour", s.hour),
		zap.Int("minute", s.minute))

	for {
		next := s.nextFire(time.Now())
		timer := time.NewTimer(time.Until(next))
		s.logger.Info("Next scheduled run", zap.Time("at", next))

		select {
		case <-timer.C:
			if err := s.job(ctx); err != nil {
				s.logger.Error("Scheduled run failed", zap.Error(err))
			}
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Scheduler stopped", zap.Error(ctx.Err()))
			return
		case <-s.stopCh:
			timer.Stop()
			s.logger.Info("Scheduler stopped")
			return
		}
	}
}

// Stop terminates the schedule loop.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

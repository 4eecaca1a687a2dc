// Package schedule triggers the export pipeline once per day at a fixed
// local wall-clock time.
package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type state int

const (
	stateIdle state = iota
	stateRunning
)

// Job is the work a Scheduler triggers.
type Job func(ctx context.Context) error

// Scheduler fires a Job once per day at a fixed wall-clock time in a
// fixed time zone. It alternates between Idle (waiting on the timer)
// and Running (job in flight); a job failure is logged and the next
// trigger is armed regardless.
type Scheduler struct {
	hour   int
	minute int
	loc    *time.Location
	job    Job

	state state
	now   func() time.Time // injectable for tests
}

// New builds a scheduler for the given daily trigger time.
func New(hour, minute int, loc *time.Location, job Job) *Scheduler {
	return &Scheduler{
		hour:   hour,
		minute: minute,
		loc:    loc,
		job:    job,
		state:  stateIdle,
		now:    time.Now,
	}
}

// NextRun returns the next trigger instant strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled, firing the job at each daily
// trigger. Job failures never stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	zap.L().Info("scheduler started",
		zap.String("trigger", fmt.Sprintf("%02d:%02d", s.hour, s.minute)),
		zap.String("timezone", s.loc.String()),
	)

	for {
		next := s.NextRun(s.now())
		zap.L().Info("next scheduled run", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			zap.L().Info("scheduler stopped")
			return
		case <-timer.C:
		}

		s.state = stateRunning
		start := time.Now()
		err := s.job(ctx)
		s.state = stateIdle

		if err != nil {
			zap.L().Error("scheduled run failed",
				zap.Error(err),
				zap.Duration("elapsed", time.Since(start)),
			)
		} else {
			zap.L().Info("scheduled run complete",
				zap.Duration("elapsed", time.Since(start)),
			)
		}
	}
}

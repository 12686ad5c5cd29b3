package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is one unit of scheduled work. It receives a fresh context per run.
type Job func(ctx context.Context)

// Scheduler fires jobs at a fixed wall-clock time each day, UTC.
type Scheduler struct {
	logger zerolog.Logger
	quit   chan struct{}
	wg     sync.WaitGroup
}

func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// ScheduleDailyAt runs job every day at hour:minute UTC, starting with the
// next occurrence.
func (s *Scheduler) ScheduleDailyAt(hour, minute int, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(time.Until(NextRun(time.Now(), hour, minute)))
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				s.logger.Info().Int("hour", hour).Int("minute", minute).Msg("running scheduled job")
				job(context.Background())
				timer.Reset(time.Until(NextRun(time.Now(), hour, minute)))
			case <-s.quit:
				return
			}
		}
	}()

	s.logger.Info().
		Int("hour", hour).
		Int("minute", minute).
		Time("next_run", NextRun(time.Now(), hour, minute)).
		Msg("daily job scheduled")
}

// NextRun returns the first hour:minute UTC occurrence strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Stop terminates all scheduled jobs and waits for their goroutines to exit.
// Jobs already running are not interrupted.
func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}

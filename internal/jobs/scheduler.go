// AngelaMos | 2026
// scheduler.go

package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
)

// Schedule returns the first run time strictly after t.
type Schedule func(t time.Time) time.Time

// DailyAt fires every day at hour:minute in t's location.
func DailyAt(hour, minute int) Schedule {
	return func(t time.Time) time.Time {
		next := time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
		if !next.After(t) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// MonthlyAt fires on the given day of every month at hour:minute.
func MonthlyAt(day, hour, minute int) Schedule {
	return func(t time.Time) time.Time {
		next := time.Date(t.Year(), t.Month(), day, hour, minute, 0, 0, t.Location())
		if !next.After(t) {
			next = time.Date(t.Year(), t.Month()+1, day, hour, minute, 0, 0, t.Location())
		}
		return next
	}
}

type entry struct {
	job      Job
	schedule Schedule
}

// Scheduler runs registered jobs on their schedules until its context is
// canceled. A job never overlaps with itself.
type Scheduler struct {
	entries []entry
	metrics *core.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewScheduler(metrics *core.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Scheduler) Add(job Job, schedule Schedule) {
	s.entries = append(s.entries, entry{job: job, schedule: schedule})
}

func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, e := range s.entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, e)
		}()
	}

	s.logger.InfoContext(ctx, "scheduler started", "jobs", len(s.entries))
	wg.Wait()
	s.logger.InfoContext(ctx, "scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	for {
		next := e.schedule(s.now())
		s.logger.DebugContext(ctx, "job scheduled", "job", e.job.Name(), "next_run", next)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		//nolint:errcheck // Execute logs and records failures
		_, _ = Execute(ctx, e.job, s.metrics, s.logger)
	}
}

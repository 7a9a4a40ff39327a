// AngelaMos | 2026
// jobs.go

// Package jobs holds the scheduled maintenance work: the monthly quota
// reset and the expiry notifier, plus an in-process scheduler for both.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
)

const (
	JobResetMonthly   = "reset-monthly"
	JobNotifyExpiring = "notify-expiring"
)

// Job is one unit of scheduled work. Run reports how many items it handled.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Execute runs job once with logging and metrics.
func Execute(ctx context.Context, job Job, metrics *core.Metrics, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, span := core.StartSpan(ctx, "jobs."+job.Name())
	defer span.End()

	start := time.Now()
	n, err := job.Run(ctx)
	metrics.RecordJobRun(job.Name(), n, err)

	if err != nil {
		core.SetSpanError(ctx, err)
		logger.ErrorContext(ctx, "job failed",
			"job", job.Name(),
			"items", n,
			"duration", time.Since(start),
			"error", err,
		)
		return n, err
	}

	logger.InfoContext(ctx, "job finished",
		"job", job.Name(),
		"items", n,
		"duration", time.Since(start),
	)
	return n, nil
}

type Resetter interface {
	ResetMonthly(ctx context.Context, now time.Time) (int, error)
}

// MonthlyReset refills remaining quota on every live package from its
// plan's current monthly limit.
type MonthlyReset struct {
	ledger Resetter
	now    func() time.Time
}

func NewMonthlyReset(ledger Resetter) *MonthlyReset {
	return &MonthlyReset{ledger: ledger, now: time.Now}
}

func (m *MonthlyReset) Name() string {
	return JobResetMonthly
}

func (m *MonthlyReset) Run(ctx context.Context) (int, error) {
	return m.ledger.ResetMonthly(ctx, m.now())
}

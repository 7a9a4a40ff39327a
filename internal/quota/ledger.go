// AngelaMos | 2026
// ledger.go

package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/packages"
)

var ErrExceeded = errors.New("quota exceeded")

type Ledger struct {
	store   Store
	metrics *core.Metrics
	logger  *slog.Logger
}

func NewLedger(store Store, metrics *core.Metrics, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Check is the admission-time test. It never writes.
func (l *Ledger) Check(p *packages.Package) error {
	if p.QuotaExhausted() {
		return ErrExceeded
	}
	return nil
}

// Consume attempts exactly one decrement for a call that already passed
// every other check and mirrors it on p. ErrExceeded means a concurrent
// caller took the last unit. A storage failure is recorded as an anomaly
// and the call is still treated as consumed.
func (l *Ledger) Consume(ctx context.Context, p *packages.Package) error {
	err := l.store.Decrement(ctx, p.ID)
	if errors.Is(err, ErrExceeded) {
		return ErrExceeded
	}

	if err != nil {
		l.metrics.RecordQuotaAnomaly("decrement_failed")
		l.logger.ErrorContext(ctx, "quota decrement not confirmed",
			"package_id", p.ID,
			"user_id", p.UserID,
			"error", err,
		)
	}

	if p.Remaining != packages.Unlimited {
		p.Remaining--
	}
	p.UsedTotal++

	return nil
}

func (l *Ledger) ResetMonthly(ctx context.Context, now time.Time) (int, error) {
	n, err := l.store.ResetMonthly(ctx, now)
	if err != nil {
		return 0, err
	}

	l.logger.InfoContext(ctx, "monthly quota reset", "packages", n)

	return n, nil
}

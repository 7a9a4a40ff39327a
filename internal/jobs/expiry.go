// AngelaMos | 2026
// expiry.go

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/notify"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/plan"
)

const (
	defaultExpiryWindow = 10 * 24 * time.Hour
	defaultConcurrency  = 4
	expiryBatchSize     = 1000
)

type ExpiringStore interface {
	ListExpiring(ctx context.Context, now, until time.Time, limit int) ([]packages.Package, error)
	MarkNotified(ctx context.Context, id string) error
}

type RecipientLookup interface {
	GetRecipient(ctx context.Context, userID string) (*notify.Recipient, error)
}

type PlanLookup interface {
	Get(ctx context.Context, id string) (*plan.Plan, error)
}

type Notifier interface {
	NotifyExpiry(ctx context.Context, r *notify.Recipient, notice notify.ExpiryNotice) error
}

// ExpiryNotifier warns owners of active packages ending within the window.
// A package is flagged once notified, so reruns do not repeat the warning.
type ExpiryNotifier struct {
	store       ExpiringStore
	recipients  RecipientLookup
	plans       PlanLookup
	notifier    Notifier
	window      time.Duration
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

func NewExpiryNotifier(
	cfg config.JobsConfig,
	store ExpiringStore,
	recipients RecipientLookup,
	plans PlanLookup,
	notifier Notifier,
	logger *slog.Logger,
) *ExpiryNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	window := cfg.ExpiryWindow
	if window <= 0 {
		window = defaultExpiryWindow
	}
	concurrency := cfg.NotifyConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &ExpiryNotifier{
		store:       store,
		recipients:  recipients,
		plans:       plans,
		notifier:    notifier,
		window:      window,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

func (e *ExpiryNotifier) Name() string {
	return JobNotifyExpiring
}

// Run notifies each expiring package. Failures on one package are logged
// and skipped; the package stays unflagged and is retried on the next run.
func (e *ExpiryNotifier) Run(ctx context.Context) (int, error) {
	now := e.now()

	pkgs, err := e.store.ListExpiring(ctx, now, now.Add(e.window), expiryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expiring packages: %w", err)
	}

	var sent atomic.Int64
	planNames := newPlanCache(e.plans)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i := range pkgs {
		p := pkgs[i]
		g.Go(func() error {
			if err := e.notifyOne(gctx, &p, now, planNames); err != nil {
				e.logger.WarnContext(gctx, "expiry notice skipped",
					"package_id", p.ID,
					"user_id", p.UserID,
					"error", err,
				)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(sent.Load()), err
	}

	return int(sent.Load()), ctx.Err()
}

func (e *ExpiryNotifier) notifyOne(
	ctx context.Context,
	p *packages.Package,
	now time.Time,
	planNames *planCache,
) error {
	r, err := e.recipients.GetRecipient(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("lookup recipient: %w", err)
	}

	name, err := planNames.name(ctx, p.PlanID)
	if err != nil {
		return fmt.Errorf("lookup plan: %w", err)
	}

	err = e.notifier.NotifyExpiry(ctx, r, notify.ExpiryNotice{
		PackageID: p.ID,
		PlanID:    p.PlanID,
		PlanName:  name,
		DaysLeft:  DaysLeft(p.EndDate, now),
	})
	if err != nil {
		return err
	}

	return e.store.MarkNotified(ctx, p.ID)
}

// DaysLeft rounds the time until end up to whole days.
func DaysLeft(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

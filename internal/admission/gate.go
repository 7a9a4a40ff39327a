// AngelaMos | 2026
// gate.go

package admission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/quota"
	"github.com/carterperez-dev/entitlements/internal/sdktoken"
	"github.com/carterperez-dev/entitlements/internal/usage"
)

const defaultTimeout = 800 * time.Millisecond

// Account is the slice of a user the gate needs.
type Account struct {
	ID             string
	AllowedDomains []string
}

type AccountProvider interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
}

type PackageFinder interface {
	GetByUserAndTokenHash(ctx context.Context, userID, tokenHash string) (*packages.Package, error)
}

type TokenVerifier interface {
	Verify(token string) (*sdktoken.Claims, error)
}

type UsageRecorder interface {
	Record(ctx context.Context, rec usage.Record) error
}

// Ledger consumes quota. Consume returns quota.ErrExceeded when the
// conditional decrement finds nothing left and nil otherwise.
type Ledger interface {
	Check(p *packages.Package) error
	Consume(ctx context.Context, p *packages.Package) error
}

// Request is everything the gate looks at for one SDK call.
type Request struct {
	Token       string
	Origin      string
	IPAddress   string
	UserAgent   string
	RequestType usage.RequestType
	ProductUID  string
	Metadata    usage.Metadata
}

// Decision is the context handed to SDK handlers after a pass.
type Decision struct {
	Account *Account
	Package *packages.Package
	Claims  *sdktoken.Claims
	Domain  string
}

type Deps struct {
	Tokens   TokenVerifier
	Accounts AccountProvider
	Packages PackageFinder
	Ledger   Ledger
	Usage    UsageRecorder
	Metrics  *core.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// Gate decides whether an SDK call may proceed. Every call that gets far
// enough to identify an existing account leaves exactly one usage record,
// and a passed call consumes exactly one unit of quota.
type Gate struct {
	deps    Deps
	timeout time.Duration
}

func NewGate(cfg config.AdmissionConfig, deps Deps) *Gate {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Gate{deps: deps, timeout: timeout}
}

// attempt accumulates what the pipeline learned so the single usage record
// can be written once the outcome is known.
type attempt struct {
	req     Request
	domain  string
	account *Account
	pkg     *packages.Package
}

func (g *Gate) Admit(ctx context.Context, req Request) (*Decision, error) {
	start := time.Now()

	ctx, span := core.StartSpan(ctx, "admission.admit",
		attribute.String("admission.request_type", string(req.RequestType)),
	)
	defer span.End()

	decision, denial := g.admit(ctx, req)

	outcome := "admitted"
	if denial != nil {
		outcome = string(denial.Reason)
		span.SetAttributes(attribute.String("admission.denial", outcome))
	}
	g.deps.Metrics.RecordAdmission(string(req.RequestType), outcome, time.Since(start).Seconds())

	if denial != nil {
		return nil, denial
	}
	return decision, nil
}

func (g *Gate) admit(ctx context.Context, req Request) (*Decision, *Denial) {
	if req.Token == "" {
		return nil, deny(ReasonMissingToken)
	}

	claims, err := g.deps.Tokens.Verify(req.Token)
	if err != nil {
		if errors.Is(err, sdktoken.ErrExpired) {
			return nil, deny(ReasonTokenExpired)
		}
		return nil, deny(ReasonInvalidToken)
	}

	a := &attempt{req: req}
	if host, ok := OriginHost(req.Origin); ok {
		a.domain = host
	}

	storeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	account, err := g.deps.Accounts.GetAccount(storeCtx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, deny(ReasonUserNotFound)
		}
		g.storageFailure(ctx, "load account", claims.UserID, err)
		return nil, deny(ReasonServiceUnavailable)
	}
	a.account = account

	pkg, err := g.deps.Packages.GetByUserAndTokenHash(
		storeCtx,
		account.ID,
		core.HashToken(req.Token),
	)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		g.storageFailure(ctx, "load package", account.ID, err)
		return nil, g.fail(ctx, a, ReasonServiceUnavailable)
	}
	if pkg == nil || !pkg.IsUsable(g.deps.Now()) {
		return nil, g.fail(ctx, a, ReasonNoActivePackage)
	}
	a.pkg = pkg

	if err := g.deps.Ledger.Check(pkg); err != nil {
		return nil, g.fail(ctx, a, ReasonQuotaExceeded)
	}

	if !OriginAllowed(req.Origin, account.AllowedDomains) {
		return nil, g.fail(ctx, a, ReasonOriginNotAllowed)
	}

	if err := g.deps.Ledger.Consume(storeCtx, pkg); errors.Is(err, quota.ErrExceeded) {
		return nil, g.fail(ctx, a, ReasonQuotaExceeded)
	}

	g.record(ctx, a, nil)

	return &Decision{
		Account: account,
		Package: pkg,
		Claims:  claims,
		Domain:  a.domain,
	}, nil
}

func (g *Gate) fail(ctx context.Context, a *attempt, reason Reason) *Denial {
	d := deny(reason)
	g.record(ctx, a, d)
	return d
}

// record writes the attempt's usage record. It runs detached from the
// request deadline so a slow pipeline still leaves its audit trail, and a
// failed write is logged without changing the decision.
func (g *Gate) record(ctx context.Context, a *attempt, d *Denial) {
	rec := usage.Record{
		UserID:      a.account.ID,
		ProductUID:  a.req.ProductUID,
		Domain:      a.domain,
		RequestType: a.req.RequestType,
		IPAddress:   a.req.IPAddress,
		UserAgent:   a.req.UserAgent,
		Metadata:    a.req.Metadata,
		Success:     d == nil,
	}
	if a.pkg != nil {
		id := a.pkg.ID
		rec.PackageID = &id
	}
	if d != nil {
		rec.ErrorMessage = d.Message()
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	if err := g.deps.Usage.Record(recordCtx, rec); err != nil {
		g.deps.Metrics.RecordQuotaAnomaly("usage_record_failed")
		g.deps.Logger.WarnContext(ctx, "usage record not written",
			"user_id", rec.UserID,
			"request_type", rec.RequestType,
			"error", err,
		)
	}
}

func (g *Gate) storageFailure(ctx context.Context, op, userID string, err error) {
	core.SetSpanError(ctx, err)
	g.deps.Logger.ErrorContext(ctx, "admission storage failure",
		"op", op,
		"user_id", userID,
		"error", err,
	)
}

// AngelaMos | 2026
// service.go

package packages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/grant"
	"github.com/carterperez-dev/entitlements/internal/plan"
	"github.com/carterperez-dev/entitlements/internal/sdktoken"
)

var (
	ErrUserNotFound   = fmt.Errorf("user: %w", core.ErrNotFound)
	ErrPlanNotFound   = fmt.Errorf("plan: %w", core.ErrNotFound)
	ErrExpiredPackage = errors.New("package has expired")
)

const maxReissueAttempts = 3

type UserLookup interface {
	UserExists(ctx context.Context, id string) error
}

type PlanLookup interface {
	Get(ctx context.Context, id string) (*plan.Plan, error)
}

type TokenMinter interface {
	Mint(claims sdktoken.Claims) (string, error)
}

// Service owns every transition of a package. Each change to the window
// or the feature grant mints a new token and retires the old one.
type Service struct {
	repo   Repository
	users  UserLookup
	plans  PlanLookup
	tokens TokenMinter
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(
	repo Repository,
	users UserLookup,
	plans PlanLookup,
	tokens TokenMinter,
	opts ...Option,
) *Service {
	s := &Service{
		repo:   repo,
		users:  users,
		plans:  plans,
		tokens: tokens,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateParams struct {
	UserID    string
	PlanID    string
	PaymentID *string
	StartDate time.Time
	EndDate   time.Time
	Features  *grant.Grant
}

// Create issues a package. Zero dates default to now and now plus the
// plan duration; a nil grant copies the plan default.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Package, error) {
	if err := s.users.UserExists(ctx, params.UserID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	p, err := s.plans.Get(ctx, params.PlanID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("lookup plan: %w", err)
	}

	features := p.DefaultSDKFeatures.Normalize()
	if params.Features != nil {
		features = params.Features.Normalize()
	}
	if err := features.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	start := params.StartDate
	if start.IsZero() {
		start = s.now()
	}
	end := params.EndDate
	if end.IsZero() {
		end = start.AddDate(0, 0, p.DurationDays)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end date must be after start date: %w", core.ErrInvalidInput)
	}

	token, err := s.tokens.Mint(sdktoken.Claims{
		UserID:    params.UserID,
		PlanID:    p.ID,
		StartDate: start,
		EndDate:   end,
		Features:  features,
	})
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	pkg := &Package{
		ID:           uuid.New().String(),
		UserID:       params.UserID,
		PlanID:       p.ID,
		PaymentID:    params.PaymentID,
		StartDate:    start,
		EndDate:      end,
		Token:        token,
		TokenHash:    core.HashToken(token),
		SDKFeatures:  features,
		MonthlyLimit: p.MonthlyLimit,
		Remaining:    p.MonthlyLimit,
		TotalLimit:   p.TotalLimit,
		Status:       StatusActive,
	}

	if err := s.repo.Create(ctx, pkg); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "package created",
		"package_id", pkg.ID,
		"user_id", pkg.UserID,
		"plan_id", pkg.PlanID,
		"end_date", pkg.EndDate,
	)

	return pkg, nil
}

// Extend pushes the end date out by days counted from the current end
// date, so unused term is kept. Remaining quota is left untouched.
func (s *Service) Extend(ctx context.Context, id string, days int) (*Package, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive: %w", core.ErrInvalidInput)
	}

	err := s.reissue(ctx, id, func(p *Package) (Reissue, error) {
		end := p.EndDate.AddDate(0, 0, days)
		return s.mintFor(p, end, p.SDKFeatures)
	}, s.repo.Extend)
	if err != nil {
		return nil, err
	}

	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "package extended",
		"package_id", id,
		"days", days,
		"end_date", pkg.EndDate,
	)

	return pkg, nil
}

func (s *Service) UpdateFeatureGrant(
	ctx context.Context,
	id string,
	g grant.Grant,
) (*Package, error) {
	g = g.Normalize()
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	err := s.reissue(ctx, id, func(p *Package) (Reissue, error) {
		return s.mintFor(p, p.EndDate, g)
	}, s.repo.UpdateGrant)
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// Suspend is idempotent and applies whatever the current status is.
func (s *Service) Suspend(ctx context.Context, id string) (*Package, error) {
	if err := s.repo.SetStatus(ctx, id, StatusSuspended); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "package suspended", "package_id", id)

	return s.repo.GetByID(ctx, id)
}

func (s *Service) Reactivate(ctx context.Context, id string) (*Package, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !p.EndDate.After(s.now()) {
		return nil, ErrExpiredPackage
	}

	if err := s.repo.SetStatus(ctx, id, StatusActive); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "package reactivated", "package_id", id)

	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Package, error) {
	return s.repo.GetByID(ctx, id)
}

// GetOwned hides packages of other users behind ErrNotFound.
func (s *Service) GetOwned(ctx context.Context, userID, id string) (*Package, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("get package: %w", core.ErrNotFound)
	}
	return p, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Package, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Package, int, error) {
	if params.Now.IsZero() {
		params.Now = s.now()
	}
	return s.repo.List(ctx, params)
}

func (s *Service) CountByEffectiveStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByEffectiveStatus(ctx, s.now())
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) mintFor(p *Package, end time.Time, g grant.Grant) (Reissue, error) {
	token, err := s.tokens.Mint(sdktoken.Claims{
		UserID:    p.UserID,
		PlanID:    p.PlanID,
		StartDate: p.StartDate,
		EndDate:   end,
		Features:  g,
	})
	if err != nil {
		return Reissue{}, fmt.Errorf("mint token: %w", err)
	}

	return Reissue{
		ID:              p.ID,
		ExpectedVersion: p.Version,
		EndDate:         end,
		SDKFeatures:     g,
		Token:           token,
		TokenHash:       core.HashToken(token),
	}, nil
}

// reissue reads the package, builds a new token from it and writes it back
// only if nobody reissued in between, retrying a few times on conflict.
func (s *Service) reissue(
	ctx context.Context,
	id string,
	build func(p *Package) (Reissue, error),
	write func(ctx context.Context, r Reissue) error,
) error {
	var lastErr error

	for range maxReissueAttempts {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		re, err := build(p)
		if err != nil {
			return err
		}

		err = write(ctx, re)
		if err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrConflict) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("reissue package %s: %w", id, lastErr)
}

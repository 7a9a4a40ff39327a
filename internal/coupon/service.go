// AngelaMos | 2026
// service.go

package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/plan"
)

var ErrPlanNotFound = fmt.Errorf("plan: %w", core.ErrNotFound)

type PlanLookup interface {
	Get(ctx context.Context, id string) (*plan.Plan, error)
}

// Discount is a coupon priced against one plan.
type Discount struct {
	CouponID   string
	Code       string
	Percent    int
	Amount     int64
	FinalPrice int64
}

type Service struct {
	repo  Repository
	plans PlanLookup
	now   func() time.Time
}

func NewService(repo Repository, plans PlanLookup) *Service {
	return &Service{repo: repo, plans: plans, now: time.Now}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) Create(ctx context.Context, req CreateCouponRequest) (*Coupon, error) {
	c := &Coupon{
		ID:          uuid.New().String(),
		Code:        normalizeCode(req.Code),
		Description: req.Description,
		Percent:     req.Percent,
		MaxAmount:   req.MaxAmount,
		MaxUsage:    req.MaxUsage,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ForPlans:    IDList(req.ForPlans),
		ForUsers:    IDList(req.ForUsers),
		Active:      true,
	}
	if req.Active != nil {
		c.Active = *req.Active
	}

	if err := validate(c); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdateCouponRequest,
) (*Coupon, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		c.Code = normalizeCode(*req.Code)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Percent != nil {
		c.Percent = *req.Percent
	}
	if req.MaxAmount != nil {
		c.MaxAmount = *req.MaxAmount
	}
	if req.MaxUsage != nil {
		c.MaxUsage = *req.MaxUsage
	}
	if req.StartDate != nil {
		c.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		c.EndDate = *req.EndDate
	}
	if req.ForPlans != nil {
		c.ForPlans = IDList(*req.ForPlans)
	}
	if req.ForUsers != nil {
		c.ForUsers = IDList(*req.ForUsers)
	}
	if req.Active != nil {
		c.Active = *req.Active
	}

	if err := validate(c); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// Deactivate switches a coupon off. Payments already started with it keep
// their discount.
func (s *Service) Deactivate(ctx context.Context, id string) (*Coupon, error) {
	inactive := false
	return s.Update(ctx, id, UpdateCouponRequest{Active: &inactive})
}

func (s *Service) Get(ctx context.Context, id string) (*Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Coupon, error) {
	filter.Code = normalizeCode(filter.Code)
	return s.repo.List(ctx, filter)
}

// Apply checks code for userID buying p and prices the discount.
func (s *Service) Apply(
	ctx context.Context,
	code, userID string,
	p *plan.Plan,
) (*Discount, error) {
	c, err := s.repo.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}

	if err := c.Check(s.now(), userID, p.ID); err != nil {
		return nil, err
	}

	amount := c.DiscountFor(p.Price)
	return &Discount{
		CouponID:   c.ID,
		Code:       c.Code,
		Percent:    c.Percent,
		Amount:     amount,
		FinalPrice: p.Price - amount,
	}, nil
}

// Quote is Apply for a plan known only by id.
func (s *Service) Quote(ctx context.Context, code, userID, planID string) (*Discount, error) {
	p, err := s.plans.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("lookup plan: %w", err)
	}
	return s.Apply(ctx, code, userID, p)
}

func (s *Service) Redeem(ctx context.Context, id string) error {
	return s.repo.Redeem(ctx, id)
}

func validate(c *Coupon) error {
	if c.Code == "" {
		return fmt.Errorf("code is required: %w", core.ErrInvalidInput)
	}
	if c.Percent < 1 || c.Percent > 100 {
		return fmt.Errorf("percent must be between 1 and 100: %w", core.ErrInvalidInput)
	}
	if c.MaxAmount < 0 {
		return fmt.Errorf("max amount must not be negative: %w", core.ErrInvalidInput)
	}
	if c.MaxUsage < 1 {
		return fmt.Errorf("max usage must be at least 1: %w", core.ErrInvalidInput)
	}
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("end date must be after start date: %w", core.ErrInvalidInput)
	}
	return nil
}

// AngelaMos | 2026
// service.go

package plan

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/grant"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	features := grant.Default()
	if req.DefaultSDKFeatures != nil {
		features = req.DefaultSDKFeatures.Normalize()
	}

	p := &Plan{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		Description:        req.Description,
		Price:              req.Price,
		DurationDays:       req.DurationDays,
		TotalLimit:         Unlimited,
		DefaultSDKFeatures: features,
		Active:             true,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if req.RequestLimit.Monthly == nil {
		return nil, fmt.Errorf("monthly limit is required: %w", core.ErrInvalidInput)
	}
	req.RequestLimit.apply(p)

	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Update edits a plan in place. Packages already sold keep their copied
// feature grant; a new monthly limit reaches them at the next reset.
func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdatePlanRequest,
) (*Plan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.DurationDays != nil {
		p.DurationDays = *req.DurationDays
	}
	if req.RequestLimit != nil {
		req.RequestLimit.apply(p)
	}
	if req.DefaultSDKFeatures != nil {
		p.DefaultSDKFeatures = req.DefaultSDKFeatures.Normalize()
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Plan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	return s.repo.List(ctx, activeOnly)
}

func validate(p *Plan) error {
	if !validLimit(p.MonthlyLimit) {
		return fmt.Errorf(
			"monthly limit must be positive or -1: %w",
			core.ErrInvalidInput,
		)
	}
	if !validLimit(p.TotalLimit) {
		return fmt.Errorf(
			"total limit must be positive or -1: %w",
			core.ErrInvalidInput,
		)
	}
	if err := p.DefaultSDKFeatures.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	return nil
}

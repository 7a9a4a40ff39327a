// AngelaMos | 2026
// service.go

package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/entitlements/internal/core"
)

const uidAttempts = 5

type Service struct {
	repo   Repository
	newUID func() (string, error)
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:   repo,
		newUID: generateUID,
	}
}

// generateUID returns an 8 character url-safe handle.
func generateUID() (string, error) {
	return core.GenerateSecureToken(6)
}

func (s *Service) Create(
	ctx context.Context,
	userID string,
	req CreateProductRequest,
) (*Product, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	p := &Product{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Code:        req.Code,
		Thumbnail:   req.Thumbnail,
		Patterns:    req.Patterns,
		Colors:      req.Colors,
		Active:      active,
	}

	for range uidAttempts {
		uid, err := s.newUID()
		if err != nil {
			return nil, err
		}
		p.UID = uid

		err = s.repo.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, errUIDTaken) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("create product: no free uid after %d attempts", uidAttempts)
}

// GetOwned hides products of other users behind ErrNotFound.
func (s *Service) GetOwned(ctx context.Context, userID, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Product, error) {
	return s.repo.ListByUser(ctx, userID, false)
}

func (s *Service) ListActive(ctx context.Context, userID string) ([]Product, error) {
	return s.repo.ListByUser(ctx, userID, true)
}

func (s *Service) GetActiveByUID(ctx context.Context, userID, uid string) (*Product, error) {
	return s.repo.GetByUID(ctx, userID, uid, true)
}

func (s *Service) Update(
	ctx context.Context,
	userID, id string,
	req UpdateProductRequest,
) (*Product, error) {
	p, err := s.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Type != nil {
		p.Type = *req.Type
	}
	if req.Code != nil {
		p.Code = *req.Code
	}
	if req.Thumbnail != nil {
		p.Thumbnail = *req.Thumbnail
	}
	if req.Patterns != nil {
		p.Patterns = *req.Patterns
	}
	if req.Colors != nil {
		p.Colors = *req.Colors
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) SetActive(ctx context.Context, userID, id string, active bool) (*Product, error) {
	p, err := s.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	p.Active = active
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.GetOwned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AngelaMos | 2026
// repository.go

package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, id string) (*Plan, error)
	Update(ctx context.Context, p *Plan) error
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const planColumns = `
	id, name, description, price, duration_days, monthly_limit, total_limit,
	default_sdk_features, active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Plan) error {
	query := `
		INSERT INTO plans (id, name, description, price, duration_days,
		                   monthly_limit, total_limit, default_sdk_features, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.DurationDays,
		p.MonthlyLimit,
		p.TotalLimit,
		p.DefaultSDKFeatures,
		p.Active,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create plan: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create plan: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	var p Plan
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	return &p, nil
}

func (r *repository) Update(ctx context.Context, p *Plan) error {
	query := `
		UPDATE plans
		SET name = $2, description = $3, price = $4, duration_days = $5,
		    monthly_limit = $6, total_limit = $7, default_sdk_features = $8,
		    active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.DurationDays,
		p.MonthlyLimit,
		p.TotalLimit,
		p.DefaultSDKFeatures,
		p.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update plan: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	return nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY price ASC, created_at ASC`

	var plans []Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}

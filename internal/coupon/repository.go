// AngelaMos | 2026
// repository.go

package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type ListFilter struct {
	Code   string
	Active *bool
}

type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByID(ctx context.Context, id string) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	// Update writes every editable field. used_count is never touched so
	// an edit cannot undo a concurrent redemption.
	Update(ctx context.Context, c *Coupon) error
	List(ctx context.Context, filter ListFilter) ([]Coupon, error)
	// Redeem counts one use. It returns ErrExhausted when the coupon has
	// no uses left.
	Redeem(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const couponColumns = `
	id, code, description, percent, max_amount, max_usage, used_count,
	start_date, end_date, for_plans, for_users, active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, c *Coupon) error {
	query := `
		INSERT INTO coupons (id, code, description, percent, max_amount, max_usage,
		                     start_date, end_date, for_plans, for_users, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING used_count, created_at, updated_at`

	err := r.db.GetContext(ctx, c, query,
		c.ID,
		c.Code,
		c.Description,
		c.Percent,
		c.MaxAmount,
		c.MaxUsage,
		c.StartDate,
		c.EndDate,
		c.ForPlans,
		c.ForUsers,
		c.Active,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create coupon: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create coupon: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Coupon, error) {
	return r.getOne(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	return r.getOne(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
}

func (r *repository) getOne(ctx context.Context, query, arg string) (*Coupon, error) {
	var c Coupon
	err := r.db.GetContext(ctx, &c, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get coupon: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return &c, nil
}

func (r *repository) Update(ctx context.Context, c *Coupon) error {
	query := `
		UPDATE coupons
		SET code = $2, description = $3, percent = $4, max_amount = $5,
		    max_usage = $6, start_date = $7, end_date = $8, for_plans = $9,
		    for_users = $10, active = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING used_count, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.Code,
		c.Description,
		c.Percent,
		c.MaxAmount,
		c.MaxUsage,
		c.StartDate,
		c.EndDate,
		c.ForPlans,
		c.ForUsers,
		c.Active,
	).Scan(&c.UsedCount, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update coupon: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("update coupon: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update coupon: %w", err)
	}

	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE TRUE`
	var args []any
	if filter.Code != "" {
		args = append(args, filter.Code)
		query += fmt.Sprintf(` AND code = $%d`, len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(` AND active = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	var coupons []Coupon
	if err := r.db.SelectContext(ctx, &coupons, query, args...); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	return coupons, nil
}

func (r *repository) Redeem(ctx context.Context, id string) error {
	query := `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND used_count < max_usage`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("redeem coupon %s: %w", id, ErrExhausted)
	}

	return nil
}

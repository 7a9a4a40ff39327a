// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
)

// Settlement is what a finished callback writes back.
type Settlement struct {
	ID           string
	Status       Status
	PaymentRefID string
	CardNumber   string
	CardHashPan  string
	PaidAt       *time.Time
}

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByClientRefID(ctx context.Context, clientRefID string) (*Payment, error)
	SetCode(ctx context.Context, id, code string) error
	// Settle moves a pending payment to its final status. It returns
	// core.ErrConflict when the payment is no longer pending.
	Settle(ctx context.Context, s Settlement) error
	ListByUser(ctx context.Context, userID string, status Status) ([]Payment, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const paymentColumns = `
	id, user_id, plan_id, amount, original_amount, discount, coupon_id,
	client_ref_id, payment_code, payment_ref_id, card_number, card_hash_pan,
	paid_at, status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, user_id, plan_id, amount, original_amount,
		                      discount, coupon_id, client_ref_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.UserID,
		p.PlanID,
		p.Amount,
		p.OriginalAmount,
		p.Discount,
		p.CouponID,
		p.ClientRefID,
		p.Status,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create payment: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *repository) GetByClientRefID(ctx context.Context, clientRefID string) (*Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE client_ref_id = $1`, clientRefID)
}

func (r *repository) getOne(ctx context.Context, query string, arg string) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

func (r *repository) SetCode(ctx context.Context, id, code string) error {
	query := `
		UPDATE payments
		SET payment_code = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, code)
	if err != nil {
		return fmt.Errorf("set payment code: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "set payment code")
}

func (r *repository) Settle(ctx context.Context, s Settlement) error {
	query := `
		UPDATE payments
		SET status = $2, payment_ref_id = $3, card_number = $4,
		    card_hash_pan = $5, paid_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Status,
		s.PaymentRefID,
		s.CardNumber,
		s.CardHashPan,
		s.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("settle payment %s: %w", s.ID, core.ErrConflict)
	}

	return nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	status Status,
) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	var payments []Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return payments, nil
}

// AngelaMos | 2026
// repository.go

package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
)

// Store is the storage side of the ledger. Decrement must be a single
// conditional write so that concurrent callers are linearized by the
// database rather than by application code.
type Store interface {
	Decrement(ctx context.Context, packageID string) error
	ResetMonthly(ctx context.Context, now time.Time) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Store {
	return &repository{db: db}
}

// Decrement consumes one call. Zero affected rows means the monthly counter
// or the lifetime cap was already exhausted and reports ErrExceeded.
func (r *repository) Decrement(ctx context.Context, packageID string) error {
	query := `
		UPDATE packages
		SET remaining = CASE WHEN remaining = -1 THEN -1 ELSE remaining - 1 END,
		    used_total = used_total + 1
		WHERE id = $1
		  AND (remaining = -1 OR remaining > 0)
		  AND (total_limit = -1 OR used_total < total_limit)`

	result, err := r.db.ExecContext(ctx, query, packageID)
	if err != nil {
		return fmt.Errorf("decrement quota: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement quota: %w", err)
	}
	if rows == 0 {
		return ErrExceeded
	}

	return nil
}

// ResetMonthly overwrites remaining with the plan's current monthly limit
// for every package that is effectively active.
func (r *repository) ResetMonthly(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE packages AS p
		SET remaining = pl.monthly_limit,
		    monthly_limit = pl.monthly_limit,
		    updated_at = NOW()
		FROM plans AS pl
		WHERE p.plan_id = pl.id
		  AND p.status = 'active'
		  AND p.end_date > $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("reset monthly quota: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset monthly quota: %w", err)
	}

	return int(rows), nil
}

// AngelaMos | 2026
// repository.go

package packages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/grant"
)

// Reissue carries a freshly minted token together with the state it was
// minted from. ExpectedVersion must match the stored row for the write to
// apply.
type Reissue struct {
	ID              string
	ExpectedVersion int
	EndDate         time.Time
	SDKFeatures     grant.Grant
	Token           string
	TokenHash       string
}

type Repository interface {
	Create(ctx context.Context, p *Package) error
	GetByID(ctx context.Context, id string) (*Package, error)
	GetByUserAndTokenHash(ctx context.Context, userID, tokenHash string) (*Package, error)
	ListByUser(ctx context.Context, userID string) ([]Package, error)
	List(ctx context.Context, params ListParams) ([]Package, int, error)
	Extend(ctx context.Context, r Reissue) error
	UpdateGrant(ctx context.Context, r Reissue) error
	SetStatus(ctx context.Context, id string, status Status) error
	CountByEffectiveStatus(ctx context.Context, now time.Time) (map[Status]int, error)
	ListExpiring(ctx context.Context, now, until time.Time, limit int) ([]Package, error)
	MarkNotified(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const packageColumns = `
	id, user_id, plan_id, payment_id, start_date, end_date, token, token_hash,
	sdk_features, monthly_limit, remaining, total_limit, used_total, status,
	notified, version, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Package) error {
	query := `
		INSERT INTO packages (id, user_id, plan_id, payment_id, start_date,
		                      end_date, token, token_hash, sdk_features,
		                      monthly_limit, remaining, total_limit, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING used_total, notified, version, created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.UserID,
		p.PlanID,
		p.PaymentID,
		p.StartDate,
		p.EndDate,
		p.Token,
		p.TokenHash,
		p.SDKFeatures,
		p.MonthlyLimit,
		p.Remaining,
		p.TotalLimit,
		p.Status,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create package: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create package: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`

	var p Package
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get package: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}

	return &p, nil
}

func (r *repository) GetByUserAndTokenHash(
	ctx context.Context,
	userID, tokenHash string,
) (*Package, error) {
	query := `SELECT ` + packageColumns + `
		FROM packages
		WHERE user_id = $1 AND token_hash = $2`

	var p Package
	err := r.db.GetContext(ctx, &p, query, userID, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get package by token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get package by token: %w", err)
	}

	return &p, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Package, error) {
	query := `SELECT ` + packageColumns + `
		FROM packages
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var pkgs []Package
	if err := r.db.SelectContext(ctx, &pkgs, query, userID); err != nil {
		return nil, fmt.Errorf("list user packages: %w", err)
	}

	return pkgs, nil
}

// effectiveStatusCondition mirrors EffectiveStatus in SQL.
func effectiveStatusCondition(status Status, nowArg int) (string, bool) {
	switch status {
	case StatusActive:
		return fmt.Sprintf("(status = 'active' AND end_date > $%d)", nowArg), true
	case StatusExpired:
		return fmt.Sprintf("(status <> 'suspended' AND (status = 'expired' OR end_date <= $%d))", nowArg), true
	case StatusSuspended:
		return "status = 'suspended'", false
	}
	return "", false
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Package, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "TRUE")

	if params.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, params.UserID)
		argIdx++
	}

	if params.Status != "" {
		cond, usesNow := effectiveStatusCondition(params.Status, argIdx)
		if cond != "" {
			conditions = append(conditions, cond)
			if usesNow {
				args = append(args, params.Now)
				argIdx++
			}
		}
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM packages WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count packages: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM packages
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		packageColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var pkgs []Package
	if err := r.db.SelectContext(ctx, &pkgs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list packages: %w", err)
	}

	return pkgs, total, nil
}

// Extend writes a new window and token. Extension doubles as
// reactivation and re-arms the expiry notice.
func (r *repository) Extend(ctx context.Context, re Reissue) error {
	query := `
		UPDATE packages
		SET end_date = $3, token = $4, token_hash = $5, status = 'active',
		    notified = FALSE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2`

	result, err := r.db.ExecContext(ctx, query,
		re.ID,
		re.ExpectedVersion,
		re.EndDate,
		re.Token,
		re.TokenHash,
	)
	if err != nil {
		return fmt.Errorf("extend package: %w", err)
	}

	return versionConflict(result, "extend package")
}

func (r *repository) UpdateGrant(ctx context.Context, re Reissue) error {
	query := `
		UPDATE packages
		SET sdk_features = $3, token = $4, token_hash = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2`

	result, err := r.db.ExecContext(ctx, query,
		re.ID,
		re.ExpectedVersion,
		re.SDKFeatures,
		re.Token,
		re.TokenHash,
	)
	if err != nil {
		return fmt.Errorf("update package grant: %w", err)
	}

	return versionConflict(result, "update package grant")
}

func versionConflict(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrConflict)
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id string, status Status) error {
	query := `
		UPDATE packages
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set package status: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "set package status")
}

func (r *repository) CountByEffectiveStatus(
	ctx context.Context,
	now time.Time,
) (map[Status]int, error) {
	query := `
		SELECT
			CASE
				WHEN status = 'suspended' THEN 'suspended'
				WHEN end_date <= $1 THEN 'expired'
				ELSE status
			END AS effective,
			COUNT(*) AS n
		FROM packages
		GROUP BY effective`

	var rows []struct {
		Effective Status `db:"effective"`
		N         int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("count packages by status: %w", err)
	}

	counts := map[Status]int{
		StatusActive:    0,
		StatusExpired:   0,
		StatusSuspended: 0,
	}
	for _, row := range rows {
		counts[row.Effective] += row.N
	}

	return counts, nil
}

func (r *repository) ListExpiring(
	ctx context.Context,
	now, until time.Time,
	limit int,
) ([]Package, error) {
	query := `SELECT ` + packageColumns + `
		FROM packages
		WHERE status = 'active'
		  AND notified = FALSE
		  AND end_date > $1
		  AND end_date <= $2
		ORDER BY end_date ASC
		LIMIT $3`

	var pkgs []Package
	if err := r.db.SelectContext(ctx, &pkgs, query, now, until, limit); err != nil {
		return nil, fmt.Errorf("list expiring packages: %w", err)
	}

	return pkgs, nil
}

func (r *repository) MarkNotified(ctx context.Context, id string) error {
	query := `UPDATE packages SET notified = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark package notified: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "mark package notified")
}

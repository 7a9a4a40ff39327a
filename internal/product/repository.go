// AngelaMos | 2026
// repository.go

package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/entitlements/internal/core"
)

const uidConstraint = "products_uid_key"

// errUIDTaken reports a collision on the generated public uid, as opposed to
// a duplicate owner code.
var errUIDTaken = errors.New("product uid taken")

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByUID(ctx context.Context, userID, uid string, activeOnly bool) (*Product, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const productColumns = `
	id, user_id, uid, name, description, type, code, thumbnail, patterns,
	colors, active, created_at, updated_at`

func duplicateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == uidConstraint {
		return fmt.Errorf("%s: %w", op, errUIDTaken)
	}
	return fmt.Errorf("%s: %w", op, core.ErrDuplicateKey)
}

func (r *repository) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, user_id, uid, name, description, type, code,
		                      thumbnail, patterns, colors, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.UserID,
		p.UID,
		p.Name,
		p.Description,
		p.Type,
		p.Code,
		p.Thumbnail,
		p.Patterns,
		p.Colors,
		p.Active,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return duplicateError("create product", err)
		}
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p Product
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

func (r *repository) GetByUID(
	ctx context.Context,
	userID, uid string,
	activeOnly bool,
) (*Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE user_id = $1 AND uid = $2 AND (active OR NOT $3)`

	var p Product
	err := r.db.GetContext(ctx, &p, query, userID, uid, activeOnly)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get product by uid: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product by uid: %w", err)
	}

	return &p, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	activeOnly bool,
) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE user_id = $1 AND (active OR NOT $2)
		ORDER BY created_at DESC`

	var products []Product
	if err := r.db.SelectContext(ctx, &products, query, userID, activeOnly); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

func (r *repository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, type = $4, code = $5, thumbnail = $6,
		    patterns = $7, colors = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID,
		p.Name,
		p.Description,
		p.Type,
		p.Code,
		p.Thumbnail,
		p.Patterns,
		p.Colors,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return duplicateError("update product", err)
		}
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

func (r *repository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE products SET active = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set product active: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "set product active")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	return core.RowsAffectedOrNotFound(result, "delete product")
}

// AngelaMos | 2026
// repository.go

package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	PackageStats(ctx context.Context, packageID string) (PackageStats, error)
	Summary(ctx context.Context, userID string, since time.Time) (Summary, PackageStats, error)
	Daily(ctx context.Context, userID string, since time.Time) ([]DailyCount, error)
	TopBy(ctx context.Context, userID string, since time.Time, dim Dimension, limit int) ([]Bucket, error)
	ListSince(ctx context.Context, userID string, since time.Time, limit int) ([]Record, error)
}

// Dimension is a column analytics can group on.
type Dimension string

const (
	DimDomain  Dimension = "domain"
	DimDevice  Dimension = "device"
	DimBrowser Dimension = "browser"
	DimOS      Dimension = "os"
)

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO usage_records (id, user_id, package_id, product_id, product_uid,
		                           domain, request_type, ip_address, user_agent,
		                           device, browser, os, metadata, success,
		                           error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &rec.CreatedAt, query,
		rec.ID,
		rec.UserID,
		rec.PackageID,
		rec.ProductID,
		rec.ProductUID,
		rec.Domain,
		rec.RequestType,
		rec.IPAddress,
		rec.UserAgent,
		rec.Device,
		rec.Browser,
		rec.OS,
		rec.Metadata,
		rec.Success,
		rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("create usage record: %w", err)
	}

	return nil
}

func (r *repository) PackageStats(ctx context.Context, packageID string) (PackageStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE request_type = 'validate') AS validate,
			COUNT(*) FILTER (WHERE request_type = 'apply') AS apply,
			COUNT(*) FILTER (WHERE request_type = 'check') AS "check",
			COUNT(*) FILTER (WHERE request_type = 'other') AS other
		FROM usage_records
		WHERE package_id = $1`

	var stats PackageStats
	if err := r.db.GetContext(ctx, &stats, query, packageID); err != nil {
		return PackageStats{}, fmt.Errorf("package usage stats: %w", err)
	}

	return stats, nil
}

func (r *repository) Summary(
	ctx context.Context,
	userID string,
	since time.Time,
) (Summary, PackageStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE success) AS success,
			COUNT(*) FILTER (WHERE NOT success) AS failed,
			COUNT(*) FILTER (WHERE request_type = 'validate') AS validate,
			COUNT(*) FILTER (WHERE request_type = 'apply') AS apply,
			COUNT(*) FILTER (WHERE request_type = 'check') AS "check",
			COUNT(*) FILTER (WHERE request_type = 'other') AS other
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2`

	var row struct {
		Summary
		Validate int `db:"validate"`
		Apply    int `db:"apply"`
		Check    int `db:"check"`
		Other    int `db:"other"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID, since); err != nil {
		return Summary{}, PackageStats{}, fmt.Errorf("usage summary: %w", err)
	}

	byType := PackageStats{
		Total:    row.Total,
		Validate: row.Validate,
		Apply:    row.Apply,
		Check:    row.Check,
		Other:    row.Other,
	}

	return row.Summary, byType, nil
}

func (r *repository) Daily(
	ctx context.Context,
	userID string,
	since time.Time,
) ([]DailyCount, error) {
	query := `
		SELECT
			date_trunc('day', created_at) AS day,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE success) AS success
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY day
		ORDER BY day ASC`

	var days []DailyCount
	if err := r.db.SelectContext(ctx, &days, query, userID, since); err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}

	return days, nil
}

func (r *repository) TopBy(
	ctx context.Context,
	userID string,
	since time.Time,
	dim Dimension,
	limit int,
) ([]Bucket, error) {
	switch dim {
	case DimDomain, DimDevice, DimBrowser, DimOS:
	default:
		return nil, fmt.Errorf("usage dimension %q: %w", dim, core.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(NULLIF(%[1]s, ''), 'unknown') AS key, COUNT(*) AS count
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY key
		ORDER BY count DESC, key ASC
		LIMIT $3`, dim)

	var buckets []Bucket
	if err := r.db.SelectContext(ctx, &buckets, query, userID, since, limit); err != nil {
		return nil, fmt.Errorf("usage by %s: %w", dim, err)
	}

	return buckets, nil
}

func (r *repository) ListSince(
	ctx context.Context,
	userID string,
	since time.Time,
	limit int,
) ([]Record, error) {
	query := `
		SELECT id, user_id, package_id, product_id, product_uid, domain,
		       request_type, ip_address, user_agent, device, browser, os,
		       metadata, success, error_message, created_at
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`

	var records []Record
	if err := r.db.SelectContext(ctx, &records, query, userID, since, limit); err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}

	return records, nil
}

// AngelaMos | 2026
// service_test.go

package usage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type memRepo struct {
	mu      sync.Mutex
	records []Record
}

func (m *memRepo) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = time.Now()
	m.records = append(m.records, *r)
	return nil
}

func (m *memRepo) PackageStats(_ context.Context, packageID string) (PackageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s PackageStats
	for _, r := range m.records {
		if r.PackageID == nil || *r.PackageID != packageID {
			continue
		}
		s.Total++
		switch r.RequestType {
		case RequestValidate:
			s.Validate++
		case RequestApply:
			s.Apply++
		case RequestCheck:
			s.Check++
		default:
			s.Other++
		}
	}
	return s, nil
}

func (m *memRepo) Summary(_ context.Context, userID string, _ time.Time) (Summary, PackageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Summary
	for _, r := range m.records {
		if r.UserID != userID {
			continue
		}
		s.Total++
		if r.Success {
			s.Success++
		} else {
			s.Failed++
		}
	}
	return s, PackageStats{Total: s.Total}, nil
}

func (m *memRepo) Daily(context.Context, string, time.Time) ([]DailyCount, error) {
	return nil, nil
}

func (m *memRepo) TopBy(_ context.Context, userID string, _ time.Time, dim Dimension, _ int) ([]Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dim != DimBrowser {
		return nil, nil
	}
	counts := map[string]int{}
	for _, r := range m.records {
		if r.UserID == userID {
			counts[r.Browser]++
		}
	}
	var out []Bucket
	for k, v := range counts {
		out = append(out, Bucket{Key: k, Count: v})
	}
	return out, nil
}

func (m *memRepo) ListSince(_ context.Context, userID string, _ time.Time, _ int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type users map[string]bool

func (u users) UserExists(_ context.Context, id string) error {
	if !u[id] {
		return fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return nil
}

func TestRecordClassifiesClient(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, users{})

	pkgID := "pkg-1"
	err := svc.Record(context.Background(), Record{
		UserID:      "user-1",
		PackageID:   &pkgID,
		RequestType: RequestValidate,
		UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:125.0) Gecko/20100101 Firefox/125.0",
		Success:     true,
	})
	require.NoError(t, err)

	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Firefox", rec.Browser)
	assert.Equal(t, "macOS", rec.OS)
	assert.Equal(t, DeviceDesktop, rec.Device)
}

func TestRecordRequiresUser(t *testing.T) {
	svc := NewService(&memRepo{}, users{})

	err := svc.Record(context.Background(), Record{RequestType: RequestCheck})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRecordUnknownTypeBecomesOther(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, users{})

	require.NoError(t, svc.Record(context.Background(), Record{UserID: "u", RequestType: "bogus"}))
	assert.Equal(t, RequestOther, repo.records[0].RequestType)
}

func TestPackageStats(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, users{})
	ctx := context.Background()
	pkgID := "pkg-1"

	for _, rt := range []RequestType{RequestValidate, RequestValidate, RequestApply, RequestCheck, RequestOther} {
		require.NoError(t, svc.Record(ctx, Record{UserID: "u", PackageID: &pkgID, RequestType: rt}))
	}

	stats, err := svc.PackageStats(ctx, pkgID)
	require.NoError(t, err)
	assert.Equal(t, PackageStats{Total: 5, Validate: 2, Apply: 1, Check: 1, Other: 1}, stats)
}

func TestAnalytics(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, users{"user-1": true})
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, svc.Record(ctx, Record{
			UserID:      "user-1",
			RequestType: RequestCheck,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0) Chrome/124.0.0.0 Safari/537.36",
			Success:     i < 2,
		}))
	}

	a, err := svc.UserAnalytics(ctx, "user-1", RangeWeek)
	require.NoError(t, err)

	assert.Equal(t, Summary{Total: 3, Success: 2, Failed: 1}, a.Summary)
	assert.InDelta(t, 66.67, a.SuccessRate, 0.001)
	assert.Equal(t, []Bucket{{Key: "Chrome", Count: 3}}, a.Browsers)
	assert.NotNil(t, a.Daily)
	assert.NotNil(t, a.Domains)

	_, err = svc.UserAnalytics(ctx, "ghost", RangeWeek)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestParseRange(t *testing.T) {
	rng, err := ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, RangeMonth, rng)

	rng, err = ParseRange("year")
	require.NoError(t, err)
	assert.Equal(t, RangeYear, rng)

	_, err = ParseRange("decade")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), RangeWeek.Since(now))
}

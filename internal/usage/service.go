// AngelaMos | 2026
// service.go

package usage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type Range string

const (
	RangeDay   Range = "day"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

const (
	topBucketLimit = 10
	exportLimit    = 10000
)

// ParseRange defaults to a month when s is empty.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case "":
		return RangeMonth, nil
	case RangeDay, RangeWeek, RangeMonth, RangeYear:
		return Range(s), nil
	}
	return "", fmt.Errorf("range must be one of day, week, month, year: %w", core.ErrInvalidInput)
}

func (r Range) Since(now time.Time) time.Time {
	switch r {
	case RangeDay:
		return now.AddDate(0, 0, -1)
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

type UserLookup interface {
	UserExists(ctx context.Context, id string) error
}

type Service struct {
	repo  Repository
	users UserLookup
	now   func() time.Time
}

func NewService(repo Repository, users UserLookup) *Service {
	return &Service{
		repo:  repo,
		users: users,
		now:   time.Now,
	}
}

// Record appends one usage fact, deriving the client classification from
// the user agent.
func (s *Service) Record(ctx context.Context, rec Record) error {
	if rec.UserID == "" {
		return fmt.Errorf("usage record without user: %w", core.ErrInvalidInput)
	}
	if !rec.RequestType.Valid() {
		rec.RequestType = RequestOther
	}

	client := ClassifyUserAgent(rec.UserAgent)
	rec.ID = uuid.New().String()
	rec.Device = client.Device
	rec.Browser = client.Browser
	rec.OS = client.OS

	return s.repo.Create(ctx, &rec)
}

func (s *Service) PackageStats(ctx context.Context, packageID string) (PackageStats, error) {
	return s.repo.PackageStats(ctx, packageID)
}

// Analytics aggregates a user's records over rng. The independent
// aggregates run concurrently.
func (s *Service) Analytics(ctx context.Context, userID string, rng Range) (*Analytics, error) {
	since := rng.Since(s.now())
	out := &Analytics{Range: rng, Since: since}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, byType, err := s.repo.Summary(gctx, userID, since)
		if err != nil {
			return err
		}
		out.Summary = summary
		out.ByType = byType
		return nil
	})

	g.Go(func() error {
		daily, err := s.repo.Daily(gctx, userID, since)
		if err != nil {
			return err
		}
		out.Daily = daily
		return nil
	})

	dims := []struct {
		dim  Dimension
		dest *[]Bucket
	}{
		{DimDomain, &out.Domains},
		{DimDevice, &out.Devices},
		{DimBrowser, &out.Browsers},
		{DimOS, &out.OS},
	}
	for _, d := range dims {
		g.Go(func() error {
			buckets, err := s.repo.TopBy(gctx, userID, since, d.dim, topBucketLimit)
			if err != nil {
				return err
			}
			*d.dest = buckets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.SuccessRate = successRate(out.Summary)
	fillEmpty(out)

	return out, nil
}

// UserAnalytics is Analytics for an arbitrary user, failing with
// ErrNotFound when the user does not exist.
func (s *Service) UserAnalytics(ctx context.Context, userID string, rng Range) (*Analytics, error) {
	if err := s.users.UserExists(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return s.Analytics(ctx, userID, rng)
}

func (s *Service) Export(ctx context.Context, userID string, rng Range) ([]Record, error) {
	return s.repo.ListSince(ctx, userID, rng.Since(s.now()), exportLimit)
}

func successRate(s Summary) float64 {
	if s.Total == 0 {
		return 0
	}
	return math.Round(float64(s.Success)/float64(s.Total)*10000) / 100
}

func fillEmpty(a *Analytics) {
	if a.Daily == nil {
		a.Daily = []DailyCount{}
	}
	for _, b := range []*[]Bucket{&a.Domains, &a.Devices, &a.Browsers, &a.OS} {
		if *b == nil {
			*b = []Bucket{}
		}
	}
}

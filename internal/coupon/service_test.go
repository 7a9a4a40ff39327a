// AngelaMos | 2026
// service_test.go

package coupon

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/plan"
)

type memRepo struct {
	mu      sync.Mutex
	coupons map[string]Coupon
}

func newMemRepo() *memRepo {
	return &memRepo{coupons: map[string]Coupon{}}
}

func (m *memRepo) Create(_ context.Context, c *Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.coupons {
		if existing.Code == c.Code {
			return fmt.Errorf("create coupon: %w", core.ErrDuplicateKey)
		}
	}
	m.coupons[c.ID] = *c
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return nil, fmt.Errorf("get coupon: %w", core.ErrNotFound)
	}
	return &c, nil
}

func (m *memRepo) GetByCode(_ context.Context, code string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("get coupon: %w", core.ErrNotFound)
}

func (m *memRepo) Update(_ context.Context, c *Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.coupons[c.ID]
	if !ok {
		return fmt.Errorf("update coupon: %w", core.ErrNotFound)
	}
	c.UsedCount = stored.UsedCount
	m.coupons[c.ID] = *c
	return nil
}

func (m *memRepo) List(_ context.Context, filter ListFilter) ([]Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Coupon
	for _, c := range m.coupons {
		if filter.Code != "" && c.Code != filter.Code {
			continue
		}
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memRepo) Redeem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok || c.UsedCount >= c.MaxUsage {
		return fmt.Errorf("redeem coupon %s: %w", id, ErrExhausted)
	}
	c.UsedCount++
	m.coupons[id] = c
	return nil
}

type fakePlans map[string]*plan.Plan

func (f fakePlans) Get(_ context.Context, id string) (*plan.Plan, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	return p, nil
}

var proPlan = &plan.Plan{ID: "plan-1", Name: "Pro", Price: 500000, Active: true}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, fakePlans{proPlan.ID: proPlan})
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func createRequest(code string) CreateCouponRequest {
	return CreateCouponRequest{
		Code:      code,
		Percent:   20,
		MaxAmount: 50000,
		MaxUsage:  2,
		StartDate: testNow.AddDate(0, 0, -1),
		EndDate:   testNow.AddDate(0, 1, 0),
	}
}

func TestCreateNormalizesCode(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.Create(context.Background(), createRequest(" nowruz "))
	require.NoError(t, err)
	assert.Equal(t, "NOWRUZ", c.Code)
	assert.True(t, c.Active)

	_, err = svc.Create(context.Background(), createRequest("NowRuz"))
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestCreateRejectsBackwardsWindow(t *testing.T) {
	svc, _ := newTestService()

	req := createRequest("BACKWARDS")
	req.EndDate = req.StartDate

	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestApplyPricesDiscount(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := createRequest("SMALL")
	req.MaxAmount = 1000000
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = svc.Create(ctx, createRequest("CAPPED"))
	require.NoError(t, err)

	d, err := svc.Apply(ctx, "small", "user-1", proPlan)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), d.Amount)
	assert.Equal(t, int64(400000), d.FinalPrice)

	d, err = svc.Apply(ctx, "CAPPED", "user-1", proPlan)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), d.Amount)
	assert.Equal(t, int64(450000), d.FinalPrice)
}

func TestApplyRejections(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Apply(ctx, "MISSING", "user-1", proPlan)
	assert.ErrorIs(t, err, core.ErrNotFound)

	scoped := createRequest("VIPONLY")
	scoped.ForUsers = []string{"user-7"}
	_, err = svc.Create(ctx, scoped)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, "VIPONLY", "user-1", proPlan)
	assert.ErrorIs(t, err, ErrWrongUser)

	_, err = svc.Apply(ctx, "VIPONLY", "user-7", proPlan)
	assert.NoError(t, err)

	late := createRequest("LATER")
	late.StartDate = testNow.AddDate(0, 0, 3)
	_, err = svc.Create(ctx, late)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, "LATER", "user-1", proPlan)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestQuoteUnknownPlan(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Quote(context.Background(), "ANY", "user-1", "plan-x")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestRedeemStopsAtMaxUsage(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, createRequest("TWICE"))
	require.NoError(t, err)

	require.NoError(t, svc.Redeem(ctx, c.ID))
	require.NoError(t, svc.Redeem(ctx, c.ID))
	assert.ErrorIs(t, svc.Redeem(ctx, c.ID), ErrExhausted)
	assert.Equal(t, 2, repo.coupons[c.ID].UsedCount)

	_, err = svc.Apply(ctx, "TWICE", "user-1", proPlan)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestUpdateAndDeactivateKeepUsage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, createRequest("EDITME"))
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(ctx, c.ID))

	percent := 50
	updated, err := svc.Update(ctx, c.ID, UpdateCouponRequest{Percent: &percent})
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Percent)
	assert.Equal(t, 1, updated.UsedCount)

	bad := 0
	_, err = svc.Update(ctx, c.ID, UpdateCouponRequest{MaxUsage: &bad})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	off, err := svc.Deactivate(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	_, err = svc.Apply(ctx, "EDITME", "user-1", proPlan)
	assert.ErrorIs(t, err, ErrInactive)

	active := false
	list, err := svc.List(ctx, ListFilter{Active: &active})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Deactivate(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

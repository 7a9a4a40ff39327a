// AngelaMos | 2026
// entity_test.go

package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/core"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func validCoupon() Coupon {
	return Coupon{
		ID:        "coupon-1",
		Code:      "NOWRUZ",
		Percent:   20,
		MaxAmount: 50000,
		MaxUsage:  10,
		StartDate: testNow.AddDate(0, 0, -1),
		EndDate:   testNow.AddDate(0, 0, 7),
		Active:    true,
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Coupon)
		want   error
	}{
		{name: "usable", modify: func(*Coupon) {}},
		{name: "inactive", modify: func(c *Coupon) { c.Active = false }, want: ErrInactive},
		{
			name:   "before start",
			modify: func(c *Coupon) { c.StartDate = testNow.Add(time.Hour) },
			want:   ErrNotStarted,
		},
		{
			name:   "after end",
			modify: func(c *Coupon) { c.EndDate = testNow.Add(-time.Minute) },
			want:   ErrExpired,
		},
		{
			name:   "used up",
			modify: func(c *Coupon) { c.UsedCount = c.MaxUsage },
			want:   ErrExhausted,
		},
		{
			name:   "one use left",
			modify: func(c *Coupon) { c.UsedCount = c.MaxUsage - 1 },
		},
		{
			name:   "scoped to another user",
			modify: func(c *Coupon) { c.ForUsers = IDList{"user-2"} },
			want:   ErrWrongUser,
		},
		{
			name:   "scoped to caller",
			modify: func(c *Coupon) { c.ForUsers = IDList{"user-2", "user-1"} },
		},
		{
			name:   "scoped to another plan",
			modify: func(c *Coupon) { c.ForPlans = IDList{"plan-9"} },
			want:   ErrWrongPlan,
		},
		{
			name:   "scoped to plan",
			modify: func(c *Coupon) { c.ForPlans = IDList{"plan-1"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			tt.modify(&c)

			err := c.Check(testNow, "user-1", "plan-1")
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestDiscountFor(t *testing.T) {
	c := validCoupon()

	assert.Equal(t, int64(20000), c.DiscountFor(100000))
	assert.Equal(t, int64(50000), c.DiscountFor(500000), "capped at max amount")

	c.Percent = 33
	assert.Equal(t, int64(3300), c.DiscountFor(10001), "rounds down")

	c.MaxAmount = 0
	assert.Zero(t, c.DiscountFor(100000))
}

func TestIDListScan(t *testing.T) {
	var l IDList
	require.NoError(t, l.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, IDList{"a", "b"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))

	v, err := IDList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), v)
}

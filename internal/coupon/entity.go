// AngelaMos | 2026
// entity.go

package coupon

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
)

var (
	ErrInactive   = fmt.Errorf("coupon is not active: %w", core.ErrInvalidInput)
	ErrNotStarted = fmt.Errorf("coupon is not valid yet: %w", core.ErrInvalidInput)
	ErrExpired    = fmt.Errorf("coupon has expired: %w", core.ErrInvalidInput)
	ErrExhausted  = fmt.Errorf("coupon usage limit reached: %w", core.ErrInvalidInput)
	ErrWrongUser  = fmt.Errorf("coupon belongs to another user: %w", core.ErrInvalidInput)
	ErrWrongPlan  = fmt.Errorf("coupon does not apply to this plan: %w", core.ErrInvalidInput)
)

// Coupon is a percentage discount on a plan purchase, capped at MaxAmount
// rial and usable MaxUsage times in total. Empty ForPlans or ForUsers
// means the coupon is not scoped on that axis.
type Coupon struct {
	ID          string    `db:"id"`
	Code        string    `db:"code"`
	Description string    `db:"description"`
	Percent     int       `db:"percent"`
	MaxAmount   int64     `db:"max_amount"`
	MaxUsage    int       `db:"max_usage"`
	UsedCount   int       `db:"used_count"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	ForPlans    IDList    `db:"for_plans"`
	ForUsers    IDList    `db:"for_users"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Check reports why the coupon cannot be used by userID on planID at now,
// or nil when it can.
func (c *Coupon) Check(now time.Time, userID, planID string) error {
	switch {
	case !c.Active:
		return ErrInactive
	case now.Before(c.StartDate):
		return ErrNotStarted
	case now.After(c.EndDate):
		return ErrExpired
	case c.UsedCount >= c.MaxUsage:
		return ErrExhausted
	case !c.ForUsers.allows(userID):
		return ErrWrongUser
	case !c.ForPlans.allows(planID):
		return ErrWrongPlan
	}
	return nil
}

// DiscountFor returns the rial amount taken off price.
func (c *Coupon) DiscountFor(price int64) int64 {
	return min(price*int64(c.Percent)/100, c.MaxAmount)
}

// IDList is stored as a jsonb array.
type IDList []string

func (l IDList) allows(id string) bool {
	return len(l) == 0 || slices.Contains(l, id)
}

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		l = IDList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal id list: %w", err)
	}
	return b, nil
}

func (l *IDList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = IDList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan id list: unsupported type %T", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan id list: %w", err)
	}
	*l = out
	return nil
}

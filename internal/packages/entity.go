// AngelaMos | 2026
// entity.go

package packages

import (
	"time"

	"github.com/carterperez-dev/entitlements/internal/grant"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// Unlimited is the remaining-quota sentinel for packages with no cap.
const Unlimited = -1

// Package is a user's purchased, time-boxed instance of a plan. Version
// increases every time the token is reissued and guards concurrent
// reissues against each other.
type Package struct {
	ID           string      `db:"id"`
	UserID       string      `db:"user_id"`
	PlanID       string      `db:"plan_id"`
	PaymentID    *string     `db:"payment_id"`
	StartDate    time.Time   `db:"start_date"`
	EndDate      time.Time   `db:"end_date"`
	Token        string      `db:"token"`
	TokenHash    string      `db:"token_hash"`
	SDKFeatures  grant.Grant `db:"sdk_features"`
	MonthlyLimit int         `db:"monthly_limit"`
	Remaining    int         `db:"remaining"`
	TotalLimit   int         `db:"total_limit"`
	UsedTotal    int         `db:"used_total"`
	Status       Status      `db:"status"`
	Notified     bool        `db:"notified"`
	Version      int         `db:"version"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

// EffectiveStatus folds the end date into the stored status. Suspension
// wins over expiry; a stored "active" past its end date reads as expired.
func EffectiveStatus(stored Status, endDate, now time.Time) Status {
	if stored == StatusSuspended {
		return StatusSuspended
	}
	if !endDate.After(now) {
		return StatusExpired
	}
	return stored
}

func (p *Package) EffectiveStatus(now time.Time) Status {
	return EffectiveStatus(p.Status, p.EndDate, now)
}

func (p *Package) IsUsable(now time.Time) bool {
	return p.EffectiveStatus(now) == StatusActive
}

func (p *Package) IsUnlimited() bool {
	return p.Remaining == Unlimited
}

// QuotaExhausted reports whether the next call must be refused, either by
// the monthly counter or by the lifetime cap.
func (p *Package) QuotaExhausted() bool {
	if p.Remaining != Unlimited && p.Remaining <= 0 {
		return true
	}
	return p.TotalLimit != Unlimited && p.UsedTotal >= p.TotalLimit
}

// AngelaMos | 2026
// entity.go

package plan

import (
	"time"

	"github.com/carterperez-dev/entitlements/internal/grant"
)

// Unlimited marks a request limit with no cap.
const Unlimited = -1

type Plan struct {
	ID                 string      `db:"id"`
	Name               string      `db:"name"`
	Description        string      `db:"description"`
	Price              int64       `db:"price"`
	DurationDays       int         `db:"duration_days"`
	MonthlyLimit       int         `db:"monthly_limit"`
	TotalLimit         int         `db:"total_limit"`
	DefaultSDKFeatures grant.Grant `db:"default_sdk_features"`
	Active             bool        `db:"active"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func validLimit(n int) bool {
	return n == Unlimited || n > 0
}

func (l RequestLimit) apply(p *Plan) {
	if l.Monthly != nil {
		p.MonthlyLimit = *l.Monthly
	}
	if l.Total != nil {
		p.TotalLimit = *l.Total
	}
}

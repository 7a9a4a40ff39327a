// AngelaMos | 2026
// entity.go

package payment

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Payment tracks one purchase attempt of a plan. Amounts are stored in
// rial; the gateway is called in toman. Amount is what the buyer pays after
// any coupon discount.
type Payment struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	PlanID         string     `db:"plan_id"`
	Amount         int64      `db:"amount"`
	OriginalAmount int64      `db:"original_amount"`
	Discount       int64      `db:"discount"`
	CouponID       *string    `db:"coupon_id"`
	ClientRefID    string     `db:"client_ref_id"`
	PaymentCode    string     `db:"payment_code"`
	PaymentRefID   string     `db:"payment_ref_id"`
	CardNumber     string     `db:"card_number"`
	CardHashPan    string     `db:"card_hash_pan"`
	PaidAt         *time.Time `db:"paid_at"`
	Status         Status     `db:"status"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

const rialsPerToman = 10

func RialToToman(rial int64) int64 {
	return rial / rialsPerToman
}

func TomanToRial(toman int64) int64 {
	return toman * rialsPerToman
}

// AngelaMos | 2026
// dto.go

package payment

import (
	"time"
)

type StartPaymentRequest struct {
	PlanID     string `json:"plan_id"               validate:"required,uuid"`
	CouponCode string `json:"coupon_code,omitempty" validate:"omitempty,max=50"`
}

type StartPaymentResponse struct {
	PaymentID      string `json:"payment_id"`
	PaymentURL     string `json:"payment_url"`
	Amount         int64  `json:"amount"`
	OriginalAmount int64  `json:"original_amount"`
	Discount       int64  `json:"discount"`
}

type PaymentResponse struct {
	ID             string     `json:"id"`
	PlanID         string     `json:"plan_id"`
	Amount         int64      `json:"amount"`
	OriginalAmount int64      `json:"original_amount"`
	Discount       int64      `json:"discount"`
	CouponID       *string    `json:"coupon_id,omitempty"`
	ClientRefID    string     `json:"client_ref_id"`
	PaymentRefID   string     `json:"payment_ref_id,omitempty"`
	CardNumber     string     `json:"card_number,omitempty"`
	Status         Status     `json:"status"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		PlanID:         p.PlanID,
		Amount:         p.Amount,
		OriginalAmount: p.OriginalAmount,
		Discount:       p.Discount,
		CouponID:       p.CouponID,
		ClientRefID:    p.ClientRefID,
		PaymentRefID:   p.PaymentRefID,
		CardNumber:     p.CardNumber,
		Status:         p.Status,
		PaidAt:         p.PaidAt,
		CreatedAt:      p.CreatedAt,
	}
}

func ToPaymentResponseList(payments []Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

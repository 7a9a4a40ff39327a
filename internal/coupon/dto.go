// AngelaMos | 2026
// dto.go

package coupon

import (
	"time"
)

type CreateCouponRequest struct {
	Code        string    `json:"code"        validate:"required,min=3,max=50,alphanum"`
	Description string    `json:"description" validate:"max=500"`
	Percent     int       `json:"percent"     validate:"required,min=1,max=100"`
	MaxAmount   int64     `json:"max_amount"  validate:"min=0"`
	MaxUsage    int       `json:"max_usage"   validate:"required,min=1"`
	StartDate   time.Time `json:"start_date"  validate:"required"`
	EndDate     time.Time `json:"end_date"    validate:"required"`
	ForPlans    []string  `json:"for_plans"   validate:"omitempty,dive,uuid"`
	ForUsers    []string  `json:"for_users"   validate:"omitempty,dive,uuid"`
	Active      *bool     `json:"active,omitempty"`
}

type UpdateCouponRequest struct {
	Code        *string    `json:"code,omitempty"        validate:"omitempty,min=3,max=50,alphanum"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=500"`
	Percent     *int       `json:"percent,omitempty"     validate:"omitempty,min=1,max=100"`
	MaxAmount   *int64     `json:"max_amount,omitempty"  validate:"omitempty,min=0"`
	MaxUsage    *int       `json:"max_usage,omitempty"   validate:"omitempty,min=1"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ForPlans    *[]string  `json:"for_plans,omitempty"   validate:"omitempty,dive,uuid"`
	ForUsers    *[]string  `json:"for_users,omitempty"   validate:"omitempty,dive,uuid"`
	Active      *bool      `json:"active,omitempty"`
}

type ValidateCouponRequest struct {
	Code   string `json:"code"    validate:"required,max=50"`
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

type CouponResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Percent     int       `json:"percent"`
	MaxAmount   int64     `json:"max_amount"`
	MaxUsage    int       `json:"max_usage"`
	UsedCount   int       `json:"used_count"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	ForPlans    []string  `json:"for_plans"`
	ForUsers    []string  `json:"for_users"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuoteResponse is what a buyer sees; it leaves out the coupon's scoping.
type QuoteResponse struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	Percent        int    `json:"percent"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalPrice     int64  `json:"final_price"`
}

func ToCouponResponse(c *Coupon) CouponResponse {
	return CouponResponse{
		ID:          c.ID,
		Code:        c.Code,
		Description: c.Description,
		Percent:     c.Percent,
		MaxAmount:   c.MaxAmount,
		MaxUsage:    c.MaxUsage,
		UsedCount:   c.UsedCount,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		ForPlans:    nonNil(c.ForPlans),
		ForUsers:    nonNil(c.ForUsers),
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func ToCouponResponseList(coupons []Coupon) []CouponResponse {
	out := make([]CouponResponse, 0, len(coupons))
	for i := range coupons {
		out = append(out, ToCouponResponse(&coupons[i]))
	}
	return out
}

func ToQuoteResponse(d *Discount) QuoteResponse {
	return QuoteResponse{
		Valid:          true,
		Code:           d.Code,
		Percent:        d.Percent,
		DiscountAmount: d.Amount,
		FinalPrice:     d.FinalPrice,
	}
}

func nonNil(l IDList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

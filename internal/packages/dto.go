// AngelaMos | 2026
// dto.go

package packages

import (
	"time"

	"github.com/carterperez-dev/entitlements/internal/grant"
)

type CreatePackageRequest struct {
	UserID      string       `json:"user_id"              validate:"required,uuid"`
	PlanID      string       `json:"plan_id"              validate:"required,uuid"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	SDKFeatures *grant.Grant `json:"sdk_features,omitempty"`
}

type ExtendRequest struct {
	Days int `json:"days" validate:"required,min=1,max=3650"`
}

type UpdateFeaturesRequest struct {
	SDKFeatures grant.Grant `json:"sdk_features"`
}

type RequestLimitResponse struct {
	Monthly   int `json:"monthly"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
	UsedTotal int `json:"used_total"`
}

type PackageResponse struct {
	ID           string               `json:"id"`
	UserID       string               `json:"user_id"`
	PlanID       string               `json:"plan_id"`
	PaymentID    *string              `json:"payment_id"`
	StartDate    time.Time            `json:"start_date"`
	EndDate      time.Time            `json:"end_date"`
	Token        string               `json:"token"`
	SDKFeatures  grant.Grant          `json:"sdk_features"`
	RequestLimit RequestLimitResponse `json:"request_limit"`
	Status       Status               `json:"status"`
	Notified     bool                 `json:"notified"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ToPackageResponse reports the effective status rather than the stored
// one.
func ToPackageResponse(p *Package, now time.Time) PackageResponse {
	return PackageResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		PlanID:      p.PlanID,
		PaymentID:   p.PaymentID,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Token:       p.Token,
		SDKFeatures: p.SDKFeatures.Normalize(),
		RequestLimit: RequestLimitResponse{
			Monthly:   p.MonthlyLimit,
			Remaining: p.Remaining,
			Total:     p.TotalLimit,
			UsedTotal: p.UsedTotal,
		},
		Status:    p.EffectiveStatus(now),
		Notified:  p.Notified,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func ToPackageResponseList(pkgs []Package, now time.Time) []PackageResponse {
	out := make([]PackageResponse, 0, len(pkgs))
	for i := range pkgs {
		out = append(out, ToPackageResponse(&pkgs[i], now))
	}
	return out
}

type ListParams struct {
	UserID   string
	Status   Status
	Now      time.Time
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

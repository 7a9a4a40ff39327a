// AngelaMos | 2026
// dto.go

package plan

import (
	"time"

	"github.com/carterperez-dev/entitlements/internal/grant"
)

// RequestLimit is the writable form of a plan's limits. An omitted total
// means unlimited on create and unchanged on update.
type RequestLimit struct {
	Monthly *int `json:"monthly,omitempty" validate:"omitempty,min=-1"`
	Total   *int `json:"total,omitempty"   validate:"omitempty,min=-1"`
}

type LimitResponse struct {
	Monthly int `json:"monthly"`
	Total   int `json:"total"`
}

type CreatePlanRequest struct {
	Name               string       `json:"name"                 validate:"required,min=1,max=100"`
	Description        string       `json:"description"          validate:"max=1000"`
	Price              int64        `json:"price"                validate:"min=0"`
	DurationDays       int          `json:"duration"             validate:"required,min=1,max=3650"`
	RequestLimit       RequestLimit `json:"request_limit"`
	DefaultSDKFeatures *grant.Grant `json:"default_sdk_features,omitempty"`
	Active             *bool        `json:"active,omitempty"`
}

type UpdatePlanRequest struct {
	Name               *string       `json:"name,omitempty"                 validate:"omitempty,min=1,max=100"`
	Description        *string       `json:"description,omitempty"          validate:"omitempty,max=1000"`
	Price              *int64        `json:"price,omitempty"                validate:"omitempty,min=0"`
	DurationDays       *int          `json:"duration,omitempty"             validate:"omitempty,min=1,max=3650"`
	RequestLimit       *RequestLimit `json:"request_limit,omitempty"`
	DefaultSDKFeatures *grant.Grant  `json:"default_sdk_features,omitempty"`
	Active             *bool         `json:"active,omitempty"`
}

type PlanResponse struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Price              int64         `json:"price"`
	DurationDays       int           `json:"duration"`
	RequestLimit       LimitResponse `json:"request_limit"`
	DefaultSDKFeatures grant.Grant   `json:"default_sdk_features"`
	Active             bool          `json:"active"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func ToPlanResponse(p *Plan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		DurationDays: p.DurationDays,
		RequestLimit: LimitResponse{
			Monthly: p.MonthlyLimit,
			Total:   p.TotalLimit,
		},
		DefaultSDKFeatures: p.DefaultSDKFeatures.Normalize(),
		Active:             p.Active,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func ToPlanResponseList(plans []Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, ToPlanResponse(&plans[i]))
	}
	return out
}

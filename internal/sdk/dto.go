// AngelaMos | 2026
// dto.go

package sdk

import (
	"encoding/json"
	"time"

	"github.com/carterperez-dev/entitlements/internal/grant"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/usage"
)

// SDK payloads use camelCase keys to match the embedded client.

type ValidateRequest struct {
	Token string `json:"token" validate:"required"`
}

type ValidateResponse struct {
	IsValid       bool                `json:"isValid"`
	IsPremium     bool                `json:"isPremium"`
	ProjectType   grant.ProjectType   `json:"projectType"`
	Features      []string            `json:"features"`
	Patterns      map[string][]string `json:"patterns"`
	MediaFeatures grant.MediaFeatures `json:"mediaFeatures"`
}

type ApplyRequest struct {
	ProductUID string          `json:"productUid" validate:"omitempty,max=64"`
	MakeupData json.RawMessage `json:"makeupData" validate:"required"`
}

type ApplyResponse struct {
	Accepted   bool   `json:"accepted"`
	ProductUID string `json:"productUid,omitempty"`
	ProductID  string `json:"productId,omitempty"`
	Message    string `json:"message"`
}

type RequestLimit struct {
	Monthly   int `json:"monthly"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
	UsedTotal int `json:"usedTotal"`
}

type StatusResponse struct {
	PackageID    string             `json:"packageId"`
	PlanID       string             `json:"planId"`
	StartDate    time.Time          `json:"startDate"`
	EndDate      time.Time          `json:"endDate"`
	Status       packages.Status    `json:"status"`
	Features     []string           `json:"features"`
	IsPremium    bool               `json:"isPremium"`
	ProjectType  grant.ProjectType  `json:"projectType"`
	RequestLimit RequestLimit       `json:"requestLimit"`
	UsageStats   usage.PackageStats `json:"usageStats"`
}

type ProductResponse struct {
	UID         string           `json:"uid"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	Code        string           `json:"code"`
	Thumbnail   string           `json:"thumbnail"`
	Patterns    []SwatchResponse `json:"patterns"`
	Colors      []SwatchResponse `json:"colors"`
}

type SwatchResponse struct {
	Name     string `json:"name"`
	Code     string `json:"code,omitempty"`
	HexCode  string `json:"hexCode,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func toValidateResponse(g grant.Grant) ValidateResponse {
	g = g.Normalize()
	return ValidateResponse{
		IsValid:       true,
		IsPremium:     g.IsPremium,
		ProjectType:   g.ProjectType,
		Features:      g.Features,
		Patterns:      g.Patterns,
		MediaFeatures: g.MediaFeatures,
	}
}

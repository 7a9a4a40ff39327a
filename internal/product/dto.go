// AngelaMos | 2026
// dto.go

package product

import (
	"time"
)

type CreateProductRequest struct {
	Name        string    `json:"name"        validate:"required,min=1,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Type        string    `json:"type"        validate:"required,max=50"`
	Code        string    `json:"code"        validate:"required,max=100"`
	Thumbnail   string    `json:"thumbnail"   validate:"omitempty,url"`
	Patterns    []Pattern `json:"patterns"    validate:"max=100,dive"`
	Colors      []Color   `json:"colors"      validate:"max=100,dive"`
	Active      *bool     `json:"active"`
}

type UpdateProductRequest struct {
	Name        *string    `json:"name"        validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Type        *string    `json:"type"        validate:"omitempty,max=50"`
	Code        *string    `json:"code"        validate:"omitempty,max=100"`
	Thumbnail   *string    `json:"thumbnail"   validate:"omitempty,url"`
	Patterns    *[]Pattern `json:"patterns"    validate:"omitempty,max=100,dive"`
	Colors      *[]Color   `json:"colors"      validate:"omitempty,max=100,dive"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type ProductResponse struct {
	ID          string    `json:"id"`
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Code        string    `json:"code"`
	Thumbnail   string    `json:"thumbnail"`
	Patterns    []Pattern `json:"patterns"`
	Colors      []Color   `json:"colors"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToProductResponse(p *Product) ProductResponse {
	patterns := []Pattern(p.Patterns)
	if patterns == nil {
		patterns = []Pattern{}
	}
	colors := []Color(p.Colors)
	if colors == nil {
		colors = []Color{}
	}

	return ProductResponse{
		ID:          p.ID,
		UID:         p.UID,
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		Code:        p.Code,
		Thumbnail:   p.Thumbnail,
		Patterns:    patterns,
		Colors:      colors,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToProductResponseList(products []Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, ToProductResponse(&products[i]))
	}
	return out
}

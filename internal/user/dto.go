// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateUserRequest struct {
	Name             *string `json:"name,omitempty"              validate:"omitempty,min=1,max=100"`
	SMSNotifications *bool   `json:"sms_notifications,omitempty"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UpdateDomainsRequest struct {
	Domains []string `json:"domains" validate:"max=50,dive,required,max=253,hostname_rfc1123"`
}

type UserResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	AllowedDomains   []string  `json:"allowed_domains"`
	SMSNotifications bool      `json:"sms_notifications"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	domains := []string(u.AllowedDomains)
	if domains == nil {
		domains = []string{}
	}

	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Phone:            u.Phone,
		Name:             u.Name,
		Role:             u.Role,
		AllowedDomains:   domains,
		SMSNotifications: u.SMSNotifications,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}

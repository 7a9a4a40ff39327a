// AngelaMos | 2026
// dto.go

package notify

import (
	"time"
)

type NotificationResponse struct {
	ID        string    `json:"id"`
	PlanID    *string   `json:"plan_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

func ToNotificationResponseList(ns []Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(ns))
	for i, n := range ns {
		out[i] = NotificationResponse{
			ID:        n.ID,
			PlanID:    n.PlanID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			Metadata:  n.Metadata,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	return out
}

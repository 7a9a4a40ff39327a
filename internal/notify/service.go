// AngelaMos | 2026
// service.go

package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const listLimit = 100

type Service struct {
	repo   Repository
	sms    Sender
	logger *slog.Logger
}

func NewService(repo Repository, sms Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sms: sms, logger: logger}
}

// ExpiryNotice describes a package about to run out.
type ExpiryNotice struct {
	PackageID string
	PlanID    string
	PlanName  string
	DaysLeft  int
}

// NotifyExpiry stores an in-app notice and, when the recipient opted in,
// texts them. A failed SMS is logged and does not fail the notice.
func (s *Service) NotifyExpiry(ctx context.Context, r *Recipient, notice ExpiryNotice) error {
	planID := notice.PlanID
	n := &Notification{
		ID:     uuid.New().String(),
		UserID: r.UserID,
		PlanID: &planID,
		Title:  "Package expiring soon",
		Message: fmt.Sprintf(
			"Your %s package expires in %d days. Extend it to keep your SDK running.",
			notice.PlanName,
			notice.DaysLeft,
		),
		Type: TypeExpiry,
		Metadata: Metadata{
			"package_id": notice.PackageID,
			"plan_id":    notice.PlanID,
			"days_left":  notice.DaysLeft,
		},
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	if r.SMSEnabled && r.Phone != "" {
		if err := s.sms.SendExpiry(ctx, r.Phone, notice.DaysLeft, notice.PlanName); err != nil {
			s.logger.WarnContext(ctx, "expiry sms failed",
				"user_id", r.UserID,
				"package_id", notice.PackageID,
				"error", err,
			)
		}
	}

	return nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, listLimit)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/coupon"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/plan"
	"github.com/carterperez-dev/entitlements/internal/user"
)

var (
	ErrPlanNotFound   = fmt.Errorf("plan: %w", core.ErrNotFound)
	ErrPlanInactive   = errors.New("plan is not available for purchase")
	ErrCouponRejected = errors.New("coupon rejected")
	ErrNothingToPay   = errors.New("discounted amount is too small to charge")
)

type PlanLookup interface {
	Get(ctx context.Context, id string) (*plan.Plan, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type PackageIssuer interface {
	Create(ctx context.Context, params packages.CreateParams) (*packages.Package, error)
}

type CouponRedeemer interface {
	Apply(ctx context.Context, code, userID string, p *plan.Plan) (*coupon.Discount, error)
	Redeem(ctx context.Context, id string) error
}

type Service struct {
	repo     Repository
	plans    PlanLookup
	users    UserLookup
	packages PackageIssuer
	coupons  CouponRedeemer
	gateway  Gateway
	cfg      config.PaymentConfig
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	plans PlanLookup,
	users UserLookup,
	issuer PackageIssuer,
	coupons CouponRedeemer,
	gateway Gateway,
	cfg config.PaymentConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		plans:    plans,
		users:    users,
		packages: issuer,
		coupons:  coupons,
		gateway:  gateway,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

type Checkout struct {
	Payment *Payment
	URL     string
}

// Start records a pending payment for planID and opens it at the gateway.
// A non-empty couponCode must be valid for this user and plan; its use is
// only counted once the payment is verified.
func (s *Service) Start(
	ctx context.Context,
	userID, planID, couponCode string,
) (*Checkout, error) {
	p, err := s.plans.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("lookup plan: %w", err)
	}
	if !p.Active {
		return nil, ErrPlanInactive
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ref, err := core.GenerateReference(userID)
	if err != nil {
		return nil, fmt.Errorf("generate reference: %w", err)
	}

	pay := &Payment{
		ID:             uuid.New().String(),
		UserID:         userID,
		PlanID:         p.ID,
		Amount:         p.Price,
		OriginalAmount: p.Price,
		ClientRefID:    ref,
		Status:         StatusPending,
	}

	if couponCode != "" {
		d, err := s.coupons.Apply(ctx, couponCode, userID, p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCouponRejected, err)
		}
		pay.Amount = d.FinalPrice
		pay.Discount = d.Amount
		pay.CouponID = &d.CouponID
	}
	if RialToToman(pay.Amount) < 1 {
		return nil, ErrNothingToPay
	}

	if err := s.repo.Create(ctx, pay); err != nil {
		return nil, err
	}

	res, err := s.gateway.CreatePayment(ctx, CreateRequest{
		Amount:      RialToToman(pay.Amount),
		ClientRefID: ref,
		PayerName:   u.Name,
		Description: "Purchase of plan " + p.Name,
		ReturnURL:   s.cfg.CallbackURL,
	})
	if err != nil {
		s.settle(ctx, Settlement{ID: pay.ID, Status: StatusFailed})
		return nil, err
	}

	if err := s.repo.SetCode(ctx, pay.ID, res.Code); err != nil {
		return nil, err
	}
	pay.PaymentCode = res.Code

	s.logger.InfoContext(ctx, "payment started",
		"payment_id", pay.ID,
		"user_id", userID,
		"plan_id", p.ID,
		"amount", pay.Amount,
		"discount", pay.Discount,
	)

	return &Checkout{Payment: pay, URL: res.URL}, nil
}

// Result is what the gateway callback reports back to the buyer.
type Result struct {
	Status   Status
	RefID    string
	PlanName string
	Message  string
}

// Complete handles the gateway callback. It is safe to call repeatedly for
// the same payment: a settled payment is reported as-is and never issues a
// second package.
func (s *Service) Complete(ctx context.Context, refID, clientRefID string) (*Result, error) {
	pay, err := s.repo.GetByClientRefID(ctx, clientRefID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return &Result{Status: StatusFailed, Message: "payment not found"}, nil
		}
		return nil, err
	}

	switch pay.Status {
	case StatusSuccess:
		return s.success(ctx, pay), nil
	case StatusFailed, StatusCanceled:
		return &Result{Status: pay.Status, RefID: pay.PaymentRefID, Message: "payment already closed"}, nil
	}

	if refID == "" {
		s.settle(ctx, Settlement{ID: pay.ID, Status: StatusCanceled})
		return &Result{Status: StatusCanceled, Message: "payment was canceled"}, nil
	}

	verified, err := s.gateway.VerifyPayment(ctx, refID, RialToToman(pay.Amount))
	if err != nil {
		s.logger.WarnContext(ctx, "payment verification failed",
			"payment_id", pay.ID,
			"ref_id", refID,
			"error", err,
		)
		s.settle(ctx, Settlement{ID: pay.ID, Status: StatusFailed, PaymentRefID: refID})
		return &Result{Status: StatusFailed, RefID: refID, Message: "payment was not verified"}, nil
	}

	paymentID := pay.ID
	_, err = s.packages.Create(ctx, packages.CreateParams{
		UserID:    pay.UserID,
		PlanID:    pay.PlanID,
		PaymentID: &paymentID,
	})
	if err != nil && !errors.Is(err, core.ErrDuplicateKey) {
		// Left pending so a repeated callback can retry issuing.
		return nil, fmt.Errorf("issue package for payment %s: %w", pay.ID, err)
	}

	paidAt := s.now()
	settled := s.settle(ctx, Settlement{
		ID:           pay.ID,
		Status:       StatusSuccess,
		PaymentRefID: refID,
		CardNumber:   verified.CardNumber,
		CardHashPan:  verified.CardHashPan,
		PaidAt:       &paidAt,
	})
	if settled {
		s.redeemCoupon(ctx, pay)
	}
	pay.PaymentRefID = refID

	s.logger.InfoContext(ctx, "payment completed",
		"payment_id", pay.ID,
		"user_id", pay.UserID,
		"ref_id", refID,
	)

	return s.success(ctx, pay), nil
}

func (s *Service) success(ctx context.Context, pay *Payment) *Result {
	res := &Result{Status: StatusSuccess, RefID: pay.PaymentRefID}
	if p, err := s.plans.Get(ctx, pay.PlanID); err == nil {
		res.PlanName = p.Name
	}
	return res
}

// settle logs instead of failing: a concurrent callback may already have
// moved the payment out of pending. It reports whether this call made the
// transition.
func (s *Service) settle(ctx context.Context, st Settlement) bool {
	err := s.repo.Settle(ctx, st)
	if err == nil {
		return true
	}
	if !errors.Is(err, core.ErrConflict) {
		s.logger.ErrorContext(ctx, "payment settle failed",
			"payment_id", st.ID,
			"status", st.Status,
			"error", err,
		)
	}
	return false
}

// redeemCoupon counts the coupon use of a verified payment. The buyer has
// already paid, so a coupon that ran out in the meantime is only logged.
func (s *Service) redeemCoupon(ctx context.Context, pay *Payment) {
	if pay.CouponID == nil {
		return
	}
	if err := s.coupons.Redeem(ctx, *pay.CouponID); err != nil {
		s.logger.WarnContext(ctx, "coupon redeem failed",
			"payment_id", pay.ID,
			"coupon_id", *pay.CouponID,
			"error", err,
		)
	}
}

func (s *Service) GetOwned(ctx context.Context, userID, id string) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	return p, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, status Status) ([]Payment, error) {
	return s.repo.ListByUser(ctx, userID, status)
}

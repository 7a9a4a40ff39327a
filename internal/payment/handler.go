// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/middleware"
)

type Handler struct {
	service     *Service
	frontendURL string
	validator   *validator.Validate
}

func NewHandler(service *Service, frontendURL string) *Handler {
	return &Handler{
		service:     service,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Get("/callback", h.Callback)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Post("/", h.Start)
			r.Get("/me", h.ListMine)
			r.Get("/{paymentID}", h.GetMine)
		})
	})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	checkout, err := h.service.Start(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.PlanID,
		req.CouponCode,
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrPlanNotFound):
			core.NotFound(w, "plan")
		case errors.Is(err, ErrCouponRejected) && errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "coupon")
		case errors.Is(err, ErrPlanInactive),
			errors.Is(err, ErrCouponRejected),
			errors.Is(err, ErrNothingToPay):
			core.BadRequest(w, err.Error())
		case errors.Is(err, ErrGateway):
			core.JSONError(w, core.NewAppError(err, "payment gateway unavailable", http.StatusBadGateway, "GATEWAY_ERROR"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, StartPaymentResponse{
		PaymentID:      checkout.Payment.ID,
		PaymentURL:     checkout.URL,
		Amount:         checkout.Payment.Amount,
		OriginalAmount: checkout.Payment.OriginalAmount,
		Discount:       checkout.Payment.Discount,
	})
}

// Callback is hit by the buyer's browser returning from the gateway, so it
// always answers with a redirect to the frontend result page.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := h.service.Complete(r.Context(), q.Get("refid"), q.Get("clientrefid"))
	if err != nil {
		slog.ErrorContext(r.Context(), "payment callback failed",
			"client_ref_id", q.Get("clientrefid"),
			"error", err,
		)
		res = &Result{Status: StatusFailed, RefID: q.Get("refid"), Message: "payment could not be completed"}
	}

	http.Redirect(w, r, h.resultURL(res), http.StatusFound)
}

func (h *Handler) resultURL(res *Result) string {
	v := url.Values{}
	v.Set("status", string(res.Status))
	if res.RefID != "" {
		v.Set("refId", res.RefID)
	}
	if res.PlanName != "" {
		v.Set("planName", res.PlanName)
	}
	if res.Message != "" {
		v.Set("message", res.Message)
	}
	return h.frontendURL + "/payment/result?" + v.Encode()
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	switch status {
	case "", StatusPending, StatusSuccess, StatusFailed, StatusCanceled:
	default:
		core.BadRequest(w, "status must be one of pending, success, failed, canceled")
		return
	}

	payments, err := h.service.ListByUser(r.Context(), middleware.GetUserID(r.Context()), status)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPaymentResponseList(payments))
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetOwned(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "paymentID"),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "payment")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

// AngelaMos | 2026
// handler.go

package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Post("/coupons/validate", h.Validate)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/coupons", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{couponID}", h.Get)
		r.Put("/{couponID}", h.Update)
		r.Delete("/{couponID}", h.Deactivate)
	})
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.service.Quote(
		r.Context(),
		req.Code,
		middleware.GetUserID(r.Context()),
		req.PlanID,
	)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			core.NotFound(w, "plan")
			return
		}
		writeError(w, err)
		return
	}

	core.OK(w, ToQuoteResponse(d))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToCouponResponse(c))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Code: q.Get("code")}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			core.BadRequest(w, "active must be true or false")
			return
		}
		filter.Active = &active
	}

	coupons, err := h.service.List(r.Context(), filter)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCouponResponseList(coupons))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToCouponResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCouponRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), chi.URLParam(r, "couponID"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToCouponResponse(c))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToCouponResponse(c))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "coupon")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("coupon code"))
	default:
		core.InternalServerError(w, err)
	}
}

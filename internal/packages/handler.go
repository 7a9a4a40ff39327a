// AngelaMos | 2026
// handler.go

package packages

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
	r.Route("/packages", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.ListMine)
		r.Get("/{packageID}", h.GetMine)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/packages", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{packageID}", h.Get)
		r.Post("/{packageID}/extend", h.Extend)
		r.Post("/{packageID}/suspend", h.Suspend)
		r.Post("/{packageID}/reactivate", h.Reactivate)
		r.Put("/{packageID}/sdk-features", h.UpdateFeatures)
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	pkgs, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPackageResponseList(pkgs, h.service.Now()))
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	p, err := h.service.GetOwned(r.Context(), userID, chi.URLParam(r, "packageID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPackageResponse(p, h.service.Now()))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	params := CreateParams{
		UserID:   req.UserID,
		PlanID:   req.PlanID,
		Features: req.SDKFeatures,
	}
	if req.StartDate != nil {
		params.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		params.EndDate = *req.EndDate
	}

	p, err := h.service.Create(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToPackageResponse(p, h.service.Now()))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		UserID:   r.URL.Query().Get("user_id"),
		Status:   Status(r.URL.Query().Get("status")),
		Now:      h.service.Now(),
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}
	params.Normalize()

	switch params.Status {
	case "", StatusActive, StatusExpired, StatusSuspended:
	default:
		core.BadRequest(w, "status must be one of active, expired, suspended")
		return
	}

	pkgs, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToPackageResponseList(pkgs, params.Now),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "packageID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPackageResponse(p, h.service.Now()))
}

func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	var req ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.Extend(r.Context(), chi.URLParam(r, "packageID"), req.Days)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPackageResponse(p, h.service.Now()))
}

func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Suspend(r.Context(), chi.URLParam(r, "packageID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPackageResponse(p, h.service.Now()))
}

func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Reactivate(r.Context(), chi.URLParam(r, "packageID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPackageResponse(p, h.service.Now()))
}

func (h *Handler) UpdateFeatures(w http.ResponseWriter, r *http.Request) {
	var req UpdateFeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	p, err := h.service.UpdateFeatureGrant(
		r.Context(),
		chi.URLParam(r, "packageID"),
		req.SDKFeatures,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPackageResponse(p, h.service.Now()))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, ErrPlanNotFound):
		core.NotFound(w, "plan")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "package")
	case errors.Is(err, ErrExpiredPackage):
		core.JSONError(w, core.ConflictError("package has expired, extend it instead"))
	case errors.Is(err, core.ErrConflict):
		core.JSONError(w, core.ConflictError("package was modified concurrently, retry"))
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("payment"))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

// AngelaMos | 2026
// handler.go

package usage

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/usage", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/analytics", h.MyAnalytics)
		r.Get("/analytics/download", h.DownloadMyAnalytics)
	})
}

// RegisterAdminUserRoutes is mounted inside the admin users router.
func (h *Handler) RegisterAdminUserRoutes(r chi.Router) {
	r.Get("/{userID}/analytics", h.UserAnalytics)
	r.Get("/{userID}/analytics/download", h.DownloadUserAnalytics)
}

func (h *Handler) MyAnalytics(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	analytics, err := h.service.Analytics(r.Context(), middleware.GetUserID(r.Context()), rng)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, analytics)
}

func (h *Handler) UserAnalytics(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	analytics, err := h.service.UserAnalytics(r.Context(), chi.URLParam(r, "userID"), rng)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, analytics)
}

func (h *Handler) DownloadMyAnalytics(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, middleware.GetUserID(r.Context()), "analytics.json")
}

func (h *Handler) DownloadUserAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.service.users.UserExists(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	h.download(w, r, userID, fmt.Sprintf("analytics-%s.json", userID))
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, userID, filename string) {
	rng, err := ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	records, err := h.service.Export(r.Context(), userID, rng)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	core.OK(w, ExportResponse{
		UserID:  userID,
		Range:   rng,
		Records: ToRecordResponseList(records),
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}

// AngelaMos | 2026
// handler.go

package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/entitlements/internal/admission"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/product"
	"github.com/carterperez-dev/entitlements/internal/usage"
)

type ProductSource interface {
	ListActive(ctx context.Context, userID string) ([]product.Product, error)
	GetActiveByUID(ctx context.Context, userID, uid string) (*product.Product, error)
}

type StatsSource interface {
	PackageStats(ctx context.Context, packageID string) (usage.PackageStats, error)
}

// Handler serves the endpoints the embedded SDK calls. Every route runs
// behind the admission gate, so handlers only see admitted calls.
type Handler struct {
	gate      *admission.Gate
	products  ProductSource
	stats     StatsSource
	validator *validator.Validate
	now       func() time.Time
}

func NewHandler(gate *admission.Gate, products ProductSource, stats StatsSource) *Handler {
	return &Handler{
		gate:      gate,
		products:  products,
		stats:     stats,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}
}

// RegisterRoutes mounts /sdk. limiter guards every SDK route per token.
func (h *Handler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.Route("/sdk", func(r chi.Router) {
		r.Use(limiter)

		r.With(h.gate.Middleware(usage.RequestValidate)).Post("/validate", h.Validate)
		r.With(h.gate.Middleware(usage.RequestCheck)).Get("/products", h.ListProducts)
		r.With(h.gate.Middleware(usage.RequestCheck)).Get("/products/{uid}", h.GetProduct)
		r.With(h.gate.Middleware(usage.RequestApply)).Post("/apply", h.Apply)
		r.With(h.gate.Middleware(usage.RequestOther)).Get("/status", h.Status)
	})
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	d := admission.DecisionFrom(r.Context())
	core.OK(w, toValidateResponse(d.Package.SDKFeatures))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	d := admission.DecisionFrom(r.Context())

	products, err := h.products.ListActive(r.Context(), d.Account.ID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}

	core.OK(w, out)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	d := admission.DecisionFrom(r.Context())

	p, err := h.products.GetActiveByUID(r.Context(), d.Account.ID, chi.URLParam(r, "uid"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, toProductResponse(p))
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	d := admission.DecisionFrom(r.Context())

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp := ApplyResponse{
		Accepted:   true,
		ProductUID: req.ProductUID,
		Message:    "apply request recorded",
	}

	if req.ProductUID != "" {
		p, err := h.products.GetActiveByUID(r.Context(), d.Account.ID, req.ProductUID)
		switch {
		case err == nil:
			resp.ProductID = p.ID
		case !errors.Is(err, core.ErrNotFound):
			slog.WarnContext(r.Context(), "apply product lookup failed",
				"user_id", d.Account.ID,
				"product_uid", req.ProductUID,
				"error", err,
			)
		}
	}

	core.OK(w, resp)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	d := admission.DecisionFrom(r.Context())
	pkg := d.Package

	stats, err := h.stats.PackageStats(r.Context(), pkg.ID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	g := pkg.SDKFeatures.Normalize()
	core.OK(w, StatusResponse{
		PackageID:   pkg.ID,
		PlanID:      pkg.PlanID,
		StartDate:   pkg.StartDate,
		EndDate:     pkg.EndDate,
		Status:      pkg.EffectiveStatus(h.now()),
		Features:    g.Features,
		IsPremium:   g.IsPremium,
		ProjectType: g.ProjectType,
		RequestLimit: RequestLimit{
			Monthly:   pkg.MonthlyLimit,
			Remaining: pkg.Remaining,
			Total:     pkg.TotalLimit,
			UsedTotal: pkg.UsedTotal,
		},
		UsageStats: stats,
	})
}

func toProductResponse(p *product.Product) ProductResponse {
	patterns := make([]SwatchResponse, 0, len(p.Patterns))
	for _, pt := range p.Patterns {
		patterns = append(patterns, SwatchResponse{Name: pt.Name, Code: pt.Code, ImageURL: pt.ImageURL})
	}
	colors := make([]SwatchResponse, 0, len(p.Colors))
	for _, c := range p.Colors {
		colors = append(colors, SwatchResponse{Name: c.Name, HexCode: c.HexCode, ImageURL: c.ImageURL})
	}

	return ProductResponse{
		UID:         p.UID,
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		Code:        p.Code,
		Thumbnail:   p.Thumbnail,
		Patterns:    patterns,
		Colors:      colors,
	}
}

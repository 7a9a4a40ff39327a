// AngelaMos | 2026
// handler_test.go

package coupon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/middleware"
	"github.com/carterperez-dev/entitlements/internal/plan"
)

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
				UserID: userID,
				Role:   "user",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passThrough(next http.Handler) http.Handler {
	return next
}

func newRouter(svc *Service) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r, asUser("user-1"))
	h.RegisterAdminRoutes(r, asUser("admin-1"), passThrough)
	return r
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestValidateEndpointQuotesDiscount(t *testing.T) {
	svc, _ := newTestService()
	p := &plan.Plan{ID: "8f6c1f2e-1b7a-4a55-9f57-1f0c7e1d2a11", Price: 500000, Active: true}
	svc.plans = fakePlans{p.ID: p}

	_, err := svc.Create(context.Background(), createRequest("SPRING"))
	require.NoError(t, err)
	router := newRouter(svc)

	rec := send(router, http.MethodPost, "/coupons/validate",
		`{"code":"spring","plan_id":"`+p.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data QuoteResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Data.Valid)
	assert.Equal(t, int64(50000), env.Data.DiscountAmount)
	assert.Equal(t, int64(450000), env.Data.FinalPrice)

	rec = send(router, http.MethodPost, "/coupons/validate",
		`{"code":"NOPE","plan_id":"`+p.ID+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(router, http.MethodPost, "/coupons/validate", `{"code":"SPRING"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCouponLifecycle(t *testing.T) {
	svc, _ := newTestService()
	router := newRouter(svc)

	rec := send(router, http.MethodPost, "/admin/coupons", `{
		"code": "launch",
		"percent": 30,
		"max_amount": 90000,
		"max_usage": 100,
		"start_date": "2026-03-01T00:00:00Z",
		"end_date": "2026-04-01T00:00:00Z"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data CouponResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "LAUNCH", created.Data.Code)
	assert.Empty(t, created.Data.ForUsers)

	rec = send(router, http.MethodPost, "/admin/coupons", `{
		"code": "launch",
		"percent": 10,
		"max_amount": 1,
		"max_usage": 1,
		"start_date": "2026-03-01T00:00:00Z",
		"end_date": "2026-04-01T00:00:00Z"
	}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(router, http.MethodPost, "/admin/coupons", `{"code":"x","percent":120}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(router, http.MethodDelete, "/admin/coupons/"+created.Data.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(router, http.MethodGet, "/admin/coupons?active=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []CouponResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.False(t, listed.Data[0].Active)

	rec = send(router, http.MethodGet, "/admin/coupons?active=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

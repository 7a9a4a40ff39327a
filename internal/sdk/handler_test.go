// AngelaMos | 2026
// handler_test.go

package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/admission"
	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/grant"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/packages/packagestest"
	"github.com/carterperez-dev/entitlements/internal/product"
	"github.com/carterperez-dev/entitlements/internal/quota"
	"github.com/carterperez-dev/entitlements/internal/sdktoken"
	"github.com/carterperez-dev/entitlements/internal/usage"
)

type accounts struct{}

func (accounts) GetAccount(_ context.Context, id string) (*admission.Account, error) {
	if id != "user-1" {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return &admission.Account{ID: id}, nil
}

type recorder struct {
	mu      sync.Mutex
	records []usage.Record
}

func (r *recorder) Record(_ context.Context, rec usage.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type catalog struct {
	products []product.Product
}

func (c *catalog) ListActive(_ context.Context, userID string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range c.products {
		if p.UserID == userID && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *catalog) GetActiveByUID(_ context.Context, userID, uid string) (*product.Product, error) {
	for i := range c.products {
		p := c.products[i]
		if p.UserID == userID && p.UID == uid && p.Active {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
}

type stats struct{}

func (stats) PackageStats(context.Context, string) (usage.PackageStats, error) {
	return usage.PackageStats{Total: 7, Validate: 4, Apply: 2, Check: 1}, nil
}

type harness struct {
	router   http.Handler
	store    *packagestest.Store
	recorder *recorder
	token    string
}

func newHarness(t *testing.T, remaining int) *harness {
	t.Helper()

	codec, err := sdktoken.NewCodec(config.SDKTokenConfig{
		Secret: "0123456789abcdef0123456789abcdef",
		Issuer: "entitlements-sdk",
	})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	start := now.AddDate(0, 0, -5)
	end := now.AddDate(0, 0, 25)
	features := grant.Default()
	features.IsPremium = true

	token, err := codec.Mint(sdktoken.Claims{
		UserID:    "user-1",
		PlanID:    "plan-1",
		StartDate: start,
		EndDate:   end,
		Features:  features,
	})
	require.NoError(t, err)

	store := packagestest.New()
	store.Put(packages.Package{
		ID:           "pkg-1",
		UserID:       "user-1",
		PlanID:       "plan-1",
		StartDate:    start,
		EndDate:      end,
		Token:        token,
		TokenHash:    core.HashToken(token),
		SDKFeatures:  features,
		MonthlyLimit: 100,
		Remaining:    remaining,
		TotalLimit:   packages.Unlimited,
		Status:       packages.StatusActive,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recorder{}
	gate := admission.NewGate(config.AdmissionConfig{}, admission.Deps{
		Tokens:   codec,
		Accounts: accounts{},
		Packages: store,
		Ledger:   quota.NewLedger(store, nil, logger),
		Usage:    rec,
		Logger:   logger,
	})

	products := &catalog{products: []product.Product{
		{
			ID:       "prod-1",
			UserID:   "user-1",
			UID:      "ab12CD34",
			Name:     "Velvet Matte",
			Type:     "lips",
			Code:     "VM-01",
			Colors:   product.Colors{{Name: "Ruby", HexCode: "#9b111e"}},
			Patterns: product.Patterns{{Name: "Gloss", Code: "g1"}},
			Active:   true,
		},
		{ID: "prod-2", UserID: "user-1", UID: "zz99YY88", Name: "Hidden", Active: false},
	}}

	r := chi.NewRouter()
	NewHandler(gate, products, stats{}).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return next
	})

	return &harness{router: r, store: store, recorder: rec, token: token}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var env struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	return env.Data
}

func TestValidateReturnsGrant(t *testing.T) {
	h := newHarness(t, 10)

	rec := h.do(t, http.MethodPost, "/sdk/validate", `{"token":"`+h.token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["isValid"])
	assert.Equal(t, true, resp["isPremium"])
	assert.Contains(t, resp, "mediaFeatures")

	assert.Equal(t, 9, h.store.Snapshot("pkg-1").Remaining)
	assert.Equal(t, 1, h.recorder.count())
}

func TestValidateWithoutTokenIsDenied(t *testing.T) {
	h := newHarness(t, 10)

	rec := h.do(t, http.MethodPost, "/sdk/validate", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_TOKEN")
	assert.Equal(t, 10, h.store.Snapshot("pkg-1").Remaining)
}

func TestExhaustedQuotaIsForbidden(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.do(t, http.MethodPost, "/sdk/validate", `{"token":"`+h.token+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "QUOTA_EXCEEDED")
	assert.Equal(t, 1, h.recorder.count())
}

func TestListProductsOnlyActive(t *testing.T) {
	h := newHarness(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/sdk/products", nil)
	req.Header.Set("X-SDK-Token", h.token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]ProductResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "ab12CD34", list[0].UID)
	require.Len(t, list[0].Colors, 1)
	assert.Equal(t, "#9b111e", list[0].Colors[0].HexCode)
	require.Len(t, list[0].Patterns, 1)
	assert.Equal(t, "g1", list[0].Patterns[0].Code)
}

func TestGetProductByUID(t *testing.T) {
	h := newHarness(t, 10)

	get := func(uid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/sdk/products/"+uid, nil)
		req.Header.Set("X-SDK-Token", h.token)
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		return rec
	}

	rec := get("ab12CD34")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Velvet Matte", decode[ProductResponse](t, rec).Name)

	assert.Equal(t, http.StatusNotFound, get("zz99YY88").Code)
	assert.Equal(t, http.StatusNotFound, get("missing1").Code)
}

func TestApplyResolvesProduct(t *testing.T) {
	h := newHarness(t, 10)

	body := `{"token":"` + h.token + `","productUid":"ab12CD34","makeupData":{"color":"#9b111e"}}`
	rec := h.do(t, http.MethodPost, "/sdk/apply", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ApplyResponse](t, rec)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "prod-1", resp.ProductID)

	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	require.Len(t, h.recorder.records, 1)
	assert.Equal(t, usage.RequestApply, h.recorder.records[0].RequestType)
	assert.Equal(t, "ab12CD34", h.recorder.records[0].ProductUID)
	assert.JSONEq(t, `{"color":"#9b111e"}`, string(h.recorder.records[0].Metadata))
}

func TestApplyRequiresMakeupData(t *testing.T) {
	h := newHarness(t, 10)

	rec := h.do(t, http.MethodPost, "/sdk/apply", `{"token":"`+h.token+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, h.store.Decrements())
	assert.Zero(t, h.recorder.count())
}

func TestStatusReportsPostDecrementQuota(t *testing.T) {
	h := newHarness(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/sdk/status", nil)
	req.Header.Set("X-SDK-Token", h.token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "pkg-1", resp.PackageID)
	assert.Equal(t, packages.StatusActive, resp.Status)
	assert.Equal(t, 9, resp.RequestLimit.Remaining)
	assert.Equal(t, 100, resp.RequestLimit.Monthly)
	assert.Equal(t, packages.Unlimited, resp.RequestLimit.Total)
	assert.Equal(t, 7, resp.UsageStats.Total)
}

// AngelaMos | 2026
// handler_test.go

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/middleware"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t)

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, middleware.Authenticator(svc))
	return r
}

func call(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Data AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Tokens.AccessToken)
	return env.Data.Tokens.AccessToken
}

const registerBody = `{
	"email": "owner@example.com",
	"phone": "09120000000",
	"password": "correct-horse",
	"name": "Owner"
}`

func TestRegisterLoginAndMe(t *testing.T) {
	router := newRouter(t)

	rec := call(router, http.MethodPost, "/auth/register", "", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(router, http.MethodPost, "/auth/register", "", registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(router, http.MethodPost, "/auth/register", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(router, http.MethodPost, "/auth/login", "",
		`{"email":"owner@example.com","password":"wrong-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(router, http.MethodPost, "/auth/login", "",
		`{"email":"owner@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := accessToken(t, rec)

	rec = call(router, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"owner@example.com"`)

	rec = call(router, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllRevokesEveryToken(t *testing.T) {
	router := newRouter(t)

	first := accessToken(t, call(router, http.MethodPost, "/auth/register", "", registerBody))
	second := accessToken(t, call(router, http.MethodPost, "/auth/login", "",
		`{"email":"owner@example.com","password":"correct-horse"}`))

	rec := call(router, http.MethodPost, "/auth/logout?all=maybe", first, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(router, http.MethodPost, "/auth/logout?all=true", first, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, call(router, http.MethodGet, "/auth/me", first, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(router, http.MethodGet, "/auth/me", second, "").Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	router := newRouter(t)
	token := accessToken(t, call(router, http.MethodPost, "/auth/register", "", registerBody))

	rec := call(router, http.MethodPut, "/auth/password", token,
		`{"current_password":"not-it-at-all","new_password":"battery-staple"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "current password is incorrect")

	rec = call(router, http.MethodPut, "/auth/password", token,
		`{"current_password":"correct-horse","new_password":"battery-staple"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(router, http.MethodPost, "/auth/login", "",
		`{"email":"owner@example.com","password":"battery-staple"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

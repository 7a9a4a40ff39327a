// AngelaMos | 2026
// security_test.go

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
)

var corsConfig = config.CORSConfig{
	AllowedOrigins:   []string{"https://app.example.com"},
	AllowedMethods:   []string{"GET", "POST"},
	AllowedHeaders:   []string{"Content-Type", "X-SDK-Token"},
	AllowCredentials: true,
	MaxAge:           300,
}

func preflight(path, origin string) *http.Request {
	r := httptest.NewRequest(http.MethodOptions, path, nil)
	r.Header.Set("Origin", origin)
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return r
}

func TestCORSAllowList(t *testing.T) {
	h := CORS(corsConfig)(okHandler())

	rec := hit(h, preflight("/v1/plans", "https://app.example.com"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = hit(h, preflight("/v1/plans", "https://evil.example.net"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSByPrefixOpensSDKRoutes(t *testing.T) {
	h := CORSByPrefix("/v1/sdk", OpenCORS(corsConfig), CORS(corsConfig))(okHandler())

	rec := hit(h, preflight("/v1/sdk/validate", "https://shop.customer.com"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.customer.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = hit(h, preflight("/v1/packages", "https://shop.customer.com"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := hit(SecurityHeaders(true)(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = hit(SecurityHeaders(false)(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

type stubVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (s stubVerifier) VerifyAccessToken(context.Context, string) (*AccessTokenClaims, error) {
	return s.claims, s.err
}

func TestAuthenticatorAndRequireAdmin(t *testing.T) {
	user := stubVerifier{claims: &AccessTokenClaims{UserID: "user-1", Role: "user"}}
	admin := stubVerifier{claims: &AccessTokenClaims{UserID: "admin-1", Role: "admin"}}

	request := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		return r
	}

	rec := hit(Authenticator(user)(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = hit(Authenticator(stubVerifier{err: core.ErrTokenExpired})(okHandler()), request())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")

	rec = hit(Authenticator(user)(RequireAdmin(okHandler())), request())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = hit(Authenticator(admin)(RequireAdmin(okHandler())), request())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "bearer  tok ")
	assert.Equal(t, "tok", ExtractToken(r))
}

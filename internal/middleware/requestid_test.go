// AngelaMos | 2026
// requestid_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDKeepsCallerValue(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-123")
	rec := hit(h, r)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDReplacesOversizedValue(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("a", maxRequestIDLength+1))
	hit(h, r)

	assert.Len(t, seen, 36)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "real ip header wins",
			headers: map[string]string{"X-Real-IP": " 198.51.100.7 ", "X-Forwarded-For": "10.0.0.1"},
			remote:  "10.0.0.2:80",
			want:    "198.51.100.7",
		},
		{
			name:    "last forwarded hop",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.5"},
			remote:  "10.0.0.2:80",
			want:    "203.0.113.5",
		},
		{
			name:   "socket peer",
			remote: "192.0.2.44:6000",
			want:   "192.0.2.44",
		},
		{
			name:   "peer without port",
			remote: "192.0.2.44",
			want:   "192.0.2.44",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

// AngelaMos | 2026
// sms_test.go

package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/config"
)

func newTestKavenegar(t *testing.T, handler http.HandlerFunc) *Kavenegar {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewKavenegar(config.SMSConfig{
		BaseURL: srv.URL,
		APIKey:  "key-123",
		Sender:  "10004346",
		Timeout: 5 * time.Second,
	}, srv.Client())
}

func TestKavenegarSend(t *testing.T) {
	k := newTestKavenegar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/key-123/sms/send.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "09121234567", r.PostForm.Get("receptor"))
		assert.Equal(t, "hello", r.PostForm.Get("message"))
		assert.Equal(t, "10004346", r.PostForm.Get("sender"))
		_, _ = w.Write([]byte(`{"return":{"status":200,"message":"ok"},"entries":[]}`))
	})

	require.NoError(t, k.Send(context.Background(), "09121234567", "hello"))
}

func TestKavenegarSendExpiryUsesLookupTemplate(t *testing.T) {
	k := newTestKavenegar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/key-123/verify/lookup.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "expiry", r.PostForm.Get("template"))
		assert.Equal(t, "7", r.PostForm.Get("token"))
		assert.Equal(t, "Pro-Plus", r.PostForm.Get("token2"))
		_, _ = w.Write([]byte(`{"return":{"status":200,"message":"ok"}}`))
	})

	require.NoError(t, k.SendExpiry(context.Background(), "09121234567", 7, "Pro Plus"))
}

func TestKavenegarGatewayError(t *testing.T) {
	k := newTestKavenegar(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"return":{"status":403,"message":"invalid api key"}}`))
	})

	err := k.Send(context.Background(), "0912", "x")
	require.ErrorIs(t, err, ErrSMS)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestNewSenderDisabledLogsOnly(t *testing.T) {
	s := NewSender(config.SMSConfig{Enabled: false}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, ok := s.(*LogSender)
	require.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), "09121234567", "hi"))
	assert.NoError(t, s.SendExpiry(context.Background(), "09121234567", 3, "Pro"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*******4567", maskPhone("09121234567"))
	assert.Equal(t, "****", maskPhone("123"))
}

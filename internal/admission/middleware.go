// AngelaMos | 2026
// middleware.go

package admission

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/middleware"
	"github.com/carterperez-dev/entitlements/internal/usage"
)

const maxPeekBytes = 1 << 20

type contextKey struct{}

func WithDecision(ctx context.Context, d *Decision) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

func DecisionFrom(ctx context.Context) *Decision {
	if d, ok := ctx.Value(contextKey{}).(*Decision); ok {
		return d
	}
	return nil
}

// sdkBody holds the fields the gate reads out of an SDK request body.
type sdkBody struct {
	Token      string          `json:"token"`
	ProductUID string          `json:"productUid"`
	MakeupData json.RawMessage `json:"makeupData"`
}

// Middleware runs the gate before an SDK handler. The token comes from the
// X-SDK-Token header or, failing that, the "token" field of a JSON body.
// The body is restored for the handler after it is read.
func (g *Gate) Middleware(requestType usage.RequestType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := peekBody(r)
			if err != nil {
				core.BadRequest(w, "invalid request body")
				return
			}

			req := Request{
				Token:       r.Header.Get(middleware.SDKTokenHeader),
				Origin:      requestOrigin(r),
				IPAddress:   middleware.ClientIP(r),
				UserAgent:   r.UserAgent(),
				RequestType: requestType,
				ProductUID:  chi.URLParam(r, "uid"),
			}
			if req.Token == "" {
				req.Token = body.Token
			}
			if req.ProductUID == "" {
				req.ProductUID = body.ProductUID
			}
			if requestType == usage.RequestApply {
				if !body.hasMakeupData() {
					core.BadRequest(w, "makeupData is required")
					return
				}
				req.Metadata = usage.Metadata(body.MakeupData)
			}

			decision, err := g.Admit(r.Context(), req)
			if err != nil {
				WriteDenial(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), decision)))
		})
	}
}

// WriteDenial renders a gate failure with its fixed status and code.
func WriteDenial(w http.ResponseWriter, err error) {
	d, ok := AsDenial(err)
	if !ok {
		d = deny(ReasonServiceUnavailable)
	}

	if d.Retryable() {
		w.Header().Set("Retry-After", strconv.Itoa(1))
	}

	core.JSONError(w, core.NewAppError(err, d.Message(), d.StatusCode(), string(d.Reason)))
}

func (b sdkBody) hasMakeupData() bool {
	raw := bytes.TrimSpace(b.MakeupData)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return r.Referer()
}

func peekBody(r *http.Request) (sdkBody, error) {
	var body sdkBody
	if r.Body == nil || r.Body == http.NoBody {
		return body, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return body, err
	}
	_ = r.Body.Close() //nolint:errcheck // replaced below
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return body, err
	}
	return body, nil
}

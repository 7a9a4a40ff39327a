// AngelaMos | 2026
// gateway.go

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
)

var ErrGateway = errors.New("payment gateway error")

type CreateRequest struct {
	Amount      int64
	ClientRefID string
	PayerName   string
	Description string
	ReturnURL   string
}

type CreateResult struct {
	Code string
	URL  string
}

type VerifyResult struct {
	CardNumber  string
	CardHashPan string
}

// Gateway is the external payment provider. Amounts are in toman.
type Gateway interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	VerifyPayment(ctx context.Context, refID string, amount int64) (*VerifyResult, error)
}

// PayPing talks to the PayPing v3 REST API.
type PayPing struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPayPing(cfg config.PaymentConfig, client *http.Client) *PayPing {
	if client == nil {
		client = core.NewHTTPClient(cfg.Timeout)
	}
	return &PayPing{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

type payRequest struct {
	Amount      int64  `json:"amount"`
	ReturnURL   string `json:"returnUrl"`
	PayerName   string `json:"payerName,omitempty"`
	Description string `json:"description,omitempty"`
	ClientRefID string `json:"clientRefId"`
}

type payResponse struct {
	PaymentCode string `json:"paymentCode"`
	URL         string `json:"url"`
}

type verifyRequest struct {
	PaymentRefID int64 `json:"paymentRefId"`
	Amount       int64 `json:"amount"`
}

type verifyResponse struct {
	CardNumber  string `json:"cardNumber"`
	CardHashPan string `json:"cardHashPan"`
}

type gatewayError struct {
	Message string `json:"message"`
}

func (p *PayPing) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	var resp payResponse
	err := p.post(ctx, "/pay", payRequest{
		Amount:      req.Amount,
		ReturnURL:   req.ReturnURL,
		PayerName:   req.PayerName,
		Description: req.Description,
		ClientRefID: req.ClientRefID,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if resp.PaymentCode == "" {
		return nil, fmt.Errorf("create payment: empty payment code: %w", ErrGateway)
	}

	url := resp.URL
	if url == "" {
		url = p.baseURL + "/pay/gotoipg/" + resp.PaymentCode
	}

	return &CreateResult{Code: resp.PaymentCode, URL: url}, nil
}

func (p *PayPing) VerifyPayment(
	ctx context.Context,
	refID string,
	amount int64,
) (*VerifyResult, error) {
	id, err := strconv.ParseInt(refID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("verify payment: bad ref id %q: %w", refID, core.ErrInvalidInput)
	}

	var resp verifyResponse
	if err := p.post(ctx, "/pay/verify", verifyRequest{PaymentRefID: id, Amount: amount}, &resp); err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}

	return &VerifyResult{CardNumber: resp.CardNumber, CardHashPan: resp.CardHashPan}, nil
}

func (p *PayPing) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ge gatewayError
		_ = json.Unmarshal(raw, &ge) //nolint:errcheck // message is optional
		if ge.Message == "" {
			ge.Message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, ge.Message)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

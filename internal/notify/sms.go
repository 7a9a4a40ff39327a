// AngelaMos | 2026
// sms.go

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
)

var ErrSMS = errors.New("sms gateway error")

const expiryTemplate = "expiry"

type Sender interface {
	Send(ctx context.Context, phone, message string) error
	SendExpiry(ctx context.Context, phone string, daysLeft int, planName string) error
}

// NewSender returns the Kavenegar client, or a log-only sender when SMS is
// disabled.
func NewSender(cfg config.SMSConfig, logger *slog.Logger) Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return &LogSender{logger: logger}
	}
	return NewKavenegar(cfg, nil)
}

// Kavenegar sends through the Kavenegar REST API.
type Kavenegar struct {
	baseURL string
	apiKey  string
	sender  string
	client  *http.Client
}

func NewKavenegar(cfg config.SMSConfig, client *http.Client) *Kavenegar {
	if client == nil {
		client = core.NewHTTPClient(cfg.Timeout)
	}
	return &Kavenegar{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		sender:  cfg.Sender,
		client:  client,
	}
}

type kavenegarResponse struct {
	Return struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"return"`
}

func (k *Kavenegar) Send(ctx context.Context, phone, message string) error {
	form := url.Values{}
	form.Set("receptor", phone)
	form.Set("message", message)
	if k.sender != "" {
		form.Set("sender", k.sender)
	}
	return k.call(ctx, "sms/send.json", form)
}

func (k *Kavenegar) SendExpiry(ctx context.Context, phone string, daysLeft int, planName string) error {
	form := url.Values{}
	form.Set("receptor", phone)
	form.Set("template", expiryTemplate)
	form.Set("token", strconv.Itoa(daysLeft))
	// Lookup tokens cannot contain spaces.
	form.Set("token2", strings.ReplaceAll(planName, " ", "-"))
	return k.call(ctx, "verify/lookup.json", form)
}

func (k *Kavenegar) call(ctx context.Context, method string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/%s/%s", k.baseURL, url.PathEscape(k.apiKey), method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSMS, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}

	var body kavenegarResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("%w: status %d", ErrSMS, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || body.Return.Status != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrSMS, body.Return.Status, body.Return.Message)
	}

	return nil
}

// LogSender stands in for the gateway when SMS is disabled.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, phone, message string) error {
	l.logger.InfoContext(ctx, "sms disabled, not sent",
		"phone", maskPhone(phone),
		"message", message,
	)
	return nil
}

func (l *LogSender) SendExpiry(ctx context.Context, phone string, daysLeft int, planName string) error {
	l.logger.InfoContext(ctx, "sms disabled, expiry notice not sent",
		"phone", maskPhone(phone),
		"days_left", daysLeft,
		"plan", planName,
	)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// AngelaMos | 2026
// codec.go

package sdktoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/grant"
)

const (
	tokenType = "sdk"

	claimType     = "type"
	claimPlanID   = "plan_id"
	claimStart    = "start"
	claimEnd      = "end"
	claimFeatures = "features"
)

var (
	ErrMalformed        = fmt.Errorf("malformed sdk token: %w", core.ErrTokenInvalid)
	ErrInvalidSignature = fmt.Errorf("sdk token signature rejected: %w", core.ErrTokenInvalid)
	ErrExpired          = fmt.Errorf("sdk token expired: %w", core.ErrTokenExpired)
)

// Claims is the decoded content of an entitlement token.
type Claims struct {
	UserID    string
	PlanID    string
	StartDate time.Time
	EndDate   time.Time
	Features  grant.Grant
}

// Codec mints and verifies entitlement tokens. Tokens are HMAC signed with
// a secret that is never used for session tokens.
type Codec struct {
	key    jwk.Key
	issuer string
	now    func() time.Time
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(cfg config.SDKTokenConfig, opts ...Option) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("sdk token secret is empty")
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import sdk token secret: %w", err)
	}

	c := &Codec{
		key:    key,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Mint signs claims into a token that expires at EndDate.
func (c *Codec) Mint(claims Claims) (string, error) {
	if claims.UserID == "" || claims.PlanID == "" {
		return "", fmt.Errorf("mint sdk token: user and plan are required")
	}
	if !claims.EndDate.After(claims.StartDate) {
		return "", fmt.Errorf("mint sdk token: end date must be after start date")
	}

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(c.issuer).
		Subject(claims.UserID).
		IssuedAt(c.now()).
		Expiration(claims.EndDate).
		Claim(claimType, tokenType).
		Claim(claimPlanID, claims.PlanID).
		Claim(claimStart, claims.StartDate.UTC().Format(time.RFC3339Nano)).
		Claim(claimEnd, claims.EndDate.UTC().Format(time.RFC3339Nano)).
		Claim(claimFeatures, claims.Features.Normalize()).
		Build()
	if err != nil {
		return "", fmt.Errorf("build sdk token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), c.key))
	if err != nil {
		return "", fmt.Errorf("sign sdk token: %w", err)
	}

	return string(signed), nil
}

// Verify checks signature, issuer and expiry. It says nothing about
// whether the package behind the token is still usable.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if _, err := jwt.ParseInsecure([]byte(tokenString)); err != nil {
		return nil, ErrMalformed
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), c.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(c.issuer),
		jwt.WithClock(jwt.ClockFunc(c.now)),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}

	return decodeClaims(token)
}

func decodeClaims(token jwt.Token) (*Claims, error) {
	var typ string
	if err := token.Get(claimType, &typ); err != nil || typ != tokenType {
		return nil, ErrMalformed
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, ErrMalformed
	}

	var planID string
	if err := token.Get(claimPlanID, &planID); err != nil || planID == "" {
		return nil, ErrMalformed
	}

	start, err := timeClaim(token, claimStart)
	if err != nil {
		return nil, err
	}
	end, err := timeClaim(token, claimEnd)
	if err != nil {
		return nil, err
	}

	var rawFeatures any
	if err := token.Get(claimFeatures, &rawFeatures); err != nil {
		return nil, ErrMalformed
	}

	features, err := decodeGrant(rawFeatures)
	if err != nil {
		return nil, ErrMalformed
	}

	return &Claims{
		UserID:    subject,
		PlanID:    planID,
		StartDate: start,
		EndDate:   end,
		Features:  features,
	}, nil
}

func timeClaim(token jwt.Token, name string) (time.Time, error) {
	var raw string
	if err := token.Get(name, &raw); err != nil {
		return time.Time{}, ErrMalformed
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, ErrMalformed
	}
	return t, nil
}

// Private claims come back as generic maps, so the grant takes a trip
// through JSON to recover its typed form.
func decodeGrant(raw any) (grant.Grant, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return grant.Grant{}, err
	}

	var g grant.Grant
	if err := json.Unmarshal(b, &g); err != nil {
		return grant.Grant{}, err
	}
	return g.Normalize(), nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}

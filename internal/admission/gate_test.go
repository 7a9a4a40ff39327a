// AngelaMos | 2026
// gate_test.go

package admission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/grant"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/packages/packagestest"
	"github.com/carterperez-dev/entitlements/internal/quota"
	"github.com/carterperez-dev/entitlements/internal/sdktoken"
	"github.com/carterperez-dev/entitlements/internal/usage"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	accounts map[string]*Account
	err      error
}

func (f *fakeAccounts) GetAccount(_ context.Context, id string) (*Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return a, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []usage.Record
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, rec usage.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRecorder) all() []usage.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]usage.Record(nil), f.records...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

type fixture struct {
	gate     *Gate
	codec    *sdktoken.Codec
	store    *packagestest.Store
	accounts *fakeAccounts
	recorder *fakeRecorder
	clock    *clock
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()

	clk := &clock{t: testNow}
	codec, err := sdktoken.NewCodec(config.SDKTokenConfig{
		Secret: "0123456789abcdef0123456789abcdef",
		Issuer: "entitlements-sdk",
	}, sdktoken.WithClock(clk.now))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := packagestest.New()
	accounts := &fakeAccounts{accounts: map[string]*Account{
		"user-1": {ID: "user-1"},
	}}
	recorder := &fakeRecorder{}

	gate := NewGate(config.AdmissionConfig{Timeout: timeout}, Deps{
		Tokens:   codec,
		Accounts: accounts,
		Packages: store,
		Ledger:   quota.NewLedger(store, nil, logger),
		Usage:    recorder,
		Logger:   logger,
		Now:      clk.now,
	})

	return &fixture{
		gate:     gate,
		codec:    codec,
		store:    store,
		accounts: accounts,
		recorder: recorder,
		clock:    clk,
	}
}

// issue mints a token and stores a matching active package.
func (f *fixture) issue(t *testing.T, id string, remaining int) string {
	t.Helper()

	start := testNow.AddDate(0, 0, -5)
	end := testNow.AddDate(0, 0, 25)
	token, err := f.codec.Mint(sdktoken.Claims{
		UserID:    "user-1",
		PlanID:    "plan-1",
		StartDate: start,
		EndDate:   end,
		Features:  grant.Default(),
	})
	require.NoError(t, err)

	f.store.Put(packages.Package{
		ID:           id,
		UserID:       "user-1",
		PlanID:       "plan-1",
		StartDate:    start,
		EndDate:      end,
		Token:        token,
		TokenHash:    core.HashToken(token),
		SDKFeatures:  grant.Default(),
		MonthlyLimit: 100,
		Remaining:    remaining,
		TotalLimit:   packages.Unlimited,
		Status:       packages.StatusActive,
	})

	return token
}

func requireDenial(t *testing.T, err error, want Reason) {
	t.Helper()
	d, ok := AsDenial(err)
	require.True(t, ok, "expected a denial, got %v", err)
	assert.Equal(t, want, d.Reason)
}

func TestAdmitPasses(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)

	decision, err := f.gate.Admit(context.Background(), Request{
		Token:       token,
		Origin:      "https://shop.example.com",
		IPAddress:   "203.0.113.9",
		RequestType: usage.RequestValidate,
	})
	require.NoError(t, err)

	assert.Equal(t, "user-1", decision.Account.ID)
	assert.Equal(t, "pkg-1", decision.Package.ID)
	assert.Equal(t, "shop.example.com", decision.Domain)
	assert.Equal(t, 9, f.store.Snapshot("pkg-1").Remaining)

	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, usage.RequestValidate, records[0].RequestType)
	require.NotNil(t, records[0].PackageID)
	assert.Equal(t, "pkg-1", *records[0].PackageID)
}

func TestAdmitTokenFailures(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)

	_, err := f.gate.Admit(context.Background(), Request{RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonMissingToken)

	_, err = f.gate.Admit(context.Background(), Request{Token: "not-a-token", RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonInvalidToken)

	f.clock.mu.Lock()
	f.clock.t = testNow.AddDate(0, 1, 0)
	f.clock.mu.Unlock()

	_, err = f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonTokenExpired)

	assert.Empty(t, f.recorder.all(), "no account resolved, nothing to record")
	assert.Zero(t, f.store.Decrements())
}

func TestAdmitUnknownUser(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)
	delete(f.accounts.accounts, "user-1")

	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonUserNotFound)
	assert.Empty(t, f.recorder.all())
}

func TestAdmitSuspendedPackage(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)
	require.NoError(t, f.store.SetStatus(context.Background(), "pkg-1", packages.StatusSuspended))

	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestValidate})
	requireDenial(t, err, ReasonNoActivePackage)

	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Equal(t, "user-1", records[0].UserID)
	assert.Zero(t, f.store.Decrements())
	assert.Equal(t, 10, f.store.Snapshot("pkg-1").Remaining)
}

func TestAdmitStoredActiveButPastEndDate(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)

	p := f.store.Snapshot("pkg-1")
	p.EndDate = testNow.Add(-time.Minute)
	f.store.Put(p)

	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonNoActivePackage)
}

func TestAdmitReissuedTokenIsRevoked(t *testing.T) {
	f := newFixture(t, 0)
	old := f.issue(t, "pkg-1", 10)

	p := f.store.Snapshot("pkg-1")
	p.TokenHash = core.HashToken("a-newer-token")
	f.store.Put(p)

	_, err := f.gate.Admit(context.Background(), Request{Token: old, RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonNoActivePackage)
}

func TestAdmitQuotaExhausted(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 1)
	ctx := context.Background()

	_, err := f.gate.Admit(ctx, Request{Token: token, RequestType: usage.RequestApply})
	require.NoError(t, err)

	_, err = f.gate.Admit(ctx, Request{Token: token, RequestType: usage.RequestApply})
	requireDenial(t, err, ReasonQuotaExceeded)

	assert.Equal(t, 0, f.store.Snapshot("pkg-1").Remaining)
	assert.Equal(t, 1, f.store.Decrements())
	assert.Len(t, f.recorder.all(), 2)
}

func TestAdmitUnlimitedNeverExceeds(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", packages.Unlimited)

	for range 50 {
		_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})
		require.NoError(t, err)
	}
	assert.Equal(t, packages.Unlimited, f.store.Snapshot("pkg-1").Remaining)
}

func TestAdmitOriginAllowList(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		pass    bool
	}{
		{"subdomain passes", []string{"example.com"}, "https://shop.example.com", true},
		{"exact passes", []string{"example.com"}, "https://example.com:8443", true},
		{"suffix trick fails", []string{"example.com"}, "https://example.com.evil.com", false},
		{"no label boundary fails", []string{"example.com"}, "https://badexample.com", false},
		{"no origin passes", []string{"example.com"}, "", true},
		{"empty list passes", nil, "https://anything.test", true},
		{"referer form", []string{"example.com"}, "https://www.example.com/page?x=1", true},
		{"garbage origin fails", []string{"example.com"}, "::::", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.accounts.accounts["user-1"].AllowedDomains = tt.allowed
			token := f.issue(t, "pkg-1", 10)

			_, err := f.gate.Admit(context.Background(), Request{
				Token:       token,
				Origin:      tt.origin,
				RequestType: usage.RequestCheck,
			})
			if tt.pass {
				require.NoError(t, err)
				assert.Equal(t, 9, f.store.Snapshot("pkg-1").Remaining)
				return
			}
			requireDenial(t, err, ReasonOriginNotAllowed)
			assert.Equal(t, 10, f.store.Snapshot("pkg-1").Remaining)
		})
	}
}

func TestAdmitStorageFailure(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)
	f.store.ReadErr = errors.New("connection refused")

	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonServiceUnavailable)

	d, _ := AsDenial(err)
	assert.True(t, d.Retryable())
}

func TestAdmitAccountStorageFailure(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)
	f.accounts.err = errors.New("connection refused")

	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})
	requireDenial(t, err, ReasonServiceUnavailable)
}

func TestAdmitTimesOut(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	token := f.issue(t, "pkg-1", 10)
	f.store.ReadDelay = time.Second

	start := time.Now()
	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})

	requireDenial(t, err, ReasonServiceUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAdmitDecrementFailureStillAdmits(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)
	f.store.DecrementErr = errors.New("write timeout")

	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestApply})
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.Decrements())
	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
}

func TestAdmitUsageFailureStillAdmits(t *testing.T) {
	f := newFixture(t, 0)
	token := f.issue(t, "pkg-1", 10)
	f.recorder.err = errors.New("insert failed")

	_, err := f.gate.Admit(context.Background(), Request{Token: token, RequestType: usage.RequestCheck})
	require.NoError(t, err)
	assert.Equal(t, 9, f.store.Snapshot("pkg-1").Remaining)
}

func TestAdmitConcurrentCallsRespectQuota(t *testing.T) {
	f := newFixture(t, time.Second)
	token := f.issue(t, "pkg-1", 20)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for range 60 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.gate.Admit(context.Background(), Request{
				Token:       token,
				RequestType: usage.RequestCheck,
			}); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, admitted)
	assert.Equal(t, 0, f.store.Snapshot("pkg-1").Remaining)
	assert.Len(t, f.recorder.all(), 60)
}

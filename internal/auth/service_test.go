// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*UserInfo{}}
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Create(_ context.Context, nu NewUser) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == nu.Email || u.Phone == nu.Phone {
			return nil, core.ErrDuplicateKey
		}
	}
	u := &UserInfo{
		ID:           "user-" + nu.Phone,
		Email:        nu.Email,
		Phone:        nu.Phone,
		Name:         nu.Name,
		PasswordHash: nu.PasswordHash,
		Role:         "user",
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	c := *u
	return &c, nil
}

func (f *fakeUsers) IncrementTokenVersion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type fakeBlacklist struct {
	revoked map[string]bool
}

func (b *fakeBlacklist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	b.revoked[jti] = true
	return nil
}

func (b *fakeBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	return b.revoked[jti], nil
}

func newTestService(t *testing.T) (*Service, *fakeUsers) {
	t.Helper()

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(privPath, pubPath))

	jwtManager, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:    privPath,
		PublicKeyPath:     pubPath,
		AccessTokenExpire: time.Hour,
		Issuer:            "entitlements",
		Audience:          "entitlements-api",
	})
	require.NoError(t, err)

	users := newFakeUsers()
	return NewService(jwtManager, users, &fakeBlacklist{revoked: map[string]bool{}}), users
}

func register(t *testing.T, svc *Service) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "Owner@Example.com",
		Phone:    "09120000000",
		Password: "correct-horse",
		Name:     "Owner",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg := register(t, svc)
	assert.Equal(t, "owner@example.com", reg.User.Email)
	assert.Equal(t, "Bearer", reg.Tokens.TokenType)

	login, err := svc.Login(ctx, LoginRequest{Email: "owner@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, login.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)

	_, err = svc.Login(ctx, LoginRequest{Email: "owner@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "other@example.com",
		Phone:    "09120000000",
		Password: "correct-horse",
		Name:     "Other",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	reg := register(t, svc)

	claims, err := svc.VerifyAccessToken(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	_, err = svc.VerifyAccessToken(ctx, reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestChangePasswordRevokesOlderTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	reg := register(t, svc)

	err := svc.ChangePassword(ctx, reg.User.ID, "correct-horse", "battery-staple")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	login, err := svc.Login(ctx, LoginRequest{Email: "owner@example.com", Password: "battery-staple"})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, login.Tokens.AccessToken)
	assert.NoError(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.VerifyAccessToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

// AngelaMos | 2026
// service_test.go

package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type memRepo struct {
	mu    sync.Mutex
	items []Notification
	err   error
}

func (m *memRepo) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memRepo) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("mark notification read: %w", core.ErrNotFound)
}

func (m *memRepo) MarkAllRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read {
			m.items[i].Read = true
			n++
		}
	}
	return n, nil
}

type fakeSender struct {
	mu     sync.Mutex
	expiry []string
	err    error
}

func (f *fakeSender) Send(context.Context, string, string) error {
	return f.err
}

func (f *fakeSender) SendExpiry(_ context.Context, phone string, _ int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiry = append(f.expiry, phone)
	return f.err
}

func newTestService(repo *memRepo, sender *fakeSender) *Service {
	return NewService(repo, sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var notice = ExpiryNotice{PackageID: "pkg-1", PlanID: "plan-1", PlanName: "Pro", DaysLeft: 4}

func TestNotifyExpiryCreatesNoticeAndTexts(t *testing.T) {
	repo := &memRepo{}
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	err := svc.NotifyExpiry(context.Background(), &Recipient{
		UserID:     "user-1",
		Phone:      "09121234567",
		SMSEnabled: true,
	}, notice)
	require.NoError(t, err)

	require.Len(t, repo.items, 1)
	n := repo.items[0]
	assert.Equal(t, TypeExpiry, n.Type)
	assert.Contains(t, n.Message, "4 days")
	assert.Equal(t, "pkg-1", n.Metadata["package_id"])
	assert.Equal(t, []string{"09121234567"}, sender.expiry)
}

func TestNotifyExpirySkipsSMSWhenOptedOut(t *testing.T) {
	repo := &memRepo{}
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	require.NoError(t, svc.NotifyExpiry(context.Background(), &Recipient{
		UserID: "user-1",
		Phone:  "09121234567",
	}, notice))

	assert.Len(t, repo.items, 1)
	assert.Empty(t, sender.expiry)
}

func TestNotifyExpirySMSFailureIsNotFatal(t *testing.T) {
	repo := &memRepo{}
	sender := &fakeSender{err: errors.New("gateway down")}
	svc := newTestService(repo, sender)

	err := svc.NotifyExpiry(context.Background(), &Recipient{
		UserID:     "user-1",
		Phone:      "09121234567",
		SMSEnabled: true,
	}, notice)
	require.NoError(t, err)
	assert.Len(t, repo.items, 1)
}

func TestNotifyExpiryStoreFailure(t *testing.T) {
	repo := &memRepo{err: errors.New("db down")}
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	err := svc.NotifyExpiry(context.Background(), &Recipient{UserID: "user-1", SMSEnabled: true, Phone: "1"}, notice)
	require.Error(t, err)
	assert.Empty(t, sender.expiry)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	repo := &memRepo{items: []Notification{
		{ID: "n1", UserID: "user-1"},
		{ID: "n2", UserID: "user-1"},
	}}
	svc := newTestService(repo, &fakeSender{})

	require.ErrorIs(t, svc.MarkRead(context.Background(), "user-2", "n1"), core.ErrNotFound)
	require.NoError(t, svc.MarkRead(context.Background(), "user-1", "n1"))

	unread, err := svc.List(context.Background(), "user-1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n2", unread[0].ID)

	n, err := svc.MarkAllRead(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

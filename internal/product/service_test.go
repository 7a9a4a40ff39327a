// AngelaMos | 2026
// service_test.go

package product

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type memRepo struct {
	products map[string]Product
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[string]Product{}}
}

func (m *memRepo) Create(_ context.Context, p *Product) error {
	for _, existing := range m.products {
		if existing.UID == p.UID {
			return fmt.Errorf("create product: %w", errUIDTaken)
		}
		if existing.UserID == p.UserID && existing.Code == p.Code {
			return fmt.Errorf("create product: %w", core.ErrDuplicateKey)
		}
	}
	m.products[p.ID] = *p
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	return &p, nil
}

func (m *memRepo) GetByUID(_ context.Context, userID, uid string, activeOnly bool) (*Product, error) {
	for _, p := range m.products {
		if p.UserID == userID && p.UID == uid && (p.Active || !activeOnly) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get product by uid: %w", core.ErrNotFound)
}

func (m *memRepo) ListByUser(_ context.Context, userID string, activeOnly bool) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if p.UserID == userID && (p.Active || !activeOnly) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, p *Product) error {
	m.products[p.ID] = *p
	return nil
}

func (m *memRepo) SetActive(_ context.Context, id string, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return core.ErrNotFound
	}
	p.Active = active
	m.products[id] = p
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	delete(m.products, id)
	return nil
}

func TestCreateRetriesUIDCollision(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	uids := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	svc.newUID = func() (string, error) {
		uid := uids[0]
		uids = uids[1:]
		return uid, nil
	}

	ctx := context.Background()
	first, err := svc.Create(ctx, "user-1", CreateProductRequest{Name: "Ruby", Type: "lips", Code: "R1"})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAA", first.UID)
	assert.True(t, first.Active)

	second, err := svc.Create(ctx, "user-1", CreateProductRequest{Name: "Rose", Type: "lips", Code: "R2"})
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", second.UID)
}

func TestCreateDuplicateCode(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", CreateProductRequest{Name: "A", Type: "lips", Code: "X"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "user-1", CreateProductRequest{Name: "B", Type: "lips", Code: "X"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	_, err = svc.Create(ctx, "user-2", CreateProductRequest{Name: "B", Type: "lips", Code: "X"})
	assert.NoError(t, err)
}

func TestActiveFiltering(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx, "user-1", CreateProductRequest{Name: "A", Type: "lips", Code: "A"})
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, "user-1", p.ID, false)
	require.NoError(t, err)

	active, err := svc.ListActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.GetActiveByUID(ctx, "user-1", p.UID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	all, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOwnership(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx, "user-1", CreateProductRequest{Name: "A", Type: "lips", Code: "A"})
	require.NoError(t, err)

	name := "stolen"
	_, err = svc.Update(ctx, "user-2", p.ID, UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "user-2", p.ID), core.ErrNotFound)
	assert.NoError(t, svc.Delete(ctx, "user-1", p.ID))
}

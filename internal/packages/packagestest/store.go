// AngelaMos | 2026
// store.go

// Package packagestest provides an in-memory package store for tests. It
// satisfies packages.Repository and quota.Store with the same conditional
// semantics as the SQL implementations.
package packagestest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/quota"
)

type Store struct {
	mu          sync.Mutex
	pkgs        map[string]packages.Package
	planMonthly map[string]int

	// ReadErr, when set, is returned by every read.
	ReadErr error
	// DecrementErr, when set, is returned by Decrement without writing.
	DecrementErr error
	// ReadDelay blocks reads until it elapses or the context is done.
	ReadDelay time.Duration

	decrements int
}

func New() *Store {
	return &Store{
		pkgs:        map[string]packages.Package{},
		planMonthly: map[string]int{},
	}
}

// SetPlanMonthly sets the monthly limit ResetMonthly copies for planID.
func (s *Store) SetPlanMonthly(planID string, monthly int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planMonthly[planID] = monthly
}

// Put stores p as-is, replacing any package with the same ID.
func (s *Store) Put(p packages.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkgs[p.ID] = p
}

// Snapshot returns the stored copy of id.
func (s *Store) Snapshot(id string) packages.Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pkgs[id]
}

// Decrements counts Decrement calls, successful or not.
func (s *Store) Decrements() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decrements
}

func (s *Store) read(ctx context.Context) error {
	if s.ReadDelay > 0 {
		select {
		case <-time.After(s.ReadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.ReadErr
}

func (s *Store) Create(_ context.Context, p *packages.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.PaymentID != nil {
		for _, existing := range s.pkgs {
			if existing.PaymentID != nil && *existing.PaymentID == *p.PaymentID {
				return fmt.Errorf("create package: %w", core.ErrDuplicateKey)
			}
		}
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.pkgs[p.ID] = *p
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*packages.Package, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pkgs[id]
	if !ok {
		return nil, fmt.Errorf("get package: %w", core.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetByUserAndTokenHash(
	ctx context.Context,
	userID, tokenHash string,
) (*packages.Package, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pkgs {
		if p.UserID == userID && p.TokenHash == tokenHash {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get package by token: %w", core.ErrNotFound)
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]packages.Package, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []packages.Package
	for _, p := range s.pkgs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) List(
	ctx context.Context,
	params packages.ListParams,
) ([]packages.Package, int, error) {
	if err := s.read(ctx); err != nil {
		return nil, 0, err
	}
	params.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []packages.Package
	for _, p := range s.pkgs {
		if params.UserID != "" && p.UserID != params.UserID {
			continue
		}
		if params.Status != "" && p.EffectiveStatus(params.Now) != params.Status {
			continue
		}
		matched = append(matched, p)
	}
	sortNewestFirst(matched)

	total := len(matched)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return matched[start:end], total, nil
}

func (s *Store) reissue(r packages.Reissue, apply func(p *packages.Package)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pkgs[r.ID]
	if !ok || p.Version != r.ExpectedVersion {
		return fmt.Errorf("reissue package: %w", core.ErrConflict)
	}

	p.Token = r.Token
	p.TokenHash = r.TokenHash
	p.Version++
	p.UpdatedAt = time.Now()
	apply(&p)
	s.pkgs[p.ID] = p
	return nil
}

func (s *Store) Extend(_ context.Context, r packages.Reissue) error {
	return s.reissue(r, func(p *packages.Package) {
		p.EndDate = r.EndDate
		p.Status = packages.StatusActive
		p.Notified = false
	})
}

func (s *Store) UpdateGrant(_ context.Context, r packages.Reissue) error {
	return s.reissue(r, func(p *packages.Package) {
		p.SDKFeatures = r.SDKFeatures
	})
}

func (s *Store) SetStatus(_ context.Context, id string, status packages.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pkgs[id]
	if !ok {
		return fmt.Errorf("set package status: %w", core.ErrNotFound)
	}
	p.Status = status
	s.pkgs[id] = p
	return nil
}

func (s *Store) CountByEffectiveStatus(
	ctx context.Context,
	now time.Time,
) (map[packages.Status]int, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[packages.Status]int{
		packages.StatusActive:    0,
		packages.StatusExpired:   0,
		packages.StatusSuspended: 0,
	}
	for _, p := range s.pkgs {
		counts[p.EffectiveStatus(now)]++
	}
	return counts, nil
}

func (s *Store) ListExpiring(
	ctx context.Context,
	now, until time.Time,
	limit int,
) ([]packages.Package, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []packages.Package
	for _, p := range s.pkgs {
		if p.Status != packages.StatusActive || p.Notified {
			continue
		}
		if p.EndDate.After(now) && !p.EndDate.After(until) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkNotified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pkgs[id]
	if !ok {
		return fmt.Errorf("mark package notified: %w", core.ErrNotFound)
	}
	p.Notified = true
	s.pkgs[id] = p
	return nil
}

func (s *Store) Decrement(_ context.Context, packageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decrements++
	if s.DecrementErr != nil {
		return s.DecrementErr
	}

	p, ok := s.pkgs[packageID]
	if !ok || p.QuotaExhausted() {
		return quota.ErrExceeded
	}
	if p.Remaining != packages.Unlimited {
		p.Remaining--
	}
	p.UsedTotal++
	s.pkgs[packageID] = p
	return nil
}

func (s *Store) ResetMonthly(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, p := range s.pkgs {
		monthly, ok := s.planMonthly[p.PlanID]
		if !ok || p.Status != packages.StatusActive || !p.EndDate.After(now) {
			continue
		}
		p.MonthlyLimit = monthly
		p.Remaining = monthly
		s.pkgs[id] = p
		n++
	}
	return n, nil
}

func sortNewestFirst(pkgs []packages.Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		return pkgs[i].CreatedAt.After(pkgs[j].CreatedAt)
	})
}

var (
	_ packages.Repository = (*Store)(nil)
	_ quota.Store         = (*Store)(nil)
)

// AngelaMos | 2026
// entity_test.go

package packages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name   string
		stored Status
		end    time.Time
		want   Status
	}{
		{"active before end", StatusActive, future, StatusActive},
		{"active after end", StatusActive, past, StatusExpired},
		{"active exactly at end", StatusActive, now, StatusExpired},
		{"suspended before end", StatusSuspended, future, StatusSuspended},
		{"suspended after end", StatusSuspended, past, StatusSuspended},
		{"stored expired", StatusExpired, future, StatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveStatus(tt.stored, tt.end, now))
		})
	}
}

func TestQuotaExhausted(t *testing.T) {
	tests := []struct {
		name string
		pkg  Package
		want bool
	}{
		{"remaining left", Package{Remaining: 5, TotalLimit: Unlimited}, false},
		{"remaining zero", Package{Remaining: 0, TotalLimit: Unlimited}, true},
		{"unlimited monthly", Package{Remaining: Unlimited, TotalLimit: Unlimited, UsedTotal: 1e6}, false},
		{"lifetime cap reached", Package{Remaining: Unlimited, TotalLimit: 10, UsedTotal: 10}, true},
		{"lifetime cap not reached", Package{Remaining: 3, TotalLimit: 10, UsedTotal: 9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pkg.QuotaExhausted())
		})
	}
}

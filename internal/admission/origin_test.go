// AngelaMos | 2026
// origin_test.go

package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostAllowed(t *testing.T) {
	allowed := []string{"example.com", "Partner.IO."}

	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"shop.example.com", true},
		{"a.b.example.com", true},
		{"example.com.evil.com", false},
		{"badexample.com", false},
		{"partner.io", true},
		{"cdn.partner.io", true},
		{"io", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, HostAllowed(tt.host, allowed))
		})
	}
}

func TestOriginHost(t *testing.T) {
	host, ok := OriginHost("https://Shop.Example.com:443/path")
	assert.True(t, ok)
	assert.Equal(t, "shop.example.com", host)

	_, ok = OriginHost("null")
	assert.False(t, ok)

	_, ok = OriginHost("")
	assert.False(t, ok)
}

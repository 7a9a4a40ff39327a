// AngelaMos | 2026
// grant_test.go

package grant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *Grant)
		wantErr string
	}{
		{
			name:   "default grant is valid",
			mutate: func(g *Grant) {},
		},
		{
			name: "patterns for granted feature",
			mutate: func(g *Grant) {
				g.Patterns["lips"] = []string{"matte", "gloss"}
			},
		},
		{
			name: "patterns for feature not granted",
			mutate: func(g *Grant) {
				g.Patterns["glitter"] = []string{"p1"}
			},
			wantErr: `feature "glitter" which is not granted`,
		},
		{
			name: "duplicate feature",
			mutate: func(g *Grant) {
				g.Features = append(g.Features, "lips")
			},
			wantErr: `duplicate feature "lips"`,
		},
		{
			name: "unknown project type",
			mutate: func(g *Grant) {
				g.ProjectType = "enterprise"
			},
			wantErr: "unknown project type",
		},
		{
			name: "unknown media source",
			mutate: func(g *Grant) {
				g.MediaFeatures.AllowedSources = []string{"video"}
			},
			wantErr: "allowedSources",
		},
		{
			name: "unknown comparison mode",
			mutate: func(g *Grant) {
				g.MediaFeatures.ComparisonModes = []string{"overlay"}
			},
			wantErr: "comparisonModes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Default()
			tt.mutate(&g)

			err := g.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidGrant)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScanNormalizesNulls(t *testing.T) {
	var g Grant
	require.NoError(t, g.Scan([]byte(`{"features":["lips"],"projectType":"professional"}`)))

	assert.Equal(t, []string{"lips"}, g.Features)
	assert.Equal(t, ProjectProfessional, g.ProjectType)
	assert.NotNil(t, g.Patterns)
	assert.NotNil(t, g.MediaFeatures.AllowedViews)
}

func TestValueRoundTrip(t *testing.T) {
	in := Default()
	in.IsPremium = true
	in.Patterns["lips"] = []string{"matte"}

	v, err := in.Value()
	require.NoError(t, err)

	var out Grant
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)
}

func TestScanRejectsUnknownType(t *testing.T) {
	var g Grant
	assert.Error(t, g.Scan(42))
}

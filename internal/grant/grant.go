// AngelaMos | 2026
// grant.go

package grant

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
)

type ProjectType string

const (
	ProjectStandard     ProjectType = "standard"
	ProjectProfessional ProjectType = "professional"
)

const (
	SourceCamera = "camera"
	SourceImage  = "image"

	ViewSingle = "single"
	ViewMulti  = "multi"
	ViewSplit  = "split"

	CompareBeforeAfter = "before-after"
	CompareSplit       = "split"
)

var (
	validSources     = []string{SourceCamera, SourceImage}
	validViews       = []string{ViewSingle, ViewMulti, ViewSplit}
	validComparisons = []string{CompareBeforeAfter, CompareSplit}
)

var ErrInvalidGrant = errors.New("invalid feature grant")

type MediaFeatures struct {
	AllowedSources  []string `json:"allowedSources"`
	AllowedViews    []string `json:"allowedViews"`
	ComparisonModes []string `json:"comparisonModes"`
}

// Grant describes which SDK capabilities a package unlocks. It is copied
// into the package at creation and embedded verbatim in every token minted
// for that package.
type Grant struct {
	Features      []string            `json:"features"`
	Patterns      map[string][]string `json:"patterns"`
	IsPremium     bool                `json:"isPremium"`
	ProjectType   ProjectType         `json:"projectType"`
	MediaFeatures MediaFeatures       `json:"mediaFeatures"`
}

// Default is the grant a plan carries when an admin does not supply one.
func Default() Grant {
	return Grant{
		Features: []string{
			"lips",
			"eyeshadow",
			"eyepencil",
			"eyelashes",
			"blush",
			"concealer",
			"foundation",
			"brows",
		},
		Patterns:    map[string][]string{},
		IsPremium:   false,
		ProjectType: ProjectStandard,
		MediaFeatures: MediaFeatures{
			AllowedSources:  []string{SourceCamera},
			AllowedViews:    []string{ViewSingle},
			ComparisonModes: []string{},
		},
	}
}

func (g Grant) HasFeature(feature string) bool {
	return slices.Contains(g.Features, feature)
}

// Validate rejects grants whose patterns reference features that are not
// granted, and enum values outside the known sets.
func (g Grant) Validate() error {
	seen := make(map[string]struct{}, len(g.Features))
	for _, f := range g.Features {
		if f == "" {
			return fmt.Errorf("%w: empty feature id", ErrInvalidGrant)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrInvalidGrant, f)
		}
		seen[f] = struct{}{}
	}

	keys := make([]string, 0, len(g.Patterns))
	for k := range g.Patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			return fmt.Errorf(
				"%w: patterns reference feature %q which is not granted",
				ErrInvalidGrant,
				k,
			)
		}
	}

	switch g.ProjectType {
	case ProjectStandard, ProjectProfessional:
	default:
		return fmt.Errorf("%w: unknown project type %q", ErrInvalidGrant, g.ProjectType)
	}

	if err := checkSet("allowedSources", g.MediaFeatures.AllowedSources, validSources); err != nil {
		return err
	}
	if err := checkSet("allowedViews", g.MediaFeatures.AllowedViews, validViews); err != nil {
		return err
	}
	return checkSet("comparisonModes", g.MediaFeatures.ComparisonModes, validComparisons)
}

func checkSet(field string, values, allowed []string) error {
	for _, v := range values {
		if !slices.Contains(allowed, v) {
			return fmt.Errorf("%w: %s contains unknown value %q", ErrInvalidGrant, field, v)
		}
	}
	return nil
}

// Normalize fills nil collections so the grant serializes with empty
// arrays and objects instead of nulls.
func (g Grant) Normalize() Grant {
	if g.Features == nil {
		g.Features = []string{}
	}
	if g.Patterns == nil {
		g.Patterns = map[string][]string{}
	}
	if g.ProjectType == "" {
		g.ProjectType = ProjectStandard
	}
	if g.MediaFeatures.AllowedSources == nil {
		g.MediaFeatures.AllowedSources = []string{}
	}
	if g.MediaFeatures.AllowedViews == nil {
		g.MediaFeatures.AllowedViews = []string{}
	}
	if g.MediaFeatures.ComparisonModes == nil {
		g.MediaFeatures.ComparisonModes = []string{}
	}
	return g
}

func (g Grant) Value() (driver.Value, error) {
	b, err := json.Marshal(g.Normalize())
	if err != nil {
		return nil, fmt.Errorf("marshal feature grant: %w", err)
	}
	return b, nil
}

func (g *Grant) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*g = Grant{}.Normalize()
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan feature grant: unsupported type %T", src)
	}

	var out Grant
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan feature grant: %w", err)
	}
	*g = out.Normalize()
	return nil
}

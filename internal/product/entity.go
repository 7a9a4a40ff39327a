// AngelaMos | 2026
// entity.go

package product

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Pattern struct {
	Name     string `json:"name"               validate:"required,max=100"`
	Code     string `json:"code"               validate:"required,max=100"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type Color struct {
	Name     string `json:"name"               validate:"required,max=100"`
	HexCode  string `json:"hex_code"           validate:"required,hexcolor"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type Patterns []Pattern

type Colors []Color

// Product is an owner-defined makeup item the SDK can render. UID is the
// short public handle used by SDK calls; Code is the owner's own SKU and is
// unique per owner.
type Product struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	UID         string    `db:"uid"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Type        string    `db:"type"`
	Code        string    `db:"code"`
	Thumbnail   string    `db:"thumbnail"`
	Patterns    Patterns  `db:"patterns"`
	Colors      Colors    `db:"colors"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (p Patterns) Value() (driver.Value, error) {
	return marshalList(p, len(p))
}

func (p *Patterns) Scan(src any) error {
	return scanList(src, p)
}

func (c Colors) Value() (driver.Value, error) {
	return marshalList(c, len(c))
}

func (c *Colors) Scan(src any) error {
	return scanList(src, c)
}

func marshalList(v any, n int) (driver.Value, error) {
	if n == 0 {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal product list: %w", err)
	}
	return b, nil
}

func scanList(src any, dest any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan product list: unsupported type %T", src)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("scan product list: %w", err)
	}
	return nil
}

// AngelaMos | 2026
// entity.go

package notify

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	TypeExpiry  Type = "expiry"
	TypePayment Type = "payment"
	TypeSystem  Type = "system"
	TypeOther   Type = "other"
)

// Recipient is the contact view of a user.
type Recipient struct {
	UserID     string
	Name       string
	Phone      string
	SMSEnabled bool
}

type Notification struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	PlanID    *string   `db:"plan_id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Type      Type      `db:"type"`
	Metadata  Metadata  `db:"metadata"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

// Metadata is stored as a jsonb object.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("marshal notification metadata: %w", err)
	}
	return b, nil
}

func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan notification metadata: unsupported type %T", src)
	}
	return json.Unmarshal(raw, m)
}

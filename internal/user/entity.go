// AngelaMos | 2026
// entity.go

package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type User struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	Phone            string     `db:"phone"`
	PasswordHash     string     `db:"password_hash"`
	Name             string     `db:"name"`
	Role             string     `db:"role"`
	AllowedDomains   Domains    `db:"allowed_domains"`
	SMSNotifications bool       `db:"sms_notifications"`
	TokenVersion     int        `db:"token_version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Domains is stored as a jsonb array.
type Domains []string

func (d Domains) Value() (driver.Value, error) {
	if d == nil {
		d = Domains{}
	}
	b, err := json.Marshal([]string(d))
	if err != nil {
		return nil, fmt.Errorf("marshal domains: %w", err)
	}
	return b, nil
}

func (d *Domains) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Domains{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan domains: unsupported type %T", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan domains: %w", err)
	}
	*d = out
	return nil
}

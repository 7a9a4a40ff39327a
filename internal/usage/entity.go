// AngelaMos | 2026
// entity.go

package usage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type RequestType string

const (
	RequestValidate RequestType = "validate"
	RequestApply    RequestType = "apply"
	RequestCheck    RequestType = "check"
	RequestOther    RequestType = "other"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestValidate, RequestApply, RequestCheck, RequestOther:
		return true
	}
	return false
}

// Record is one admission attempt. Records are only ever inserted.
type Record struct {
	ID           string      `db:"id"`
	UserID       string      `db:"user_id"`
	PackageID    *string     `db:"package_id"`
	ProductID    *string     `db:"product_id"`
	ProductUID   string      `db:"product_uid"`
	Domain       string      `db:"domain"`
	RequestType  RequestType `db:"request_type"`
	IPAddress    string      `db:"ip_address"`
	UserAgent    string      `db:"user_agent"`
	Device       string      `db:"device"`
	Browser      string      `db:"browser"`
	OS           string      `db:"os"`
	Metadata     Metadata    `db:"metadata"`
	Success      bool        `db:"success"`
	ErrorMessage string      `db:"error_message"`
	CreatedAt    time.Time   `db:"created_at"`
}

// Metadata is an opaque JSON document attached to a record, such as the
// makeup payload of an apply call.
type Metadata json.RawMessage

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	if !json.Valid(m) {
		return nil, fmt.Errorf("usage metadata is not valid json")
	}
	return []byte(m), nil
}

func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
	case []byte:
		*m = append(Metadata(nil), v...)
	case string:
		*m = Metadata(v)
	default:
		return fmt.Errorf("scan usage metadata: unsupported type %T", src)
	}
	return nil
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

// PackageStats counts records per request type for one package.
type PackageStats struct {
	Total    int `db:"total"    json:"total"`
	Validate int `db:"validate" json:"validate"`
	Apply    int `db:"apply"    json:"apply"`
	Check    int `db:"check"    json:"check"`
	Other    int `db:"other"    json:"other"`
}

type Bucket struct {
	Key   string `db:"key"   json:"key"`
	Count int    `db:"count" json:"count"`
}

type DailyCount struct {
	Day     time.Time `db:"day"     json:"day"`
	Total   int       `db:"total"   json:"total"`
	Success int       `db:"success" json:"success"`
}

type Summary struct {
	Total   int `db:"total"   json:"total"`
	Success int `db:"success" json:"success"`
	Failed  int `db:"failed"  json:"failed"`
}

type Analytics struct {
	Range       Range        `json:"range"`
	Since       time.Time    `json:"since"`
	Summary     Summary      `json:"summary"`
	SuccessRate float64      `json:"success_rate"`
	ByType      PackageStats `json:"by_type"`
	Daily       []DailyCount `json:"daily"`
	Domains     []Bucket     `json:"domains"`
	Devices     []Bucket     `json:"devices"`
	Browsers    []Bucket     `json:"browsers"`
	OS          []Bucket     `json:"os"`
}

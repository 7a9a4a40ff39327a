// AngelaMos | 2026
// denial.go

package admission

import (
	"errors"
	"net/http"
)

type Reason string

const (
	ReasonMissingToken       Reason = "MISSING_TOKEN"
	ReasonInvalidToken       Reason = "INVALID_TOKEN"
	ReasonTokenExpired       Reason = "TOKEN_EXPIRED"
	ReasonUserNotFound       Reason = "USER_NOT_FOUND"
	ReasonNoActivePackage    Reason = "NO_ACTIVE_PACKAGE"
	ReasonQuotaExceeded      Reason = "QUOTA_EXCEEDED"
	ReasonOriginNotAllowed   Reason = "ORIGIN_NOT_ALLOWED"
	ReasonServiceUnavailable Reason = "SERVICE_UNAVAILABLE"
)

var denialTable = map[Reason]struct {
	status  int
	message string
}{
	ReasonMissingToken:       {http.StatusUnauthorized, "sdk token is required"},
	ReasonInvalidToken:       {http.StatusUnauthorized, "sdk token is invalid"},
	ReasonTokenExpired:       {http.StatusUnauthorized, "sdk token has expired"},
	ReasonUserNotFound:       {http.StatusNotFound, "account not found"},
	ReasonNoActivePackage:    {http.StatusNotFound, "no active package for this token"},
	ReasonQuotaExceeded:      {http.StatusForbidden, "request limit reached"},
	ReasonOriginNotAllowed:   {http.StatusForbidden, "origin is not allowed"},
	ReasonServiceUnavailable: {http.StatusServiceUnavailable, "service temporarily unavailable, retry later"},
}

// Denial is the only error Admit returns. It carries a category and
// nothing that identifies internal state.
type Denial struct {
	Reason Reason
}

func deny(reason Reason) *Denial {
	return &Denial{Reason: reason}
}

func (d *Denial) Error() string {
	return "admission denied: " + string(d.Reason)
}

func (d *Denial) StatusCode() int {
	if entry, ok := denialTable[d.Reason]; ok {
		return entry.status
	}
	return http.StatusForbidden
}

func (d *Denial) Message() string {
	if entry, ok := denialTable[d.Reason]; ok {
		return entry.message
	}
	return "request denied"
}

// Retryable reports whether the caller may retry the same request.
func (d *Denial) Retryable() bool {
	return d.Reason == ReasonServiceUnavailable
}

func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// AngelaMos | 2026
// dto.go

package usage

import (
	"time"
)

type RecordResponse struct {
	ID           string      `json:"id"`
	PackageID    *string     `json:"package_id"`
	ProductUID   string      `json:"product_uid,omitempty"`
	Domain       string      `json:"domain"`
	RequestType  RequestType `json:"request_type"`
	IPAddress    string      `json:"ip_address"`
	Device       string      `json:"device"`
	Browser      string      `json:"browser"`
	OS           string      `json:"os"`
	Metadata     Metadata    `json:"metadata,omitempty"`
	Success      bool        `json:"success"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type ExportResponse struct {
	UserID  string           `json:"user_id"`
	Range   Range            `json:"range"`
	Records []RecordResponse `json:"records"`
}

func ToRecordResponseList(records []Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, RecordResponse{
			ID:           r.ID,
			PackageID:    r.PackageID,
			ProductUID:   r.ProductUID,
			Domain:       r.Domain,
			RequestType:  r.RequestType,
			IPAddress:    r.IPAddress,
			Device:       r.Device,
			Browser:      r.Browser,
			OS:           r.OS,
			Metadata:     r.Metadata,
			Success:      r.Success,
			ErrorMessage: r.ErrorMessage,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Sentinel values used when real client data is unavailable. Distinct from
// absence: the audit record always carries them.
const (
	UnknownIP        = "unknown"
	UnknownUserAgent = "unknown"
)

// Location is the coarse, best-effort geolocation attached to an access
// event. Stored as a JSONB column.
type Location struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Region   string `json:"region,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// LocationUnknown is the degraded result when lookup fails.
func LocationUnknown() *Location {
	return &Location{Country: "Unknown", City: "Unknown"}
}

// LocationLocal is the short-circuit result for non-routable addresses.
func LocationLocal() *Location {
	return &Location{Country: "Local", City: "Development"}
}

// Value implements driver.Valuer for JSONB persistence.
func (l *Location) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *Location) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("location: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, l)
}

// RequestMeta is the informational header subset captured with an event.
// Stored as a JSONB column; every field is optional.
type RequestMeta struct {
	Referer        string `json:"referer,omitempty"`
	AcceptLanguage string `json:"accept_language,omitempty"`
	AcceptEncoding string `json:"accept_encoding,omitempty"`
}

// Value implements driver.Valuer for JSONB persistence.
func (m *RequestMeta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *RequestMeta) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("request meta: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// AccessEvent is one immutable audit record of a verification or byte-fetch
// attempt. Rows are append-only; the core never updates or deletes them.
type AccessEvent struct {
	ID          string       `db:"id" json:"id"`
	UploaderID  string       `db:"uploader_id" json:"uploader_id"`
	ClientIP    string       `db:"client_ip" json:"client_ip"`
	UserAgent   string       `db:"user_agent" json:"user_agent"`
	OTPUsed     string       `db:"otp_used" json:"otp_used"`
	FileName    string       `db:"file_name" json:"file_name"`
	PublicID    string       `db:"public_id" json:"public_id"`
	FileDeleted bool         `db:"file_deleted" json:"file_deleted"`
	Granted     bool         `db:"granted" json:"granted"`
	AccessTime  time.Time    `db:"access_time" json:"access_time"`
	Location    *Location    `db:"location" json:"location,omitempty"`
	Headers     *RequestMeta `db:"headers" json:"headers,omitempty"`
}

// TraceFilter bounds trace listing queries.
type TraceFilter struct {
	UploaderID string
	Limit      int
}

package models

import "time"

// AccessMode is the workflow assigned to a shared file.
type AccessMode string

const (
	ModeView     AccessMode = "view"
	ModeDownload AccessMode = "download"
	ModePrint    AccessMode = "print"
	ModeShare    AccessMode = "share"
)

// AccessLevel is the sub-permission for view/share mode files.
type AccessLevel string

const (
	AccessView     AccessLevel = "view"
	AccessDownload AccessLevel = "download"
)

// FileRecord represents a shared file row in the files table. The uploading
// side owns the rows; the core only reads them and consumes OTPs.
type FileRecord struct {
	ID            string      `db:"id" json:"id"`
	PublicID      string      `db:"public_id" json:"public_id"`
	UploaderID    string      `db:"uploader_id" json:"uploader_id"`
	FileName      string      `db:"file_name" json:"file_name"`
	StorageKey    string      `db:"storage_key" json:"-"`
	ContentType   string      `db:"content_type" json:"content_type"`
	OTPDigest     string      `db:"otp_digest" json:"-"`
	OTPExpiry     *time.Time  `db:"otp_expiry" json:"otp_expiry,omitempty"`
	OTPConsumedAt *time.Time  `db:"otp_consumed_at" json:"-"`
	SingleUse     bool        `db:"single_use" json:"single_use"`
	Mode          AccessMode  `db:"mode" json:"mode"`
	Access        AccessLevel `db:"access" json:"access"`
	Deleted       bool        `db:"deleted" json:"deleted"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// OTPExpired reports whether the code's expiry has passed at the given time.
// A nil expiry means the code does not expire.
func (f *FileRecord) OTPExpired(now time.Time) bool {
	return f.OTPExpiry != nil && now.After(*f.OTPExpiry)
}

// OTPConsumed reports whether a single-use code has already been used.
func (f *FileRecord) OTPConsumed() bool {
	return f.SingleUse && f.OTPConsumedAt != nil
}

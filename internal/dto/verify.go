package dto

import "time"

// VerifyRequest is the payload for the initial code check.
type VerifyRequest struct {
	OTP string `json:"otp" binding:"required,accesscode"`
}

// FetchRequest is the payload for the byte-fetch endpoints. Exactly one of
// otp and grant must be set; grant covers follow-up fetches after a
// single-use code has been consumed.
type FetchRequest struct {
	OTP   string `json:"otp" binding:"omitempty,accesscode"`
	Grant string `json:"grant" binding:"omitempty,max=512"`
}

// PrintJobRequest submits a file to the print broker.
type PrintJobRequest struct {
	OTP    string `json:"otp" binding:"omitempty,accesscode"`
	Grant  string `json:"grant" binding:"omitempty,max=512"`
	Copies int    `json:"copies" binding:"omitempty,min=1,max=10"`
}

// VerifyResponse is the successful verification verdict.
type VerifyResponse struct {
	PublicID       string    `json:"public_id"`
	FileName       string    `json:"file_name"`
	ContentType    string    `json:"content_type"`
	Mode           string    `json:"mode"`
	Access         string    `json:"access"`
	SingleUse      bool      `json:"single_use"`
	Grant          string    `json:"grant"`
	GrantExpiresAt time.Time `json:"grant_expires_at"`
}

package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of the bearer token issued by the uploader-facing
// auth collaborator. The trace endpoints only need the uploader identity.
type JWTClaims struct {
	UploaderID string `json:"uploader_id"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Grant is a verified, time-bounded access grant for one file. It is issued
// after OTP verification so single-use codes can still complete their byte
// fetches without presenting the code again.
type Grant struct {
	PublicID  string
	Mode      string
	Access    string
	ExpiresAt time.Time
}

// GrantSigner creates and validates signed access grants.
type GrantSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewGrantSigner constructs a signer with the provided secret and TTL.
func NewGrantSigner(secret string, ttl time.Duration) *GrantSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &GrantSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue returns a signed grant token bound to the file and its granted scope.
func (s *GrantSigner) Issue(publicID, mode, access string) (string, time.Time, error) {
	if publicID == "" || mode == "" {
		return "", time.Time{}, fmt.Errorf("publicID and mode required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(publicID))
	encodedScope := base64.RawURLEncoding.EncodeToString([]byte(mode + "|" + access))
	payload := fmt.Sprintf("%s|%d|%s", encodedID, expiresAt.Unix(), encodedScope)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	tok := strings.Join([]string{encodedID, fmt.Sprintf("%d", expiresAt.Unix()), encodedScope, signature}, ".")
	return tok, expiresAt, nil
}

// Parse validates a grant token and returns the embedded grant.
func (s *GrantSigner) Parse(tok string) (*Grant, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid grant format")
	}
	encodedID := parts[0]
	ts := parts[1]
	encodedScope := parts[2]
	signature := parts[3]

	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return nil, fmt.Errorf("decode file id: %w", err)
	}
	rawScope, err := base64.RawURLEncoding.DecodeString(encodedScope)
	if err != nil {
		return nil, fmt.Errorf("decode scope: %w", err)
	}

	expUnix, err := parseUnix(ts)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Unix(expUnix, 0)

	payload := fmt.Sprintf("%s|%s|%s", encodedID, ts, encodedScope)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("invalid grant signature")
	}
	if time.Now().After(expiresAt) {
		return nil, fmt.Errorf("grant expired")
	}

	mode, access := splitScope(string(rawScope))
	return &Grant{
		PublicID:  string(rawID),
		Mode:      mode,
		Access:    access,
		ExpiresAt: expiresAt,
	}, nil
}

func splitScope(raw string) (mode, access string) {
	parts := strings.SplitN(raw, "|", 2)
	mode = parts[0]
	if len(parts) == 2 {
		access = parts[1]
	}
	return mode, access
}

func parseUnix(raw string) (int64, error) {
	var ts int64
	_, err := fmt.Sscanf(raw, "%d", &ts)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp")
	}
	return ts, nil
}

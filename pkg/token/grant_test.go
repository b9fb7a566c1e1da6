package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	signer := NewGrantSigner("secret", 5*time.Minute)

	tok, expiresAt, err := signer.Issue("pub-123", "view", "download")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	grant, err := signer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "pub-123", grant.PublicID)
	assert.Equal(t, "view", grant.Mode)
	assert.Equal(t, "download", grant.Access)
	assert.WithinDuration(t, expiresAt, grant.ExpiresAt, time.Second)
}

func TestIssueRequiresFields(t *testing.T) {
	signer := NewGrantSigner("secret", time.Minute)

	_, _, err := signer.Issue("", "view", "")
	require.Error(t, err)

	_, _, err = signer.Issue("pub-123", "", "")
	require.Error(t, err)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	signer := NewGrantSigner("secret", time.Minute)

	tok, _, err := signer.Issue("pub-123", "print", "")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	parts[3] = strings.Repeat("0", len(parts[3]))
	_, err = signer.Parse(strings.Join(parts, "."))
	require.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signer := NewGrantSigner("secret", time.Minute)
	other := NewGrantSigner("different", time.Minute)

	tok, _, err := signer.Issue("pub-123", "download", "download")
	require.NoError(t, err)

	_, err = other.Parse(tok)
	require.Error(t, err)
}

func TestParseRejectsExpiredGrant(t *testing.T) {
	signer := &GrantSigner{secret: []byte("secret"), ttl: -time.Minute}

	tok, _, err := signer.Issue("pub-123", "view", "view")
	require.NoError(t, err)

	_, err = signer.Parse(tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestParseRejectsMalformedToken(t *testing.T) {
	signer := NewGrantSigner("secret", time.Minute)

	_, err := signer.Parse("not-a-token")
	require.Error(t, err)
}

package clientinfo

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headers(pairs map[string]string) http.Header {
	h := http.Header{}
	for k, v := range pairs {
		h.Set(k, v)
	}
	return h
}

func TestExtractPrefersEdgeHeader(t *testing.T) {
	e := New(false)
	sig := e.Extract(headers(map[string]string{
		"CF-Connecting-IP": "203.0.113.9",
		"X-Forwarded-For":  "198.51.100.1",
	}))
	assert.Equal(t, "203.0.113.9", sig.IP)
	assert.Equal(t, "CF-Connecting-IP", sig.Source)
}

func TestExtractForwardedForChainTakesFirstHop(t *testing.T) {
	e := New(false)
	sig := e.Extract(headers(map[string]string{
		"X-Forwarded-For": "1.1.1.1, 2.2.2.2",
	}))
	assert.Equal(t, "1.1.1.1", sig.IP)
}

func TestExtractRFC7239Forwarded(t *testing.T) {
	e := New(false)

	tests := []struct {
		header string
		want   string
	}{
		{"for=198.51.100.2:443", "198.51.100.2"},
		{`for="198.51.100.2"`, "198.51.100.2"},
		{`for="[2001:db8::1]:8080";proto=https`, "2001:db8::1"},
		{"by=203.0.113.43;for=192.0.2.60;proto=http", "192.0.2.60"},
	}
	for _, tc := range tests {
		sig := e.Extract(headers(map[string]string{"Forwarded": tc.header}))
		assert.Equal(t, tc.want, sig.IP, "header %q", tc.header)
	}
}

func TestExtractStripsIPv6MappedPrefix(t *testing.T) {
	e := New(false)
	sig := e.Extract(headers(map[string]string{
		"X-Real-IP": "::ffff:1.2.3.4",
	}))
	assert.Equal(t, "1.2.3.4", sig.IP)
}

func TestExtractSkipsUnknownCandidates(t *testing.T) {
	e := New(false)
	sig := e.Extract(headers(map[string]string{
		"CF-Connecting-IP": "unknown",
		"X-Client-IP":      "203.0.113.7",
	}))
	assert.Equal(t, "203.0.113.7", sig.IP)
	assert.Equal(t, "X-Client-IP", sig.Source)
}

func TestExtractSentinelWhenNothingResolves(t *testing.T) {
	e := New(false)
	sig := e.Extract(http.Header{})
	assert.Equal(t, "unknown", sig.IP)
	assert.Equal(t, "unknown", sig.UserAgent)
	assert.Equal(t, "none", sig.Source)
}

func TestExtractMockFallbackInDevelopment(t *testing.T) {
	e := New(true)
	sig := e.Extract(http.Header{})
	require.True(t, strings.HasPrefix(sig.IP, "192.168.1."), "got %q", sig.IP)
	assert.Equal(t, "mock", sig.Source)
}

func TestExtractUserAgentVerbatim(t *testing.T) {
	e := New(false)
	ua := "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101"
	sig := e.Extract(headers(map[string]string{"User-Agent": ua}))
	assert.Equal(t, ua, sig.UserAgent)
}

func TestExtractNeverReturnsEmpty(t *testing.T) {
	e := New(false)
	cases := []http.Header{
		{},
		headers(map[string]string{"X-Forwarded-For": " , "}),
		headers(map[string]string{"Forwarded": "proto=https"}),
		headers(map[string]string{"Forwarded": "for="}),
	}
	for _, h := range cases {
		sig := e.Extract(h)
		assert.NotEmpty(t, sig.IP)
		assert.NotEmpty(t, sig.UserAgent)
	}
}

func TestMetaCapturesHeaderSubset(t *testing.T) {
	e := New(false)
	meta := e.Meta(headers(map[string]string{
		"Referer":         "https://example.com/verify",
		"Accept-Language": "en-US,en;q=0.9",
		"Accept-Encoding": "gzip, br",
	}))
	require.NotNil(t, meta)
	assert.Equal(t, "https://example.com/verify", meta.Referer)
	assert.Equal(t, "en-US,en;q=0.9", meta.AcceptLanguage)
	assert.Equal(t, "gzip, br", meta.AcceptEncoding)

	assert.Nil(t, e.Meta(http.Header{}))
}

// Package clientinfo derives a best-effort client identity from untrusted
// request headers. Every signal is advisory: proxies can forge any of these,
// so the result feeds the audit trail, never an access decision.
package clientinfo

import (
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/aditwicaksono/sharegate/internal/models"
)

// Signals is the extracted client identity. IP and UserAgent are never empty;
// the "unknown" sentinel stands in when nothing resolves.
type Signals struct {
	IP        string
	UserAgent string
	// Source names the header the IP came from ("mock" for the development
	// fallback, "none" for the sentinel). Logged for operability.
	Source string
}

// probe is one candidate header with an optional value transform. Probes are
// evaluated in priority order, first non-empty result wins.
type probe struct {
	header    string
	transform func(string) string
}

// Probe order mirrors proxy trust: the edge-injected Cloudflare header first,
// then the common reverse-proxy headers, then the RFC 7239 standard form.
var probes = []probe{
	{"CF-Connecting-IP", nil},
	{"X-Forwarded-For", firstForwardedHop},
	{"X-Real-IP", nil},
	{"X-Client-IP", nil},
	{"X-Forwarded", nil},
	{"Forwarded-For", firstForwardedHop},
	{"Forwarded", parseRFC7239For},
}

// Extractor resolves client signals from header sets.
type Extractor struct {
	mockFallback bool
}

// New builds an extractor. mockFallback enables the development-only
// synthetic private-range IP when no header resolves; it must be false in
// production configurations.
func New(mockFallback bool) *Extractor {
	return &Extractor{mockFallback: mockFallback}
}

// Extract returns the client identity for a header set. It never fails.
func (e *Extractor) Extract(h http.Header) Signals {
	ip, source := e.extractIP(h)

	userAgent := h.Get("User-Agent")
	if userAgent == "" {
		userAgent = models.UnknownUserAgent
	}

	return Signals{IP: ip, UserAgent: userAgent, Source: source}
}

// Meta captures the informational header subset persisted with audit events.
func (e *Extractor) Meta(h http.Header) *models.RequestMeta {
	meta := &models.RequestMeta{
		Referer:        h.Get("Referer"),
		AcceptLanguage: h.Get("Accept-Language"),
		AcceptEncoding: h.Get("Accept-Encoding"),
	}
	if meta.Referer == "" && meta.AcceptLanguage == "" && meta.AcceptEncoding == "" {
		return nil
	}
	return meta
}

func (e *Extractor) extractIP(h http.Header) (ip, source string) {
	for _, p := range probes {
		value := strings.TrimSpace(h.Get(p.header))
		if p.transform != nil {
			value = p.transform(value)
		}
		if value == "" || value == models.UnknownIP {
			continue
		}
		return stripMappedPrefix(value), p.header
	}

	if e.mockFallback {
		return mockPrivateIP(), "mock"
	}
	return models.UnknownIP, "none"
}

// firstForwardedHop takes the left-most entry of a comma-separated chain,
// which is the original client in a multi-hop proxy chain.
func firstForwardedHop(value string) string {
	if value == "" {
		return ""
	}
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}

// parseRFC7239For extracts the for= node from an RFC 7239 Forwarded header,
// removing quotes, brackets and any trailing port.
func parseRFC7239For(value string) string {
	if value == "" {
		return ""
	}
	for _, part := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ';' || r == ','
	}) {
		part = strings.TrimSpace(part)
		if len(part) < 4 || !strings.EqualFold(part[:4], "for=") {
			continue
		}
		node := strings.Trim(part[4:], `"`)
		if host, _, err := net.SplitHostPort(node); err == nil {
			node = host
		}
		return strings.Trim(node, "[]")
	}
	return ""
}

// stripMappedPrefix unwraps IPv4 addresses carried in the IPv6-mapped form.
func stripMappedPrefix(ip string) string {
	if strings.HasPrefix(ip, "::ffff:") && strings.Count(ip[7:], ".") == 3 {
		return ip[7:]
	}
	return ip
}

// mockPrivateIP synthesizes a 192.168.1.x address so local testing produces
// realistic-looking audit rows.
func mockPrivateIP() string {
	return "192.168.1." + strconv.Itoa(rand.Intn(254)+1)
}

// Package geo enriches client IPs with coarse location data. Lookups are
// strictly auxiliary: the locator never returns an error and never blocks
// beyond its configured timeout.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aditwicaksono/sharegate/internal/models"
	"github.com/aditwicaksono/sharegate/pkg/config"
)

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
}

// Locator resolves IPs through an ipapi-compatible HTTP endpoint, with a
// Redis cache in front so repeated accesses from one address do not burn
// lookup quota.
type Locator struct {
	client   *http.Client
	cache    *redis.Client
	logger   *zap.Logger
	apiURL   string
	apiKey   string
	cacheTTL time.Duration
}

// NewLocator builds a locator. cache may be nil; lookups then always go out.
func NewLocator(cfg config.GeoConfig, cache *redis.Client, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Locator{
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		logger:   logger,
		apiURL:   cfg.APIURL,
		apiKey:   cfg.APIKey,
		cacheTTL: cfg.CacheTTL,
	}
}

// Locate returns the best-effort location for an IP. Non-routable addresses
// short-circuit to the Local sentinel without any external call; every
// failure degrades to the Unknown sentinel.
func (l *Locator) Locate(ctx context.Context, ip string) *models.Location {
	if isNonRoutable(ip) {
		return models.LocationLocal()
	}

	if loc := l.fromCache(ctx, ip); loc != nil {
		return loc
	}

	loc, err := l.lookup(ctx, ip)
	if err != nil {
		l.logger.Debug("geo lookup degraded", zap.String("ip", ip), zap.Error(err))
		return models.LocationUnknown()
	}

	l.toCache(ctx, ip, loc)
	return loc
}

func isNonRoutable(ip string) bool {
	if ip == models.UnknownIP || ip == "" {
		return true
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		// Malformed input is not worth a lookup either.
		return true
	}
	if addr.IsLoopback() {
		return true
	}
	addr = addr.Unmap()
	for _, prefix := range privateRanges {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

type lookupResponse struct {
	Status      string `json:"status"`
	CountryName string `json:"country_name"`
	Country     string `json:"country"`
	City        string `json:"city"`
	RegionName  string `json:"region_name"`
	Region      string `json:"regionName"`
	TimezoneID  string `json:"timezone"`
	TimeZone    *struct {
		ID string `json:"id"`
	} `json:"time_zone"`
}

// lookup performs a single attempt against the external service. No retries:
// the result is auxiliary and the caller has a fallback.
func (l *Locator) lookup(ctx context.Context, ip string) (*models.Location, error) {
	endpoint := fmt.Sprintf("%s/%s", l.apiURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build geo request: %w", err)
	}
	if l.apiKey != "" {
		q := req.URL.Query()
		q.Set("access_key", l.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup status %d", resp.StatusCode)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geo payload: %w", err)
	}
	if payload.Status == "fail" {
		return nil, fmt.Errorf("geo lookup rejected ip %s", ip)
	}

	loc := &models.Location{
		Country:  firstNonEmpty(payload.CountryName, payload.Country),
		City:     payload.City,
		Region:   firstNonEmpty(payload.RegionName, payload.Region),
		Timezone: payload.TimezoneID,
	}
	if loc.Timezone == "" && payload.TimeZone != nil {
		loc.Timezone = payload.TimeZone.ID
	}
	if loc.Country == "" {
		loc.Country = "Unknown"
	}
	if loc.City == "" {
		loc.City = "Unknown"
	}
	return loc, nil
}

func (l *Locator) fromCache(ctx context.Context, ip string) *models.Location {
	if l.cache == nil {
		return nil
	}
	raw, err := l.cache.Get(ctx, cacheKey(ip)).Bytes()
	if err != nil {
		return nil
	}
	var loc models.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil
	}
	return &loc
}

func (l *Locator) toCache(ctx context.Context, ip string, loc *models.Location) {
	if l.cache == nil {
		return
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := l.cache.Set(ctx, cacheKey(ip), raw, l.cacheTTL).Err(); err != nil {
		l.logger.Debug("geo cache write failed", zap.String("ip", ip), zap.Error(err))
	}
}

func cacheKey(ip string) string {
	return "geo:" + ip
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

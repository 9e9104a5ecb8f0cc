package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// APITokenEnv overrides gridlive.api_token when set.
const APITokenEnv = "GRIDLIVE_API_TOKEN"

const (
	DefaultBaseURL          = "https://api.gridlive.shef.ac.uk"
	DefaultTimeout          = 30 * time.Second
	DefaultMaxFeeders       = 10
	DefaultNearPath         = "/esa_metadata/grid_reference/{grid_ref}"
	DefaultListenAddr       = "0.0.0.0"
	DefaultPort             = 8080
	DefaultCacheBackend     = "memory"
	DefaultCacheTTL         = time.Hour
	DefaultKeyPrefix        = "gridlive:"
	DefaultOutlierCeiling   = 1_000_000
	DefaultLookback         = 30 * 24 * time.Hour
	DefaultReferenceLat     = 54.0
	DefaultViewportHeightPx = 600
	DefaultCenterLat        = 54.5
	DefaultCenterLon        = -2.0
	DefaultZoom             = 6
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills unset fields and applies environment overrides.
func (c *ConfigData) ApplyDefaults() {
	if token := os.Getenv(APITokenEnv); token != "" {
		c.GridLive.APIToken = token
	}
	if c.GridLive.BaseURL == "" {
		c.GridLive.BaseURL = DefaultBaseURL
	}
	if c.GridLive.Timeout == 0 {
		c.GridLive.Timeout = DefaultTimeout
	}
	if c.GridLive.MaxFeeders == 0 {
		c.GridLive.MaxFeeders = DefaultMaxFeeders
	}
	if c.GridLive.NearPath == "" {
		c.GridLive.NearPath = DefaultNearPath
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultKeyPrefix
	}

	if c.Series.OutlierCeiling == 0 {
		c.Series.OutlierCeiling = DefaultOutlierCeiling
	}
	if c.Series.DefaultLookback == 0 {
		c.Series.DefaultLookback = DefaultLookback
	}

	if c.Map.ReferenceLatitude == 0 {
		c.Map.ReferenceLatitude = DefaultReferenceLat
	}
	if c.Map.ViewportHeightPx == 0 {
		c.Map.ViewportHeightPx = DefaultViewportHeightPx
	}
	if c.Map.CenterLat == 0 && c.Map.CenterLon == 0 {
		c.Map.CenterLat = DefaultCenterLat
		c.Map.CenterLon = DefaultCenterLon
	}
	if c.Map.Zoom == 0 {
		c.Map.Zoom = DefaultZoom
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate reports every configuration problem found, joined into one error.
func (c *ConfigData) Validate() error {
	var errs []error

	if u, err := url.Parse(c.GridLive.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("gridlive.base_url %q is not an absolute URL", c.GridLive.BaseURL))
	}
	if c.GridLive.Timeout < 0 {
		errs = append(errs, fmt.Errorf("gridlive.timeout must not be negative"))
	}
	if c.GridLive.LicenseAreaLimit < 0 {
		errs = append(errs, fmt.Errorf("gridlive.license_area_limit must not be negative"))
	}
	if c.GridLive.MaxFeeders < 1 {
		errs = append(errs, fmt.Errorf("gridlive.max_feeders must be at least 1"))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if (c.Server.Cert == "") != (c.Server.Key == "") {
		errs = append(errs, fmt.Errorf("server.cert and server.key must be set together"))
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, fmt.Errorf("cache.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}

	if c.Series.OutlierCeiling <= 0 {
		errs = append(errs, fmt.Errorf("series.outlier_ceiling must be positive"))
	}
	if c.Map.ReferenceLatitude <= -90 || c.Map.ReferenceLatitude >= 90 {
		errs = append(errs, fmt.Errorf("map.reference_latitude %v is out of range", c.Map.ReferenceLatitude))
	}
	if c.Map.ViewportHeightPx < 0 {
		errs = append(errs, fmt.Errorf("map.viewport_height_px must not be negative"))
	}

	return errors.Join(errs...)
}

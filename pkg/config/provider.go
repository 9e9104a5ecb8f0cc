package config

import "time"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetGridLiveConfig() (*GridLiveData, error)
	GetServerConfig() (*ServerData, error)
	GetCacheConfig() (*CacheData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	GridLive GridLiveData `json:"gridlive"`
	Server   ServerData   `json:"server"`
	Cache    CacheData    `json:"cache"`
	Series   SeriesData   `json:"series"`
	Map      MapData      `json:"map"`
	Metrics  MetricsData  `json:"metrics"`
}

// GridLiveData holds the upstream API settings
type GridLiveData struct {
	BaseURL          string        `json:"base_url"`
	APIToken         string        `json:"-"`
	Timeout          time.Duration `json:"timeout"`
	LicenseAreaLimit int           `json:"license_area_limit,omitempty"`
	MaxFeeders       int           `json:"max_feeders"`
	NearPath         string        `json:"near_path"`
}

// ServerData holds the REST server settings
type ServerData struct {
	ListenAddr     string   `json:"listen_addr,omitempty"`
	Port           int      `json:"port,omitempty"`
	Cert           string   `json:"cert,omitempty"`
	Key            string   `json:"key,omitempty"`
	EnableCORS     bool     `json:"enable_cors,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// CacheData selects and configures the response cache
type CacheData struct {
	Backend   string        `json:"backend"`
	TTL       time.Duration `json:"ttl"`
	RedisURL  string        `json:"redis_url,omitempty"`
	KeyPrefix string        `json:"key_prefix,omitempty"`
}

// SeriesData holds smart-meter series settings
type SeriesData struct {
	OutlierCeiling  float64       `json:"outlier_ceiling"`
	DefaultLookback time.Duration `json:"default_lookback"`
}

// MapData holds map view settings
type MapData struct {
	ReferenceLatitude float64 `json:"reference_latitude"`
	ViewportHeightPx  int     `json:"viewport_height_px"`
	CenterLat         float64 `json:"center_lat"`
	CenterLon         float64 `json:"center_lon"`
	Zoom              int     `json:"zoom"`
}

// MetricsData controls the Prometheus endpoint
type MetricsData struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

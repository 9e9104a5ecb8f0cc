package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig reads the YAML file, applies defaults and validates the result.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// ParseYAML decodes a YAML document into a defaulted, validated ConfigData.
func ParseYAML(data []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	config := &ConfigData{
		GridLive: GridLiveData{
			BaseURL:          yamlConfig.GridLive.BaseURL,
			APIToken:         yamlConfig.GridLive.APIToken,
			Timeout:          yamlConfig.GridLive.Timeout,
			LicenseAreaLimit: yamlConfig.GridLive.LicenseAreaLimit,
			MaxFeeders:       yamlConfig.GridLive.MaxFeeders,
			NearPath:         yamlConfig.GridLive.NearPath,
		},
		Server: ServerData{
			ListenAddr:     yamlConfig.Server.ListenAddr,
			Port:           yamlConfig.Server.Port,
			Cert:           yamlConfig.Server.Cert,
			Key:            yamlConfig.Server.Key,
			EnableCORS:     yamlConfig.Server.EnableCORS,
			AllowedOrigins: yamlConfig.Server.AllowedOrigins,
		},
		Cache: CacheData{
			Backend:   yamlConfig.Cache.Backend,
			TTL:       yamlConfig.Cache.TTL,
			RedisURL:  yamlConfig.Cache.RedisURL,
			KeyPrefix: yamlConfig.Cache.KeyPrefix,
		},
		Series: SeriesData{
			OutlierCeiling:  yamlConfig.Series.OutlierCeiling,
			DefaultLookback: yamlConfig.Series.DefaultLookback,
		},
		Map: MapData{
			ReferenceLatitude: yamlConfig.Map.ReferenceLatitude,
			ViewportHeightPx:  yamlConfig.Map.ViewportHeightPx,
			CenterLat:         yamlConfig.Map.Center.Lat,
			CenterLon:         yamlConfig.Map.Center.Lon,
			Zoom:              yamlConfig.Map.Zoom,
		},
		Metrics: MetricsData{
			Enabled: yamlConfig.Metrics.Enabled,
			Path:    yamlConfig.Metrics.Path,
		},
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (y *YAMLProvider) loaded() (*ConfigData, error) {
	if y.config == nil {
		return y.LoadConfig()
	}
	return y.config, nil
}

// GetGridLiveConfig returns the upstream API configuration
func (y *YAMLProvider) GetGridLiveConfig() (*GridLiveData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &cfg.GridLive, nil
}

// GetServerConfig returns the REST server configuration
func (y *YAMLProvider) GetServerConfig() (*ServerData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &cfg.Server, nil
}

// GetCacheConfig returns the cache configuration
func (y *YAMLProvider) GetCacheConfig() (*CacheData, error) {
	cfg, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &cfg.Cache, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with the on-disk key names
type ConfigYAML struct {
	GridLive GridLiveYAML `yaml:"gridlive"`
	Server   ServerYAML   `yaml:"server,omitempty"`
	Cache    CacheYAML    `yaml:"cache,omitempty"`
	Series   SeriesYAML   `yaml:"series,omitempty"`
	Map      MapYAML      `yaml:"map,omitempty"`
	Metrics  MetricsYAML  `yaml:"metrics,omitempty"`
}

type GridLiveYAML struct {
	BaseURL          string        `yaml:"base_url,omitempty"`
	APIToken         string        `yaml:"api_token,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
	LicenseAreaLimit int           `yaml:"license_area_limit,omitempty"`
	MaxFeeders       int           `yaml:"max_feeders,omitempty"`
	NearPath         string        `yaml:"near_path,omitempty"`
}

type ServerYAML struct {
	ListenAddr     string   `yaml:"listen_addr,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	Cert           string   `yaml:"cert,omitempty"`
	Key            string   `yaml:"key,omitempty"`
	EnableCORS     bool     `yaml:"enable_cors,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

type CacheYAML struct {
	Backend   string        `yaml:"backend,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
	RedisURL  string        `yaml:"redis_url,omitempty"`
	KeyPrefix string        `yaml:"key_prefix,omitempty"`
}

type SeriesYAML struct {
	OutlierCeiling  float64       `yaml:"outlier_ceiling,omitempty"`
	DefaultLookback time.Duration `yaml:"default_lookback,omitempty"`
}

type MapYAML struct {
	ReferenceLatitude float64   `yaml:"reference_latitude,omitempty"`
	ViewportHeightPx  int       `yaml:"viewport_height_px,omitempty"`
	Center            PointYAML `yaml:"center,omitempty"`
	Zoom              int       `yaml:"zoom,omitempty"`
}

type PointYAML struct {
	Lat float64 `yaml:"latitude,omitempty"`
	Lon float64 `yaml:"longitude,omitempty"`
}

type MetricsYAML struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

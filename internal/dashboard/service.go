// Package dashboard assembles map views and smart-meter series from the
// GridLive API for the REST layer.
package dashboard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/chrissnell/gridlive/internal/cache"
	"github.com/chrissnell/gridlive/internal/meterseries"
	"github.com/chrissnell/gridlive/internal/metrics"
	"github.com/chrissnell/gridlive/internal/substation"
	"github.com/chrissnell/gridlive/pkg/config"
	"go.uber.org/zap"
)

var (
	// ErrUnknownSubstation is returned when no fetched metadata row belongs to the requested substation.
	ErrUnknownSubstation = errors.New("substation not found")
	// ErrInvalidDateRange is returned by DateRange when the end date precedes the start date.
	ErrInvalidDateRange = errors.New("end date is before start date")
	// ErrNoData is returned when the metadata fetch failed for every license area.
	ErrNoData = errors.New("no metadata could be fetched for any license area")
)

// Provider is the subset of the GridLive API the dashboard needs.
type Provider interface {
	LicenseAreas(ctx context.Context) ([]string, error)
	ESAMetadata(ctx context.Context, area string, limit int) ([]substation.RawRecord, error)
	ESAMetadataNear(ctx context.Context, gridRef string, radius int) ([]substation.RawRecord, error)
	SmartMeter(ctx context.Context, esaID, start, end string) ([]meterseries.RawRecord, error)
}

// Options tune map and series assembly.
type Options struct {
	MaxFeeders        int
	OutlierCeiling    float64
	ReferenceLatitude float64
	ViewportHeightPx  int
	CenterLat         float64
	CenterLon         float64
	Zoom              int
	CacheTTL          time.Duration
	FetchConcurrency  int
}

// OptionsFromConfig derives Options from a defaulted configuration.
func OptionsFromConfig(cfg *config.ConfigData) Options {
	return Options{
		MaxFeeders:        cfg.GridLive.MaxFeeders,
		OutlierCeiling:    cfg.Series.OutlierCeiling,
		ReferenceLatitude: cfg.Map.ReferenceLatitude,
		ViewportHeightPx:  cfg.Map.ViewportHeightPx,
		CenterLat:         cfg.Map.CenterLat,
		CenterLon:         cfg.Map.CenterLon,
		Zoom:              cfg.Map.Zoom,
		CacheTTL:          cfg.Cache.TTL,
	}
}

type Service struct {
	provider Provider
	store    cache.Store
	opts     Options
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// New creates a Service. A nil store disables caching.
func New(p Provider, store cache.Store, opts Options, logger *zap.SugaredLogger, m *metrics.Metrics) *Service {
	if opts.MaxFeeders <= 0 {
		opts.MaxFeeders = config.DefaultMaxFeeders
	}
	if opts.OutlierCeiling <= 0 {
		opts.OutlierCeiling = meterseries.DefaultCeiling
	}
	if opts.ReferenceLatitude == 0 {
		opts.ReferenceLatitude = config.DefaultReferenceLat
	}
	if opts.CenterLat == 0 && opts.CenterLon == 0 {
		opts.CenterLat, opts.CenterLon = config.DefaultCenterLat, config.DefaultCenterLon
	}
	if opts.Zoom == 0 {
		opts.Zoom = config.DefaultZoom
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{provider: p, store: store, opts: opts, logger: logger, metrics: m}
}

// LicenseAreas lists the license areas the API knows about.
func (s *Service) LicenseAreas(ctx context.Context) ([]string, error) {
	return cache.Memoize(ctx, s.store, cache.Key("license_area"), s.opts.CacheTTL, s.provider.LicenseAreas)
}

func (s *Service) esaMetadata(ctx context.Context, area string, limit int) ([]substation.RawRecord, error) {
	key := cache.Key("esa_metadata", area, strconv.Itoa(limit))
	return cache.Memoize(ctx, s.store, key, s.opts.CacheTTL, func(ctx context.Context) ([]substation.RawRecord, error) {
		return s.provider.ESAMetadata(ctx, area, limit)
	})
}

func (s *Service) esaMetadataNear(ctx context.Context, gridRef string, radius int) ([]substation.RawRecord, error) {
	key := cache.Key("esa_metadata_near", gridRef, strconv.Itoa(radius))
	return cache.Memoize(ctx, s.store, key, s.opts.CacheTTL, func(ctx context.Context) ([]substation.RawRecord, error) {
		return s.provider.ESAMetadataNear(ctx, gridRef, radius)
	})
}

func (s *Service) smartMeter(ctx context.Context, esaID, start, end string) ([]meterseries.RawRecord, error) {
	key := cache.Key("smart_meter", esaID, start, end)
	return cache.Memoize(ctx, s.store, key, s.opts.CacheTTL, func(ctx context.Context) ([]meterseries.RawRecord, error) {
		return s.provider.SmartMeter(ctx, esaID, start, end)
	})
}

// Package gridlive is a client for the GridLive substation and smart-meter API.
package gridlive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/gridlive/internal/constants"
	"github.com/chrissnell/gridlive/internal/meterseries"
	"github.com/chrissnell/gridlive/internal/metrics"
	"github.com/chrissnell/gridlive/internal/substation"
	"github.com/chrissnell/gridlive/pkg/config"
	"go.uber.org/zap"
)

// DateTimeLayout is the instant format the smart-meter endpoint accepts.
const DateTimeLayout = "2006-01-02T15:04:05+00:00"

// ErrNoAPIKey is returned by SmartMeter when no API token is configured.
var ErrNoAPIKey = errors.New("gridlive API token not configured")

// APIError is a non-2xx answer from the API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gridlive %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("gridlive %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client issues single-attempt requests against the API.
type Client struct {
	baseURL    string
	token      string
	nearPath   string
	lookback   time.Duration
	httpClient *http.Client
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewClient creates a client from the gridlive configuration section. The
// lookback sets the default smart-meter window.
func NewClient(cfg config.GridLiveData, lookback time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gridlive base url %q", cfg.BaseURL)
	}
	if lookback <= 0 {
		lookback = config.DefaultLookback
	}
	nearPath := cfg.NearPath
	if nearPath == "" {
		nearPath = config.DefaultNearPath
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.APIToken,
		nearPath:   nearPath,
		lookback:   lookback,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}, nil
}

// LicenseAreas returns the sorted, distinct license area names.
func (c *Client) LicenseAreas(ctx context.Context) ([]string, error) {
	var rows []struct {
		Name string `json:"license_area_name"`
	}
	if err := c.get(ctx, "license_area", "/license_area", nil, nil, &rows); err != nil {
		return nil, err
	}

	areas := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Name != "" {
			areas = append(areas, r.Name)
		}
	}
	slices.Sort(areas)
	return slices.Compact(areas), nil
}

// ESAMetadata fetches the ESA rows of one license area, or of every area when
// area is empty. A limit of zero or less fetches everything.
func (c *Client) ESAMetadata(ctx context.Context, area string, limit int) ([]substation.RawRecord, error) {
	path := "/esa_metadata/"
	if area != "" {
		path = "/esa_metadata/license_area/" + url.PathEscape(area)
	}

	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var rows []substation.RawRecord
	if err := c.get(ctx, "esa_metadata", path, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ESAMetadataNear fetches the ESA rows within radius meters of an OS grid
// reference.
func (c *Client) ESAMetadataNear(ctx context.Context, gridRef string, radius int) ([]substation.RawRecord, error) {
	path := strings.ReplaceAll(c.nearPath, "{grid_ref}", url.PathEscape(gridRef))

	q := url.Values{}
	q.Set("radius", strconv.Itoa(radius))

	var rows []substation.RawRecord
	if err := c.get(ctx, "esa_metadata_near", path, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SmartMeter fetches the readings of one ESA between start and end, formatted
// with DateTimeLayout. Empty bounds default to the configured lookback ending now.
func (c *Client) SmartMeter(ctx context.Context, esaID, start, end string) ([]meterseries.RawRecord, error) {
	if c.token == "" {
		return nil, ErrNoAPIKey
	}

	now := c.now().UTC()
	if end == "" {
		end = now.Format(DateTimeLayout)
	}
	if start == "" {
		start = now.Add(-c.lookback).Format(DateTimeLayout)
	}

	q := url.Values{}
	q.Set("start_datetime", start)
	q.Set("end_datetime", end)

	header := http.Header{}
	header.Set("Authorization", c.token)

	var rows []meterseries.RawRecord
	if err := c.get(ctx, "smart_meter", "/smart_meter/esa/"+url.PathEscape(esaID), q, header, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, header http.Header, out any) (err error) {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	start := time.Now()
	status := 0
	defer func() {
		d := time.Since(start)
		c.metrics.ObserveUpstream(endpoint, d, err)
		if c.logger != nil {
			c.logger.Debugw("gridlive request", "endpoint", endpoint, "path", path, "status", status, "duration", d, "error", err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.UserAgent)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gridlive %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decoding gridlive %s response: %w", endpoint, err)
	}
	return nil
}

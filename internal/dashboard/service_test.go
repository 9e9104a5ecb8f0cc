package dashboard

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/gridlive/internal/cache"
	"github.com/chrissnell/gridlive/internal/gridlive"
	"github.com/chrissnell/gridlive/internal/meterseries"
	"github.com/chrissnell/gridlive/internal/substation"
	"github.com/chrissnell/gridlive/pkg/colorscale"
	"github.com/chrissnell/gridlive/pkg/osgrid"
)

type fakeProvider struct {
	mu        sync.Mutex
	areas     []string
	rows      map[string][]substation.RawRecord
	areaErr   map[string]error
	near      []substation.RawRecord
	nearRef   string
	readings  map[string][]meterseries.RawRecord
	meterErr  map[string]error
	calls     map[string]int
	meterESAs []string
}

func (f *fakeProvider) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeProvider) LicenseAreas(context.Context) ([]string, error) {
	f.count("license_area")
	return f.areas, nil
}

func (f *fakeProvider) ESAMetadata(_ context.Context, area string, _ int) ([]substation.RawRecord, error) {
	f.count("esa_metadata:" + area)
	if err := f.areaErr[area]; err != nil {
		return nil, err
	}
	return f.rows[area], nil
}

func (f *fakeProvider) ESAMetadataNear(_ context.Context, gridRef string, _ int) ([]substation.RawRecord, error) {
	f.count("near")
	f.mu.Lock()
	f.nearRef = gridRef
	f.mu.Unlock()
	return f.near, nil
}

func (f *fakeProvider) SmartMeter(_ context.Context, esaID, _, _ string) ([]meterseries.RawRecord, error) {
	f.count("smart_meter")
	f.mu.Lock()
	f.meterESAs = append(f.meterESAs, esaID)
	f.mu.Unlock()
	if err := f.meterErr[esaID]; err != nil {
		return nil, err
	}
	return f.readings[esaID], nil
}

func meta(area, sub, feeder string, e, n float64) substation.RawRecord {
	return substation.RawRecord{
		SecondarySubstationID:   sub,
		SecondarySubstationName: "Substation " + sub,
		DNOName:                 "Northern Powergrid",
		LicenseAreaName:         area,
		Eastings:                e,
		Northings:               n,
		ESAID:                   "esa-" + feeder,
		LVFeederID:              feeder,
	}
}

func newFake() *fakeProvider {
	return &fakeProvider{
		areas: []string{"North East", "Yorkshire"},
		rows: map[string][]substation.RawRecord{
			"North East": {
				meta("North East", "A", "1", 425000, 565000),
				meta("North East", "A", "2", 425000, 565000),
				meta("North East", "B", "3", 430000, 560000),
			},
			"Yorkshire": {
				meta("Yorkshire", "C", "4", 430000, 433000),
			},
		},
	}
}

func TestSubstationMapSingleArea(t *testing.T) {
	svc := New(newFake(), nil, Options{}, nil, nil)

	view, err := svc.SubstationMap(context.Background(), []string{"North East"}, 0)
	if err != nil {
		t.Fatalf("SubstationMap returned error: %v", err)
	}

	if len(view.Markers) != 2 || view.ESACount != 3 {
		t.Fatalf("got %d markers from %d ESAs, expected 2 from 3", len(view.Markers), view.ESACount)
	}
	if view.Center != (LatLon{Lat: 54.5, Lon: -2.0}) || view.Zoom != 6 {
		t.Errorf("view centered at %+v zoom %d", view.Center, view.Zoom)
	}

	// one area: continuous over feeder counts 2 and 1
	if view.Markers[0].Color != "#a50026" || view.Markers[1].Color != "#006837" {
		t.Errorf("marker colors = %s, %s", view.Markers[0].Color, view.Markers[1].Color)
	}
	if view.Legend == nil || view.Legend.Title != "Number of Feeders" || *view.Legend.Min != 1 || *view.Legend.Max != 2 {
		t.Errorf("legend = %+v", view.Legend)
	}

	m := view.Markers[0]
	if m.Tooltip != "Substation A" || m.Radius != 4 || !strings.Contains(m.Popup, "Number of Feeders: 2") {
		t.Errorf("marker = %+v", m)
	}
}

func TestSubstationMapAllAreas(t *testing.T) {
	svc := New(newFake(), nil, Options{}, nil, nil)

	view, err := svc.SubstationMap(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("SubstationMap returned error: %v", err)
	}
	if !reflect.DeepEqual(view.Areas, []string{"North East", "Yorkshire"}) {
		t.Errorf("Areas = %v", view.Areas)
	}
	if len(view.Markers) != 3 {
		t.Fatalf("got %d markers, expected 3", len(view.Markers))
	}

	colors := colorscale.CategoricalColors([]string{"North East", "Yorkshire"})
	for _, m := range view.Markers {
		if m.Color != colors[m.LicenseAreaName] {
			t.Errorf("marker %s colored %s, expected area color %s", m.SecondarySubstationID, m.Color, colors[m.LicenseAreaName])
		}
	}
	if view.Legend == nil || view.Legend.Title != "License Areas" || len(view.Legend.Entries) != 2 {
		t.Errorf("legend = %+v", view.Legend)
	}
}

func TestSubstationMapSkipsFailedArea(t *testing.T) {
	f := newFake()
	f.areaErr = map[string]error{"Yorkshire": &gridlive.APIError{Endpoint: "esa_metadata", StatusCode: 500}}
	svc := New(f, nil, Options{}, nil, nil)

	view, err := svc.SubstationMap(context.Background(), []string{"North East", "Yorkshire"}, 0)
	if err != nil {
		t.Fatalf("SubstationMap returned error: %v", err)
	}
	if !reflect.DeepEqual(view.SkippedAreas, []string{"Yorkshire"}) || len(view.Markers) != 2 {
		t.Errorf("skipped = %v, markers = %d", view.SkippedAreas, len(view.Markers))
	}

	f.areaErr["North East"] = errors.New("timeout")
	if _, err := svc.SubstationMap(context.Background(), []string{"North East", "Yorkshire"}, 0); !errors.Is(err, ErrNoData) {
		t.Errorf("all areas failing: error = %v, expected ErrNoData", err)
	}
}

func TestSubstationMapEmpty(t *testing.T) {
	f := newFake()
	f.rows["Empty"] = nil
	svc := New(f, nil, Options{}, nil, nil)

	view, err := svc.SubstationMap(context.Background(), []string{"Empty"}, 0)
	if err != nil {
		t.Fatalf("SubstationMap returned error: %v", err)
	}
	if view.Markers == nil || len(view.Markers) != 0 || view.Legend != nil {
		t.Errorf("empty view = %+v", view)
	}
}

func TestSubstationMapCaches(t *testing.T) {
	f := newFake()
	svc := New(f, cache.NewMemory(), Options{CacheTTL: time.Hour}, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.SubstationMap(context.Background(), nil, 5); err != nil {
			t.Fatalf("SubstationMap returned error: %v", err)
		}
	}
	if f.calls["license_area"] != 1 || f.calls["esa_metadata:Yorkshire"] != 1 {
		t.Errorf("provider calls = %v, expected one of each", f.calls)
	}
}

func TestNearbyMap(t *testing.T) {
	f := newFake()
	f.near = f.rows["North East"]
	svc := New(f, nil, Options{}, nil, nil)

	lat, lon := osgrid.ToLatLon(425500, 565500)
	view, err := svc.NearbyMap(context.Background(), lat, lon, 1000)
	if err != nil {
		t.Fatalf("NearbyMap returned error: %v", err)
	}

	ref, _ := osgrid.GridReference(lat, lon)
	if f.nearRef != ref || view.GridReference != ref {
		t.Errorf("queried %q, view says %q, expected %q", f.nearRef, view.GridReference, ref)
	}
	if view.Zoom != 14 {
		t.Errorf("Zoom = %d, expected 14 for a 1000 m radius", view.Zoom)
	}
	if view.Center.Lat != lat || view.Clicked == nil || view.SearchCircle == nil || view.SearchCircle.RadiusMeters != 1000 {
		t.Errorf("view = %+v", view)
	}
	if view.SearchCircle.Tooltip != "Search area (1000m radius)" {
		t.Errorf("circle tooltip = %q", view.SearchCircle.Tooltip)
	}
	if len(view.Markers) != 2 {
		t.Errorf("got %d markers, expected 2", len(view.Markers))
	}
}

func TestNearbyMapOutsideGrid(t *testing.T) {
	f := newFake()
	svc := New(f, nil, Options{}, nil, nil)

	_, err := svc.NearbyMap(context.Background(), 40.7128, -74.0060, 1000)
	if !errors.Is(err, osgrid.ErrOutsideGrid) {
		t.Errorf("error = %v, expected ErrOutsideGrid", err)
	}
	if f.calls["near"] != 0 {
		t.Error("provider queried for a point outside the grid")
	}

	if _, err := svc.NearbyMap(context.Background(), 54, -2, 0); err == nil {
		t.Error("NearbyMap accepted a zero radius")
	}
}

func readings(esa string, values ...float64) []meterseries.RawRecord {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]meterseries.RawRecord, len(values))
	for i, v := range values {
		out[i] = meterseries.RawRecord{
			ESAID:     esa,
			Timestamp: base.Add(time.Duration(i) * 30 * time.Minute),
			Values:    map[string]float64{meterseries.PrimaryColumn: v, "voltage": 240},
		}
	}
	return out
}

func TestSubstationSeries(t *testing.T) {
	f := newFake()
	f.readings = map[string][]meterseries.RawRecord{
		"esa-1": readings("esa-1", 2_000_000, 500),
		"esa-2": readings("esa-2", 300),
	}
	svc := New(f, nil, Options{}, nil, nil)

	res, err := svc.SubstationSeries(context.Background(), SeriesQuery{
		SubstationID: "A",
		Areas:        []string{"North East"},
	})
	if err != nil {
		t.Fatalf("SubstationSeries returned error: %v", err)
	}

	if res.FeederCount != 2 || !reflect.DeepEqual(res.FetchedFeeders, []string{"1", "2"}) {
		t.Errorf("feeders = %d, fetched %v", res.FeederCount, res.FetchedFeeders)
	}
	if !reflect.DeepEqual(res.Columns, []string{meterseries.PrimaryColumn, "voltage"}) {
		t.Errorf("Columns = %v", res.Columns)
	}
	s := res.Series
	if s == nil || s.Column != meterseries.PrimaryColumn {
		t.Fatalf("series = %+v", s)
	}
	if len(s.Points) != 2 || s.Points[0].FeederID != "2" || s.Points[1].FeederID != "1" {
		t.Errorf("points = %+v", s.Points)
	}
	if s.MaxValue == nil || *s.MaxValue != 500 {
		t.Errorf("MaxValue = %v, expected 500", s.MaxValue)
	}
	if s.Chart.Title != "Smart Meter Values for Substation: Substation A" {
		t.Errorf("Title = %q", s.Chart.Title)
	}
}

func TestSubstationSeriesByMarkerPosition(t *testing.T) {
	f := newFake()
	f.readings = map[string][]meterseries.RawRecord{"esa-3": readings("esa-3", 42)}
	svc := New(f, nil, Options{}, nil, nil)
	ctx := context.Background()

	lat, lon := osgrid.ToLatLon(430000, 560000)
	res, err := svc.SubstationSeries(ctx, SeriesQuery{
		Position: &LatLon{Lat: lat, Lon: lon},
		Areas:    []string{"North East"},
	})
	if err != nil {
		t.Fatalf("SubstationSeries returned error: %v", err)
	}
	if res.Substation.SecondarySubstationID != "B" || !reflect.DeepEqual(res.FetchedFeeders, []string{"3"}) {
		t.Errorf("resolved substation %s with feeders %v, expected B with [3]",
			res.Substation.SecondarySubstationID, res.FetchedFeeders)
	}

	_, err = svc.SubstationSeries(ctx, SeriesQuery{Position: &LatLon{Lat: lat + 0.001, Lon: lon}, Areas: []string{"North East"}})
	if !errors.Is(err, ErrUnknownSubstation) {
		t.Errorf("position without a marker error = %v", err)
	}
}

func TestSubstationSeriesLimitsFeeders(t *testing.T) {
	f := newFake()
	var rows []substation.RawRecord
	f.readings = make(map[string][]meterseries.RawRecord)
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		rows = append(rows, meta("Big", "Z", id, 400000, 400000))
		f.readings["esa-"+id] = readings("esa-"+id, float64(i))
	}
	f.rows["Big"] = rows
	svc := New(f, nil, Options{}, nil, nil)

	res, err := svc.SubstationSeries(context.Background(), SeriesQuery{SubstationID: "Z", Areas: []string{"Big"}})
	if err != nil {
		t.Fatalf("SubstationSeries returned error: %v", err)
	}
	if res.FeederCount != 12 || len(res.FetchedFeeders) != 10 || len(f.meterESAs) != 10 {
		t.Errorf("feeder count %d, fetched %d, calls %d", res.FeederCount, len(res.FetchedFeeders), len(f.meterESAs))
	}
	if f.meterESAs[0] != "esa-a" || f.meterESAs[9] != "esa-j" {
		t.Errorf("fetched %v, expected the first ten in metadata order", f.meterESAs)
	}
}

func TestSubstationSeriesErrors(t *testing.T) {
	f := newFake()
	svc := New(f, nil, Options{}, nil, nil)
	ctx := context.Background()

	if _, err := svc.SubstationSeries(ctx, SeriesQuery{SubstationID: "nope", Areas: []string{"North East"}}); !errors.Is(err, ErrUnknownSubstation) {
		t.Errorf("unknown substation error = %v", err)
	}

	f.meterErr = map[string]error{"esa-1": gridlive.ErrNoAPIKey}
	if _, err := svc.SubstationSeries(ctx, SeriesQuery{SubstationID: "A", Areas: []string{"North East"}}); !errors.Is(err, gridlive.ErrNoAPIKey) {
		t.Errorf("missing key error = %v", err)
	}

	f.readings = map[string][]meterseries.RawRecord{"esa-1": readings("esa-1", 1)}
	f.meterErr = nil
	_, err := svc.SubstationSeries(ctx, SeriesQuery{SubstationID: "A", Areas: []string{"North East"}, Column: "reactive_power"})
	if !errors.Is(err, meterseries.ErrMissingColumn) {
		t.Errorf("unknown column error = %v", err)
	}
}

func TestSubstationSeriesPartialFailure(t *testing.T) {
	f := newFake()
	upstream := &gridlive.APIError{Endpoint: "smart_meter", StatusCode: 503}
	f.readings = map[string][]meterseries.RawRecord{"esa-2": readings("esa-2", 7)}
	f.meterErr = map[string]error{"esa-1": upstream}
	svc := New(f, nil, Options{}, nil, nil)
	ctx := context.Background()

	res, err := svc.SubstationSeries(ctx, SeriesQuery{SubstationID: "A", Areas: []string{"North East"}})
	if err != nil {
		t.Fatalf("SubstationSeries returned error: %v", err)
	}
	if !reflect.DeepEqual(res.FailedFeeders, []string{"1"}) || len(res.Series.Points) != 1 {
		t.Errorf("failed %v, points %d", res.FailedFeeders, len(res.Series.Points))
	}

	f.meterErr["esa-2"] = upstream
	var apiErr *gridlive.APIError
	if _, err := svc.SubstationSeries(ctx, SeriesQuery{SubstationID: "A", Areas: []string{"North East"}}); !errors.As(err, &apiErr) {
		t.Errorf("all feeders failing: error = %v, expected *APIError", err)
	}
}

func TestSubstationSeriesNoReadings(t *testing.T) {
	svc := New(newFake(), nil, Options{}, nil, nil)

	res, err := svc.SubstationSeries(context.Background(), SeriesQuery{SubstationID: "B", Areas: []string{"North East"}})
	if err != nil {
		t.Fatalf("SubstationSeries returned error: %v", err)
	}
	if res.Series != nil || len(res.Columns) != 0 || res.FeederCount != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 15, 4, 5, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	s, e, err := DateRange(start, end)
	if err != nil {
		t.Fatalf("DateRange returned error: %v", err)
	}
	if s != "2024-01-01T00:00:00+00:00" || e != "2024-01-31T23:59:59+00:00" {
		t.Errorf("DateRange = %s, %s", s, e)
	}

	if s, e, err := DateRange(end, end); err != nil || s[:10] != e[:10] {
		t.Errorf("single-day range = %s, %s, %v", s, e, err)
	}
	if _, _, err := DateRange(end, start); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("reversed range error = %v", err)
	}
}

package dashboard

import (
	"context"
	"fmt"
	"html"
	"math"

	"github.com/chrissnell/gridlive/internal/substation"
	"github.com/chrissnell/gridlive/pkg/colorscale"
	"github.com/chrissnell/gridlive/pkg/osgrid"
)

const (
	markerRadius      = 4
	markerFillOpacity = 0.7
)

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Marker is one substation on the map.
type Marker struct {
	substation.Location
	Color       string  `json:"color"`
	Radius      int     `json:"radius"`
	FillOpacity float64 `json:"fill_opacity"`
	Tooltip     string  `json:"tooltip"`
	Popup       string  `json:"popup"`
}

// SearchCircle outlines the area of a nearby search.
type SearchCircle struct {
	Center       LatLon `json:"center"`
	RadiusMeters int    `json:"radius_meters"`
	Tooltip      string `json:"tooltip"`
	Popup        string `json:"popup"`
}

// MapView is everything a front end needs to draw the substation map.
type MapView struct {
	Center        LatLon             `json:"center"`
	Zoom          int                `json:"zoom"`
	Markers       []Marker           `json:"markers"`
	Legend        *colorscale.Legend `json:"legend,omitempty"`
	Areas         []string           `json:"areas,omitempty"`
	SkippedAreas  []string           `json:"skipped_areas,omitempty"`
	ESACount      int                `json:"esa_count"`
	GridReference string             `json:"grid_reference,omitempty"`
	SearchCircle  *SearchCircle      `json:"search_circle,omitempty"`
	Clicked       *LatLon            `json:"clicked,omitempty"`
}

// SubstationMap builds the overview map of the given license areas, or of
// every area when none are given. Markers are colored by license area when
// more than one area is shown and by feeder count otherwise.
func (s *Service) SubstationMap(ctx context.Context, areas []string, limit int) (*MapView, error) {
	fetched, err := s.fetchAreas(ctx, areas, limit)
	if err != nil {
		return nil, err
	}

	locations := substation.Aggregate(fetched.Rows)
	lo, hi := substation.FeederRange(locations)
	mode := colorscale.NewMode(substation.LicenseAreas(locations), lo, hi, len(fetched.Areas) > 1)

	view := &MapView{
		Center:       LatLon{Lat: s.opts.CenterLat, Lon: s.opts.CenterLon},
		Zoom:         s.opts.Zoom,
		Markers:      markers(locations, mode),
		Areas:        fetched.Areas,
		SkippedAreas: fetched.Skipped,
		ESACount:     len(fetched.Rows),
	}
	if len(locations) > 0 {
		legend := colorscale.LegendFor(mode)
		view.Legend = &legend
	}
	return view, nil
}

// NearbyMap builds a map of the substations within radius meters of a clicked
// point, zoomed so the search circle fills the viewport. A point outside the
// National Grid fails with osgrid.ErrOutsideGrid.
func (s *Service) NearbyMap(ctx context.Context, lat, lon float64, radius int) (*MapView, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %d", radius)
	}
	gridRef, err := osgrid.GridReference(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("locating %.6f,%.6f: %w", lat, lon, err)
	}

	rows, err := s.esaMetadataNear(ctx, gridRef, radius)
	if err != nil {
		return nil, err
	}

	locations := substation.Aggregate(rows)
	lo, hi := substation.FeederRange(locations)
	mode := colorscale.NewMode(nil, lo, hi, false)
	click := LatLon{Lat: lat, Lon: lon}

	view := &MapView{
		Center:        click,
		Zoom:          colorscale.ZoomForRadiusAt(float64(radius), s.opts.ViewportHeightPx, s.opts.ReferenceLatitude),
		Markers:       markers(locations, mode),
		ESACount:      len(rows),
		GridReference: gridRef,
		SearchCircle: &SearchCircle{
			Center:       click,
			RadiusMeters: radius,
			Tooltip:      fmt.Sprintf("Search area (%dm radius)", radius),
			Popup:        fmt.Sprintf("Search radius: %dm", radius),
		},
		Clicked: &click,
	}
	if len(locations) > 0 {
		legend := colorscale.LegendFor(mode)
		view.Legend = &legend
	}
	return view, nil
}

func markers(locations []substation.Location, mode colorscale.Mode) []Marker {
	out := make([]Marker, 0, len(locations))
	for _, l := range locations {
		if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) {
			continue
		}
		out = append(out, Marker{
			Location:    l,
			Color:       colorscale.Color(mode, l.LicenseAreaName, l.NumberOfFeeders),
			Radius:      markerRadius,
			FillOpacity: markerFillOpacity,
			Tooltip:     l.SecondarySubstationName,
			Popup:       popup(l),
		})
	}
	return out
}

func popup(l substation.Location) string {
	return fmt.Sprintf("<b>%s</b><br>Secondary Substation ID: %s<br>DNO: %s<br>License Area: %s<br>Number of Feeders: %d",
		html.EscapeString(l.SecondarySubstationName),
		html.EscapeString(l.SecondarySubstationID),
		html.EscapeString(l.DNOName),
		html.EscapeString(l.LicenseAreaName),
		l.NumberOfFeeders)
}

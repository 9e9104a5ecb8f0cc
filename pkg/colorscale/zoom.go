package colorscale

import "math"

const (
	// ReferenceLatitude is where map scale is evaluated, the middle of the UK.
	ReferenceLatitude = 54.0

	// DefaultViewportHeight is the map height in pixels.
	DefaultViewportHeight = 600

	MinZoom = 1
	MaxZoom = 18

	// equatorMetersPerPixel is the Web Mercator ground resolution at zoom 0.
	equatorMetersPerPixel = 156543.03392

	// fillFraction is the share of the viewport the search circle should span.
	fillFraction = 0.7
)

// ZoomForRadius picks the map zoom at which a circle of the given radius fills
// about 70% of the viewport height, evaluated at ReferenceLatitude.
func ZoomForRadius(radiusMeters float64, viewportHeightPx int) int {
	return ZoomForRadiusAt(radiusMeters, viewportHeightPx, ReferenceLatitude)
}

// ZoomForRadiusAt is ZoomForRadius with an explicit reference latitude in degrees.
func ZoomForRadiusAt(radiusMeters float64, viewportHeightPx int, refLatDeg float64) int {
	if viewportHeightPx <= 0 {
		viewportHeightPx = DefaultViewportHeight
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 {
		return MaxZoom
	}

	target := radiusMeters * 2 / fillFraction
	metersPerPixel := target / float64(viewportHeightPx)
	zoom := math.Log2(equatorMetersPerPixel * math.Cos(refLatDeg*math.Pi/180) / metersPerPixel)

	zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))
	return int(zoom)
}

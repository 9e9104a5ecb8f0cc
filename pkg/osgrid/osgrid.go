// Package osgrid converts between British National Grid (EPSG:27700) eastings and
// northings and WGS84 (EPSG:4326) latitude/longitude, and derives Ordnance Survey
// grid references. The projection is the National Grid transverse Mercator on the
// Airy 1830 ellipsoid; the OSGB36 to WGS84 datum shift is the 7-parameter Helmert
// transformation (EPSG:1314), which is what reference transform libraries fall
// back to when the OSTN15 grid is not installed.
//
// All functions are pure and safe for concurrent use.
package osgrid

import (
	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/unit"
)

var (
	// Airy1830 is the OSGB36 ellipsoid.
	Airy1830 = globe.Ellipsoid{Er: 6377563.396, Fl: 1 - 6356256.909/6377563.396}

	// WGS84 is the GPS ellipsoid.
	WGS84 = globe.Ellipsoid{Er: 6378137.0, Fl: 1 / 298.257223563}
)

// National Grid projection constants
const (
	scaleFactor   = 0.9996012717 // F0, scale factor on the central meridian
	falseEasting  = 400000.0     // E0
	falseNorthing = -100000.0    // N0
	originLatDeg  = 49.0         // φ0
	originLonDeg  = -2.0         // λ0
)

// ToLatLon projects National Grid eastings/northings (meters) to WGS84
// latitude/longitude in degrees.
func ToLatLon(eastings, northings float64) (lat, lon float64) {
	φ, λ := inverseTM(eastings, northings)
	x, y, z := toCartesian(φ, λ, Airy1830)
	x, y, z = osgb36ToWGS84.apply(x, y, z)
	φ, λ = fromCartesian(x, y, z, WGS84)
	return φ.Deg(), λ.Deg()
}

// ToEastingsNorthings projects WGS84 latitude/longitude in degrees to National
// Grid eastings/northings in meters.
func ToEastingsNorthings(lat, lon float64) (eastings, northings float64) {
	x, y, z := toCartesian(unit.AngleFromDeg(lat), unit.AngleFromDeg(lon), WGS84)
	x, y, z = osgb36ToWGS84.inverse().apply(x, y, z)
	φ, λ := fromCartesian(x, y, z, Airy1830)
	return forwardTM(φ, λ)
}

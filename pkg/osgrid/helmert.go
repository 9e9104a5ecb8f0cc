package osgrid

import (
	"math"

	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/unit"
)

// helmert is a position-vector 7-parameter similarity transformation.
type helmert struct {
	tx, ty, tz float64    // translation, meters
	rx, ry, rz unit.Angle // rotation
	s          float64    // scale, ppm
}

// osgb36ToWGS84 is EPSG:1314 (OSGB36 to WGS 84 (6)).
var osgb36ToWGS84 = helmert{
	tx: 446.448, ty: -125.157, tz: 542.06,
	rx: unit.AngleFromSec(0.15), ry: unit.AngleFromSec(0.247), rz: unit.AngleFromSec(0.842),
	s: -20.489,
}

// inverse returns the approximate reverse transformation (negated parameters),
// good to a few millimeters over Great Britain.
func (h helmert) inverse() helmert {
	return helmert{tx: -h.tx, ty: -h.ty, tz: -h.tz, rx: -h.rx, ry: -h.ry, rz: -h.rz, s: -h.s}
}

func (h helmert) apply(x, y, z float64) (float64, float64, float64) {
	s1 := 1 + h.s*1e-6
	rx, ry, rz := h.rx.Rad(), h.ry.Rad(), h.rz.Rad()
	x2 := h.tx + s1*x - rz*y + ry*z
	y2 := h.ty + rz*x + s1*y - rx*z
	z2 := h.tz - ry*x + rx*y + s1*z
	return x2, y2, z2
}

// toCartesian converts geodetic coordinates at zero ellipsoidal height to
// earth-centred cartesian coordinates.
func toCartesian(φa, λa unit.Angle, el globe.Ellipsoid) (x, y, z float64) {
	φ, λ := φa.Rad(), λa.Rad()
	e := el.Eccentricity()
	e2 := e * e
	sinφ := math.Sin(φ)
	ν := el.A() / math.Sqrt(1-e2*sinφ*sinφ)
	x = ν * math.Cos(φ) * math.Cos(λ)
	y = ν * math.Cos(φ) * math.Sin(λ)
	z = (1 - e2) * ν * sinφ
	return x, y, z
}

// fromCartesian converts cartesian coordinates back to geodetic latitude and
// longitude on el, discarding height.
func fromCartesian(x, y, z float64, el globe.Ellipsoid) (φ, λ unit.Angle) {
	e := el.Eccentricity()
	e2 := e * e
	p := math.Hypot(x, y)

	lat := math.Atan2(z, p*(1-e2))
	for i := 0; i < 20; i++ {
		sinφ := math.Sin(lat)
		ν := el.A() / math.Sqrt(1-e2*sinφ*sinφ)
		next := math.Atan2(z+e2*ν*sinφ, p)
		if math.Abs(next-lat) < 1e-13 {
			lat = next
			break
		}
		lat = next
	}
	return unit.Angle(lat), unit.Angle(math.Atan2(y, x))
}

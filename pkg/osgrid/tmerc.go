package osgrid

import (
	"math"

	"github.com/soniakeys/unit"
)

// meridionalArc returns the developed arc of meridian from the true origin to
// latitude φ, scaled by F0.
func meridionalArc(φ float64) float64 {
	a, b := Airy1830.A(), Airy1830.B()
	n := (a - b) / (a + b)
	n2, n3 := n*n, n*n*n
	φ0 := unit.AngleFromDeg(originLatDeg).Rad()
	dφ, sφ := φ-φ0, φ+φ0

	ma := (1 + n + 1.25*n2 + 1.25*n3) * dφ
	mb := (3*n + 3*n2 + 21.0/8*n3) * math.Sin(dφ) * math.Cos(sφ)
	mc := (15.0/8*n2 + 15.0/8*n3) * math.Sin(2*dφ) * math.Cos(2*sφ)
	md := 35.0 / 24 * n3 * math.Sin(3*dφ) * math.Cos(3*sφ)
	return b * scaleFactor * (ma - mb + mc - md)
}

// radii returns the transverse (ν) and meridional (ρ) radii of curvature at φ,
// both scaled by F0, and η² = ν/ρ − 1.
func radii(φ float64) (ν, ρ, η2 float64) {
	a := Airy1830.A()
	e := Airy1830.Eccentricity()
	e2 := e * e
	s := math.Sin(φ)
	d := 1 - e2*s*s
	ν = a * scaleFactor / math.Sqrt(d)
	ρ = a * scaleFactor * (1 - e2) / math.Pow(d, 1.5)
	return ν, ρ, ν/ρ - 1
}

// forwardTM projects OSGB36 geodetic coordinates to eastings/northings.
func forwardTM(φa, λa unit.Angle) (e, n float64) {
	φ, λ := φa.Rad(), λa.Rad()
	λ0 := unit.AngleFromDeg(originLonDeg).Rad()

	ν, ρ, η2 := radii(φ)
	sinφ, cosφ, tanφ := math.Sin(φ), math.Cos(φ), math.Tan(φ)
	cos3, cos5 := cosφ*cosφ*cosφ, math.Pow(cosφ, 5)
	tan2 := tanφ * tanφ
	tan4 := tan2 * tan2

	i := meridionalArc(φ) + falseNorthing
	ii := ν / 2 * sinφ * cosφ
	iii := ν / 24 * sinφ * cos3 * (5 - tan2 + 9*η2)
	iiia := ν / 720 * sinφ * cos5 * (61 - 58*tan2 + tan4)
	iv := ν * cosφ
	v := ν / 6 * cos3 * (ν/ρ - tan2)
	vi := ν / 120 * cos5 * (5 - 18*tan2 + tan4 + 14*η2 - 58*tan2*η2)

	dλ := λ - λ0
	dλ2 := dλ * dλ
	n = i + ii*dλ2 + iii*dλ2*dλ2 + iiia*dλ2*dλ2*dλ2
	e = falseEasting + iv*dλ + v*dλ2*dλ + vi*dλ2*dλ2*dλ
	return e, n
}

// inverseTM unprojects eastings/northings to OSGB36 geodetic coordinates.
func inverseTM(e, n float64) (φ, λ unit.Angle) {
	a := Airy1830.A()
	φ0 := unit.AngleFromDeg(originLatDeg).Rad()
	λ0 := unit.AngleFromDeg(originLonDeg).Rad()

	// iterate latitude until the meridional arc matches the northing to 0.01 mm
	φp := (n-falseNorthing)/(a*scaleFactor) + φ0
	m := meridionalArc(φp)
	for i := 0; i < 100 && math.Abs(n-falseNorthing-m) >= 1e-5; i++ {
		φp += (n - falseNorthing - m) / (a * scaleFactor)
		m = meridionalArc(φp)
	}

	ν, ρ, η2 := radii(φp)
	tanφ := math.Tan(φp)
	secφ := 1 / math.Cos(φp)
	tan2 := tanφ * tanφ
	tan4 := tan2 * tan2
	tan6 := tan4 * tan2
	ν3, ν5 := ν*ν*ν, math.Pow(ν, 5)
	ν7 := ν5 * ν * ν

	vii := tanφ / (2 * ρ * ν)
	viii := tanφ / (24 * ρ * ν3) * (5 + 3*tan2 + η2 - 9*tan2*η2)
	ix := tanφ / (720 * ρ * ν5) * (61 + 90*tan2 + 45*tan4)
	x := secφ / ν
	xi := secφ / (6 * ν3) * (ν/ρ + 2*tan2)
	xii := secφ / (120 * ν5) * (5 + 28*tan2 + 24*tan4)
	xiia := secφ / (5040 * ν7) * (61 + 662*tan2 + 1320*tan4 + 720*tan6)

	de := e - falseEasting
	de2 := de * de
	lat := φp - vii*de2 + viii*de2*de2 - ix*de2*de2*de2
	lon := λ0 + x*de - xi*de2*de + xii*de2*de2*de - xiia*de2*de2*de2*de
	return unit.Angle(lat), unit.Angle(lon)
}

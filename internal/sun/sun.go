// Package sun provides a low-precision solar ephemeris suitable for
// satellite illumination checks.
package sun

import (
	"math"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

// Ephemeris is the Astronomical Almanac low-precision solar series.
// Accuracy is ~0.01 degrees, far below the Sun's own semi-diameter, so
// parallax (~9 arcsec) is ignored and geocentric and topocentric directions
// are treated as equal.
type Ephemeris struct{}

// ApparentEquatorial returns the Sun's apparent equatorial rectangular
// position of date, in AU.
func (Ephemeris) ApparentEquatorial(t astrotime.Instant) vecmath.Vector3 {
	lon, r, eps := Apparent(t)
	return vecmath.New3(
		r*math.Cos(lon),
		r*math.Sin(lon)*math.Cos(eps),
		r*math.Sin(lon)*math.Sin(eps),
	)
}

// Apparent returns the Sun's apparent ecliptic longitude (radians), its
// distance (AU) and the true obliquity of the ecliptic (radians).
func Apparent(t astrotime.Instant) (lon, distAU, obliquity float64) {
	T := (t.JD() - astrotime.J2000) / 36525.0

	// Mean longitude and mean anomaly (degrees).
	L0 := normalizeDeg(280.46646 + 36000.76983*T + 0.0003032*T*T)
	M := normalizeDeg(357.52911 + 35999.05029*T - 0.0001537*T*T)
	Mrad := degToRad(M)

	e := 0.016708634 - 0.000042037*T - 0.0000001267*T*T

	// Equation of centre.
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(Mrad) +
		(0.019993-0.000101*T)*math.Sin(2*Mrad) +
		0.000289*math.Sin(3*Mrad)

	trueLon := L0 + C
	v := degToRad(M + C)
	distAU = 1.000001018 * (1 - e*e) / (1 + e*math.Cos(v))

	// Nutation and aberration.
	omega := degToRad(125.04 - 1934.136*T)
	lon = degToRad(trueLon - 0.00569 - 0.00478*math.Sin(omega))

	eps0 := 23.439291 - 0.0130042*T - 0.00000016*T*T + 0.000000504*T*T*T
	obliquity = degToRad(eps0 + 0.00256*math.Cos(omega))

	return lon, distAU, obliquity
}

// RADec returns apparent right ascension and declination in degrees.
func RADec(t astrotime.Instant) (raDeg, decDeg float64) {
	lon, _, eps := Apparent(t)
	ra := math.Atan2(math.Cos(eps)*math.Sin(lon), math.Cos(lon))
	dec := math.Asin(math.Sin(eps) * math.Sin(lon))
	return normalizeDeg(radToDeg(ra)), radToDeg(dec)
}

func normalizeDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

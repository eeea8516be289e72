package astrotime

import "math"

const (
	// TwoPi is a full revolution in radians.
	TwoPi = 2 * math.Pi

	// SiderealRate is Earth rotations per solar day.
	SiderealRate = 1.00273790935
)

// WrapTwoPi wraps x into [0, 2π). Negative inputs are handled.
func WrapTwoPi(x float64) float64 {
	x = math.Mod(x, TwoPi)
	if x < 0 {
		x += TwoPi
	}
	// math.Mod of a tiny negative value can yield exactly 2π after the add.
	if x >= TwoPi {
		x -= TwoPi
	}
	return x
}

// GMST returns the Greenwich Mean Sidereal Time angle of t in radians, in
// [0, 2π). Reference: The 1992 Astronomical Almanac, page B6.
func GMST(t Instant) float64 {
	// UT fraction since the preceding 0h; the instant is split so the
	// polynomial is evaluated at midnight.
	ut := t.frac + 0.5
	midnight := t.day
	if ut >= 1 {
		ut--
	} else {
		midnight--
	}
	midnight += 0.5

	tu := (midnight - J2000) / 36525.0
	gmst := 24110.54841 + tu*(8640184.812866+tu*(0.093104-tu*6.2e-6))
	gmst = math.Mod(gmst+SecondsPerDay*SiderealRate*ut, SecondsPerDay)
	if gmst < 0 {
		gmst += SecondsPerDay
	}
	return WrapTwoPi(TwoPi * gmst / SecondsPerDay)
}

// LMST returns the Local Mean Sidereal Time in radians for an east-positive
// longitude in radians, wrapped to [0, 2π).
func LMST(t Instant, longitudeRad float64) float64 {
	return WrapTwoPi(GMST(t) + longitudeRad)
}

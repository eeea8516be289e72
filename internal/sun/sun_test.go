package sun

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
)

// Meeus, Astronomical Algorithms, example 25.a: 1992 October 13.0 TD.
func TestMeeusExample(t *testing.T) {
	at := astrotime.FromJulian(2448908.5)

	ra, dec := RADec(at)
	assert.InDelta(t, 198.38083, ra, 0.01)
	assert.InDelta(t, -7.78507, dec, 0.01)

	_, r, _ := Apparent(at)
	assert.InDelta(t, 0.99766, r, 1e-4)
}

func TestSolsticeDeclination(t *testing.T) {
	_, dec := RADec(astrotime.FromCalendar(2024, 6, 20, 20, 51, 0))
	assert.InDelta(t, 23.44, dec, 0.02)

	_, dec = RADec(astrotime.FromCalendar(2024, 12, 21, 9, 21, 0))
	assert.InDelta(t, -23.44, dec, 0.02)
}

func TestApparentEquatorialMagnitude(t *testing.T) {
	eph := Ephemeris{}
	for _, jd := range []float64{2451545.0, 2455000.25, 2460141.3839699654} {
		at := astrotime.FromJulian(jd)
		v := eph.ApparentEquatorial(at)
		_, r, _ := Apparent(at)

		assert.InDelta(t, r, v.Magnitude(), 1e-12)
		assert.InDelta(t, 1.0, v.Magnitude(), 0.02)

		ra, dec := RADec(at)
		assert.InDelta(t, dec, math.Asin(v.Z/v.Magnitude())*180/math.Pi, 1e-9)
		gotRA := normalizeDeg(math.Atan2(v.Y, v.X) * 180 / math.Pi)
		assert.InDelta(t, ra, gotRA, 1e-9)
	}
}

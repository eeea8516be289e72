package transform

import (
	"errors"
	"math"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

// MinRangeKm is the smallest slant range for which look angles are defined.
const MinRangeKm = 1e-9

// ErrDegenerateRange is returned when the target coincides with the observer.
var ErrDegenerateRange = errors.New("slant range is zero")

// Observer supplies the shared observer geometry for one instant.
// *observer.Context implements it.
type Observer interface {
	InertialPosVel(t astrotime.Instant) (pos, vel vecmath.Vector3)
	Theta(t astrotime.Instant) float64
	LatitudeRad() float64
}

// View holds the look angles from observer to target.
type View struct {
	SEZ       vecmath.Vector3 // south, east, zenith components (km)
	Azimuth   float64         // radians, 0 = north, clockwise
	Elevation float64         // radians
	RangeKm   float64
	RangeRate float64 // km/s, positive when receding
}

// AzimuthDeg returns the azimuth in degrees.
func (v View) AzimuthDeg() float64 { return v.Azimuth * 180 / math.Pi }

// ElevationDeg returns the elevation in degrees.
func (v View) ElevationDeg() float64 { return v.Elevation * 180 / math.Pi }

// AboveHorizon reports whether the zenith component is positive.
func (v View) AboveHorizon() bool { return v.SEZ.Z > 0 }

// SEZ rotates an inertial slant vector into the observer's
// south-east-zenith frame.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", 4.4.
func SEZ(slant vecmath.Vector3, latRad, theta float64) vecmath.Vector3 {
	sinLat, cosLat := math.Sincos(latRad)
	sinT, cosT := math.Sincos(theta)

	return vecmath.New3(
		sinLat*cosT*slant.X+sinLat*sinT*slant.Y-cosLat*slant.Z,
		-sinT*slant.X+cosT*slant.Y,
		cosLat*cosT*slant.X+cosLat*sinT*slant.Y+sinLat*slant.Z,
	)
}

// Azimuth converts SEZ south and east components to an azimuth in [0, 2π)
// measured clockwise from north.
func Azimuth(south, east float64) float64 {
	if south == 0 {
		switch {
		case east > 0:
			return math.Pi / 2
		case east < 0:
			return 3 * math.Pi / 2
		}
		return 0
	}
	az := math.Atan(-east / south)
	if south > 0 {
		az += math.Pi
	}
	if az < 0 {
		az += astrotime.TwoPi
	}
	return az
}

// Topocentric computes the view of a target at satPos/satVel (TEME, km and
// km/s) from the observer at t.
func Topocentric(obs Observer, satPos, satVel vecmath.Vector3, t astrotime.Instant) (View, error) {
	obsPos, obsVel := obs.InertialPosVel(t)
	slant := satPos.Sub(obsPos)

	rng := slant.Magnitude()
	if !(rng >= MinRangeKm) {
		return View{}, ErrDegenerateRange
	}

	sez := SEZ(slant, obs.LatitudeRad(), obs.Theta(t))

	return View{
		SEZ:       sez,
		Azimuth:   Azimuth(sez.X, sez.Y),
		Elevation: math.Asin(clamp(sez.Z / rng)),
		RangeKm:   rng,
		RangeRate: slant.Dot(satVel.Sub(obsVel)) / rng,
	}, nil
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

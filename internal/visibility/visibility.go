// Package visibility classifies a satellite's illumination as seen by an
// observer using solid-angle eclipse geometry.
package visibility

import (
	"math"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/transform"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

const (
	EarthRadiusKm = 6378.135
	SunRadiusKm   = 696000.0
)

// State is the illumination class of a satellite at one instant.
type State int

const (
	BelowHorizon State = iota
	// RadarSun: observer and satellite are both in daylight.
	RadarSun
	// Visible: satellite sunlit, observer in darkness.
	Visible
	// RadarNight: satellite in the Earth's umbra.
	RadarNight
	Penumbral
	// Annular: satellite in the antumbra, the Sun's disk overfilling the Earth's.
	Annular
)

var stateNames = [...]string{
	BelowHorizon: "below-horizon",
	RadarSun:     "radar-sun",
	Visible:      "visible",
	RadarNight:   "radar-night",
	Penumbral:    "penumbral",
	Annular:      "annular",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Observer is the shared geometry the classifier needs. *observer.Context
// implements it.
type Observer interface {
	transform.Observer
	SunInertial(t astrotime.Instant) vecmath.Vector3
}

// Classify evaluates the satellite at satPos (TEME, km) for the observer at t.
// No state is carried between calls.
func Classify(obs Observer, satPos vecmath.Vector3, t astrotime.Instant) State {
	obsPos, _ := obs.InertialPosVel(t)
	lat, theta := obs.LatitudeRad(), obs.Theta(t)

	if transform.SEZ(satPos.Sub(obsPos), lat, theta).Z <= 0 {
		return BelowHorizon
	}

	sunECI := obs.SunInertial(t)
	if transform.SEZ(sunECI.Sub(obsPos), lat, theta).Z > 0 {
		return RadarSun
	}

	return Eclipse(satPos, sunECI)
}

// Eclipse classifies a satellite against the Earth's shadow given the
// satellite and Sun positions in the same inertial frame.
func Eclipse(satECI, sunECI vecmath.Vector3) State {
	psun := satECI.Sub(sunECI).Magnitude()
	pearth := satECI.Magnitude()

	thetaE := math.Asin(clamp(EarthRadiusKm / 2 / pearth))
	thetaS := math.Asin(clamp(SunRadiusKm / 2 / psun))
	theta := math.Acos(clamp(math.Abs(satECI.Dot(sunECI)) / (psun * pearth)))

	switch {
	case thetaE > thetaS && theta < thetaE-thetaS:
		return RadarNight
	case math.Abs(thetaE-thetaS) < theta && theta < thetaE+thetaS:
		return Penumbral
	case thetaS > thetaE && theta < thetaS-thetaE:
		return Annular
	}
	return Visible
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

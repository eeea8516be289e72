// Package transform provides coordinate frame transformations for satellite
// positions: TEME to the observer's topocentric SEZ frame for look angles,
// and TEME to ECEF for export.
//
// The ECEF rotation uses GMST only (TEME -> PEF ~ ECEF). This ignores polar
// motion and the equation of the equinoxes, which introduces ~50 m error at
// most.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"

	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

// OmegaEarth is the Earth's rotation rate in rad/s.
const OmegaEarth = 7.292115e-5

// PositionECEF represents a position and velocity in the ECEF frame.
type PositionECEF struct {
	X, Y, Z    float64 // meters
	VX, VY, VZ float64 // m/s
}

// TEMEToECEFWithGMST transforms a TEME position/velocity (km, km/s) to ECEF
// in meters and m/s, using a GMST angle (radians) from astrotime.GMST
// computed once per instant.
//
// Position transform: r_ECEF = R3(θ) * r_TEME
// Velocity transform: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
func TEMEToECEFWithGMST(pos, vel vecmath.Vector3, gmst float64) PositionECEF {
	sinG, cosG := math.Sincos(gmst)

	x := pos.X*cosG + pos.Y*sinG
	y := -pos.X*sinG + pos.Y*cosG
	z := pos.Z

	vx := vel.X*cosG + vel.Y*sinG + OmegaEarth*y
	vy := -vel.X*sinG + vel.Y*cosG - OmegaEarth*x
	vz := vel.Z

	return PositionECEF{
		X:  x * 1000.0,
		Y:  y * 1000.0,
		Z:  z * 1000.0,
		VX: vx * 1000.0,
		VY: vy * 1000.0,
		VZ: vz * 1000.0,
	}
}

// ValidateECEF checks that an ECEF position is physically reasonable for an
// Earth-orbiting satellite: finite, between 6200 km and 50000 km from the
// geocentre.
func ValidateECEF(pos PositionECEF) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)

	const minRadius = 6200.0 * 1000.0
	const maxRadius = 50000.0 * 1000.0

	return mag >= minRadius && mag <= maxRadius
}

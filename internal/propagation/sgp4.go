// Package propagation adapts an analytic SGP4/SDP4 implementation to the
// engine's kernel contract: element set plus minutes since epoch in, TEME
// position and velocity plus a numeric status code out.
package propagation

import (
	"fmt"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Propagate() takes Satellite by value and only accepts whole seconds, so
// SGP4 error codes set during propagation are not visible to the caller and
// sub-second instants cannot be requested directly. Failures are detected
// from the output; sub-second states come from cubic Hermite interpolation
// between the bracketing whole-second states.

// EarthRadiusKm is the WGS-72 equatorial radius used by the SGP4 model.
const EarthRadiusKm = 6378.135

// Kernel propagates one element set. Implementations must be pure: the same
// offset always yields the same state.
type Kernel interface {
	Propagate(minutesSinceEpoch float64) (pos, vel vecmath.Vector3, code ErrorCode)
}

// ErrorCode is a propagation status. Values 1-6 follow the SGP4 reference
// implementation's error numbering.
type ErrorCode int

const (
	CodeOK                    ErrorCode = 0
	CodeEccentricity          ErrorCode = 1 // mean eccentricity out of range or semi-major axis < 0.95 er
	CodeMeanMotion            ErrorCode = 2 // mean motion less than zero
	CodePerturbedEccentricity ErrorCode = 3 // perturbed eccentricity out of range
	CodeSemiLatusRectum       ErrorCode = 4 // semi-latus rectum < 0
	CodeSubOrbital            ErrorCode = 5 // epoch elements are sub-orbital
	CodeDecayed               ErrorCode = 6 // satellite has decayed
	CodeNonFinite             ErrorCode = 7 // NaN or Inf in the state vector
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeEccentricity:
		return "mean elements out of range"
	case CodeMeanMotion:
		return "negative mean motion"
	case CodePerturbedEccentricity:
		return "perturbed eccentricity out of range"
	case CodeSemiLatusRectum:
		return "negative semi-latus rectum"
	case CodeSubOrbital:
		return "sub-orbital epoch elements"
	case CodeDecayed:
		return "decayed"
	case CodeNonFinite:
		return "non-finite state"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// KernelError reports an element set the kernel refused to initialise.
type KernelError struct {
	NORADID int
	Code    ErrorCode
	Detail  string
}

func (e *KernelError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("sgp4 init failed for NORAD %d: %s (%s)", e.NORADID, e.Code, e.Detail)
	}
	return fmt.Sprintf("sgp4 init failed for NORAD %d: %s", e.NORADID, e.Code)
}

// Gravity selects the geopotential constants used by SGP4.
type Gravity int

const (
	GravityWGS72 Gravity = iota
	GravityWGS84
)

// ParseGravity maps "wgs72"/"wgs84" to a Gravity.
func ParseGravity(s string) (Gravity, error) {
	switch s {
	case "wgs72", "WGS72":
		return GravityWGS72, nil
	case "wgs84", "WGS84":
		return GravityWGS84, nil
	}
	return GravityWGS72, fmt.Errorf("unknown gravity model %q", s)
}

func (g Gravity) library() satellite.Gravity {
	if g == GravityWGS84 {
		return satellite.GravityWGS84
	}
	return satellite.GravityWGS72
}

// SGP4Propagator wraps the go-satellite library for a single element set.
type SGP4Propagator struct {
	sat      satellite.Satellite
	elements ElementSet
}

// NewSGP4Propagator initialises SGP4 for es. It returns a *KernelError if the
// model rejects the elements.
func NewSGP4Propagator(es ElementSet, gravity Gravity) (*SGP4Propagator, error) {
	// Shape was checked by NewElementSet; a zero ElementSet has empty lines.
	if err := validateTLELines(es.Line1, es.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", es.NORADID, err)
	}

	sat := satellite.TLEToSat(es.Line1, es.Line2, gravity.library())
	if sat.Error != 0 {
		return nil, &KernelError{NORADID: es.NORADID, Code: ErrorCode(sat.Error), Detail: sat.ErrorStr}
	}
	return &SGP4Propagator{sat: sat, elements: es}, nil
}

// Elements returns the element set the propagator was built from.
func (p *SGP4Propagator) Elements() ElementSet {
	return p.elements
}

// Propagate returns the TEME state minutesSinceEpoch after the element epoch.
func (p *SGP4Propagator) Propagate(minutesSinceEpoch float64) (vecmath.Vector3, vecmath.Vector3, ErrorCode) {
	target := p.elements.Epoch.Add(astrotime.Minutes(minutesSinceEpoch)).Time()
	t0 := target.Truncate(time.Second)
	frac := target.Sub(t0).Seconds()

	p0, v0 := p.at(t0)
	if frac == 0 {
		return p0, v0, checkState(p0, v0)
	}
	p1, v1 := p.at(t0.Add(time.Second))
	pos, vel := hermite(p0, v0, p1, v1, frac)
	return pos, vel, checkState(pos, vel)
}

func (p *SGP4Propagator) at(t time.Time) (vecmath.Vector3, vecmath.Vector3) {
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	return vecmath.New3(pos.X, pos.Y, pos.Z), vecmath.New3(vel.X, vel.Y, vel.Z)
}

// hermite interpolates position and velocity over a one-second interval at
// fraction s in [0, 1).
func hermite(p0, v0, p1, v1 vecmath.Vector3, s float64) (vecmath.Vector3, vecmath.Vector3) {
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	pos := p0.Scale(h00).Add(v0.Scale(h10)).Add(p1.Scale(h01)).Add(v1.Scale(h11))

	d00 := 6*s2 - 6*s
	d10 := 3*s2 - 4*s + 1
	d01 := -6*s2 + 6*s
	d11 := 3*s2 - 2*s
	vel := p0.Scale(d00).Add(v0.Scale(d10)).Add(p1.Scale(d01)).Add(v1.Scale(d11))

	return pos, vel
}

func checkState(pos, vel vecmath.Vector3) ErrorCode {
	if !pos.IsFinite() || !vel.IsFinite() {
		return CodeNonFinite
	}
	if pos.Magnitude() < EarthRadiusKm {
		return CodeDecayed
	}
	return CodeOK
}

// Package observer holds the per-frame observer geometry shared by every
// satellite in a scene: the observer's inertial (TEME) position and velocity
// and the Sun's inertial position, each cached against the instant it was
// computed for.
package observer

import (
	"errors"
	"fmt"
	"math"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/metrics"
	"github.com/Stellarium/stellarium-sub033/internal/sun"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

const (
	// EarthRadiusKm and Flattening describe the WGS-72 ellipsoid.
	EarthRadiusKm = 6378.135
	Flattening    = 3.35281066474748e-3

	// EarthRotationRad is the Earth's rotation rate in rad/s.
	EarthRotationRad = 7.292115e-5

	// AUKm is the astronomical unit in kilometres.
	AUKm = 149597870.691
)

// ErrInvalidLocation is returned for latitudes outside [-90, 90] or
// non-finite coordinates.
var ErrInvalidLocation = errors.New("invalid observer location")

// Location is a geodetic observer position.
type Location struct {
	LatitudeDeg  float64 // north positive
	LongitudeDeg float64 // east positive
	AltitudeM    float64
}

// Validate reports whether the location is usable.
func (l Location) Validate() error {
	for _, v := range []float64{l.LatitudeDeg, l.LongitudeDeg, l.AltitudeM} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidLocation)
		}
	}
	if l.LatitudeDeg < -90 || l.LatitudeDeg > 90 {
		return fmt.Errorf("%w: latitude %.4f out of range", ErrInvalidLocation, l.LatitudeDeg)
	}
	return nil
}

// SunEphemeris yields the Sun's apparent equatorial rectangular position
// relative to the observer, in AU.
type SunEphemeris interface {
	ApparentEquatorial(t astrotime.Instant) vecmath.Vector3
}

// Stats counts how often each cache was recomputed or reused.
type Stats struct {
	ObserverComputes int
	ObserverHits     int
	SunComputes      int
	SunHits          int
}

// Context is the shared observer state for one scene. It is not safe for
// concurrent use.
type Context struct {
	loc    Location
	latRad float64
	lonRad float64
	altKm  float64
	sun    SunEphemeris

	obsValid bool
	obsEpoch astrotime.Instant
	theta    float64
	obsPos   vecmath.Vector3
	obsVel   vecmath.Vector3

	sunValid bool
	sunEpoch astrotime.Instant
	sunPos   vecmath.Vector3
	sunRel   vecmath.Vector3

	stats Stats
}

// Option configures a Context.
type Option func(*Context)

// WithSunEphemeris replaces the default low-precision solar ephemeris.
func WithSunEphemeris(e SunEphemeris) Option {
	return func(c *Context) { c.sun = e }
}

// NewContext creates a context for the given location.
func NewContext(loc Location, opts ...Option) (*Context, error) {
	c := &Context{sun: sun.Ephemeris{}}
	for _, o := range opts {
		o(c)
	}
	if err := c.SetLocation(loc); err != nil {
		return nil, err
	}
	return c, nil
}

// SetLocation moves the observer and invalidates both caches.
func (c *Context) SetLocation(loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	c.loc = loc
	c.latRad = loc.LatitudeDeg * math.Pi / 180
	c.lonRad = loc.LongitudeDeg * math.Pi / 180
	c.altKm = loc.AltitudeM / 1000
	c.obsValid = false
	c.sunValid = false
	return nil
}

// Location returns the observer location.
func (c *Context) Location() Location { return c.loc }

// LatitudeRad returns the geodetic latitude in radians.
func (c *Context) LatitudeRad() float64 { return c.latRad }

// Stats returns cache counters since creation.
func (c *Context) Stats() Stats { return c.stats }

// InertialPosVel returns the observer's TEME position (km) and velocity
// (km/s) at t. Repeated calls for the same instant reuse the cached result.
func (c *Context) InertialPosVel(t astrotime.Instant) (vecmath.Vector3, vecmath.Vector3) {
	if c.obsValid && c.obsEpoch.Equal(t) {
		c.stats.ObserverHits++
		metrics.RecordCacheLookup("observer", true)
		return c.obsPos, c.obsVel
	}
	c.stats.ObserverComputes++
	metrics.RecordCacheLookup("observer", false)

	theta := astrotime.LMST(t, c.lonRad)
	sinLat := math.Sin(c.latRad)
	cosLat := math.Cos(c.latRad)

	cc := 1 / math.Sqrt(1+Flattening*(Flattening-2)*sinLat*sinLat)
	sq := (1 - Flattening) * (1 - Flattening) * cc
	achcp := (EarthRadiusKm*cc + c.altKm) * cosLat

	c.theta = theta
	c.obsPos = vecmath.New3(
		achcp*math.Cos(theta),
		achcp*math.Sin(theta),
		(EarthRadiusKm*sq+c.altKm)*sinLat,
	)
	c.obsVel = vecmath.New3(
		-EarthRotationRad*c.obsPos.Y,
		EarthRotationRad*c.obsPos.X,
		0,
	)
	c.obsEpoch = t
	c.obsValid = true
	return c.obsPos, c.obsVel
}

// Theta returns the local sidereal angle (radians) at t.
func (c *Context) Theta(t astrotime.Instant) float64 {
	c.InertialPosVel(t)
	return c.theta
}

// SunInertial returns the Sun's geocentric TEME position in km at t. The
// Sun cache is stamped separately from the observer cache.
func (c *Context) SunInertial(t astrotime.Instant) vecmath.Vector3 {
	if c.sunValid && c.sunEpoch.Equal(t) {
		c.stats.SunHits++
		metrics.RecordCacheLookup("sun", true)
		return c.sunPos
	}
	c.stats.SunComputes++
	metrics.RecordCacheLookup("sun", false)

	obsPos, _ := c.InertialPosVel(t)
	c.sunRel = c.sun.ApparentEquatorial(t).Scale(AUKm)
	c.sunPos = c.sunRel.Add(obsPos)
	c.sunEpoch = t
	c.sunValid = true
	return c.sunPos
}

// SunRelative returns the observer-to-Sun vector in km at t.
func (c *Context) SunRelative(t astrotime.Instant) vecmath.Vector3 {
	c.SunInertial(t)
	return c.sunRel
}

// Package satellite holds the per-satellite orbital state: one propagated
// element set, its last-applied epoch, and the TEME state and geodetic
// subpoint derived for that epoch.
//
// A Track always re-propagates on SetEpoch. Skipping redundant calls is the
// caller's job (see package scene).
package satellite

import (
	"errors"
	"fmt"
	"math"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/propagation"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

// WGS-72 ellipsoid, as used by the SGP4 model.
const (
	EarthRadiusKm = propagation.EarthRadiusKm
	Flattening    = 3.35281066474748e-3 // 1/298.26

	geodeticTolerance = 1e-10 // radians
	maxGeodeticIter   = 10
)

// ErrNotPropagated is returned by Err before the kernel has produced a state.
var ErrNotPropagated = errors.New("satellite: no propagated state")

// Subpoint is the geodetic point directly beneath the satellite.
type Subpoint struct {
	LatitudeDeg  float64
	LongitudeDeg float64 // [-180, 180]
	AltitudeKm   float64
}

// Track owns one propagated satellite.
type Track struct {
	elements propagation.ElementSet
	kernel   propagation.Kernel

	epoch    astrotime.Instant
	position vecmath.Vector3 // km, TEME
	velocity vecmath.Vector3 // km/s, TEME
	subpoint Subpoint
	status   propagation.ErrorCode
	valid    bool
}

// Option configures a Track.
type Option func(*config)

type config struct {
	gravity propagation.Gravity
	kernel  func(propagation.ElementSet) (propagation.Kernel, error)
}

// WithGravity selects the SGP4 geopotential model (default WGS-72).
func WithGravity(g propagation.Gravity) Option {
	return func(c *config) { c.gravity = g }
}

// WithKernel replaces the SGP4 kernel, mainly for tests.
func WithKernel(k propagation.Kernel) Option {
	return func(c *config) {
		c.kernel = func(propagation.ElementSet) (propagation.Kernel, error) { return k, nil }
	}
}

// New builds a Track from a named two-line element set and propagates it to
// the element epoch.
func New(name, line1, line2 string, opts ...Option) (*Track, error) {
	es, err := propagation.NewElementSet(name, line1, line2)
	if err != nil {
		return nil, err
	}
	return FromElements(es, opts...)
}

// FromElements builds a Track from an already-validated element set.
func FromElements(es propagation.ElementSet, opts ...Option) (*Track, error) {
	cfg := config{gravity: propagation.GravityWGS72}
	for _, o := range opts {
		o(&cfg)
	}

	var kernel propagation.Kernel
	if cfg.kernel != nil {
		k, err := cfg.kernel(es)
		if err != nil {
			return nil, err
		}
		kernel = k
	} else {
		k, err := propagation.NewSGP4Propagator(es, cfg.gravity)
		if err != nil {
			return nil, err
		}
		kernel = k
	}

	t := &Track{elements: es, kernel: kernel}
	t.SetEpoch(es.Epoch)
	return t, nil
}

// SetEpoch propagates to instant and recomputes the subpoint. On a kernel
// failure the previous state is kept and Status reports the code.
func (t *Track) SetEpoch(instant astrotime.Instant) {
	minutes := instant.Since(t.elements.Epoch).Minutes()
	pos, vel, code := t.kernel.Propagate(minutes)

	t.epoch = instant
	t.status = code
	if code != propagation.CodeOK {
		return
	}

	t.position = pos
	t.velocity = vel
	t.subpoint, _ = Geodetic(pos, instant)
	t.valid = true
}

// StateAt propagates to instant without touching the track's current state.
func (t *Track) StateAt(instant astrotime.Instant) (vecmath.Vector3, vecmath.Vector3, propagation.ErrorCode) {
	return t.kernel.Propagate(instant.Since(t.elements.Epoch).Minutes())
}

// Name returns the satellite name from the element set.
func (t *Track) Name() string { return t.elements.Name }

// NORADID returns the catalogue number.
func (t *Track) NORADID() int { return t.elements.NORADID }

// Elements returns the element set.
func (t *Track) Elements() propagation.ElementSet { return t.elements }

// Epoch returns the instant of the last SetEpoch call.
func (t *Track) Epoch() astrotime.Instant { return t.epoch }

// Position returns the TEME position in km.
func (t *Track) Position() vecmath.Vector3 { return t.position }

// Velocity returns the TEME velocity in km/s.
func (t *Track) Velocity() vecmath.Vector3 { return t.velocity }

// Subpoint returns the geodetic subpoint.
func (t *Track) Subpoint() Subpoint { return t.subpoint }

// Status returns the kernel code of the last SetEpoch call.
func (t *Track) Status() propagation.ErrorCode { return t.status }

// Current reports whether the cached state belongs to Epoch.
func (t *Track) Current() bool {
	return t.valid && t.status == propagation.CodeOK
}

// Err returns nil when the cached state is current.
func (t *Track) Err() error {
	if !t.valid {
		return ErrNotPropagated
	}
	if t.status != propagation.CodeOK {
		return fmt.Errorf("satellite %d at %v: %s", t.elements.NORADID, t.epoch, t.status)
	}
	return nil
}

// Geodetic converts a TEME position to a subpoint at instant. It returns the
// number of fixed-point iterations used.
func Geodetic(pos vecmath.Vector3, instant astrotime.Instant) (Subpoint, int) {
	lon := astrotime.WrapTwoPi(math.Atan2(pos.Y, pos.X) - astrotime.GMST(instant))
	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y)
	e2 := Flattening * (2 - Flattening)

	lat := math.Atan2(pos.Z, r)
	var c float64
	iter := 0
	for iter < maxGeodeticIter {
		phi := lat
		sinPhi := math.Sin(phi)
		c = 1 / math.Sqrt(1-e2*sinPhi*sinPhi)
		lat = math.Atan2(pos.Z+EarthRadiusKm*c*e2*sinPhi, r)
		iter++
		if math.Abs(lat-phi) < geodeticTolerance {
			break
		}
	}

	var alt float64
	if cosLat := math.Cos(lat); math.Abs(cosLat) > 1e-10 {
		alt = r/cosLat - EarthRadiusKm*c
	} else {
		// Over a pole r/cos(lat) is 0/0.
		alt = math.Abs(pos.Z) - EarthRadiusKm*(1-Flattening)
	}

	if lat > math.Pi/2 {
		lat -= astrotime.TwoPi
	}

	lonDeg := lon * 180 / math.Pi
	if lonDeg > 180 {
		lonDeg -= 360
	}

	return Subpoint{
		LatitudeDeg:  lat * 180 / math.Pi,
		LongitudeDeg: lonDeg,
		AltitudeKm:   alt,
	}, iter
}

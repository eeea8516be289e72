// Package passes predicts when satellites rise above and set below an
// observer's horizon.
package passes

import (
	"context"
	"fmt"
	"time"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/observer"
	"github.com/Stellarium/stellarium-sub033/internal/propagation"
	"github.com/Stellarium/stellarium-sub033/internal/satellite"
	"github.com/Stellarium/stellarium-sub033/internal/transform"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
	"github.com/Stellarium/stellarium-sub033/internal/visibility"
)

// GroundTrackPoint is a sub-satellite position at a specific time during a pass.
type GroundTrackPoint struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`  // meters
	Elevation float64   `json:"elevation"` // degrees above observer's horizon (0-90)
}

// PassEvent describes a single satellite pass over an observer location.
type PassEvent struct {
	StartTime        time.Time          `json:"start_time"`
	MaxElevationTime time.Time          `json:"max_elevation_time"`
	EndTime          time.Time          `json:"end_time"`
	DurationSeconds  float64            `json:"duration_seconds"`
	MaxElevation     float64            `json:"max_elevation"`
	AzimuthAtMax     float64            `json:"azimuth_at_max"`
	StartAzimuth     float64            `json:"start_azimuth"`
	EndAzimuth       float64            `json:"end_azimuth"`
	VisibilityAtMax  string             `json:"visibility_at_max"`
	GroundTrack      []GroundTrackPoint `json:"ground_track"`
}

// SatellitePasses holds the predicted passes for one satellite.
type SatellitePasses struct {
	NORADID int         `json:"norad_id"`
	Name    string      `json:"name"`
	Passes  []PassEvent `json:"passes"`
	Error   string      `json:"error,omitempty"`
}

// Request holds the parameters for a pass prediction request.
type Request struct {
	Location     observer.Location
	Elements     []propagation.ElementSet
	Gravity      propagation.Gravity
	Start        astrotime.Instant
	HorizonHours float64
	MinElevation float64 // degrees
	MaxPasses    int
}

const (
	coarseStepSec      = 30 // seconds between coarse scan steps
	fineStepSec        = 1  // seconds between fine scan steps
	groundTrackStepSec = 10 // seconds between ground track samples
	minPassDurSec      = 10
)

// Predict computes passes for every element set in the request, one
// satellite after another. Per-satellite failures are reported in the
// result rather than aborting the whole request.
func Predict(ctx context.Context, req Request) ([]SatellitePasses, error) {
	obs, err := observer.NewContext(req.Location)
	if err != nil {
		return nil, err
	}

	results := make([]SatellitePasses, len(req.Elements))
	for i, es := range req.Elements {
		results[i] = SatellitePasses{NORADID: es.NORADID, Name: es.Name}
		if ctx.Err() != nil {
			results[i].Error = "cancelled"
			continue
		}

		passes, err := predictSatellite(ctx, req, obs, es)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Passes = passes
	}
	return results, nil
}

type scanner struct {
	track *satellite.Track
	obs   *observer.Context
}

// predictSatellite finds all passes for a single satellite.
func predictSatellite(ctx context.Context, req Request, obs *observer.Context, es propagation.ElementSet) ([]PassEvent, error) {
	tr, err := satellite.FromElements(es, satellite.WithGravity(req.Gravity))
	if err != nil {
		return nil, fmt.Errorf("sgp4 init: %w", err)
	}
	sc := scanner{track: tr, obs: obs}

	end := req.Start.Add(astrotime.Hours(req.HorizonHours))
	var passes []PassEvent

	// Coarse scan: step through the time range looking for elevation > 0.
	t := req.Start
	for t.Before(end) && len(passes) < req.MaxPasses {
		if ctx.Err() != nil {
			return passes, nil
		}

		view, _, err := sc.lookAt(t)
		if err != nil || view.Elevation <= 0 {
			t = t.Add(astrotime.Seconds(coarseStepSec))
			continue
		}

		// Found a candidate window: fine scan to find the full pass.
		pass, windowEnd := sc.refinePass(ctx, t, req.Start, end, req.MinElevation)
		if pass != nil && pass.DurationSeconds >= minPassDurSec {
			passes = append(passes, *pass)
		}
		// Jump past the end of this window.
		t = windowEnd.Add(astrotime.Seconds(coarseStepSec))
	}

	return passes, nil
}

// refinePass does a fine-grained scan around a coarse-detected above-horizon
// region. It backs up to find the actual rise, then scans forward to find
// set. Returns the pass event and the instant the window ends.
func (sc scanner) refinePass(ctx context.Context, coarseHit, windowStart, windowEnd astrotime.Instant, minElev float64) (*PassEvent, astrotime.Instant) {
	searchStart := coarseHit.Sub(astrotime.Seconds(coarseStepSec))
	if searchStart.Before(windowStart) {
		searchStart = windowStart
	}

	var (
		rise, set, culm astrotime.Instant
		riseAz, setAz   float64
		maxEl, maxElAz  float64
		culmPos         vecmath.Vector3
		wasAbove        bool
		foundRise       bool
		foundSet        bool
		groundTrack     []GroundTrackPoint
	)

	t := searchStart
	for t.Before(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		view, pos, err := sc.lookAt(t)
		if err != nil {
			t = t.Add(astrotime.Seconds(fineStepSec))
			continue
		}
		el, az := view.ElevationDeg(), view.AzimuthDeg()
		above := el >= minElev

		if above && !wasAbove {
			rise, riseAz = t, az
			foundRise = true
			maxEl, culm, maxElAz, culmPos = el, t, az, pos
		}

		if above && foundRise {
			if el > maxEl {
				maxEl, culm, maxElAz, culmPos = el, t, az, pos
			}
			secSinceRise := int(t.Since(rise).Seconds() + 0.5)
			if secSinceRise%groundTrackStepSec == 0 {
				sp, _ := satellite.Geodetic(pos, t)
				groundTrack = append(groundTrack, GroundTrackPoint{
					Time:      t.Time(),
					Latitude:  sp.LatitudeDeg,
					Longitude: sp.LongitudeDeg,
					Altitude:  sp.AltitudeKm * 1000,
					Elevation: el,
				})
			}
		}

		// Window closed without reaching minElev.
		if !foundRise && el < 0 && t.After(coarseHit) {
			break
		}

		if !above && wasAbove && foundRise {
			set, setAz = t, az
			foundSet = true
			break
		}

		wasAbove = above
		t = t.Add(astrotime.Seconds(fineStepSec))
	}

	// Still above at windowEnd: close the pass there.
	if foundRise && !foundSet && wasAbove {
		set = t
		foundSet = true
		if view, pos, err := sc.lookAt(t); err == nil {
			setAz = view.AzimuthDeg()
			if el := view.ElevationDeg(); el > maxEl {
				maxEl, culm, maxElAz, culmPos = el, t, view.AzimuthDeg(), pos
			}
		}
	}

	if !foundRise || !foundSet {
		return nil, t
	}

	return &PassEvent{
		StartTime:        rise.Time(),
		MaxElevationTime: culm.Time(),
		EndTime:          set.Time(),
		DurationSeconds:  set.Since(rise).Seconds(),
		MaxElevation:     maxEl,
		AzimuthAtMax:     maxElAz,
		StartAzimuth:     riseAz,
		EndAzimuth:       setAz,
		VisibilityAtMax:  visibility.Classify(sc.obs, culmPos, culm).String(),
		GroundTrack:      groundTrack,
	}, set
}

// lookAt returns the observer's view of the satellite and its TEME position at t.
func (sc scanner) lookAt(t astrotime.Instant) (transform.View, vecmath.Vector3, error) {
	pos, vel, code := sc.track.StateAt(t)
	if code != propagation.CodeOK {
		return transform.View{}, vecmath.Vector3{}, fmt.Errorf("propagate %d: %s", sc.track.NORADID(), code)
	}
	view, err := transform.Topocentric(sc.obs, pos, vel, t)
	if err != nil {
		return transform.View{}, vecmath.Vector3{}, err
	}
	return view, pos, nil
}

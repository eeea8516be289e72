// Package scene ties one observer to many satellite tracks and updates them
// once per frame. It is the memoizing layer over package satellite: a track
// already at the requested instant is not propagated again.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/metrics"
	"github.com/Stellarium/stellarium-sub033/internal/observer"
	"github.com/Stellarium/stellarium-sub033/internal/propagation"
	"github.com/Stellarium/stellarium-sub033/internal/satellite"
	"github.com/Stellarium/stellarium-sub033/internal/transform"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
	"github.com/Stellarium/stellarium-sub033/internal/visibility"
)

var (
	ErrUnknownSatellite = errors.New("satellite not in scene")
	ErrDuplicate        = errors.New("satellite already in scene")
	ErrNotCurrent       = errors.New("satellite state is not current")
)

// Observation is what the host renders for one satellite at one instant.
type Observation struct {
	NORADID    int
	Name       string
	Epoch      astrotime.Instant
	Position   vecmath.Vector3 // km, TEME
	Velocity   vecmath.Vector3 // km/s, TEME
	Subpoint   satellite.Subpoint
	View       transform.View
	Visibility visibility.State
}

type entry struct {
	track *satellite.Track
	// lastStatus is the status last logged, so a failing track warns once.
	lastStatus propagation.ErrorCode
}

// Scene is not safe for concurrent use.
type Scene struct {
	obs     *observer.Context
	entries []*entry
	byID    map[int]*entry
	logger  *slog.Logger

	// epoch is the instant of the last Update; valid once updated is set.
	epoch   astrotime.Instant
	updated bool
}

// New creates an empty scene around an observer context.
func New(obs *observer.Context, logger *slog.Logger) *Scene {
	return &Scene{
		obs:    obs,
		byID:   make(map[int]*entry),
		logger: logger,
	}
}

// Observer returns the shared observer context.
func (s *Scene) Observer() *observer.Context { return s.obs }

// Len returns the number of tracked satellites.
func (s *Scene) Len() int { return len(s.entries) }

// Add inserts a track. NORAD IDs must be unique within a scene. Once the
// scene has been updated, the new track is brought to the last update's
// instant so every observation shares one epoch.
func (s *Scene) Add(tr *satellite.Track) error {
	if _, ok := s.byID[tr.NORADID()]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicate, tr.NORADID())
	}
	e := &entry{track: tr, lastStatus: tr.Status()}
	if s.updated {
		s.updateEntry(e, s.epoch)
	}
	s.entries = append(s.entries, e)
	s.byID[tr.NORADID()] = e
	metrics.SetTrackedSatellites(len(s.entries))
	return nil
}

// Remove drops a track and reports whether it was present.
func (s *Scene) Remove(id int) bool {
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	for i, x := range s.entries {
		if x == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	metrics.SetTrackedSatellites(len(s.entries))
	return true
}

// Track returns the track for id.
func (s *Scene) Track(id int) (*satellite.Track, bool) {
	e, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return e.track, true
}

// IDs returns the tracked NORAD IDs in insertion order.
func (s *Scene) IDs() []int {
	ids := make([]int, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.track.NORADID()
	}
	return ids
}

// SetLocation moves the observer. Track states do not depend on the
// observer and are left as they are.
func (s *Scene) SetLocation(loc observer.Location) error {
	if err := s.obs.SetLocation(loc); err != nil {
		return err
	}
	s.logger.Info("observer moved",
		"latitude", loc.LatitudeDeg,
		"longitude", loc.LongitudeDeg,
		"altitude_m", loc.AltitudeM,
	)
	return nil
}

// Update brings every track to t. Tracks already at t are skipped; tracks
// whose kernel fails keep their stale state and are logged on the first
// failure of each kind.
func (s *Scene) Update(t astrotime.Instant) {
	start := time.Now()
	s.epoch, s.updated = t, true
	for _, e := range s.entries {
		s.updateEntry(e, t)
	}
	metrics.ObserveSceneUpdate(time.Since(start))
}

func (s *Scene) updateEntry(e *entry, t astrotime.Instant) {
	tr := e.track
	if tr.Epoch().Equal(t) {
		metrics.RecordEpochSkip()
		return
	}

	tr.SetEpoch(t)
	status := tr.Status()
	metrics.RecordPropagation(status.String())

	if status != e.lastStatus {
		if status != propagation.CodeOK {
			s.logger.Warn("propagation failed",
				"norad_id", tr.NORADID(),
				"name", tr.Name(),
				"code", int(status),
				"reason", status.String(),
				"epoch", t.String(),
			)
		} else {
			s.logger.Info("propagation recovered",
				"norad_id", tr.NORADID(),
				"name", tr.Name(),
				"epoch", t.String(),
			)
		}
		e.lastStatus = status
	}
}

// Observe returns the observation for id at the scene's last update, or at
// the track's element epoch if the scene has never been updated. A track
// whose last propagation failed yields ErrNotCurrent.
func (s *Scene) Observe(id int) (Observation, error) {
	e, ok := s.byID[id]
	if !ok {
		return Observation{}, fmt.Errorf("%w: %d", ErrUnknownSatellite, id)
	}
	return s.observe(e)
}

func (s *Scene) observe(e *entry) (Observation, error) {
	tr := e.track
	if !tr.Current() {
		return Observation{}, fmt.Errorf("%w: %d: %v", ErrNotCurrent, tr.NORADID(), tr.Err())
	}

	t := tr.Epoch()
	view, err := transform.Topocentric(s.obs, tr.Position(), tr.Velocity(), t)
	if err != nil {
		return Observation{}, fmt.Errorf("observe %d: %w", tr.NORADID(), err)
	}
	state := visibility.Classify(s.obs, tr.Position(), t)
	metrics.RecordVisibility(state.String())

	return Observation{
		NORADID:    tr.NORADID(),
		Name:       tr.Name(),
		Epoch:      t,
		Position:   tr.Position(),
		Velocity:   tr.Velocity(),
		Subpoint:   tr.Subpoint(),
		View:       view,
		Visibility: state,
	}, nil
}

// ObserveAll returns observations for every current track in insertion
// order. Tracks that cannot be observed are skipped.
func (s *Scene) ObserveAll() []Observation {
	out := make([]Observation, 0, len(s.entries))
	for _, e := range s.entries {
		o, err := s.observe(e)
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

// GroundTrack samples n subpoints starting at start, step apart. The live
// track state is not modified. Samples the kernel cannot produce are
// omitted.
func (s *Scene) GroundTrack(id int, start astrotime.Instant, step astrotime.Duration, n int) ([]satellite.Subpoint, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSatellite, id)
	}
	if n < 0 {
		return nil, fmt.Errorf("ground track: negative sample count %d", n)
	}

	points := make([]satellite.Subpoint, 0, n)
	for i := 0; i < n; i++ {
		t := start.Add(step * astrotime.Duration(i))
		pos, _, code := e.track.StateAt(t)
		if code == propagation.CodeOK {
			sp, _ := satellite.Geodetic(pos, t)
			points = append(points, sp)
		}
	}
	return points, nil
}

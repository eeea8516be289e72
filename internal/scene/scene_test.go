package scene

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/observer"
	"github.com/Stellarium/stellarium-sub033/internal/propagation"
	"github.com/Stellarium/stellarium-sub033/internal/satellite"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

const (
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058"
)

type fakeKernel struct {
	calls int
	pos   vecmath.Vector3
	vel   vecmath.Vector3
	code  propagation.ErrorCode
}

func (k *fakeKernel) Propagate(float64) (vecmath.Vector3, vecmath.Vector3, propagation.ErrorCode) {
	k.calls++
	return k.pos, k.vel, k.code
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newScene(t *testing.T, logger *slog.Logger) *Scene {
	t.Helper()
	ctx, err := observer.NewContext(observer.Location{LatitudeDeg: 48.85, LongitudeDeg: 2.35, AltitudeM: 35})
	require.NoError(t, err)
	return New(ctx, logger)
}

// fakeTrack builds a track with the ISS elements renumbered to id.
func fakeTrack(t *testing.T, id int, k *fakeKernel) *satellite.Track {
	t.Helper()
	es, err := propagation.NewElementSet("FAKE", issLine1, issLine2)
	require.NoError(t, err)
	es.NORADID = id
	tr, err := satellite.FromElements(es, satellite.WithKernel(k))
	require.NoError(t, err)
	return tr
}

func TestUpdateSkipsUnchangedEpoch(t *testing.T) {
	s := newScene(t, discardLogger())
	k := &fakeKernel{pos: vecmath.New3(7000, 0, 0), vel: vecmath.New3(0, 7.5, 0)}
	require.NoError(t, s.Add(fakeTrack(t, 1, k)))
	require.Equal(t, 1, k.calls)

	at := astrotime.FromCalendar(2025, 2, 15, 0, 0, 0)
	s.Update(at)
	s.Update(at)
	s.Update(at)
	assert.Equal(t, 2, k.calls)

	s.Update(at.Add(astrotime.Seconds(0.5)))
	assert.Equal(t, 3, k.calls)
}

func TestAddRemove(t *testing.T) {
	s := newScene(t, discardLogger())
	k := &fakeKernel{pos: vecmath.New3(7000, 0, 0)}
	require.NoError(t, s.Add(fakeTrack(t, 1, k)))
	require.NoError(t, s.Add(fakeTrack(t, 2, k)))
	assert.ErrorIs(t, s.Add(fakeTrack(t, 1, k)), ErrDuplicate)
	assert.Equal(t, []int{1, 2}, s.IDs())

	assert.True(t, s.Remove(1))
	assert.False(t, s.Remove(1))
	assert.Equal(t, []int{2}, s.IDs())
	assert.Equal(t, 1, s.Len())

	_, err := s.Observe(1)
	assert.ErrorIs(t, err, ErrUnknownSatellite)
	_, ok := s.Track(2)
	assert.True(t, ok)
}

func TestAddAfterUpdateJoinsSceneEpoch(t *testing.T) {
	s := newScene(t, discardLogger())
	first := &fakeKernel{pos: vecmath.New3(7000, 0, 0), vel: vecmath.New3(0, 7.5, 0)}
	require.NoError(t, s.Add(fakeTrack(t, 1, first)))

	at := astrotime.FromCalendar(2025, 2, 15, 6, 0, 0)
	s.Update(at)

	late := &fakeKernel{pos: vecmath.New3(0, 7000, 0), vel: vecmath.New3(-7.5, 0, 0)}
	require.NoError(t, s.Add(fakeTrack(t, 2, late)))
	assert.Equal(t, 2, late.calls)

	o, err := s.Observe(2)
	require.NoError(t, err)
	assert.True(t, o.Epoch.Equal(at))

	// Already at the scene epoch, so the next Update at the same instant skips it.
	s.Update(at)
	assert.Equal(t, 2, late.calls)
}

func TestFailingTrackIsLoggedOnceAndSkipped(t *testing.T) {
	var buf bytes.Buffer
	s := newScene(t, slog.New(slog.NewJSONHandler(&buf, nil)))

	good := &fakeKernel{pos: vecmath.New3(7000, 0, 0), vel: vecmath.New3(0, 7.5, 0)}
	bad := &fakeKernel{pos: vecmath.New3(7000, 0, 0)}
	require.NoError(t, s.Add(fakeTrack(t, 1, good)))
	require.NoError(t, s.Add(fakeTrack(t, 2, bad)))

	bad.code = propagation.CodeDecayed
	at := astrotime.FromCalendar(2025, 2, 15, 0, 0, 0)
	for i := 0; i < 3; i++ {
		s.Update(at.Add(astrotime.Minutes(float64(i))))
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "propagation failed"))
	assert.Contains(t, buf.String(), `"norad_id":2`)

	_, err := s.Observe(2)
	assert.ErrorIs(t, err, ErrNotCurrent)

	obs := s.ObserveAll()
	require.Len(t, obs, 1)
	assert.Equal(t, 1, obs[0].NORADID)

	bad.code = propagation.CodeOK
	s.Update(at.Add(astrotime.Minutes(10)))
	assert.Contains(t, buf.String(), "propagation recovered")
	assert.Len(t, s.ObserveAll(), 2)
}

func TestObserverGeometrySharedAcrossTracks(t *testing.T) {
	s := newScene(t, discardLogger())
	for id := 1; id <= 25; id++ {
		k := &fakeKernel{pos: vecmath.New3(7000, float64(id)*10, 100), vel: vecmath.New3(0, 7.5, 0)}
		require.NoError(t, s.Add(fakeTrack(t, id, k)))
	}

	before := s.Observer().Stats()
	s.Update(astrotime.FromCalendar(2025, 2, 15, 3, 0, 0))
	obs := s.ObserveAll()
	require.Len(t, obs, 25)

	st := s.Observer().Stats()
	assert.Equal(t, 1, st.ObserverComputes-before.ObserverComputes)
	assert.LessOrEqual(t, st.SunComputes-before.SunComputes, 1)
}

func TestObserveISS(t *testing.T) {
	s := newScene(t, discardLogger())
	tr, err := satellite.New("ISS (ZARYA)", issLine1, issLine2)
	require.NoError(t, err)
	require.NoError(t, s.Add(tr))

	at := astrotime.FromCalendar(2025, 2, 14, 18, 0, 0)
	s.Update(at)
	o, err := s.Observe(25544)
	require.NoError(t, err)

	assert.Equal(t, "ISS (ZARYA)", o.Name)
	assert.True(t, o.Epoch.Equal(at))
	assert.Equal(t, tr.Subpoint(), o.Subpoint)
	assert.GreaterOrEqual(t, o.View.Azimuth, 0.0)
	assert.Less(t, o.View.Azimuth, 2*3.141592653589793)
	assert.Greater(t, o.View.RangeKm, 300.0)
	assert.Less(t, o.View.RangeKm, 13500.0)
	if !o.View.AboveHorizon() {
		assert.Equal(t, "below-horizon", o.Visibility.String())
	}
}

func TestGroundTrack(t *testing.T) {
	s := newScene(t, discardLogger())
	tr, err := satellite.New("ISS (ZARYA)", issLine1, issLine2)
	require.NoError(t, err)
	require.NoError(t, s.Add(tr))
	epoch := tr.Epoch()

	pts, err := s.GroundTrack(25544, epoch, astrotime.Minutes(1), 93)
	require.NoError(t, err)
	require.Len(t, pts, 93)
	assert.True(t, tr.Epoch().Equal(epoch), "ground track must not move the live track")

	assert.InDelta(t, tr.Subpoint().LatitudeDeg, pts[0].LatitudeDeg, 1e-9)
	for _, p := range pts {
		assert.LessOrEqual(t, p.LatitudeDeg, 52.0)
		assert.GreaterOrEqual(t, p.LatitudeDeg, -52.0)
		assert.LessOrEqual(t, p.LongitudeDeg, 180.0)
		assert.GreaterOrEqual(t, p.LongitudeDeg, -180.0)
	}

	_, err = s.GroundTrack(1, epoch, astrotime.Minutes(1), 3)
	assert.ErrorIs(t, err, ErrUnknownSatellite)
	_, err = s.GroundTrack(25544, epoch, astrotime.Minutes(1), -1)
	assert.Error(t, err)
}

func TestSetLocation(t *testing.T) {
	s := newScene(t, discardLogger())
	assert.ErrorIs(t, s.SetLocation(observer.Location{LatitudeDeg: 100}), observer.ErrInvalidLocation)
	require.NoError(t, s.SetLocation(observer.Location{LatitudeDeg: -33.9, LongitudeDeg: 18.4}))
	assert.Equal(t, -33.9, s.Observer().Location().LatitudeDeg)
}

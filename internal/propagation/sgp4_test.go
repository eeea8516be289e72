package propagation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/vecmath"
)

// Real ISS TLE (epoch Feb 2025).
const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058"
)

func mustISS(t *testing.T) *SGP4Propagator {
	t.Helper()
	es, err := NewElementSet(issName, issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewElementSet failed: %v", err)
	}
	prop, err := NewSGP4Propagator(es, GravityWGS72)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}
	return prop
}

func TestNewElementSet(t *testing.T) {
	es, err := NewElementSet("  "+issName+"  ", issLine1+"  ", issLine2)
	if err != nil {
		t.Fatalf("NewElementSet failed: %v", err)
	}
	if es.NORADID != 25544 {
		t.Errorf("NORADID = %d, want 25544", es.NORADID)
	}
	if es.Name != issName {
		t.Errorf("Name = %q, want %q", es.Name, issName)
	}

	// Epoch 25045.18032407 = 2025-02-14 04:19:40.0 UTC.
	want := astrotime.FromCalendar(2025, 2, 14, 4, 19, 40.0)
	if d := math.Abs(es.Epoch.Since(want).Seconds()); d > 0.01 {
		t.Errorf("epoch = %v, want %v (diff %.4fs)", es.Epoch, want, d)
	}
}

func TestNewElementSetRejectsMalformed(t *testing.T) {
	tests := []struct {
		name         string
		line1, line2 string
	}{
		{"garbage", "invalid line 1", "invalid line 2"},
		{"swapped lines", issLine2, issLine1},
		{"bad inclination", issLine1, strings.Replace(issLine2, "51.6412", "51.6X12", 1)},
		{"bad bstar", strings.Replace(issLine1, "30099-3", "3O099-3", 1), issLine2},
		{"bad epoch", strings.Replace(issLine1, "25045.18032407", "25045.1803240x", 1), issLine2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewElementSet("X", tt.line1, tt.line2); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want astrotime.Instant
	}{
		{"23196.73971065", astrotime.FromYearDay(2023, 196.73971065)},
		{"98001.00000000", astrotime.FromCalendar(1998, 1, 1, 0, 0, 0)},
		{"57001.50000000", astrotime.FromCalendar(1957, 1, 1, 12, 0, 0)},
	}
	for _, tt := range tests {
		got, err := ParseEpoch(tt.in)
		if err != nil {
			t.Fatalf("ParseEpoch(%q): %v", tt.in, err)
		}
		if d := math.Abs(got.Since(tt.want).Days()); d > 1e-9 {
			t.Errorf("ParseEpoch(%q) = %.9f, want %.9f", tt.in, got.JD(), tt.want.JD())
		}
	}

	if _, err := ParseEpoch("25"); err == nil {
		t.Error("expected error for short epoch")
	}
	if _, err := ParseEpoch("25400.0"); err == nil {
		t.Error("expected error for day 400")
	}
}

// TestPropagateMatchesLibrary checks that whole-second requests return the
// library's own state unchanged.
func TestPropagateMatchesLibrary(t *testing.T) {
	prop := mustISS(t)
	target := time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)
	minutes := astrotime.FromTime(target).Since(prop.Elements().Epoch).Minutes()

	pos, vel, code := prop.Propagate(minutes)
	if code != CodeOK {
		t.Fatalf("Propagate code = %v", code)
	}

	sat := satellite.TLEToSat(issLine1, issLine2, satellite.GravityWGS72)
	refPos, refVel := satellite.Propagate(sat, 2025, 2, 14, 12, 0, 0)

	if d := math.Abs(pos.X-refPos.X) + math.Abs(pos.Y-refPos.Y) + math.Abs(pos.Z-refPos.Z); d > 1e-4 {
		t.Errorf("position %v differs from library [%f %f %f]", pos, refPos.X, refPos.Y, refPos.Z)
	}
	if d := math.Abs(vel.X-refVel.X) + math.Abs(vel.Y-refVel.Y) + math.Abs(vel.Z-refVel.Z); d > 1e-7 {
		t.Errorf("velocity %v differs from library [%f %f %f]", vel, refVel.X, refVel.Y, refVel.Z)
	}

	// ISS orbit radius ~6790 km, speed ~7.66 km/s.
	if mag := pos.Magnitude(); mag < 6600 || mag > 6900 {
		t.Errorf("TEME position magnitude = %.1f km, expected ~6790 km", mag)
	}
	if speed := vel.Magnitude(); speed < 7.5 || speed > 7.8 {
		t.Errorf("TEME speed = %.3f km/s, expected ~7.66 km/s", speed)
	}
}

// TestPropagateSubSecond verifies interpolated states sit between the
// bracketing whole-second states and move with the reported velocity.
func TestPropagateSubSecond(t *testing.T) {
	prop := mustISS(t)
	base := astrotime.FromCalendar(2025, 2, 14, 12, 0, 0).Since(prop.Elements().Epoch).Minutes()

	p0, v0, _ := prop.Propagate(base)
	p1, _, _ := prop.Propagate(base + 1.0/60.0)
	pm, vm, code := prop.Propagate(base + 0.5/60.0)
	if code != CodeOK {
		t.Fatalf("Propagate code = %v", code)
	}

	mid := p0.Add(p1).Scale(0.5)
	if d := pm.Sub(mid).Magnitude(); d > 0.01 {
		t.Errorf("half-second position off chord midpoint by %.4f km", d)
	}
	if d := vm.Sub(v0).Magnitude(); d > 0.01 {
		t.Errorf("half-second velocity changed by %.5f km/s in 0.5s", d)
	}

	// 5 ms is ~37 m of along-track motion for a LEO satellite.
	pa, _, _ := prop.Propagate(base + 0.005/60.0)
	moved := pa.Sub(p0).Magnitude()
	want := v0.Magnitude() * 0.005
	if math.Abs(moved-want) > 1e-3 {
		t.Errorf("5ms displacement = %.5f km, want %.5f km", moved, want)
	}
}

func TestCheckState(t *testing.T) {
	tests := []struct {
		name     string
		pos, vel vecmath.Vector3
		want     ErrorCode
	}{
		{"LEO", vecmath.New3(6778, 0, 0), vecmath.New3(0, 7.6, 0), CodeOK},
		{"GEO", vecmath.New3(42164, 0, 0), vecmath.New3(0, 3.07, 0), CodeOK},
		{"zeroed by the kernel", vecmath.Vector3{}, vecmath.Vector3{}, CodeDecayed},
		{"below surface", vecmath.New3(6000, 0, 0), vecmath.New3(0, 7.9, 0), CodeDecayed},
		{"NaN position", vecmath.New3(math.NaN(), 0, 0), vecmath.New3(0, 7.6, 0), CodeNonFinite},
		{"Inf velocity", vecmath.New3(6778, 0, 0), vecmath.New3(0, math.Inf(1), 0), CodeNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkState(tt.pos, tt.vel); got != tt.want {
				t.Errorf("checkState = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKernelErrorMessage(t *testing.T) {
	var err error = &KernelError{NORADID: 1, Code: CodeDecayed, Detail: "mrt"}
	var ke *KernelError
	if !errors.As(err, &ke) || ke.Code != CodeDecayed {
		t.Fatalf("errors.As failed for %v", err)
	}
	if !strings.Contains(err.Error(), "decayed") {
		t.Errorf("message %q does not mention the code", err.Error())
	}
}

func TestParseGravity(t *testing.T) {
	if g, err := ParseGravity("wgs84"); err != nil || g != GravityWGS84 {
		t.Errorf("ParseGravity(wgs84) = %v, %v", g, err)
	}
	if _, err := ParseGravity("egm96"); err == nil {
		t.Error("expected error for unknown model")
	}
}

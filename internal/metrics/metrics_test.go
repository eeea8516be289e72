package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/metrics", "/metrics"},
		{"/metrics/", "/metrics"},
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/", "/"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hit := cacheLookupsTotal.WithLabelValues("observer", "hit")
	miss := cacheLookupsTotal.WithLabelValues("observer", "miss")
	h0, m0 := testutil.ToFloat64(hit), testutil.ToFloat64(miss)

	RecordCacheLookup("observer", true)
	RecordCacheLookup("observer", true)
	RecordCacheLookup("observer", false)

	if got := testutil.ToFloat64(hit) - h0; got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(miss) - m0; got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestRecordPropagationAndGauge(t *testing.T) {
	c := propagationsTotal.WithLabelValues("decayed")
	before := testutil.ToFloat64(c)
	RecordPropagation("decayed")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("decayed propagations = %v, want 1", got)
	}

	SetTrackedSatellites(42)
	if got := testutil.ToFloat64(trackedSatellites); got != 42 {
		t.Errorf("tracked = %v, want 42", got)
	}
}

func TestMiddlewareCapturesStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	c := httpRequestsTotal.WithLabelValues("other", http.MethodGet, "418")
	before := testutil.ToFloat64(c)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}

// 100 distinct unknown paths must produce exactly 1 label.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/scan/" + string(rune('0'+i%10)) + string(rune('0'+i/10)))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for unknown paths, got %d: %v", len(seen), seen)
	}
}

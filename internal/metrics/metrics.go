package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satwatch_propagations_total",
			Help: "SGP4 propagations by result code.",
		},
		[]string{"code"},
	)

	epochSkipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satwatch_epoch_skips_total",
			Help: "Scene updates that skipped propagation because the epoch was unchanged.",
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satwatch_observer_cache_lookups_total",
			Help: "Observer context cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)

	visibilityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satwatch_visibility_total",
			Help: "Visibility classifications by state.",
		},
		[]string{"state"},
	)

	trackedSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satwatch_tracked_satellites",
			Help: "Number of satellites in the active scene.",
		},
	)

	sceneUpdateSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satwatch_scene_update_seconds",
			Help:    "Wall time spent updating the whole scene for one instant.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satwatch_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)
)

func init() {
	prometheus.MustRegister(propagationsTotal)
	prometheus.MustRegister(epochSkipsTotal)
	prometheus.MustRegister(cacheLookupsTotal)
	prometheus.MustRegister(visibilityTotal)
	prometheus.MustRegister(trackedSatellites)
	prometheus.MustRegister(sceneUpdateSeconds)
	prometheus.MustRegister(httpRequestsTotal)
}

// RecordPropagation counts one propagation attempt by its result code name.
func RecordPropagation(code string) {
	propagationsTotal.WithLabelValues(code).Inc()
}

// RecordEpochSkip counts an update that reused the previous state.
func RecordEpochSkip() {
	epochSkipsTotal.Inc()
}

// RecordCacheLookup counts a hit or miss on one of the observer caches.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordVisibility counts one classification result.
func RecordVisibility(state string) {
	visibilityTotal.WithLabelValues(state).Inc()
}

// SetTrackedSatellites reports the current scene size.
func SetTrackedSatellites(n int) {
	trackedSatellites.Set(float64(n))
}

// ObserveSceneUpdate records the duration of one scene update.
func ObserveSceneUpdate(d time.Duration) {
	sceneUpdateSeconds.Observe(d.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

var knownRoutes = map[string]bool{
	"/metrics": true,
	"/healthz": true,
	"/readyz":  true,
}

// normalizeRoute keeps label cardinality bounded on the metrics listener.
func normalizeRoute(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// Middleware records request count for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		code := strconv.Itoa(rw.statusCode)
		httpRequestsTotal.WithLabelValues(normalizeRoute(r.URL.Path), r.Method, code).Inc()
	})
}

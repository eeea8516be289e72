package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/health"
	"github.com/Stellarium/stellarium-sub033/internal/metrics"
	"github.com/Stellarium/stellarium-sub033/internal/observer"
	"github.com/Stellarium/stellarium-sub033/internal/propagation"
	"github.com/Stellarium/stellarium-sub033/internal/satellite"
	"github.com/Stellarium/stellarium-sub033/internal/scene"
	"github.com/Stellarium/stellarium-sub033/internal/tle"
	"github.com/Stellarium/stellarium-sub033/internal/transform"
	"github.com/Stellarium/stellarium-sub033/internal/ui"
)

type engineConfig struct {
	Gravity       propagation.Gravity
	NORADIDs      []int // empty means the whole catalog
	MaxSatellites int
	Rate          float64
	MetricsAddr   string
	LogFile       string
}

func main() {
	summary := flag.Bool("summary", false, "print one JSON snapshot and exit instead of running the TUI")
	at := flag.String("at", "", "simulated start time (RFC 3339); default now")
	file := flag.String("file", "", "read element sets from this TLE file instead of fetching")
	flag.Parse()

	// The TUI owns stdout; logs go to a file unless running headless.
	var logOut io.Writer = os.Stderr
	engCfg := loadEngineConfig(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	if !*summary {
		if err := os.MkdirAll(filepath.Dir(engCfg.LogFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "creating log directory: %v\n", err)
			os.Exit(1)
		}
		f, err := os.OpenFile(engCfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	start := astrotime.FromTime(time.Now().UTC())
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			logger.Error("invalid -at value", "value", *at, "error", err)
			os.Exit(1)
		}
		start = astrotime.FromTime(t.UTC())
	}

	loc, err := loadObserverConfig(logger)
	if err != nil {
		logger.Error("invalid observer configuration", "error", err)
		os.Exit(1)
	}

	tleCfg := loadTLEConfig(logger)
	if *file != "" {
		tleCfg.File = *file
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := tle.Load(ctx, tleCfg, logger)
	if err != nil {
		logger.Error("failed to load element sets", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded",
		"source", catalog.Source,
		"count", len(catalog.Elements),
		"epoch_min", catalog.EpochRange.Min.String(),
		"epoch_max", catalog.EpochRange.Max.String(),
	)

	obsCtx, err := observer.NewContext(loc)
	if err != nil {
		logger.Error("invalid observer location", "error", err)
		os.Exit(1)
	}
	sc := scene.New(obsCtx, logger)
	buildScene(sc, catalog, engCfg, logger)

	if engCfg.MetricsAddr != "" {
		srv := startMetricsServer(engCfg.MetricsAddr, sc.Len(), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if *summary {
		if err := writeSummary(os.Stdout, sc, start); err != nil {
			logger.Error("failed to write summary", "error", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(ui.New(sc, start, engCfg.Rate), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// buildScene adds the selected element sets to the scene. Element sets the
// SGP4 model rejects are logged and skipped.
func buildScene(sc *scene.Scene, catalog *tle.Catalog, cfg engineConfig, logger *slog.Logger) {
	selected := catalog.Elements
	if len(cfg.NORADIDs) > 0 {
		selected = selected[:0:0]
		for _, id := range cfg.NORADIDs {
			es, ok := catalog.Find(id)
			if !ok {
				logger.Warn("requested satellite not in catalog", "norad_id", id)
				continue
			}
			selected = append(selected, es)
		}
	}
	if cfg.MaxSatellites > 0 && len(selected) > cfg.MaxSatellites {
		selected = selected[:cfg.MaxSatellites]
	}

	for _, es := range selected {
		tr, err := satellite.FromElements(es, satellite.WithGravity(cfg.Gravity))
		if err != nil {
			logger.Warn("skipping satellite", "norad_id", es.NORADID, "name", es.Name, "error", err)
			continue
		}
		if err := sc.Add(tr); err != nil {
			logger.Warn("skipping satellite", "norad_id", es.NORADID, "error", err)
		}
	}
	logger.Info("scene ready", "tracked", sc.Len())
}

type summaryRow struct {
	NORADID      int     `json:"norad_id"`
	Name         string  `json:"name"`
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	RangeKm      float64 `json:"range_km"`
	RangeRate    float64 `json:"range_rate_km_s"`
	LatitudeDeg  float64 `json:"latitude_deg"`
	LongitudeDeg float64 `json:"longitude_deg"`
	AltitudeKm   float64 `json:"altitude_km"`
	Visibility   string  `json:"visibility"`

	TEME      [3]float64             `json:"teme_km"`
	ECEF      transform.PositionECEF `json:"ecef_m"`
	ECEFValid bool                   `json:"ecef_valid"`
}

type summaryDoc struct {
	Time       time.Time         `json:"time"`
	JulianDate float64           `json:"julian_date"`
	Observer   observer.Location `json:"observer"`
	Tracked    int               `json:"tracked"`
	Satellites []summaryRow      `json:"satellites"`
	Cache      observer.Stats    `json:"observer_cache"`
}

func writeSummary(w io.Writer, sc *scene.Scene, t astrotime.Instant) error {
	sc.Update(t)
	gmst := astrotime.GMST(t)

	doc := summaryDoc{
		Time:       t.Time(),
		JulianDate: t.JD(),
		Observer:   sc.Observer().Location(),
		Tracked:    sc.Len(),
	}
	for _, o := range sc.ObserveAll() {
		ecef := transform.TEMEToECEFWithGMST(o.Position, o.Velocity, gmst)
		doc.Satellites = append(doc.Satellites, summaryRow{
			NORADID:      o.NORADID,
			Name:         o.Name,
			AzimuthDeg:   o.View.AzimuthDeg(),
			ElevationDeg: o.View.ElevationDeg(),
			RangeKm:      o.View.RangeKm,
			RangeRate:    o.View.RangeRate,
			LatitudeDeg:  o.Subpoint.LatitudeDeg,
			LongitudeDeg: o.Subpoint.LongitudeDeg,
			AltitudeKm:   o.Subpoint.AltitudeKm,
			Visibility:   o.Visibility.String(),
			TEME:         o.Position.Array(),
			ECEF:         ecef,
			ECEFValid:    transform.ValidateECEF(ecef),
		})
	}
	doc.Cache = sc.Observer().Stats()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// startMetricsServer serves /metrics and the probes. tracked is fixed once
// the scene is built, so the readiness check does not touch the scene.
func startMetricsServer(addr string, tracked int, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz(func() error {
		if tracked == 0 {
			return errors.New("no satellites tracked")
		}
		return nil
	}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listen error", "error", err)
		}
	}()
	return srv
}

func loadObserverConfig(logger *slog.Logger) (observer.Location, error) {
	// Greenwich.
	loc := observer.Location{LatitudeDeg: 51.4769, LongitudeDeg: -0.0005, AltitudeM: 46}

	parse := func(name string, dst *float64) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", name, err)
		}
		*dst = f
		return nil
	}
	if err := parse("SATWATCH_LAT", &loc.LatitudeDeg); err != nil {
		return loc, err
	}
	if err := parse("SATWATCH_LON", &loc.LongitudeDeg); err != nil {
		return loc, err
	}
	if err := parse("SATWATCH_ALT", &loc.AltitudeM); err != nil {
		return loc, err
	}
	if err := loc.Validate(); err != nil {
		return loc, err
	}

	logger.Info("observer config",
		"latitude", loc.LatitudeDeg,
		"longitude", loc.LongitudeDeg,
		"altitude_m", loc.AltitudeM,
	)
	return loc, nil
}

func loadEngineConfig(logger *slog.Logger) engineConfig {
	cfg := engineConfig{
		Gravity:       propagation.GravityWGS72,
		MaxSatellites: 200,
		Rate:          1,
		LogFile:       filepath.Join("tmp", "satwatch.log"),
	}

	if v := os.Getenv("SATWATCH_GRAVITY"); v != "" {
		g, err := propagation.ParseGravity(v)
		if err != nil {
			logger.Warn("invalid SATWATCH_GRAVITY value, using default", "value", v, "default", "wgs72")
		} else {
			cfg.Gravity = g
		}
	}

	if v := os.Getenv("SATWATCH_NORAD_IDS"); v != "" {
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				logger.Warn("ignoring invalid NORAD ID in SATWATCH_NORAD_IDS", "value", s)
				continue
			}
			cfg.NORADIDs = append(cfg.NORADIDs, n)
		}
	}

	if v := os.Getenv("SATWATCH_MAX_SATELLITES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid SATWATCH_MAX_SATELLITES value, using default", "value", v, "default", cfg.MaxSatellites)
		} else {
			cfg.MaxSatellites = n
		}
	}

	if v := os.Getenv("SATWATCH_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 1 {
			logger.Warn("invalid SATWATCH_RATE value, using default", "value", v, "default", 1)
		} else {
			cfg.Rate = ui.SnapRate(f)
			if cfg.Rate != f {
				logger.Warn("SATWATCH_RATE is not a supported warp step, snapping down", "value", f, "rate", cfg.Rate)
			}
		}
	}

	cfg.MetricsAddr = os.Getenv("SATWATCH_METRICS_ADDR")
	if v := os.Getenv("SATWATCH_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	return cfg
}

func loadTLEConfig(logger *slog.Logger) tle.Config {
	cfg := tle.Config{
		EnableFetch: true,
		CacheDir:    filepath.Join(os.TempDir(), "satwatch", "tle"),
		MaxFiles:    5,
	}

	if v := os.Getenv("SATWATCH_TLE_FILE"); v != "" {
		cfg.File = v
	}

	if v := os.Getenv("SATWATCH_ENABLE_TLE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SATWATCH_ENABLE_TLE_FETCH value, defaulting to false", "value", v)
			cfg.EnableFetch = false
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("SATWATCH_TLE_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("SATWATCH_TLE_EXTRA_URLS"); v != "" {
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				cfg.ExtraURLs = append(cfg.ExtraURLs, u)
			}
		}
	}

	if v, ok := os.LookupEnv("SATWATCH_TLE_CACHE_DIR"); ok {
		cfg.CacheDir = v
	}

	if v := os.Getenv("SATWATCH_TLE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SATWATCH_TLE_MAX_FILES value, using default", "value", v, "default", cfg.MaxFiles)
		} else {
			cfg.MaxFiles = n
		}
	}

	logger.Info("TLE config",
		"file", cfg.File,
		"fetch_enabled", cfg.EnableFetch,
		"source_url", cfg.SourceURL,
		"extra_urls", cfg.ExtraURLs,
		"cache_dir", cfg.CacheDir,
	)

	return cfg
}

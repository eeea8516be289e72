package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/observer"
	"github.com/Stellarium/stellarium-sub033/internal/passes"
	"github.com/Stellarium/stellarium-sub033/internal/tle"
)

func main() {
	file := flag.String("file", "", "TLE file (required)")
	lat := flag.Float64("lat", 39.7392, "observer latitude, degrees north")
	lon := flag.Float64("lon", -104.9903, "observer longitude, degrees east")
	alt := flag.Float64("alt", 1609, "observer altitude, meters")
	hours := flag.Float64("hours", 72, "prediction horizon in hours")
	minEl := flag.Float64("min-el", 1, "minimum elevation, degrees")
	limit := flag.Int("n", 5, "number of satellites to predict")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *file == "" {
		fmt.Println("ERROR: -file is required")
		os.Exit(2)
	}

	catalog, err := tle.Load(context.Background(), tle.Config{File: *file}, logger)
	if err != nil {
		fmt.Println("ERROR loading TLE:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d TLE entries\n", len(catalog.Elements))
	first := catalog.Elements[0]
	fmt.Printf("First entry: %s (NORAD %d) epoch %v\n", first.Name, first.NORADID, first.Epoch)

	subset := catalog.Elements
	if len(subset) > *limit {
		subset = subset[:*limit]
	}

	now := time.Now().UTC()
	fmt.Printf("Prediction start: %v\n", now)

	req := passes.Request{
		Location:     observer.Location{LatitudeDeg: *lat, LongitudeDeg: *lon, AltitudeM: *alt},
		Elements:     subset,
		Start:        astrotime.FromTime(now),
		HorizonHours: *hours,
		MinElevation: *minEl,
		MaxPasses:    10,
	}

	results, err := passes.Predict(context.Background(), req)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	totalPasses := 0
	for _, sat := range results {
		if sat.Error != "" {
			fmt.Printf("  NORAD %d: ERROR %s\n", sat.NORADID, sat.Error)
			continue
		}
		fmt.Printf("  NORAD %d %s: %d passes\n", sat.NORADID, sat.Name, len(sat.Passes))
		totalPasses += len(sat.Passes)
		for j, p := range sat.Passes {
			fmt.Printf("    pass %d: start=%v maxEl=%.1f° az=%.0f° dur=%.0fs %s\n",
				j, p.StartTime.Format(time.RFC3339), p.MaxElevation, p.AzimuthAtMax, p.DurationSeconds, p.VisibilityAtMax)
		}
	}
	fmt.Printf("\nTotal passes found: %d\n", totalPasses)
}

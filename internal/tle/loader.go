package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Config says where the host gets its element sets.
type Config struct {
	File        string // local TLE file; takes precedence when set
	EnableFetch bool
	SourceURL   string
	ExtraURLs   []string
	CacheDir    string // empty disables the disk cache
	MaxFiles    int
}

// Load builds a catalog from the configured file, or by fetching and
// falling back to the newest cached snapshot when the fetch fails.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) (*Catalog, error) {
	if cfg.File != "" {
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("reading TLE file: %w", err)
		}
		return parseCatalog("file", time.Now().UTC(), data, logger)
	}

	var cache *Cache
	if cfg.CacheDir != "" {
		cache = NewCache(cfg.CacheDir, cfg.MaxFiles)
	}

	var fetchErr error
	if cfg.EnableFetch {
		fetcher := NewFetcher(cfg.SourceURL, logger, cfg.ExtraURLs...)
		data, err := fetcher.Fetch(ctx)
		if err == nil {
			now := time.Now().UTC()
			if cache != nil {
				if err := cache.Write(data, now); err != nil {
					logger.Warn("failed to cache TLE data", "error", err)
				}
			}
			return parseCatalog("fetch", now, data, logger)
		}
		fetchErr = err
		logger.Warn("TLE fetch failed, trying cache", "url", fetcher.SourceURL(), "error", err)
	}

	if cache == nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, errors.New("no TLE source configured")
	}

	data, ts, err := cache.LoadLatest()
	if err != nil {
		return nil, errors.Join(fetchErr, err)
	}
	logger.Info("loaded TLE data from cache", "cached_at", ts.Format(time.RFC3339))
	return parseCatalog("cache", ts, data, logger)
}

func parseCatalog(source string, ts time.Time, data []byte, logger *slog.Logger) (*Catalog, error) {
	elements, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%s: no valid element sets", source)
	}
	return newCatalog(source, ts, elements), nil
}

package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Stellarium/stellarium-sub033/internal/propagation"
)

// Parse reads two- or three-line NORAD element sets from r. Name lines may
// carry the "0 " prefix used by 3LE catalogs. Malformed entries are skipped
// with a warning log. When a catalogue number repeats, the entry with the
// newest epoch wins.
func Parse(r io.Reader, logger *slog.Logger) ([]propagation.ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []propagation.ElementSet
	index := make(map[int]int)

	for i := 0; i < len(lines); {
		var name, line1, line2 string
		switch {
		case isLine(lines, i, '1') && isLine(lines, i+1, '2'):
			line1, line2 = lines[i], lines[i+1]
			i += 2
		case isLine(lines, i+1, '1') && isLine(lines, i+2, '2'):
			name = strings.TrimPrefix(lines[i], "0 ")
			line1, line2 = lines[i+1], lines[i+2]
			i += 3
		default:
			logger.Warn("skipping malformed TLE entry", "line_index", i, "line", lines[i])
			i++
			continue
		}

		es, err := propagation.NewElementSet(name, line1, line2)
		if err != nil {
			logger.Warn("skipping invalid TLE entry", "name", strings.TrimSpace(name), "error", err)
			continue
		}
		if es.Name == "" {
			es.Name = fmt.Sprintf("NORAD %d", es.NORADID)
		}

		if prev, ok := index[es.NORADID]; ok {
			if es.Epoch.After(entries[prev].Epoch) {
				entries[prev] = es
			}
			logger.Warn("duplicate NORAD ID in TLE data", "norad_id", es.NORADID, "name", es.Name)
			continue
		}
		index[es.NORADID] = len(entries)
		entries = append(entries, es)
	}

	return entries, nil
}

func isLine(lines []string, i int, kind byte) bool {
	return i < len(lines) && len(lines[i]) > 1 && lines[i][0] == kind && lines[i][1] == ' '
}

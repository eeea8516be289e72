package propagation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
)

// ElementSet is an immutable two-line orbital element set. The lines are
// cloned on construction so callers need not keep their input buffers alive.
type ElementSet struct {
	Name    string
	Line1   string
	Line2   string
	NORADID int
	Epoch   astrotime.Instant
}

// NewElementSet validates the two lines and extracts the catalogue number and
// epoch. Lines are trimmed of surrounding whitespace.
func NewElementSet(name, line1, line2 string) (ElementSet, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if err := validateTLELines(line1, line2); err != nil {
		return ElementSet{}, fmt.Errorf("invalid TLE %q: %w", strings.TrimSpace(name), err)
	}

	noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid TLE %q: catalogue number: %w", strings.TrimSpace(name), err)
	}
	epoch, err := ParseEpoch(line1[18:32])
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid TLE %q: %w", strings.TrimSpace(name), err)
	}

	return ElementSet{
		Name:    strings.Clone(strings.TrimSpace(name)),
		Line1:   strings.Clone(line1),
		Line2:   strings.Clone(line2),
		NORADID: noradID,
		Epoch:   epoch,
	}, nil
}

// ParseEpoch converts a TLE epoch field (YYDDD.DDDDDDDD) to an Instant.
// Years 57-99 map to the 1900s, 00-56 to the 2000s.
func ParseEpoch(s string) (astrotime.Instant, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return astrotime.Instant{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return astrotime.Instant{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return astrotime.Instant{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}
	if day < 1 || day >= 367 {
		return astrotime.Instant{}, fmt.Errorf("epoch day %v out of range", day)
	}

	return astrotime.FromYearDay(year, day), nil
}

// validateTLELines checks line shape and every numeric field go-satellite
// parses. The library calls log.Fatal on a parse failure, which would kill
// the host process, so nothing reaches it unchecked.
func validateTLELines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}

	ints := []struct {
		field string
		raw   string
	}{
		{"satellite number", strings.TrimSpace(line1[2:7])},
		{"epoch year", line1[18:20]},
	}
	for _, f := range ints {
		if _, err := strconv.ParseInt(f.raw, 10, 64); err != nil {
			return fmt.Errorf("line1 %s %q: %w", f.field, f.raw, err)
		}
	}

	floats := []struct {
		field string
		raw   string
	}{
		{"epoch day", line1[20:32]},
		{"first derivative of mean motion", strings.Replace(line1[33:43], " ", "", 2)},
		{"second derivative of mean motion", strings.Replace(line1[44:45]+"."+line1[45:50]+"e"+line1[50:52], " ", "", 2)},
		{"bstar", strings.Replace(line1[53:54]+"."+line1[54:59]+"e"+line1[59:61], " ", "", 2)},
		{"inclination", strings.Replace(line2[8:16], " ", "", 2)},
		{"right ascension", strings.Replace(line2[17:25], " ", "", 2)},
		{"eccentricity", "." + line2[26:33]},
		{"argument of perigee", strings.Replace(line2[34:42], " ", "", 2)},
		{"mean anomaly", strings.Replace(line2[43:51], " ", "", 2)},
		{"mean motion", strings.Replace(line2[52:63], " ", "", 2)},
	}
	for _, f := range floats {
		if _, err := strconv.ParseFloat(f.raw, 64); err != nil {
			return fmt.Errorf("%s %q: %w", f.field, f.raw, err)
		}
	}

	return nil
}

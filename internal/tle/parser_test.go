package tle

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseThreeLine(t *testing.T) {
	entries, err := Parse(strings.NewReader(issTLE+starlinkTLE), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "ISS (ZARYA)" || entries[0].NORADID != 25544 {
		t.Errorf("entry 0 = %q/%d", entries[0].Name, entries[0].NORADID)
	}
	if entries[1].Name != "STARLINK-1007" || entries[1].NORADID != 44713 {
		t.Errorf("entry 1 = %q/%d", entries[1].Name, entries[1].NORADID)
	}
	y, m, d, h, _, _ := entries[0].Epoch.Calendar()
	if y != 2025 || m != 2 || d != 14 || h != 4 {
		t.Errorf("ISS epoch = %s, want 2025-02-14T04:19:40Z", entries[0].Epoch)
	}
}

func TestParseTwoLineAndPrefixedNames(t *testing.T) {
	data := issLine1 + "\r\n" + issLine2 + "\r\n" +
		"0 STARLINK-1007\n" + strings.SplitN(starlinkTLE, "\n", 2)[1]

	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "NORAD 25544" {
		t.Errorf("unnamed entry name = %q, want NORAD 25544", entries[0].Name)
	}
	if entries[1].Name != "STARLINK-1007" {
		t.Errorf("3LE name = %q, want STARLINK-1007", entries[1].Name)
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	data := "garbage header\n" +
		"BROKEN\n1 99999U short line\n2 99999 also short\n" +
		issTLE +
		"ORPHAN NAME\n"

	entries, err := Parse(strings.NewReader(data), logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].NORADID != 25544 {
		t.Fatalf("expected only ISS, got %+v", entries)
	}
	if !strings.Contains(logs.String(), "skipping invalid TLE entry") {
		t.Error("expected a warning for the short lines")
	}
	if !strings.Contains(logs.String(), "skipping malformed TLE entry") {
		t.Error("expected a warning for the stray lines")
	}
}

func TestParseDuplicateKeepsNewestEpoch(t *testing.T) {
	older := strings.Replace(issLine1, "25045.18032407", "25040.00000000", 1)
	data := "ISS OLD\n" + older + "\n" + issLine2 + "\n" + issTLE

	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "ISS (ZARYA)" {
		t.Errorf("kept %q, want the newer ISS (ZARYA)", entries[0].Name)
	}
}

func TestParseEmpty(t *testing.T) {
	entries, err := Parse(strings.NewReader("\n\n"), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

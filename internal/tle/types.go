package tle

import (
	"time"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/propagation"
)

// EpochRange represents the oldest and newest element epochs in a catalog.
type EpochRange struct {
	Min astrotime.Instant
	Max astrotime.Instant
}

// Catalog is a parsed set of element sets and where it came from.
type Catalog struct {
	Source     string // "file", "fetch" or "cache"
	LoadedAt   time.Time
	EpochRange EpochRange
	Elements   []propagation.ElementSet
}

func newCatalog(source string, loadedAt time.Time, elements []propagation.ElementSet) *Catalog {
	c := &Catalog{Source: source, LoadedAt: loadedAt, Elements: elements}
	if len(elements) == 0 {
		return c
	}
	c.EpochRange = EpochRange{Min: elements[0].Epoch, Max: elements[0].Epoch}
	for _, e := range elements[1:] {
		if e.Epoch.Before(c.EpochRange.Min) {
			c.EpochRange.Min = e.Epoch
		}
		if e.Epoch.After(c.EpochRange.Max) {
			c.EpochRange.Max = e.Epoch
		}
	}
	return c
}

// Find returns the element set with the given catalogue number.
func (c *Catalog) Find(noradID int) (propagation.ElementSet, bool) {
	for _, e := range c.Elements {
		if e.NORADID == noradID {
			return e, true
		}
	}
	return propagation.ElementSet{}, false
}

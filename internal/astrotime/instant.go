// Package astrotime provides the Julian Date instant and duration types used by
// the orbital engine, together with sidereal-angle derivation.
//
// An Instant keeps the whole Julian day and the day fraction separately, so
// adding and subtracting durations does not lose sub-millisecond precision at
// present-day Julian Dates (~2.46e6).
package astrotime

import (
	"math"
	"time"
)

const (
	// J2000 is the Julian Date of 2000-01-01 12:00:00.
	J2000 = 2451545.0

	// unixEpochJD is the Julian Date of 1970-01-01 00:00:00 UTC.
	unixEpochJD = 2440587.5

	SecondsPerDay = 86400.0
	MinutesPerDay = 1440.0
	HoursPerDay   = 24.0
)

// Duration is a signed span of time in days.
type Duration float64

// Days returns a Duration of d days.
func Days(d float64) Duration { return Duration(d) }

// Hours returns a Duration of h hours.
func Hours(h float64) Duration { return Duration(h / HoursPerDay) }

// Minutes returns a Duration of m minutes.
func Minutes(m float64) Duration { return Duration(m / MinutesPerDay) }

// Seconds returns a Duration of s seconds.
func Seconds(s float64) Duration { return Duration(s / SecondsPerDay) }

// FromTimeDuration converts a time.Duration.
func FromTimeDuration(d time.Duration) Duration {
	return Duration(d.Seconds() / SecondsPerDay)
}

func (d Duration) Days() float64    { return float64(d) }
func (d Duration) Hours() float64   { return float64(d) * HoursPerDay }
func (d Duration) Minutes() float64 { return float64(d) * MinutesPerDay }
func (d Duration) Seconds() float64 { return float64(d) * SecondsPerDay }

// Instant is a point in time expressed as a Julian Date.
// The zero value is JD 0.0.
type Instant struct {
	day  float64 // integral part
	frac float64 // [0, 1)
}

func normalize(day, frac float64) Instant {
	w := math.Floor(frac)
	day += w
	frac -= w
	// Rounding can push frac to exactly 1 after the subtraction.
	if frac >= 1 {
		day++
		frac--
	}
	return Instant{day: day, frac: frac}
}

// FromJulian returns the Instant for Julian Date jd.
func FromJulian(jd float64) Instant {
	day := math.Floor(jd)
	return normalize(day, jd-day)
}

// JD returns the Julian Date.
func (t Instant) JD() float64 {
	return t.day + t.frac
}

// Add returns t+d.
func (t Instant) Add(d Duration) Instant {
	whole := math.Trunc(float64(d))
	return normalize(t.day+whole, t.frac+(float64(d)-whole))
}

// Sub returns t-d.
func (t Instant) Sub(d Duration) Instant {
	return t.Add(-d)
}

// Since returns t-u.
func (t Instant) Since(u Instant) Duration {
	return Duration((t.day - u.day) + (t.frac - u.frac))
}

// Equal reports whether t and u are the same instant, bit for bit.
func (t Instant) Equal(u Instant) bool {
	return t.day == u.day && t.frac == u.frac
}

// Before reports whether t is earlier than u.
func (t Instant) Before(u Instant) bool {
	return t.day < u.day || (t.day == u.day && t.frac < u.frac)
}

// After reports whether t is later than u.
func (t Instant) After(u Instant) bool {
	return u.Before(t)
}

// IsLeapYear uses the Gregorian rule.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

var cumulativeDays = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// DayOfYear returns the 1-based ordinal day of the given calendar date.
func DayOfYear(year, month, day int) int {
	if month < 1 {
		month = 1
	} else if month > 12 {
		month = 12
	}
	doy := cumulativeDays[month-1] + day
	if month > 2 && IsLeapYear(year) {
		doy++
	}
	return doy
}

// yearStart returns the Julian Date of January 0.0 of year
// (Meeus, Astronomical Formulae for Calculators, pp. 23-25).
func yearStart(year int) float64 {
	y := float64(year - 1)
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*y) + 428 + 1720994.5 + b
}

// FromYearDay returns the Instant of the given year and fractional 1-based
// day of year, as used by two-line element set epochs.
func FromYearDay(year int, dayOfYear float64) Instant {
	start := FromJulian(yearStart(year))
	return start.Add(Days(dayOfYear))
}

// FromCalendar returns the Instant for a Gregorian calendar date and time of
// day (UTC). second may be fractional.
func FromCalendar(year, month, day, hour, minute int, second float64) Instant {
	doy := float64(DayOfYear(year, month, day))
	frac := (float64(hour) + (float64(minute)+second/60.0)/60.0) / HoursPerDay
	return FromJulian(yearStart(year)).Add(Days(doy)).Add(Days(frac))
}

// FromTime converts a time.Time to an Instant.
func FromTime(t time.Time) Instant {
	t = t.UTC()
	y, m, d := t.Date()
	sec := float64(t.Second()) + float64(t.Nanosecond())/1e9
	return FromCalendar(y, int(m), d, t.Hour(), t.Minute(), sec)
}

// Time converts t to a UTC time.Time, rounded to the microsecond.
func (t Instant) Time() time.Time {
	days := t.day - unixEpochJD
	whole := math.Floor(days)
	frac := (days - whole) + t.frac
	sec := int64(whole) * int64(SecondsPerDay)
	micros := int64(math.Round(frac * SecondsPerDay * 1e6))
	return time.Unix(sec, 0).Add(time.Duration(micros) * time.Microsecond).UTC()
}

// Calendar decomposes t into a UTC calendar date and time of day.
func (t Instant) Calendar() (year, month, day, hour, minute int, second float64) {
	tt := t.Time()
	y, m, d := tt.Date()
	return y, int(m), d, tt.Hour(), tt.Minute(), float64(tt.Second()) + float64(tt.Nanosecond())/1e9
}

// String formats t as an ISO-8601 UTC timestamp.
func (t Instant) String() string {
	return t.Time().Format("2006-01-02T15:04:05.000Z")
}

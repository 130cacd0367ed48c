package timeutil

import (
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for daily buckets
const DateLayout = "2006-01-02"

// Location resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown
func Location(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDate returns the calendar date of t in timezone
func LocalDate(t time.Time, timezone string) string {
	return t.In(Location(timezone)).Format(DateLayout)
}

// StartOfDay returns midnight of t's date in timezone
func StartOfDay(t time.Time, timezone string) time.Time {
	y, m, d := t.In(Location(timezone)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Location(timezone))
}

// DaysBack returns the start of the day that is days-1 days before now, so a
// window of 1 covers today only
func DaysBack(now time.Time, days int, timezone string) time.Time {
	if days < 1 {
		days = 1
	}
	return StartOfDay(now, timezone).AddDate(0, 0, -(days - 1))
}

// ParseDate parses a YYYY-MM-DD date as midnight in timezone
func ParseDate(date, timezone string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, Location(timezone))
}

// IsValidTimezone checks if a timezone string is valid
func IsValidTimezone(timezone string) bool {
	if timezone == "" {
		return false
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

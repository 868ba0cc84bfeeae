package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Location is the business timezone every calendar day is computed in.
// Aggregate keys and report windows must all use it.
var Location *time.Location

func init() {
	Location = mustLoad("Africa/Lagos")
}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback when tzdata is missing: WAT is a fixed UTC+1 offset
		return time.FixedZone("WAT", 60*60)
	}
	return loc
}

// SetLocation replaces the business timezone. Called once at startup.
func SetLocation(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", name, err)
	}
	Location = loc
	return nil
}

// Now returns the current time in the business timezone
func Now() time.Time {
	return time.Now().In(Location)
}

// StartOfDay returns local midnight of the day containing t
func StartOfDay(t time.Time) time.Time {
	lt := t.In(Location)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, Location)
}

// EndOfDay returns the last nanosecond of the day containing t
func EndOfDay(t time.Time) time.Time {
	lt := t.In(Location)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 23, 59, 59, 999999999, Location)
}

// ParseDate parses a YYYY-MM-DD calendar date as local midnight.
// An empty value yields today.
func ParseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return StartOfDay(now), nil
	}
	t, err := time.ParseInLocation(DateLayout, value, Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// FormatDate formats t as a calendar date in the business timezone
func FormatDate(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// DaysBetween lists local midnights from..to inclusive.
func DaysBetween(from, to time.Time) []time.Time {
	var days []time.Time
	for d := StartOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "02 Jan 2006, 03:04 PM"
)

// DateOnly reinterprets the calendar date of t (as scanned from a DATE
// column) as local midnight in the business timezone.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

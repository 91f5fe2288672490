// internal/dateutil/dateutil.go

// Package dateutil parses the loosely formatted date strings that show up in
// retrieved tabular data. It sits apart from the retrieval core: ambiguous
// dates are resolved heuristically and callers opt into the policy they
// want.
package dateutil

import (
	"time"

	"github.com/araddon/dateparse"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// Options steers ambiguous-date resolution.
type Options struct {
	// PreferDayFirst reads "01/02/2024" as the 1st of February rather than
	// January 2nd.
	PreferDayFirst bool

	// Location resolves zone-less timestamps; UTC when nil.
	Location *time.Location
}

// Parse interprets value as a date or timestamp in any common format.
func Parse(value string, opts Options) (time.Time, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := dateparse.ParseIn(value, loc,
		dateparse.PreferMonthFirst(!opts.PreferDayFirst))
	if err != nil {
		return time.Time{}, &xerrors.DecodeError{Format: "date", Err: err}
	}
	return parsed, nil
}

// ParseUTC parses value and normalises the result to UTC.
func ParseUTC(value string, opts Options) (time.Time, error) {
	parsed, err := Parse(value, opts)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// internal/dateutil/dateutil_test.go
package dateutil

import (
	"testing"
	"time"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

func TestParseCommonFormats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-02-01", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-02-01T12:30:00Z", time.Date(2024, 2, 1, 12, 30, 0, 0, time.UTC)},
		{"Feb 1, 2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseUTC(tt.in, Options{})
		if err != nil {
			t.Errorf("ParseUTC(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseUTC(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseAmbiguousDayFirst(t *testing.T) {
	monthFirst, err := Parse("01/02/2024", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if monthFirst.Month() != time.January || monthFirst.Day() != 2 {
		t.Errorf("month-first parse = %v, want January 2nd", monthFirst)
	}

	dayFirst, err := Parse("01/02/2024", Options{PreferDayFirst: true})
	if err != nil {
		t.Fatal(err)
	}
	if dayFirst.Month() != time.February || dayFirst.Day() != 1 {
		t.Errorf("day-first parse = %v, want February 1st", dayFirst)
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not a date", Options{})
	if !xerrors.IsDecode(err) {
		t.Errorf("Parse() error = %v, want DecodeError", err)
	}
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2024, 6, 15, 13, 45, 30, 0, time.UTC)
	start := StartOfDay(at)
	if start.Hour() != 0 || start.Day() != 15 {
		t.Errorf("StartOfDay() = %v", start)
	}
	end := EndOfDay(at)
	if end.Day() != 15 || end.Hour() != 23 {
		t.Errorf("EndOfDay() = %v", end)
	}
}

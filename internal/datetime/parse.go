package datetime

import (
	"errors"
	"time"

	"github.com/araddon/dateparse"
)

// ErrNoDate is returned when the input holds nothing parseable as a date.
var ErrNoDate = errors.New("no parseable date")

// ParseWhen parses a natural-ish date string ("2026-03-01", "Jan 5",
// "03/01/2026 2pm") into a time. Empty input is ErrNoDate, not a zero
// time, so callers can distinguish "no hint" from "bad hint".
func ParseWhen(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrNoDate
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, ErrNoDate
	}
	return t, nil
}

// ParseWhenIn is ParseWhen with an explicit location for wall-clock-only
// inputs.
func ParseWhenIn(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrNoDate
	}
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, ErrNoDate
	}
	return t, nil
}

package utils

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date format used by the API and the history database
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string as midnight UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// DateToUnix converts a YYYY-MM-DD string to a Unix timestamp at midnight UTC
func DateToUnix(s string) (int64, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// UnixToDate formats a Unix timestamp as YYYY-MM-DD in UTC
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateLayout)
}

// TruncateToDay drops the time-of-day component, keeping the calendar date in UTC
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

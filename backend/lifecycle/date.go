package lifecycle

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date layout used on the wire
const DateLayout = "2006-01-02"

// InvalidDateError reports a date field that could not be parsed
type InvalidDateError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s date %q: %v", e.Field, e.Value, e.Err)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// ParseDate parses an ISO 8601 date. Full RFC 3339 timestamps are accepted
// and reduced to their calendar date as written.
func ParseDate(field, value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, &InvalidDateError{Field: field, Value: value, Err: fmt.Errorf("empty value")}
	}

	if !strings.Contains(v, "T") {
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return time.Time{}, &InvalidDateError{Field: field, Value: value, Err: err}
		}
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &InvalidDateError{Field: field, Value: value, Err: err}
	}
	return CalendarDate(t), nil
}

// CalendarDate drops the time of day, keeping the date as seen in t's location
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date in DateLayout
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

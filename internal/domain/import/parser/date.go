package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateParseError reports a cell no known date layout accepts.
type DateParseError struct {
	Raw string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("could not parse date: %s", e.Raw)
}

// Fallback layouts, tried in order once the free-form parser gives up.
// Numeric fields are unpadded so "1/5/2024" and "01/05/2024" both parse.
var dateLayouts = []string{
	"2006-1-2",        // ISO
	"1/2/2006",        // US slash
	"2/1/2006",        // day-first slash
	"2006/1/2",        // ISO slash
	"1-2-2006",        // US dash
	"2-1-2006",        // day-first dash
	"Jan 2, 2006",     // abbreviated month
	"January 2, 2006", // full month
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate converts a statement cell to a calendar date (midnight UTC).
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &DateParseError{Raw: raw}
	}

	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return calendarDate(t), nil
	}

	if t, ok := parseLayouts(s); ok {
		return t, nil
	}

	return time.Time{}, &DateParseError{Raw: raw}
}

func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), true
		}
	}
	return time.Time{}, false
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

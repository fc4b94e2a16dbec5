package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for game dates everywhere
const DateLayout = "2006-01-02"

// DateOf truncates t to midnight UTC of its own calendar day
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a game date; the zero time renders as ""
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return DateOf(t).Format(DateLayout)
}

// ParseDate accepts YYYY-MM-DD and a few legacy timestamp forms
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	layouts := []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05", "20060102"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// AddDays moves a calendar date by n days
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

package model

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-day key format used by DailyStats and date filters.
const DayLayout = "2006-01-02"

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay validates a calendar-day string and returns it unchanged.
func ParseDay(s string) (string, error) {
	if _, err := time.Parse(DayLayout, s); err != nil {
		return "", fmt.Errorf("invalid day %q: want YYYY-MM-DD", s)
	}
	return s, nil
}

// Clock abstracts the wall clock so stats keys and log timestamps are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

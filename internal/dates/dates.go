// Package dates holds the calendar rules of the college basketball season.
package dates

import (
	"fmt"
	"time"
)

// Layout is the date format used in configuration, fixtures and exports
const Layout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// MustParseDate is ParseDate for literals known to be valid
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatDate formats t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(Layout)
}

// SeasonOf returns the season a date belongs to. Games from August through
// December count toward the following year's season.
func SeasonOf(t time.Time) int {
	if t.Month() >= time.August {
		return t.Year() + 1
	}
	return t.Year()
}

// SelectionSunday returns the Sunday between March 11 and 17 of the season's
// year, the day the tournament field is announced.
func SelectionSunday(season int) time.Time {
	for d := 11; d <= 17; d++ {
		t := time.Date(season, time.March, d, 0, 0, 0, 0, time.UTC)
		if t.Weekday() == time.Sunday {
			return t
		}
	}
	return time.Date(season, time.March, 15, 0, 0, 0, 0, time.UTC)
}

// SeasonStart returns the first day considered part of the season
func SeasonStart(season int) time.Time {
	return time.Date(season-1, time.August, 1, 0, 0, 0, 0, time.UTC)
}

// SeasonEnd returns the last day considered part of the season
func SeasonEnd(season int) time.Time {
	return time.Date(season, time.July, 31, 0, 0, 0, 0, time.UTC)
}

package service

import (
	"strings"
	"time"
)

// Accepted wire formats for ride dates and times. Dates may be ISO
// (YYYY-MM-DD) or day-first (DD-MM-YYYY, also with slashes); times may be
// 24h (HH:MM) or 12h with an AM/PM suffix.
var (
	dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006", "2006/01/02"}
	timeLayouts = []string{"15:04", "3:04 PM", "3:04PM"}
)

// ParseDeparture combines a date string and a time string into a single
// local instant.
func ParseDeparture(dateStr, timeStr string) (time.Time, error) {
	day, err := parseDate(strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, err
	}

	clock, err := parseClock(strings.TrimSpace(timeStr))
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidSchedule
}

func parseClock(s string) (time.Time, error) {
	s = strings.ToUpper(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidSchedule
}

package utils

import (
	"fmt"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// ActiveFor reports how long an alert has been active. Alertmanager sends the zero
// time (or a future time) as endsAt while an alert is still firing, in which case now is used.
func ActiveFor(startsAt, endsAt, now time.Time) time.Duration {
	if startsAt.IsZero() {
		return 0
	}
	end := endsAt
	if end.IsZero() || end.After(now) {
		end = now
	}
	if end.Before(startsAt) {
		return 0
	}
	return end.Sub(startsAt)
}

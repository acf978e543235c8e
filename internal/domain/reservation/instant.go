package reservation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseClock parses "HH:MM" (24h) into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Instant resolves the reservation's local date and time in loc.
func (r Reservation) Instant(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, loc)
}

// MinuteKey formats t truncated to minute granularity. Two instants with the
// same key fall into the same scheduler minute.
func MinuteKey(t time.Time) string {
	return t.Truncate(time.Minute).Format(time.RFC3339)
}

// Today returns the local calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// SortByTime orders rs by clock time, keeping the given order for equal
// times. Rows with a malformed time go last.
func SortByTime(rs []Reservation) {
	key := func(r Reservation) int {
		m, err := ParseClock(r.Time)
		if err != nil {
			return 24 * 60
		}
		return m
	}
	sort.SliceStable(rs, func(i, j int) bool { return key(rs[i]) < key(rs[j]) })
}

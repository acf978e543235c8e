// Package availability decides whether a table is free at a given time.
package availability

import (
	"time"

	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/internaltypes"
)

// DefaultMinSpacing is how far apart two bookings of one table must start.
const DefaultMinSpacing = 3 * time.Hour

// Conflict is an existing booking too close to the requested time.
type Conflict struct {
	ID         int64
	Time       string
	Name       string
	Guests     int
	HoursDelta float64
}

type Result struct {
	Available bool
	Conflicts []Conflict
}

// First returns the conflict to show the user, if any.
func (r Result) First() (Conflict, bool) {
	if len(r.Conflicts) == 0 {
		return Conflict{}, false
	}
	return r.Conflicts[0], true
}

// Checker is a pure function over its inputs; the zero value uses
// DefaultMinSpacing.
type Checker struct {
	MinSpacing time.Duration
}

func (c Checker) spacing() time.Duration {
	if c.MinSpacing <= 0 {
		return DefaultMinSpacing
	}
	return c.MinSpacing
}

// Check compares the requested slot with existing bookings of the same table
// on the same date. excludeID (0 for none) skips the booking being edited.
// Bookings whose stored time does not parse cannot conflict. Conflicts keep
// the order of existing.
func (c Checker) Check(table, date, at string, existing []reservation.Reservation, excludeID int64) (Result, error) {
	want, err := reservation.ParseClock(at)
	if err != nil {
		return Result{}, internaltypes.Invalid("time", "use HH:MM")
	}

	limit := c.spacing()
	res := Result{Available: true}
	for _, r := range existing {
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		if r.Date != date || r.TableNumber == "" || r.TableNumber != table {
			continue
		}
		got, err := reservation.ParseClock(r.Time)
		if err != nil {
			continue
		}
		delta := time.Duration(want-got) * time.Minute
		if delta < 0 {
			delta = -delta
		}
		if delta < limit {
			res.Conflicts = append(res.Conflicts, Conflict{
				ID:         r.ID,
				Time:       r.Time,
				Name:       r.GuestName,
				Guests:     r.Guests,
				HoursDelta: delta.Hours(),
			})
		}
	}
	res.Available = len(res.Conflicts) == 0
	return res, nil
}

// Package notify sends waiter notifications around reservation times.
//
// Every tick scans three horizons relative to the current minute: guests
// arriving in 30 minutes, celebrations that started an hour ago and
// deposits of tables seated an hour and a half ago. Each (reservation,
// waiter, kind) is delivered at most once: the dedup record is claimed with
// an atomic insert before delivery and released again if delivery fails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/render"
)

// Store is what the engine reads and writes.
type Store interface {
	ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error)
	WaitersForTable(ctx context.Context, table, date string) ([]string, error)
	NotificationExists(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error)
	RecordNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error)
	ReleaseNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) error
}

// Messenger delivers one text to one recipient. A returned error means the
// message was not delivered.
type Messenger interface {
	Deliver(ctx context.Context, recipient, text string) error
}

// DefaultGrace makes a horizon match exactly one scheduler minute.
const DefaultGrace = time.Minute

// Outcome is one attempted delivery.
type Outcome struct {
	ReservationID int64
	WaiterID      string
	Kind          reservation.NotificationKind
	Delivered     bool
}

type horizon struct {
	kind    reservation.NotificationKind
	offset  time.Duration
	applies func(reservation.Reservation) bool
}

var horizons = []horizon{
	{
		kind:    reservation.KindArrival,
		offset:  30 * time.Minute,
		applies: func(reservation.Reservation) bool { return true },
	},
	{
		kind:    reservation.KindOccasion,
		offset:  -time.Hour,
		applies: func(r reservation.Reservation) bool { return reservation.IsCelebration(r.Occasion) },
	},
	{
		kind:    reservation.KindDeposit,
		offset:  -90 * time.Minute,
		applies: func(r reservation.Reservation) bool { return r.Deposit > 0 },
	},
}

type Engine struct {
	Store     Store
	Messenger Messenger
	Location  *time.Location
	// Grace widens each horizon to [target, target+Grace). A failed
	// delivery is retried on later ticks while still inside it.
	Grace time.Duration
	Log   zerolog.Logger
}

func (e *Engine) loc() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

func (e *Engine) grace() time.Duration {
	if e.Grace <= 0 {
		return DefaultGrace
	}
	return e.Grace
}

// RunTick scans all horizons for now and delivers what is due. Store
// failures are logged, skip the affected reservation and are returned
// joined; delivery failures only show up as undelivered outcomes.
func (e *Engine) RunTick(ctx context.Context, now time.Time) ([]Outcome, error) {
	log := e.Log.With().Str("tick_id", uuid.NewString()).Logger()
	base := now.In(e.loc()).Truncate(time.Minute)
	grace := e.grace()

	byDate := map[string][]reservation.Reservation{}
	list := func(date string) ([]reservation.Reservation, error) {
		if rs, ok := byDate[date]; ok {
			return rs, nil
		}
		rs, err := e.Store.ListByDate(ctx, date)
		if err != nil {
			return nil, err
		}
		byDate[date] = rs
		return rs, nil
	}

	var (
		outcomes []Outcome
		errs     []error
	)
	for _, h := range horizons {
		from := base.Add(h.offset)
		to := from.Add(grace)
		for _, date := range datesBetween(from, to) {
			rs, err := list(date)
			if err != nil {
				log.Error().Err(err).Str("date", date).Msg("list reservations")
				errs = append(errs, fmt.Errorf("list %s: %w", date, err))
				continue
			}
			for _, r := range rs {
				if !due(r, from, to, e.loc()) || !h.applies(r) {
					continue
				}
				out, err := e.notify(ctx, log, r, h.kind)
				outcomes = append(outcomes, out...)
				if err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	if len(outcomes) > 0 {
		log.Info().Int("attempts", len(outcomes)).Msg("tick done")
	}
	return outcomes, errors.Join(errs...)
}

func due(r reservation.Reservation, from, to time.Time, loc *time.Location) bool {
	if r.TableNumber == "" {
		return false
	}
	at, err := r.Instant(loc)
	if err != nil {
		return false
	}
	return !at.Before(from) && at.Before(to)
}

// datesBetween lists the local dates touched by [from, to).
func datesBetween(from, to time.Time) []string {
	first := from.Format(reservation.DateLayout)
	last := to.Add(-time.Nanosecond).Format(reservation.DateLayout)
	if first == last {
		return []string{first}
	}
	dates := []string{first}
	for d := from.AddDate(0, 0, 1); d.Format(reservation.DateLayout) <= last; d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(reservation.DateLayout))
	}
	return dates
}

func (e *Engine) notify(ctx context.Context, log zerolog.Logger, r reservation.Reservation, kind reservation.NotificationKind) ([]Outcome, error) {
	waiters, err := e.Store.WaitersForTable(ctx, r.TableNumber, r.Date)
	if err != nil {
		log.Error().Err(err).Int64("reservation_id", r.ID).Msg("resolve waiters")
		return nil, fmt.Errorf("waiters for table %s: %w", r.TableNumber, err)
	}

	var (
		out  []Outcome
		errs []error
	)
	text := render.Notification(kind, r)
	for _, w := range waiters {
		l := log.With().Int64("reservation_id", r.ID).Str("waiter_id", w).Str("kind", string(kind)).Logger()

		sent, err := e.Store.NotificationExists(ctx, r.ID, w, kind)
		if err != nil {
			l.Error().Err(err).Msg("check notification")
			errs = append(errs, err)
			continue
		}
		if sent {
			continue
		}
		claimed, err := e.Store.RecordNotification(ctx, r.ID, w, kind)
		if err != nil {
			l.Error().Err(err).Msg("claim notification")
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}

		if err := e.Messenger.Deliver(ctx, w, text); err != nil {
			l.Warn().Err(err).Msg("delivery failed")
			if rerr := e.Store.ReleaseNotification(ctx, r.ID, w, kind); rerr != nil {
				l.Error().Err(rerr).Msg("release notification")
				errs = append(errs, rerr)
			}
			out = append(out, Outcome{ReservationID: r.ID, WaiterID: w, Kind: kind})
			continue
		}
		l.Info().Msg("notification sent")
		out = append(out, Outcome{ReservationID: r.ID, WaiterID: w, Kind: kind, Delivered: true})
	}
	return out, errors.Join(errs...)
}

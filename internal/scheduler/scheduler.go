package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/notify"
	"github.com/example/tablebook/internal/render"
)

// dailyWindow is how long after its start time a daily job may still fire.
const dailyWindow = time.Hour

type Store interface {
	ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error)
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

// Scheduler drives the notification engine on every tick and runs the
// daily morning report and retention cleanup once per local date.
type Scheduler struct {
	Engine    *notify.Engine
	Store     Store
	Messenger notify.Messenger
	Staff     []string
	Location  *time.Location
	Interval  time.Duration

	MorningReportAt string
	CleanupAt       string
	RetentionDays   int

	Log zerolog.Logger
	Now func() time.Time

	mu      sync.Mutex
	lastRun map[string]string // job -> local date
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.Log.Info().Dur("interval", s.Interval).Msg("scheduler started")

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.Tick(ctx, s.now()); err != nil {
		s.Log.Error().Err(err).Msg("tick failed")
	}
}

// Tick runs one pass at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	var errs []error
	if _, err := s.Engine.RunTick(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("notify: %w", err))
	}
	if s.dueToday("morning-report", s.MorningReportAt, now) {
		if err := s.MorningReport(ctx, now); err != nil {
			errs = append(errs, fmt.Errorf("morning report: %w", err))
			s.forget("morning-report")
		}
	}
	if s.dueToday("cleanup", s.CleanupAt, now) {
		if err := s.Cleanup(ctx, now); err != nil {
			errs = append(errs, fmt.Errorf("cleanup: %w", err))
			s.forget("cleanup")
		}
	}
	return errors.Join(errs...)
}

// dueToday claims job for the local date of now when now falls within
// dailyWindow after clock. It returns true at most once per date.
func (s *Scheduler) dueToday(job, clock string, now time.Time) bool {
	if clock == "" {
		return false
	}
	start, err := reservation.ParseClock(clock)
	if err != nil {
		return false
	}
	local := now.In(s.loc())
	minute := local.Hour()*60 + local.Minute()
	if minute < start || minute >= start+int(dailyWindow/time.Minute) {
		return false
	}

	date := local.Format(reservation.DateLayout)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		s.lastRun = map[string]string{}
	}
	if s.lastRun[job] == date {
		return false
	}
	s.lastRun[job] = date
	return true
}

func (s *Scheduler) forget(job string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastRun, job)
}

// MorningReport sends today's reservations, sorted by time, to every staff
// member. Delivery failures are logged per recipient.
func (s *Scheduler) MorningReport(ctx context.Context, now time.Time) error {
	today := reservation.Today(now, s.loc())
	rs, err := s.Store.ListByDate(ctx, today)
	if err != nil {
		return err
	}
	reservation.SortByTime(rs)
	text := render.MorningReport(today, rs)

	sent := 0
	for _, id := range s.Staff {
		if err := s.Messenger.Deliver(ctx, id, text); err != nil {
			s.Log.Warn().Err(err).Str("recipient", id).Msg("morning report not delivered")
			continue
		}
		sent++
	}
	s.Log.Info().Str("date", today).Int("reservations", len(rs)).Int("recipients", sent).Msg("morning report sent")
	return nil
}

// Cleanup deletes reservations dated more than RetentionDays before today.
func (s *Scheduler) Cleanup(ctx context.Context, now time.Time) error {
	if s.RetentionDays < 1 {
		return nil
	}
	cutoff := now.In(s.loc()).AddDate(0, 0, -s.RetentionDays).Format(reservation.DateLayout)
	n, err := s.Store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	s.Log.Info().Str("before", cutoff).Int64("deleted", n).Msg("old reservations removed")
	return nil
}

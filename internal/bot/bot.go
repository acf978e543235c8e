// Package bot turns staff chat messages into reservation operations.
//
// Free text is parsed as a new reservation. Messages starting with "/" are
// commands. A staff member whose booking hit a taken table is in the
// pending state until they send another table number or cancel; while
// pending, every message goes to the pending coordinator.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/extract"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/notify"
	"github.com/example/tablebook/internal/pending"
	"github.com/example/tablebook/internal/render"
)

const (
	DefaultSearchLimit = 10
	minYear, maxYear   = 2020, 2030
)

type Store interface {
	pending.Reservations
	GetByID(ctx context.Context, id int64) (reservation.Reservation, error)
	UpdateFields(ctx context.Context, id int64, p reservation.Patch) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, term string) ([]reservation.Reservation, error)
	SetWaiterTables(ctx context.Context, a reservation.WaiterAssignment) error
	WaiterTables(ctx context.Context, waiterID, date string) ([]string, error)
}

type Options struct {
	Extractor *extract.Extractor
	Checker   availability.Checker
	// Staff may use the bot and receive same-day broadcasts. Empty allows
	// everyone and disables broadcasts.
	Staff    []string
	Location *time.Location
	// Year completes dates written without one; 0 follows the clock.
	Year        int
	SearchLimit int
	Log         zerolog.Logger
	Now         func() time.Time
}

type Bot struct {
	store   Store
	msg     notify.Messenger
	pending *pending.Coordinator
	opts    Options
	staff   map[string]bool

	mu   sync.RWMutex
	year int
}

func New(store Store, msg notify.Messenger, opts Options) *Bot {
	if opts.Extractor == nil {
		opts.Extractor, _ = extract.New(extract.Options{})
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	staff := map[string]bool{}
	for _, id := range opts.Staff {
		staff[id] = true
	}
	return &Bot{
		store:   store,
		msg:     msg,
		pending: pending.NewCoordinator(store, opts.Checker, nil),
		opts:    opts,
		staff:   staff,
		year:    opts.Year,
	}
}

// result is what one message produces: a reply to the sender and an
// optional text for the other staff members.
type result struct {
	reply     string
	broadcast string
}

// Handle processes one inbound message and delivers the replies.
func (b *Bot) Handle(ctx context.Context, sender, text string) error {
	if len(b.staff) > 0 && !b.staff[sender] {
		b.opts.Log.Debug().Str("sender", sender).Msg("ignoring message from non-staff")
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	res, err := b.dispatch(ctx, sender, text)
	if err != nil {
		b.opts.Log.Error().Err(err).Str("sender", sender).Msg("handle message")
		res.reply = render.StoreFailure()
	}
	if res.reply != "" {
		if derr := b.msg.Deliver(ctx, sender, res.reply); derr != nil {
			err = errors.Join(err, fmt.Errorf("reply to %s: %w", sender, derr))
		}
	}
	if res.broadcast != "" {
		b.broadcast(ctx, sender, res.broadcast)
	}
	return err
}

func (b *Bot) broadcast(ctx context.Context, except, text string) {
	for _, id := range b.opts.Staff {
		if id == except {
			continue
		}
		if err := b.msg.Deliver(ctx, id, text); err != nil {
			b.opts.Log.Warn().Err(err).Str("recipient", id).Msg("broadcast not delivered")
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, sender, text string) (result, error) {
	if pending.IsCancel(text) {
		if b.pending.Cancel(sender) {
			return result{reply: render.Cancelled()}, nil
		}
		return result{reply: render.NothingToCancel()}, nil
	}
	if _, ok := b.pending.Pending(sender); ok {
		reply, err := b.pending.Advance(ctx, sender, text)
		if err != nil {
			return b.failure(err)
		}
		return b.fromPending(reply), nil
	}
	if strings.HasPrefix(text, "/") {
		return b.command(ctx, sender, text)
	}
	return b.submit(ctx, sender, text)
}

func (b *Bot) submit(ctx context.Context, sender, text string) (result, error) {
	cand := b.opts.Extractor.Extract(text, b.Year())
	if missing := cand.Missing(extract.Required...); len(missing) > 0 {
		return result{reply: render.Missing(missing)}, nil
	}
	reply, err := b.pending.Submit(ctx, sender, cand)
	if err != nil {
		return b.failure(err)
	}
	return b.fromPending(reply), nil
}

func (b *Bot) fromPending(r pending.Reply) result {
	switch r.Outcome {
	case pending.Persisted:
		text := render.Created(r.Reservation)
		res := result{reply: text}
		if r.Reservation.Date == b.today() {
			res.broadcast = text
		}
		b.opts.Log.Info().Int64("reservation_id", r.ID).Str("date", r.Reservation.Date).Msg("reservation created")
		return res
	case pending.StillConflicting:
		return result{reply: render.Conflict(r.Reservation, r.Conflict)}
	case pending.Cancelled:
		return result{reply: render.Cancelled()}
	case pending.NeedsTableNumber:
		return result{reply: render.NeedsTableNumber()}
	}
	return result{}
}

// failure turns validation and lookup errors into replies. Anything else
// is returned to the caller.
func (b *Bot) failure(err error) (result, error) {
	var v *internaltypes.ValidationError
	if errors.As(err, &v) {
		return result{reply: render.Invalid(err)}, nil
	}
	if errors.Is(err, internaltypes.ErrNoPending) {
		return result{reply: render.NothingToCancel()}, nil
	}
	return result{}, err
}

func (b *Bot) today() string {
	return reservation.Today(b.opts.Now(), b.opts.Location)
}

// Year is the reference year for dates written without one.
func (b *Bot) Year() int {
	b.mu.RLock()
	y := b.year
	b.mu.RUnlock()
	if y != 0 {
		return y
	}
	return b.opts.Now().In(b.opts.Location).Year()
}

func (b *Bot) command(ctx context.Context, sender, text string) (result, error) {
	name, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "/start", "/help":
		return result{reply: render.Help()}, nil
	case "/today":
		return b.dayList(ctx, b.today())
	case "/date":
		p, err := reservation.ParseEdit("date", args, b.Year())
		if err != nil {
			return result{reply: render.Usage("/date DD.MM")}, nil
		}
		return b.dayList(ctx, *p.Date)
	case "/search":
		if args == "" {
			return result{reply: render.Usage("/search TEXT")}, nil
		}
		rs, err := b.store.Search(ctx, args)
		if err != nil {
			return result{}, internaltypes.Persist("search", err)
		}
		return result{reply: render.SearchResults(args, rs, b.opts.SearchLimit)}, nil
	case "/delete":
		return b.delete(ctx, args)
	case "/edit":
		return b.edit(ctx, sender, args)
	case "/tables":
		return b.tables(ctx, sender, args)
	case "/year":
		y, err := strconv.Atoi(args)
		if err != nil || y < minYear || y > maxYear {
			return result{reply: render.Usage(fmt.Sprintf("/year YYYY (%d..%d)", minYear, maxYear))}, nil
		}
		b.mu.Lock()
		b.year = y
		b.mu.Unlock()
		return result{reply: render.YearSet(y)}, nil
	}
	return result{reply: render.Help()}, nil
}

func (b *Bot) dayList(ctx context.Context, date string) (result, error) {
	rs, err := b.store.ListByDate(ctx, date)
	if err != nil {
		return result{}, internaltypes.Persist("list reservations", err)
	}
	reservation.SortByTime(rs)
	return result{reply: render.DayList(date, rs)}, nil
}

func (b *Bot) delete(ctx context.Context, args string) (result, error) {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return result{reply: render.Usage("/delete ID")}, nil
	}
	ok, err := b.store.Delete(ctx, id)
	if err != nil {
		return result{}, internaltypes.Persist("delete reservation", err)
	}
	if !ok {
		return result{reply: render.NotFound(id)}, nil
	}
	b.opts.Log.Info().Int64("reservation_id", id).Msg("reservation deleted")
	return result{reply: render.Deleted(id)}, nil
}

func (b *Bot) edit(ctx context.Context, sender, args string) (result, error) {
	fields := strings.SplitN(args, " ", 3)
	if len(fields) < 3 {
		return result{reply: render.Usage("/edit ID FIELD VALUE")}, nil
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return result{reply: render.Usage("/edit ID FIELD VALUE")}, nil
	}

	current, err := b.store.GetByID(ctx, id)
	if errors.Is(err, internaltypes.ErrNotFound) {
		return result{reply: render.NotFound(id)}, nil
	}
	if err != nil {
		return result{}, internaltypes.Persist("get reservation", err)
	}

	patch, err := reservation.ParseEdit(strings.ToLower(fields[1]), fields[2], b.Year())
	if err != nil {
		return b.failure(err)
	}

	if patch.TableNumber != nil || patch.Date != nil || patch.Time != nil {
		next := patch.Apply(current)
		existing, err := b.store.ListByDate(ctx, next.Date)
		if err != nil {
			return result{}, internaltypes.Persist("list reservations", err)
		}
		verdict, err := b.opts.Checker.Check(next.TableNumber, next.Date, next.Time, existing, id)
		if err != nil {
			return b.failure(err)
		}
		if c, conflict := verdict.First(); conflict {
			return result{reply: render.EditConflict(next, c)}, nil
		}
	}

	ok, err := b.store.UpdateFields(ctx, id, patch)
	if err != nil {
		return result{}, internaltypes.Persist("update reservation", err)
	}
	if !ok {
		return result{reply: render.NotFound(id)}, nil
	}
	updated, err := b.store.GetByID(ctx, id)
	if err != nil {
		return result{}, internaltypes.Persist("get reservation", err)
	}

	b.opts.Log.Info().Int64("reservation_id", id).Str("field", fields[1]).Str("by", sender).Msg("reservation updated")
	text := render.Updated(updated)
	res := result{reply: text}
	if updated.Date == b.today() {
		res.broadcast = text
	}
	return res, nil
}

func (b *Bot) tables(ctx context.Context, sender, args string) (result, error) {
	today := b.today()
	if args == "" {
		tables, err := b.store.WaiterTables(ctx, sender, today)
		if err != nil {
			return result{}, internaltypes.Persist("waiter tables", err)
		}
		return result{reply: render.TablesSet(today, tables)}, nil
	}

	tables := reservation.ParseTableList(args)
	if len(tables) == 0 {
		return result{reply: render.Usage("/tables 11-14, 16")}, nil
	}
	err := b.store.SetWaiterTables(ctx, reservation.WaiterAssignment{WaiterID: sender, Date: today, Tables: tables})
	if err != nil {
		return result{}, internaltypes.Persist("set waiter tables", err)
	}
	return result{reply: render.TablesSet(today, tables)}, nil
}

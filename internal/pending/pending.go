// Package pending holds bookings that hit a table conflict until the same
// staff member supplies another table number or cancels.
//
// Per actor the coordinator is either idle (no entry in the Store) or
// awaiting a table reassignment (one entry). A new conflicting submission
// replaces the previous entry.
package pending

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/extract"
	"github.com/example/tablebook/internal/internaltypes"
)

type Outcome int

const (
	// Persisted: the candidate was saved; the actor is idle again.
	Persisted Outcome = iota + 1
	// StillConflicting: the candidate is parked awaiting another table.
	StillConflicting
	// Cancelled: the parked candidate was discarded.
	Cancelled
	// NeedsTableNumber: the input was not a table number; nothing changed.
	NeedsTableNumber
)

func (o Outcome) String() string {
	switch o {
	case Persisted:
		return "persisted"
	case StillConflicting:
		return "still-conflicting"
	case Cancelled:
		return "cancelled"
	case NeedsTableNumber:
		return "needs-table-number"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Correction is a candidate parked after a conflict.
type Correction struct {
	Candidate extract.Result
	Conflict  availability.Conflict
}

// Reply describes the result of one transition.
type Reply struct {
	Outcome     Outcome
	ID          int64
	Reservation reservation.Reservation
	Conflict    availability.Conflict
}

// Reservations is the slice of the reservation store the coordinator needs.
type Reservations interface {
	Create(ctx context.Context, r reservation.Reservation) (int64, error)
	ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error)
}

var cancelWords = map[string]bool{
	"cancel":   true,
	"/cancel":  true,
	"отмена":   true,
	"отменить": true,
	"/отмена":  true,
}

// IsCancel reports whether input asks to abandon the pending booking.
func IsCancel(input string) bool {
	return cancelWords[strings.ToLower(strings.TrimSpace(input))]
}

type Coordinator struct {
	store   Store
	res     Reservations
	checker availability.Checker

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCoordinator(res Reservations, checker availability.Checker, store Store) *Coordinator {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Coordinator{store: store, res: res, checker: checker, locks: map[string]*sync.Mutex{}}
}

// lock serialises transitions of one actor.
func (c *Coordinator) lock(actor string) func() {
	c.mu.Lock()
	l, ok := c.locks[actor]
	if !ok {
		l = &sync.Mutex{}
		c.locks[actor] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Submit checks a fresh candidate. A free table is persisted right away; a
// conflict parks the candidate for actor, replacing anything parked before.
func (c *Coordinator) Submit(ctx context.Context, actor string, cand extract.Result) (Reply, error) {
	defer c.lock(actor)()
	return c.tryPersist(ctx, actor, cand)
}

// Advance feeds the next message of an actor with a parked candidate. A bare
// table number replaces the candidate's table (clearing the strict flag) and
// re-checks it. Cancel words discard the candidate.
func (c *Coordinator) Advance(ctx context.Context, actor, input string) (Reply, error) {
	defer c.lock(actor)()

	p, ok := c.store.Get(actor)
	if !ok {
		return Reply{}, internaltypes.ErrNoPending
	}
	if IsCancel(input) {
		c.store.Delete(actor)
		return Reply{Outcome: Cancelled, Reservation: p.Candidate.Reservation()}, nil
	}
	num, strict, ok := reservation.ParseTableToken(input)
	if !ok || strict {
		return Reply{Outcome: NeedsTableNumber, Conflict: p.Conflict}, nil
	}
	cand := p.Candidate
	cand.TableNumber = num
	cand.TableStrict = false
	return c.tryPersist(ctx, actor, cand)
}

// Cancel discards the actor's parked candidate. It reports whether there
// was one.
func (c *Coordinator) Cancel(actor string) bool {
	defer c.lock(actor)()
	_, ok := c.store.Get(actor)
	c.store.Delete(actor)
	return ok
}

// Pending returns the parked candidate of actor, if any.
func (c *Coordinator) Pending(actor string) (Correction, bool) {
	return c.store.Get(actor)
}

func (c *Coordinator) tryPersist(ctx context.Context, actor string, cand extract.Result) (Reply, error) {
	existing, err := c.res.ListByDate(ctx, cand.Date)
	if err != nil {
		return Reply{}, internaltypes.Persist("list reservations", err)
	}
	verdict, err := c.checker.Check(cand.TableNumber, cand.Date, cand.Time, existing, 0)
	if err != nil {
		return Reply{}, err
	}
	if first, conflict := verdict.First(); conflict {
		c.store.Put(actor, Correction{Candidate: cand, Conflict: first})
		return Reply{Outcome: StillConflicting, Reservation: cand.Reservation(), Conflict: first}, nil
	}

	r := cand.Reservation()
	id, err := c.res.Create(ctx, r)
	if err != nil {
		return Reply{}, internaltypes.Persist("create reservation", err)
	}
	r.ID = id
	c.store.Delete(actor)
	return Reply{Outcome: Persisted, ID: id, Reservation: r}, nil
}

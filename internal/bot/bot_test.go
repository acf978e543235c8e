package bot

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/internaltypes"
)

var yekt = time.FixedZone("YEKT", 5*3600)

type memStore struct {
	mu      sync.Mutex
	rows    map[int64]reservation.Reservation
	next    int64
	tables  map[string][]string
	failing bool
}

func newMemStore(rows ...reservation.Reservation) *memStore {
	s := &memStore{rows: map[int64]reservation.Reservation{}, tables: map[string][]string{}}
	for _, r := range rows {
		s.rows[r.ID] = r
		if r.ID > s.next {
			s.next = r.ID
		}
	}
	return s
}

var errDown = errors.New("db down")

func (s *memStore) Create(_ context.Context, r reservation.Reservation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errDown
	}
	s.next++
	r.ID = s.next
	s.rows[r.ID] = r
	return r.ID, nil
}

func (s *memStore) sorted(keep func(reservation.Reservation) bool) []reservation.Reservation {
	var out []reservation.Reservation
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) ListByDate(_ context.Context, date string) ([]reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errDown
	}
	return s.sorted(func(r reservation.Reservation) bool { return r.Date == date }), nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return reservation.Reservation{}, internaltypes.ErrNotFound
	}
	return r, nil
}

func (s *memStore) UpdateFields(_ context.Context, id int64, p reservation.Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return false, nil
	}
	s.rows[id] = p.Apply(r)
	return true, nil
}

func (s *memStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[id]
	delete(s.rows, id)
	return ok, nil
}

func (s *memStore) Search(_ context.Context, term string) ([]reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	term = strings.ToLower(term)
	return s.sorted(func(r reservation.Reservation) bool {
		return strings.Contains(strings.ToLower(r.GuestName), term) || strings.Contains(r.Phone, term)
	}), nil
}

func (s *memStore) SetWaiterTables(_ context.Context, a reservation.WaiterAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[a.WaiterID+"/"+a.Date] = a.Tables
	return nil
}

func (s *memStore) WaiterTables(_ context.Context, waiterID, date string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[waiterID+"/"+date], nil
}

type inbox struct {
	mu   sync.Mutex
	msgs map[string][]string
}

func (m *inbox) Deliver(_ context.Context, to, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.msgs == nil {
		m.msgs = map[string][]string{}
	}
	m.msgs[to] = append(m.msgs[to], text)
	return nil
}

// last returns the most recent message to recipient.
func (m *inbox) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.msgs[to]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func (m *inbox) count(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs[to])
}

const (
	admin  = "79120000001"
	waiter = "79120000002"
)

var olga = reservation.Reservation{
	ID: 1, Date: "2026-02-26", Time: "19:00", TableNumber: "21", GuestName: "Olga", Phone: "+79990001122", Guests: 4,
}

func newBot(t *testing.T, store *memStore) (*Bot, *inbox) {
	t.Helper()
	msg := &inbox{}
	b := New(store, msg, Options{
		Checker:  availability.Checker{},
		Staff:    []string{admin, waiter},
		Location: yekt,
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2026, 2, 26, 12, 0, 0, 0, yekt) },
	})
	return b, msg
}

func send(t *testing.T, b *Bot, from, text string) {
	t.Helper()
	require.NoError(t, b.Handle(context.Background(), from, text))
}

func TestHandle_CreatesAndBroadcastsToday(t *testing.T) {
	store := newMemStore()
	b, msg := newBot(t, store)

	send(t, b, admin, "Andrey 26.02 18:00 21 89126191729 2 bday")

	reply := msg.last(admin)
	assert.Contains(t, reply, "New reservation #1")
	assert.Equal(t, reply, msg.last(waiter), "same-day booking is broadcast")

	r, err := store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Andrey", r.GuestName)
	assert.Equal(t, "+79126191729", r.Phone)
	assert.Equal(t, "2026-02-26", r.Date)
	assert.Equal(t, "18:00", r.Time)
	assert.Equal(t, "21", r.TableNumber)
	assert.Equal(t, "Birthday", r.Occasion)
}

func TestHandle_FutureDateIsNotBroadcast(t *testing.T) {
	b, msg := newBot(t, newMemStore())

	send(t, b, admin, "Andrey 03.03 18:00 21 89126191729 2")
	assert.Contains(t, msg.last(admin), "New reservation")
	assert.Zero(t, msg.count(waiter))
}

func TestHandle_MissingFields(t *testing.T) {
	store := newMemStore()
	b, msg := newBot(t, store)

	send(t, b, admin, "Andrey 18:00 21")
	assert.Contains(t, msg.last(admin), "Could not recognise: phone, date")
	assert.Empty(t, store.rows)
}

func TestHandle_ConflictThenNewTable(t *testing.T) {
	store := newMemStore(olga)
	b, msg := newBot(t, store)

	send(t, b, admin, "Andrey 26.02 18:00 21 89126191729 2")
	assert.Contains(t, msg.last(admin), "Table 21 is taken")
	assert.Len(t, store.rows, 1)

	// commands are not interpreted while a table is awaited
	send(t, b, admin, "/today")
	assert.Equal(t, "The table number must be digits only. Try again or send \"cancel\".\n", msg.last(admin))

	send(t, b, admin, "22")
	assert.Contains(t, msg.last(admin), "New reservation #2")
	r, err := store.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "22", r.TableNumber)

	// idle again: commands work
	send(t, b, admin, "/today")
	assert.Contains(t, msg.last(admin), "Reservations for 26.02.2026")
}

func TestHandle_PendingIsPerSender(t *testing.T) {
	store := newMemStore(olga)
	b, msg := newBot(t, store)

	send(t, b, admin, "Andrey 26.02 18:00 21 89126191729 2")
	send(t, b, waiter, "/today")
	assert.Contains(t, msg.last(waiter), "Reservations for 26.02.2026")
}

func TestHandle_Cancel(t *testing.T) {
	store := newMemStore(olga)
	b, msg := newBot(t, store)

	send(t, b, admin, "отмена")
	assert.Equal(t, "Nothing to cancel.\n", msg.last(admin))

	send(t, b, admin, "Andrey 26.02 18:00 21 89126191729 2")
	send(t, b, admin, "/cancel")
	assert.Equal(t, "Reservation discarded.\n", msg.last(admin))

	send(t, b, admin, "22")
	assert.Contains(t, msg.last(admin), "Could not recognise")
	assert.Len(t, store.rows, 1)
}

func TestHandle_IgnoresNonStaff(t *testing.T) {
	store := newMemStore()
	b, msg := newBot(t, store)

	send(t, b, "79995550000", "Andrey 26.02 18:00 21 89126191729 2")
	assert.Zero(t, msg.count("79995550000"))
	assert.Empty(t, store.rows)
}

func TestHandle_EmptyStaffAllowsEveryone(t *testing.T) {
	msg := &inbox{}
	b := New(newMemStore(), msg, Options{Location: yekt, Log: zerolog.Nop()})

	send(t, b, "anyone", "/help")
	assert.Contains(t, msg.last("anyone"), "/today")
}

func TestHandle_DayLists(t *testing.T) {
	store := newMemStore(
		olga,
		reservation.Reservation{ID: 2, Date: "2026-02-26", Time: "13:00", TableNumber: "5", GuestName: "Ivan", Guests: 2},
		reservation.Reservation{ID: 3, Date: "2026-03-01", Time: "18:00", TableNumber: "5", GuestName: "Petr", Guests: 3},
	)
	b, msg := newBot(t, store)

	send(t, b, admin, "/today")
	today := msg.last(admin)
	assert.Less(t, strings.Index(today, "Ivan"), strings.Index(today, "Olga"))
	assert.NotContains(t, today, "Petr")

	send(t, b, admin, "/date 01.03")
	assert.Contains(t, msg.last(admin), "Petr")

	send(t, b, admin, "/date 02.03")
	assert.Equal(t, "No reservations for 02.03.2026.\n", msg.last(admin))

	send(t, b, admin, "/date tomorrow")
	assert.Equal(t, "Usage: /date DD.MM\n", msg.last(admin))
}

func TestHandle_Search(t *testing.T) {
	var rows []reservation.Reservation
	for i := int64(1); i <= 12; i++ {
		rows = append(rows, reservation.Reservation{ID: i, Date: "2026-02-26", Time: "18:00", GuestName: "Ivan", Guests: 2})
	}
	b, msg := newBot(t, newMemStore(rows...))

	send(t, b, admin, "/search ivan")
	assert.Contains(t, msg.last(admin), "...and 2 more")

	send(t, b, admin, "/search")
	assert.Equal(t, "Usage: /search TEXT\n", msg.last(admin))
}

func TestHandle_Delete(t *testing.T) {
	store := newMemStore(olga)
	b, msg := newBot(t, store)

	send(t, b, admin, "/delete 1")
	assert.Equal(t, "Reservation #1 deleted.\n", msg.last(admin))
	assert.Empty(t, store.rows)

	send(t, b, admin, "/delete 1")
	assert.Equal(t, "Reservation #1 not found.\n", msg.last(admin))

	send(t, b, admin, "/delete one")
	assert.Equal(t, "Usage: /delete ID\n", msg.last(admin))
}

func TestHandle_Edit(t *testing.T) {
	ivan := reservation.Reservation{ID: 2, Date: "2026-02-27", Time: "18:00", TableNumber: "5", GuestName: "Ivan", Guests: 2}
	store := newMemStore(olga, ivan)
	b, msg := newBot(t, store)
	ctx := context.Background()

	send(t, b, admin, "/edit 2 guests 6")
	assert.Contains(t, msg.last(admin), "Reservation #2 updated")
	assert.Zero(t, msg.count(waiter), "tomorrow's edit is not broadcast")
	r, _ := store.GetByID(ctx, 2)
	assert.Equal(t, 6, r.Guests)

	send(t, b, admin, "/edit 2 guests 30")
	assert.Equal(t, "Invalid guests: must be between 1 and 20.\n", msg.last(admin))

	send(t, b, admin, "/edit 2 deposit 5к")
	r, _ = store.GetByID(ctx, 2)
	assert.Equal(t, 5000, r.Deposit)

	for _, bad := range []string{"kek", "1.5k"} {
		send(t, b, admin, "/edit 2 deposit "+bad)
		assert.Equal(t, "Invalid deposit: enter a number or a shorthand like 5k.\n", msg.last(admin), bad)
		r, _ = store.GetByID(ctx, 2)
		assert.Equal(t, 5000, r.Deposit, bad)
	}

	// moving onto Olga's table and day clashes
	send(t, b, admin, "/edit 2 date 26.02")
	send(t, b, admin, "/edit 2 table 21")
	assert.Contains(t, msg.last(admin), "Not saved: table 21 already has #1")
	r, _ = store.GetByID(ctx, 2)
	assert.Equal(t, "5", r.TableNumber)

	// a reservation never clashes with itself
	send(t, b, admin, "/edit 1 time 20:00")
	assert.Contains(t, msg.last(admin), "Reservation #1 updated")
	assert.Contains(t, msg.last(waiter), "Reservation #1 updated", "today's edit is broadcast")

	send(t, b, admin, "/edit 9 guests 2")
	assert.Equal(t, "Reservation #9 not found.\n", msg.last(admin))

	send(t, b, admin, "/edit 2 colour red")
	assert.Contains(t, msg.last(admin), "Invalid field")

	send(t, b, admin, "/edit 2")
	assert.Equal(t, "Usage: /edit ID FIELD VALUE\n", msg.last(admin))
}

func TestHandle_Tables(t *testing.T) {
	store := newMemStore()
	b, msg := newBot(t, store)

	send(t, b, waiter, "/tables 14-11, 16")
	assert.Equal(t, "Your tables on 26.02.2026: 11, 12, 13, 14, 16\n", msg.last(waiter))
	assert.Equal(t, []string{"11", "12", "13", "14", "16"}, store.tables[waiter+"/2026-02-26"])

	send(t, b, waiter, "/tables 1-20000000")
	assert.Equal(t, "Usage: /tables 11-14, 16\n", msg.last(waiter))
	assert.Equal(t, []string{"11", "12", "13", "14", "16"}, store.tables[waiter+"/2026-02-26"])

	send(t, b, waiter, "/tables")
	assert.Equal(t, "Your tables on 26.02.2026: 11, 12, 13, 14, 16\n", msg.last(waiter))

	send(t, b, waiter, "/tables none")
	assert.Equal(t, "Usage: /tables 11-14, 16\n", msg.last(waiter))
}

func TestHandle_Year(t *testing.T) {
	store := newMemStore()
	b, msg := newBot(t, store)

	send(t, b, admin, "/year 1999")
	assert.Contains(t, msg.last(admin), "Usage: /year YYYY")
	assert.Equal(t, 2026, b.Year())

	send(t, b, admin, "/year 2027")
	assert.Equal(t, "Dates without a year now use 2027.\n", msg.last(admin))
	assert.Equal(t, 2027, b.Year())

	send(t, b, admin, "Andrey 03.03 18:00 21 89126191729 2")
	r, err := store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2027-03-03", r.Date)
}

func TestHandle_UnknownCommandShowsHelp(t *testing.T) {
	b, msg := newBot(t, newMemStore())
	send(t, b, admin, "/whatever")
	assert.Contains(t, msg.last(admin), "*Reservation bot*")
}

func TestHandle_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.failing = true
	b, msg := newBot(t, store)

	err := b.Handle(context.Background(), admin, "Andrey 26.02 18:00 21 89126191729 2")
	var pe *internaltypes.PersistenceError
	assert.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, "The reservation book is not reachable right now. Try again in a minute.\n", msg.last(admin))
}

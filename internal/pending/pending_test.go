package pending

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/extract"
	"github.com/example/tablebook/internal/internaltypes"
)

type fakeReservations struct {
	mu      sync.Mutex
	rows    []reservation.Reservation
	failing bool
}

func (f *fakeReservations) Create(_ context.Context, r reservation.Reservation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errors.New("disk full")
	}
	r.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, r)
	return r.ID, nil
}

func (f *fakeReservations) ListByDate(_ context.Context, date string) ([]reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range f.rows {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func candidate(table string, at string) extract.Result {
	return extract.Result{
		Name: "Andrey", Phone: "+79126191729", Date: "2026-02-26", Time: at,
		TableNumber: table, TableStrict: true, Guests: 2,
	}
}

func newFixture() (*Coordinator, *fakeReservations) {
	res := &fakeReservations{rows: []reservation.Reservation{{
		ID: 1, Date: "2026-02-26", Time: "18:00", TableNumber: "21", GuestName: "Olga", Guests: 4,
	}}}
	return NewCoordinator(res, availability.Checker{}, NewMemoryStore()), res
}

func TestSubmit_FreeTablePersists(t *testing.T) {
	c, res := newFixture()
	reply, err := c.Submit(context.Background(), "staff-1", candidate("22", "19:30"))
	require.NoError(t, err)

	assert.Equal(t, Persisted, reply.Outcome)
	assert.Equal(t, int64(2), reply.ID)
	assert.Len(t, res.rows, 2)
	_, parked := c.Pending("staff-1")
	assert.False(t, parked)
}

func TestSubmit_ConflictThenReassign(t *testing.T) {
	c, res := newFixture()
	ctx := context.Background()

	reply, err := c.Submit(ctx, "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)
	assert.Equal(t, StillConflicting, reply.Outcome)
	assert.Equal(t, int64(1), reply.Conflict.ID)
	_, parked := c.Pending("staff-1")
	require.True(t, parked)

	reply, err = c.Advance(ctx, "staff-1", "22")
	require.NoError(t, err)
	assert.Equal(t, Persisted, reply.Outcome)
	assert.Equal(t, "22", reply.Reservation.TableNumber)
	assert.False(t, reply.Reservation.TableStrict)

	require.Len(t, res.rows, 2)
	assert.Equal(t, "22", res.rows[1].TableNumber)
	_, parked = c.Pending("staff-1")
	assert.False(t, parked)
}

func TestAdvance_StillConflicting(t *testing.T) {
	c, res := newFixture()
	ctx := context.Background()
	res.rows = append(res.rows, reservation.Reservation{ID: 2, Date: "2026-02-26", Time: "20:00", TableNumber: "22"})

	_, err := c.Submit(ctx, "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)

	reply, err := c.Advance(ctx, "staff-1", "22")
	require.NoError(t, err)
	assert.Equal(t, StillConflicting, reply.Outcome)
	assert.Equal(t, int64(2), reply.Conflict.ID)

	p, ok := c.Pending("staff-1")
	require.True(t, ok)
	assert.Equal(t, "22", p.Candidate.TableNumber)
	assert.False(t, p.Candidate.TableStrict)
	assert.Len(t, res.rows, 2)
}

func TestAdvance_NonNumericInputKeepsState(t *testing.T) {
	c, _ := newFixture()
	ctx := context.Background()
	_, err := c.Submit(ctx, "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)

	for _, in := range []string{"twenty", "22!", "", "2 2"} {
		reply, err := c.Advance(ctx, "staff-1", in)
		require.NoError(t, err)
		assert.Equal(t, NeedsTableNumber, reply.Outcome, in)
	}
	p, ok := c.Pending("staff-1")
	require.True(t, ok)
	assert.Equal(t, "21", p.Candidate.TableNumber)
}

func TestAdvance_CancelWord(t *testing.T) {
	c, res := newFixture()
	ctx := context.Background()
	_, err := c.Submit(ctx, "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)

	reply, err := c.Advance(ctx, "staff-1", "Отмена")
	require.NoError(t, err)
	assert.Equal(t, Cancelled, reply.Outcome)
	assert.Len(t, res.rows, 1)

	_, err = c.Advance(ctx, "staff-1", "22")
	assert.ErrorIs(t, err, internaltypes.ErrNoPending)
}

func TestCancel(t *testing.T) {
	c, _ := newFixture()
	assert.False(t, c.Cancel("staff-1"))

	_, err := c.Submit(context.Background(), "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)
	assert.True(t, c.Cancel("staff-1"))
	_, ok := c.Pending("staff-1")
	assert.False(t, ok)
}

func TestSubmit_ReplacesPreviousPending(t *testing.T) {
	c, _ := newFixture()
	ctx := context.Background()

	_, err := c.Submit(ctx, "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)
	second := candidate("21", "17:00")
	second.Name = "Boris"
	_, err = c.Submit(ctx, "staff-1", second)
	require.NoError(t, err)

	p, ok := c.Pending("staff-1")
	require.True(t, ok)
	assert.Equal(t, "Boris", p.Candidate.Name)
}

func TestActorsAreIsolated(t *testing.T) {
	c, _ := newFixture()
	ctx := context.Background()

	_, err := c.Submit(ctx, "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)

	_, err = c.Advance(ctx, "staff-2", "22")
	assert.ErrorIs(t, err, internaltypes.ErrNoPending)
	_, ok := c.Pending("staff-1")
	assert.True(t, ok)
}

func TestAdvance_PersistenceFailureKeepsPending(t *testing.T) {
	c, res := newFixture()
	ctx := context.Background()
	_, err := c.Submit(ctx, "staff-1", candidate("21", "19:30"))
	require.NoError(t, err)

	res.failing = true
	_, err = c.Advance(ctx, "staff-1", "22")
	var perr *internaltypes.PersistenceError
	require.True(t, errors.As(err, &perr))

	_, ok := c.Pending("staff-1")
	assert.True(t, ok)
}

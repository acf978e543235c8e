// Package storetest is the behavioural contract every reservations.Store
// implementation has to satisfy.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/reservations"
)

// Factory returns an empty store. Closing it is the factory's job.
type Factory func(t *testing.T) reservations.Store

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s reservations.Store)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"GetMissing", testGetMissing},
		{"UpdateFields", testUpdateFields},
		{"DeleteCascadesNotifications", testDeleteCascades},
		{"ListByDateOrder", testListByDateOrder},
		{"Search", testSearch},
		{"DeleteBefore", testDeleteBefore},
		{"NotificationClaim", testNotificationClaim},
		{"NotificationClaimIsAtomic", testNotificationClaimAtomic},
		{"WaiterAssignments", testWaiterAssignments},
		{"Users", testUsers},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func sample(date, clock, table, name string) reservation.Reservation {
	return reservation.Reservation{
		Date: date, Time: clock, TableNumber: table, GuestName: name,
		Phone: "+79123456789", Guests: 2,
	}
}

func mustCreate(t *testing.T, s reservations.Store, r reservation.Reservation) int64 {
	t.Helper()
	id, err := s.Create(context.Background(), r)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func testCreateAndGet(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	in := reservation.Reservation{
		Date: "2026-02-26", Time: "18:30", TableNumber: "21", TableStrict: true,
		GuestName: "Андрей", Phone: "+79123456789", Guests: 4, Deposit: 5000, Occasion: "Birthday",
	}
	id := mustCreate(t, s, in)

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
	in.ID = id
	in.CreatedAt = got.CreatedAt
	assert.Equal(t, in, got)
}

func testGetMissing(t *testing.T, s reservations.Store) {
	_, err := s.GetByID(context.Background(), 4242)
	assert.ErrorIs(t, err, internaltypes.ErrNotFound)
}

func testUpdateFields(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, sample("2026-02-26", "18:30", "21", "Andrey"))

	name, table, strict := "Ivan", "22", true
	ok, err := s.UpdateFields(ctx, id, reservation.Patch{GuestName: &name, TableNumber: &table, TableStrict: &strict})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ivan", got.GuestName)
	assert.Equal(t, "22", got.TableNumber)
	assert.True(t, got.TableStrict)
	assert.Equal(t, "18:30", got.Time)

	ok, err = s.UpdateFields(ctx, id, reservation.Patch{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateFields(ctx, id+1000, reservation.Patch{GuestName: &name})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.UpdateFields(ctx, id+1000, reservation.Patch{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDeleteCascades(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, sample("2026-02-26", "18:30", "21", "Andrey"))
	inserted, err := s.RecordNotification(ctx, id, "w1", reservation.KindArrival)
	require.NoError(t, err)
	require.True(t, inserted)

	ok, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := s.NotificationExists(ctx, id, "w1", reservation.KindArrival)
	require.NoError(t, err)
	assert.False(t, exists)

	ok, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testListByDateOrder(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	late := mustCreate(t, s, sample("2026-02-26", "20:00", "1", "A"))
	first := mustCreate(t, s, sample("2026-02-26", "18:00", "2", "B"))
	second := mustCreate(t, s, sample("2026-02-26", "18:00", "3", "C"))
	mustCreate(t, s, sample("2026-02-27", "12:00", "4", "D"))

	got, err := s.ListByDate(ctx, "2026-02-26")
	require.NoError(t, err)
	var ids []int64
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{first, second, late}, ids)

	none, err := s.ListByDate(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func testSearch(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	older := mustCreate(t, s, sample("2026-02-20", "18:00", "1", "Андрей Петров"))
	newer := mustCreate(t, s, sample("2026-02-26", "18:00", "2", "андрей"))
	other := sample("2026-02-26", "19:00", "3", "Ivan")
	other.Phone = "+79990001122"
	otherID := mustCreate(t, s, other)

	got, err := s.Search(ctx, "АНДРЕЙ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer, got[0].ID)
	assert.Equal(t, older, got[1].ID)

	got, err = s.Search(ctx, "0001122")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, otherID, got[0].ID)

	got, err = s.Search(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testDeleteBefore(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	mustCreate(t, s, sample("2026-01-01", "18:00", "1", "Old"))
	mustCreate(t, s, sample("2026-01-25", "18:00", "1", "Older"))
	keep := mustCreate(t, s, sample("2026-01-26", "18:00", "1", "Boundary"))
	undated := mustCreate(t, s, sample("", "18:00", "1", "Undated"))

	n, err := s.DeleteBefore(ctx, "2026-01-26")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.GetByID(ctx, keep)
	assert.NoError(t, err)
	_, err = s.GetByID(ctx, undated)
	assert.NoError(t, err)
}

func testNotificationClaim(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, sample("2026-02-26", "18:30", "21", "Andrey"))

	inserted, err := s.RecordNotification(ctx, id, "w1", reservation.KindArrival)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.RecordNotification(ctx, id, "w1", reservation.KindArrival)
	require.NoError(t, err)
	assert.False(t, inserted)

	// other kinds and waiters are independent
	inserted, err = s.RecordNotification(ctx, id, "w1", reservation.KindDeposit)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.RecordNotification(ctx, id, "w2", reservation.KindArrival)
	require.NoError(t, err)
	assert.True(t, inserted)

	require.NoError(t, s.ReleaseNotification(ctx, id, "w1", reservation.KindArrival))
	exists, err := s.NotificationExists(ctx, id, "w1", reservation.KindArrival)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.NotificationExists(ctx, id, "w2", reservation.KindArrival)
	require.NoError(t, err)
	assert.True(t, exists)
}

func testNotificationClaimAtomic(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	id := mustCreate(t, s, sample("2026-02-26", "18:30", "21", "Andrey"))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := s.RecordNotification(ctx, id, "w1", reservation.KindOccasion)
			if err != nil {
				return
			}
			if inserted {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func testWaiterAssignments(t *testing.T, s reservations.Store) {
	ctx := context.Background()

	tables, err := s.WaiterTables(ctx, "w1", "2026-02-26")
	require.NoError(t, err)
	assert.Empty(t, tables)

	require.NoError(t, s.SetWaiterTables(ctx, reservation.WaiterAssignment{
		WaiterID: "w1", WaiterName: "Olga", Date: "2026-02-26", Tables: []string{"11", "12"},
	}))
	require.NoError(t, s.SetWaiterTables(ctx, reservation.WaiterAssignment{
		WaiterID: "w2", Date: "2026-02-26", Tables: []string{"12", "13"},
	}))
	// replaces, not merges
	require.NoError(t, s.SetWaiterTables(ctx, reservation.WaiterAssignment{
		WaiterID: "w1", WaiterName: "Olga", Date: "2026-02-26", Tables: []string{"12", "21"},
	}))

	tables, err = s.WaiterTables(ctx, "w1", "2026-02-26")
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "21"}, tables)

	waiters, err := s.WaitersForTable(ctx, "12", "2026-02-26")
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, waiters)

	waiters, err = s.WaitersForTable(ctx, "11", "2026-02-26")
	require.NoError(t, err)
	assert.Empty(t, waiters)

	// "1" must not match "12" or "21"
	waiters, err = s.WaitersForTable(ctx, "1", "2026-02-26")
	require.NoError(t, err)
	assert.Empty(t, waiters)

	waiters, err = s.WaitersForTable(ctx, "12", "2026-02-27")
	require.NoError(t, err)
	assert.Empty(t, waiters)
}

func testUsers(t *testing.T, s reservations.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, "admin", "$2a$10$hash"))

	id, hash, err := s.UserCredentials(ctx, "admin")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, "$2a$10$hash", hash)

	assert.Error(t, s.CreateUser(ctx, "admin", "other"))

	_, _, err = s.UserCredentials(ctx, "ghost")
	assert.ErrorIs(t, err, internaltypes.ErrNotFound)
}

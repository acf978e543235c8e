// Package reservations persists reservations, waiter assignments,
// notification dedup records and staff accounts.
package reservations

import (
	"context"

	"github.com/example/tablebook/internal/domain/reservation"
)

// Store is implemented by the Postgres Repo and by sqlitestore.Store.
// Lookups of missing rows return internaltypes.ErrNotFound.
type Store interface {
	Create(ctx context.Context, r reservation.Reservation) (int64, error)
	GetByID(ctx context.Context, id int64) (reservation.Reservation, error)
	// UpdateFields applies the set fields of p. It reports false when no
	// reservation has that id.
	UpdateFields(ctx context.Context, id int64, p reservation.Patch) (bool, error)
	// Delete removes a reservation and its notification records.
	Delete(ctx context.Context, id int64) (bool, error)
	// ListByDate is ordered by time, then id.
	ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error)
	ListAll(ctx context.Context) ([]reservation.Reservation, error)
	// Search matches name or phone substrings, newest date first.
	Search(ctx context.Context, term string) ([]reservation.Reservation, error)
	// DeleteBefore removes reservations dated strictly before date.
	DeleteBefore(ctx context.Context, date string) (int64, error)

	NotificationExists(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error)
	// RecordNotification inserts the dedup record unless it exists and
	// reports whether this call inserted it.
	RecordNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error)
	ReleaseNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) error

	SetWaiterTables(ctx context.Context, a reservation.WaiterAssignment) error
	WaiterTables(ctx context.Context, waiterID, date string) ([]string, error)
	WaitersForTable(ctx context.Context, table, date string) ([]string, error)

	CreateUser(ctx context.Context, username, passwordHash string) error
	UserCredentials(ctx context.Context, username string) (int64, string, error)

	Close() error
}

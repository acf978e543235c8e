// Package sqlitestore is a single-file reservations.Store backed by SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/reservations"
)

//go:embed schema.sql
var schemaSQL string

const columns = `id,res_date,res_time,table_number,table_strict,guest_name,phone,guests,deposit,occasion,created_at`

type Store struct {
	db *sql.DB
}

var _ reservations.Store = (*Store)(nil)

// dsn sets the connection pragmas as URI parameters so every connection
// the pool opens gets them, not only the first one.
func dsn(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"
}

// Open creates or opens the database at path and applies the schema.
// Safe to call on an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func wrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return internaltypes.ErrNotFound
	}
	return fmt.Errorf("sqlite: %w", err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReservation(row scanner) (reservation.Reservation, error) {
	var r reservation.Reservation
	err := row.Scan(&r.ID, &r.Date, &r.Time, &r.TableNumber, &r.TableStrict, &r.GuestName, &r.Phone,
		&r.Guests, &r.Deposit, &r.Occasion, &r.CreatedAt)
	return r, err
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]reservation.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, r reservation.Reservation) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO reservations(res_date,res_time,table_number,table_strict,guest_name,phone,guests,deposit,occasion)
VALUES (?,?,?,?,?,?,?,?,?)`,
		r.Date, r.Time, r.TableNumber, r.TableStrict, r.GuestName, r.Phone, r.Guests, r.Deposit, r.Occasion)
	if err != nil {
		return 0, wrapNotFound(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetByID(ctx context.Context, id int64) (reservation.Reservation, error) {
	r, err := scanReservation(s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM reservations WHERE id=?`, id))
	if err != nil {
		return reservation.Reservation{}, wrapNotFound(err)
	}
	return r, nil
}

func (s *Store) UpdateFields(ctx context.Context, id int64, p reservation.Patch) (bool, error) {
	cols := p.Columns()
	if len(cols) == 0 {
		_, err := s.GetByID(ctx, id)
		if errors.Is(err, internaltypes.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = c.Name + "=?"
		args = append(args, c.Value)
	}
	args = append(args, id)
	return s.affected(ctx, `UPDATE reservations SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
}

func (s *Store) affected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, wrapNotFound(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	return s.affected(ctx, `DELETE FROM reservations WHERE id=?`, id)
}

func (s *Store) ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	return s.list(ctx, `SELECT `+columns+` FROM reservations WHERE res_date=? ORDER BY res_time, id`, date)
}

func (s *Store) ListAll(ctx context.Context) ([]reservation.Reservation, error) {
	return s.list(ctx, `SELECT `+columns+` FROM reservations ORDER BY res_date, res_time, id`)
}

// Search filters in Go: SQLite's lower() only folds ASCII and guest
// names are mostly Cyrillic.
func (s *Store) Search(ctx context.Context, term string) ([]reservation.Reservation, error) {
	all, err := s.list(ctx, `SELECT `+columns+` FROM reservations ORDER BY res_date DESC, res_time, id`)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	var out []reservation.Reservation
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.GuestName), term) || strings.Contains(r.Phone, term) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) DeleteBefore(ctx context.Context, date string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE res_date < ? AND res_date <> ''`, date)
	if err != nil {
		return 0, wrapNotFound(err)
	}
	return res.RowsAffected()
}

func (s *Store) NotificationExists(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM notifications WHERE reservation_id=? AND waiter_id=? AND kind=?)`,
		resID, waiterID, string(kind)).Scan(&exists)
	return exists, err
}

func (s *Store) RecordNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error) {
	return s.affected(ctx, `INSERT OR IGNORE INTO notifications(reservation_id, waiter_id, kind) VALUES (?,?,?)`,
		resID, waiterID, string(kind))
}

func (s *Store) ReleaseNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE reservation_id=? AND waiter_id=? AND kind=?`,
		resID, waiterID, string(kind))
	return err
}

func (s *Store) SetWaiterTables(ctx context.Context, a reservation.WaiterAssignment) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO waiter_assignments(waiter_id, waiter_name, work_date, tables) VALUES (?,?,?,?)
ON CONFLICT (waiter_id, work_date) DO UPDATE
SET waiter_name=excluded.waiter_name, tables=excluded.tables, updated_at=CURRENT_TIMESTAMP`,
		a.WaiterID, a.WaiterName, a.Date, reservation.JoinTables(a.Tables))
	return err
}

func (s *Store) WaiterTables(ctx context.Context, waiterID, date string) ([]string, error) {
	var tables string
	err := s.db.QueryRowContext(ctx, `SELECT tables FROM waiter_assignments WHERE waiter_id=? AND work_date=?`,
		waiterID, date).Scan(&tables)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reservation.SplitTables(tables), nil
}

func (s *Store) WaitersForTable(ctx context.Context, table, date string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT waiter_id, tables FROM waiter_assignments WHERE work_date=? ORDER BY waiter_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a reservation.WaiterAssignment
		var tables string
		if err := rows.Scan(&a.WaiterID, &tables); err != nil {
			return nil, err
		}
		a.Tables = reservation.SplitTables(tables)
		if a.Covers(table) {
			out = append(out, a.WaiterID)
		}
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(username, password_bcrypt) VALUES (?,?)`, username, passwordHash)
	return err
}

func (s *Store) UserCredentials(ctx context.Context, username string) (int64, string, error) {
	var id int64
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT id, password_bcrypt FROM users WHERE username=?`, username).Scan(&id, &hash)
	if err != nil {
		return 0, "", wrapNotFound(err)
	}
	return id, hash, nil
}

package reservations

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/domain/reservation"
)

const columns = `id,res_date,res_time,table_number,table_strict,guest_name,phone,guests,deposit,occasion,created_at`

// Repo is the Postgres Store.
type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

var _ Store = (*Repo)(nil)

func scanReservation(row db.Row) (reservation.Reservation, error) {
	var r reservation.Reservation
	err := row.Scan(&r.ID, &r.Date, &r.Time, &r.TableNumber, &r.TableStrict, &r.GuestName, &r.Phone,
		&r.Guests, &r.Deposit, &r.Occasion, &r.CreatedAt)
	return r, err
}

func collect(rows db.Rows, err error) ([]reservation.Reservation, error) {
	if err != nil {
		return nil, err
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

func (r *Repo) Create(ctx context.Context, res reservation.Reservation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO reservations(res_date,res_time,table_number,table_strict,guest_name,phone,guests,deposit,occasion)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`,
		res.Date, res.Time, res.TableNumber, res.TableStrict, res.GuestName, res.Phone, res.Guests, res.Deposit, res.Occasion,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (reservation.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, `SELECT `+columns+` FROM reservations WHERE id=$1`, id))
	if err != nil {
		return reservation.Reservation{}, db.WrapNotFound(err)
	}
	return res, nil
}

func (r *Repo) UpdateFields(ctx context.Context, id int64, p reservation.Patch) (bool, error) {
	cols := p.Columns()
	if len(cols) == 0 {
		_, err := r.GetByID(ctx, id)
		if db.IsNotFound(err) {
			return false, nil
		}
		return err == nil, err
	}

	sets := make([]string, len(cols))
	args := []any{id}
	for i, c := range cols {
		args = append(args, c.Value)
		sets[i] = fmt.Sprintf("%s=$%d", c.Name, len(args))
	}
	n, err := r.db.ExecCount(ctx, `UPDATE reservations SET `+strings.Join(sets, ", ")+` WHERE id=$1`, args...)
	if err != nil {
		return false, db.WrapNotFound(err)
	}
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.db.ExecCount(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	if err != nil {
		return false, db.WrapNotFound(err)
	}
	return n > 0, nil
}

func (r *Repo) ListByDate(ctx context.Context, date string) ([]reservation.Reservation, error) {
	return collect(r.db.Query(ctx, `SELECT `+columns+` FROM reservations WHERE res_date=$1 ORDER BY res_time, id`, date))
}

func (r *Repo) ListAll(ctx context.Context) ([]reservation.Reservation, error) {
	return collect(r.db.Query(ctx, `SELECT `+columns+` FROM reservations ORDER BY res_date, res_time, id`))
}

func (r *Repo) Search(ctx context.Context, term string) ([]reservation.Reservation, error) {
	return collect(r.db.Query(ctx, `
SELECT `+columns+`
FROM reservations
WHERE strpos(lower(guest_name), lower($1)) > 0 OR strpos(phone, $1) > 0
ORDER BY res_date DESC, res_time, id`, strings.TrimSpace(term)))
}

func (r *Repo) DeleteBefore(ctx context.Context, date string) (int64, error) {
	return r.db.ExecCount(ctx, `DELETE FROM reservations WHERE res_date < $1 AND res_date <> ''`, date)
}

func (r *Repo) NotificationExists(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM notifications WHERE reservation_id=$1 AND waiter_id=$2 AND kind=$3)`,
		resID, waiterID, string(kind)).Scan(&exists)
	return exists, err
}

func (r *Repo) RecordNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) (bool, error) {
	n, err := r.db.ExecCount(ctx, `
INSERT INTO notifications(reservation_id, waiter_id, kind) VALUES ($1,$2,$3)
ON CONFLICT DO NOTHING`, resID, waiterID, string(kind))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Repo) ReleaseNotification(ctx context.Context, resID int64, waiterID string, kind reservation.NotificationKind) error {
	return r.db.Exec(ctx, `DELETE FROM notifications WHERE reservation_id=$1 AND waiter_id=$2 AND kind=$3`,
		resID, waiterID, string(kind))
}

func (r *Repo) SetWaiterTables(ctx context.Context, a reservation.WaiterAssignment) error {
	return r.db.Exec(ctx, `
INSERT INTO waiter_assignments(waiter_id, waiter_name, work_date, tables) VALUES ($1,$2,$3,$4)
ON CONFLICT (waiter_id, work_date) DO UPDATE
SET waiter_name=EXCLUDED.waiter_name, tables=EXCLUDED.tables, updated_at=now()`,
		a.WaiterID, a.WaiterName, a.Date, reservation.JoinTables(a.Tables))
}

func (r *Repo) WaiterTables(ctx context.Context, waiterID, date string) ([]string, error) {
	var tables string
	err := r.db.QueryRow(ctx, `SELECT tables FROM waiter_assignments WHERE waiter_id=$1 AND work_date=$2`, waiterID, date).Scan(&tables)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reservation.SplitTables(tables), nil
}

func (r *Repo) WaitersForTable(ctx context.Context, table, date string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT waiter_id, tables FROM waiter_assignments WHERE work_date=$1 ORDER BY waiter_id`, date)
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

func (r *Repo) CreateUser(ctx context.Context, username, passwordHash string) error {
	return r.db.Exec(ctx, `INSERT INTO users(username, password_bcrypt) VALUES ($1,$2)`, username, passwordHash)
}

func (r *Repo) UserCredentials(ctx context.Context, username string) (int64, string, error) {
	var id int64
	var hash string
	err := r.db.QueryRow(ctx, `SELECT id, password_bcrypt FROM users WHERE username=$1`, username).Scan(&id, &hash)
	if err != nil {
		return 0, "", db.WrapNotFound(err)
	}
	return id, hash, nil
}

func (r *Repo) Close() error {
	r.db.Close()
	return nil
}

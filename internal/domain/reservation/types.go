package reservation

import "time"

// Reservation is a booked use of a table. Date and Time are kept as text
// ("2006-01-02", "15:04") so rows written by older versions still load.
type Reservation struct {
	ID          int64
	Date        string
	Time        string
	TableNumber string
	TableStrict bool
	GuestName   string
	Phone       string
	Guests      int
	Deposit     int
	Occasion    string
	CreatedAt   time.Time
}

type NotificationKind string

const (
	KindArrival  NotificationKind = "arrival-30min"
	KindOccasion NotificationKind = "occasion-1h"
	KindDeposit  NotificationKind = "deposit-1.5h"
)

// WaiterAssignment is the set of tables one waiter covers on one date.
type WaiterAssignment struct {
	WaiterID   string
	WaiterName string
	Date       string
	Tables     []string
}

// Covers reports whether the assignment includes table.
func (a WaiterAssignment) Covers(table string) bool {
	for _, t := range a.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	GuestName   *string
	Phone       *string
	Date        *string
	Time        *string
	TableNumber *string
	TableStrict *bool
	Guests      *int
	Deposit     *int
	Occasion    *string
}

// Column is one column assignment of a Patch.
type Column struct {
	Name  string
	Value any
}

// Columns lists the set fields in a stable order using storage column names.
func (p Patch) Columns() []Column {
	var cols []Column
	if p.GuestName != nil {
		cols = append(cols, Column{"guest_name", *p.GuestName})
	}
	if p.Phone != nil {
		cols = append(cols, Column{"phone", *p.Phone})
	}
	if p.Date != nil {
		cols = append(cols, Column{"res_date", *p.Date})
	}
	if p.Time != nil {
		cols = append(cols, Column{"res_time", *p.Time})
	}
	if p.TableNumber != nil {
		cols = append(cols, Column{"table_number", *p.TableNumber})
	}
	if p.TableStrict != nil {
		cols = append(cols, Column{"table_strict", *p.TableStrict})
	}
	if p.Guests != nil {
		cols = append(cols, Column{"guests", *p.Guests})
	}
	if p.Deposit != nil {
		cols = append(cols, Column{"deposit", *p.Deposit})
	}
	if p.Occasion != nil {
		cols = append(cols, Column{"occasion", *p.Occasion})
	}
	return cols
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return len(p.Columns()) == 0 }

// Apply returns r with the patch applied.
func (p Patch) Apply(r Reservation) Reservation {
	if p.GuestName != nil {
		r.GuestName = *p.GuestName
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.TableNumber != nil {
		r.TableNumber = *p.TableNumber
	}
	if p.TableStrict != nil {
		r.TableStrict = *p.TableStrict
	}
	if p.Guests != nil {
		r.Guests = *p.Guests
	}
	if p.Deposit != nil {
		r.Deposit = *p.Deposit
	}
	if p.Occasion != nil {
		r.Occasion = *p.Occasion
	}
	return r
}

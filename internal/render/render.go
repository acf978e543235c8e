// Package render builds the chat texts sent to staff and waiters.
// Output uses WhatsApp markup (*bold*).
package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/extract"
	"github.com/example/tablebook/internal/internaltypes"
)

const humanDateLayout = "02.01.2006"

// HumanDate renders an ISO date as DD.MM.YYYY; anything else is returned as is.
func HumanDate(iso string) string {
	t, err := time.Parse(reservation.DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format(humanDateLayout)
}

func money(n int) string { return fmt.Sprintf("%d₽", n) }

func tableLabel(r reservation.Reservation) string {
	if r.TableNumber == "" {
		return "not assigned"
	}
	if r.TableStrict {
		return r.TableNumber + " (guest's choice)"
	}
	return r.TableNumber
}

// Card is the multi-line description of one reservation.
func Card(r reservation.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", HumanDate(r.Date))
	fmt.Fprintf(&b, "Time: %s\n", r.Time)
	fmt.Fprintf(&b, "Name: %s\n", r.GuestName)
	fmt.Fprintf(&b, "Phone: %s\n", r.Phone)
	fmt.Fprintf(&b, "Guests: %d\n", r.Guests)
	fmt.Fprintf(&b, "Table: %s\n", tableLabel(r))
	if r.Occasion != "" {
		fmt.Fprintf(&b, "Occasion: %s\n", r.Occasion)
	}
	if r.Deposit > 0 {
		fmt.Fprintf(&b, "Deposit: %s\n", money(r.Deposit))
	}
	return b.String()
}

// Created confirms a saved reservation.
func Created(r reservation.Reservation) string {
	return fmt.Sprintf("*New reservation #%d*\n\n", r.ID) + Card(r)
}

// Updated confirms an edit.
func Updated(r reservation.Reservation) string {
	return fmt.Sprintf("*Reservation #%d updated*\n\n", r.ID) + Card(r)
}

func Deleted(id int64) string {
	return fmt.Sprintf("Reservation #%d deleted.\n", id)
}

// Conflict asks for another table after a clash.
func Conflict(r reservation.Reservation, c availability.Conflict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Table %s is taken*\n\n", r.TableNumber)
	fmt.Fprintf(&b, "%s at %s clashes with #%d: %s, %s, %d guests (%.1fh apart).\n",
		HumanDate(r.Date), r.Time, c.ID, c.Time, c.Name, c.Guests, c.HoursDelta)
	b.WriteString("Send another table number or \"cancel\".\n")
	return b.String()
}

// EditConflict rejects an edit that would double-book a table.
func EditConflict(r reservation.Reservation, c availability.Conflict) string {
	return fmt.Sprintf("Not saved: table %s already has #%d at %s (%s, %.1fh apart).\n",
		r.TableNumber, c.ID, c.Time, c.Name, c.HoursDelta)
}

func NeedsTableNumber() string {
	return "The table number must be digits only. Try again or send \"cancel\".\n"
}

func Cancelled() string { return "Reservation discarded.\n" }

func NothingToCancel() string { return "Nothing to cancel.\n" }

// Missing lists unresolved fields and shows the expected format.
func Missing(fields []extract.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return "Could not recognise: " + strings.Join(names, ", ") + ".\n" +
		"Send the whole reservation again, for example:\n" +
		"Andrey 26.02 18:00 21 89126191729 2 bday\n"
}

func line(r reservation.Reservation) string {
	s := fmt.Sprintf("#%d %s table %s, %s, %d guests, %s", r.ID, r.Time, tableLabel(r), r.GuestName, r.Guests, r.Phone)
	if r.Occasion != "" {
		s += " | " + r.Occasion
	}
	if r.Deposit > 0 {
		s += " | deposit " + money(r.Deposit)
	}
	return s + "\n"
}

// DayList lists the reservations of one date in the given order.
func DayList(date string, rs []reservation.Reservation) string {
	if len(rs) == 0 {
		return fmt.Sprintf("No reservations for %s.\n", HumanDate(date))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Reservations for %s* (%d)\n\n", HumanDate(date), len(rs))
	for _, r := range rs {
		b.WriteString(line(r))
	}
	return b.String()
}

// SearchResults shows up to limit matches and counts the rest.
func SearchResults(term string, rs []reservation.Reservation, limit int) string {
	if len(rs) == 0 {
		return fmt.Sprintf("Nothing found for %q.\n", term)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Found %d for %q*\n\n", len(rs), term)
	for i, r := range rs {
		if i == limit {
			fmt.Fprintf(&b, "...and %d more\n", len(rs)-limit)
			break
		}
		fmt.Fprintf(&b, "%s ", HumanDate(r.Date))
		b.WriteString(line(r))
	}
	return b.String()
}

// MorningReport is the daily digest sent to staff.
func MorningReport(date string, rs []reservation.Reservation) string {
	if len(rs) == 0 {
		return fmt.Sprintf("*Morning report %s*\n\nNo reservations today.\n", HumanDate(date))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Morning report %s*\n\n", HumanDate(date))
	for _, r := range rs {
		fmt.Fprintf(&b, "%s | %s\n", r.Time, r.GuestName)
		fmt.Fprintf(&b, "%s | %d guests\n", r.Phone, r.Guests)
		fmt.Fprintf(&b, "Table: %s\n", tableLabel(r))
		if r.Deposit > 0 {
			fmt.Fprintf(&b, "Deposit: %s\n", money(r.Deposit))
		}
		if r.Occasion != "" {
			fmt.Fprintf(&b, "Occasion: %s\n", r.Occasion)
		}
		b.WriteString("-----------------\n")
	}
	return b.String()
}

// Arrival warns a waiter that guests are due in 30 minutes.
func Arrival(r reservation.Reservation) string {
	var b strings.Builder
	b.WriteString("*Guests arrive in 30 minutes*\n\n")
	fmt.Fprintf(&b, "Table %s\n", r.TableNumber)
	fmt.Fprintf(&b, "%s | %s\n", r.Time, r.GuestName)
	fmt.Fprintf(&b, "%d guests\n", r.Guests)
	if r.Occasion != "" {
		fmt.Fprintf(&b, "Occasion: %s\n", r.Occasion)
	}
	if r.Deposit > 0 {
		fmt.Fprintf(&b, "Deposit: %s\n", money(r.Deposit))
	}
	return b.String()
}

// Celebration reminds a waiter to congratulate the table an hour in.
func Celebration(r reservation.Reservation) string {
	return fmt.Sprintf("*Time to congratulate!*\n\nTable %s\n%s\nOccasion: %s\n\nThe guests arrived an hour ago.\n",
		r.TableNumber, r.GuestName, r.Occasion)
}

// DepositReminder reminds a waiter about the prepaid amount 1.5h in.
func DepositReminder(r reservation.Reservation) string {
	return fmt.Sprintf("*Deposit reminder*\n\nTable %s\n%s\nAmount: %s\n\nThe guests arrived an hour and a half ago.\n",
		r.TableNumber, r.GuestName, money(r.Deposit))
}

// Notification picks the text for a notification kind.
func Notification(kind reservation.NotificationKind, r reservation.Reservation) string {
	switch kind {
	case reservation.KindOccasion:
		return Celebration(r)
	case reservation.KindDeposit:
		return DepositReminder(r)
	}
	return Arrival(r)
}

// TablesSet confirms a waiter's table list.
func TablesSet(date string, tables []string) string {
	if len(tables) == 0 {
		return fmt.Sprintf("No tables assigned to you on %s.\n", HumanDate(date))
	}
	return fmt.Sprintf("Your tables on %s: %s\n", HumanDate(date), strings.Join(tables, ", "))
}

func Help() string {
	return `*Reservation bot*

Send a reservation as one message, for example:
Andrey 26.02 18:00 21 89126191729 2 bday
Add "!" to the table (21!) when the guest asked for it.

/today - today's reservations
/date DD.MM - reservations for a date
/search TEXT - find by name or phone
/edit ID FIELD VALUE - change name, phone, date, time, table, guests, deposit or occasion
/delete ID - delete a reservation
/tables 11-14, 16 - set your tables for today
/year YYYY - year used for dates without one
/cancel - drop a reservation waiting for another table
`
}

// Invalid explains a rejected value.
func Invalid(err error) string {
	var v *internaltypes.ValidationError
	if errors.As(err, &v) {
		return fmt.Sprintf("Invalid %s: %s.\n", v.Field, v.Msg)
	}
	return "Invalid input.\n"
}

func StoreFailure() string {
	return "The reservation book is not reachable right now. Try again in a minute.\n"
}

func NotFound(id int64) string {
	return fmt.Sprintf("Reservation #%d not found.\n", id)
}

// Usage shows the expected arguments of a command.
func Usage(example string) string {
	return "Usage: " + example + "\n"
}

func YearSet(year int) string {
	return fmt.Sprintf("Dates without a year now use %d.\n", year)
}

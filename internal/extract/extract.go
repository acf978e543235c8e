// Package extract turns free-form staff messages into reservation fields.
//
// Extraction is a fixed sequence of passes (phone, date, time, table,
// guests, deposit, guest fallback, occasion, name) over a working copy of
// the text. Each pass consumes the span it matched so later passes never
// read the same characters twice. Extraction never fails: fields that could
// not be recognised stay empty and callers decide which ones they require.
package extract

import (
	"github.com/example/tablebook/internal/domain/reservation"
	"golang.org/x/text/unicode/norm"
)

// Result is the best-effort projection of one message.
type Result struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Guests      int    `json:"guests"`
	Deposit     int    `json:"deposit"`
	Occasion    string `json:"occasion"`
	TableNumber string `json:"table_number"`
	TableStrict bool   `json:"table_strict"`
	RawText     string `json:"raw_text"`
}

// Reservation converts the result into an unsaved reservation.
func (r Result) Reservation() reservation.Reservation {
	return reservation.Reservation{
		Date:        r.Date,
		Time:        r.Time,
		TableNumber: r.TableNumber,
		TableStrict: r.TableStrict,
		GuestName:   r.Name,
		Phone:       r.Phone,
		Guests:      r.Guests,
		Deposit:     r.Deposit,
		Occasion:    r.Occasion,
	}
}

type Field string

const (
	FieldName  Field = "name"
	FieldPhone Field = "phone"
	FieldDate  Field = "date"
	FieldTime  Field = "time"
	FieldTable Field = "table"
)

// Required is the field set a message must resolve before it can be booked.
var Required = []Field{FieldName, FieldPhone, FieldDate, FieldTime, FieldTable}

// Missing lists which of the given fields were not resolved, in order.
func (r Result) Missing(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		var empty bool
		switch f {
		case FieldName:
			empty = r.Name == "" || r.Name == NameUnspecified
		case FieldPhone:
			empty = r.Phone == ""
		case FieldDate:
			empty = r.Date == ""
		case FieldTime:
			empty = r.Time == ""
		case FieldTable:
			empty = r.TableNumber == ""
		}
		if empty {
			out = append(out, f)
		}
	}
	return out
}

type Options struct {
	// DepositRules names the deposit heuristics in the order they are
	// tried. Empty means DefaultDepositRules.
	DepositRules []string
	// Occasions replaces DefaultOccasions when non-empty.
	Occasions []Occasion
}

// Extractor holds the configurable parts of extraction. It is immutable and
// safe for concurrent use.
type Extractor struct {
	deposit   []depositRule
	occasions []occasionMatcher
}

func New(opts Options) (*Extractor, error) {
	dr, err := buildDepositRules(opts.DepositRules)
	if err != nil {
		return nil, err
	}
	occ := opts.Occasions
	if len(occ) == 0 {
		occ = DefaultOccasions
	}
	return &Extractor{deposit: dr, occasions: compileOccasions(occ)}, nil
}

var defaultExtractor, _ = New(Options{})

// Extract runs the default extractor.
func Extract(text string, year int) Result {
	return defaultExtractor.Extract(text, year)
}

// Extract parses text. year completes dates written without one.
func (e *Extractor) Extract(text string, year int) Result {
	res := Result{Guests: 1, RawText: text}
	w := newWorkText(norm.NFC.String(text))

	if phone, ok := runCascade(w, phoneRules); ok {
		res.Phone = phone
	}
	if date, ok := runCascade(w, dateRules(year)); ok {
		res.Date = date
	}
	if t, ok := runCascade(w, timeRules); ok {
		res.Time = t
	}
	if tb, ok := runCascade(w, tableRules); ok {
		res.TableNumber = tb.number
		res.TableStrict = tb.strict
	}
	guests, explicit := runCascade(w, guestRules)
	if explicit {
		res.Guests = guests
	}
	res.Deposit = extractDeposit(w, e.deposit)
	if !explicit {
		if n, ok := guestFallback(w, res.Deposit); ok {
			res.Guests = n
		}
	}
	res.Occasion = extractOccasion(w, e.occasions)
	res.Name = extractName(w, res.Phone != "")
	return res
}

// guestFallback takes the first remaining standalone number in 1..20 that is
// not the deposit amount.
func guestFallback(w *workText, deposit int) (int, bool) {
	s := w.String()
	for _, m := range searchAll(reNumber, s, isolated) {
		n := atoi(s[m[0]:m[1]])
		if n >= 1 && n <= 20 && n != deposit {
			w.consume(m[0], m[1])
			return n, true
		}
	}
	return 0, false
}

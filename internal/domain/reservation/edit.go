package reservation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/example/tablebook/internal/internaltypes"
)

// Editable field names accepted by ParseEdit.
var EditableFields = []string{"name", "phone", "date", "time", "table", "guests", "deposit", "occasion"}

var clearOccasionWords = map[string]bool{"none": true, "нет": true, "-": true}

// ParseEdit validates a staff-entered value for one field and returns the
// patch to apply. year completes "DD.MM" dates. Errors are *ValidationError.
func ParseEdit(field, value string, year int) (Patch, error) {
	value = strings.TrimSpace(value)
	switch field {
	case "name":
		if value == "" {
			return Patch{}, internaltypes.Invalid("name", "must not be empty")
		}
		return Patch{GuestName: &value}, nil

	case "phone":
		phone := NormalizePhone(value)
		if phone == "" {
			return Patch{}, internaltypes.Invalid("phone", "expected 10 digits or 11 digits starting with 7/8")
		}
		return Patch{Phone: &phone}, nil

	case "date":
		date, err := parseEditDate(value, year)
		if err != nil {
			return Patch{}, internaltypes.Invalid("date", "use DD.MM")
		}
		return Patch{Date: &date}, nil

	case "time":
		mins, err := ParseClock(value)
		if err != nil {
			return Patch{}, internaltypes.Invalid("time", "use HH:MM")
		}
		t := fmt.Sprintf("%02d:%02d", mins/60, mins%60)
		return Patch{Time: &t}, nil

	case "table":
		num, strict, ok := ParseTableToken(value)
		if !ok {
			return Patch{}, internaltypes.Invalid("table", "use a number, e.g. 21 or 21!")
		}
		return Patch{TableNumber: &num, TableStrict: &strict}, nil

	case "guests":
		n, err := strconv.Atoi(value)
		if err != nil {
			return Patch{}, internaltypes.Invalid("guests", "enter a number")
		}
		if n < 1 || n > 20 {
			return Patch{}, internaltypes.Invalid("guests", "must be between 1 and 20")
		}
		return Patch{Guests: &n}, nil

	case "deposit":
		n, err := parseDepositValue(value)
		if err != nil {
			return Patch{}, internaltypes.Invalid("deposit", "enter a number or a shorthand like 5k")
		}
		if n < 0 {
			return Patch{}, internaltypes.Invalid("deposit", "must not be negative")
		}
		return Patch{Deposit: &n}, nil

	case "occasion":
		if clearOccasionWords[strings.ToLower(value)] {
			value = ""
		}
		return Patch{Occasion: &value}, nil
	}
	return Patch{}, internaltypes.Invalid("field", "unknown field %q (one of %s)", field, strings.Join(EditableFields, ", "))
}

func parseEditDate(value string, year int) (string, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.Format(DateLayout), nil
	}
	day, month, ok := strings.Cut(value, ".")
	if !ok {
		return "", fmt.Errorf("missing separator")
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return "", err
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return "", err
	}
	t := time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return "", fmt.Errorf("no such day")
	}
	return t.Format(DateLayout), nil
}

var reDepositValue = regexp.MustCompile(`(?i)^(\d+)\s*(к|k|тыс)?$`)

// parseDepositValue accepts "5000", "5к", "5k" or "5 тыс".
func parseDepositValue(value string) (int, error) {
	m := reDepositValue.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("malformed deposit %q", value)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	if m[2] != "" {
		n *= 1000
	}
	return n, nil
}

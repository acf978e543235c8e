package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/example/tablebook/internal/domain/reservation"
)

// rule is one pattern of a field cascade. The first structural match of re
// (accepted by guard) is handed to parse; if parse rejects the value the
// cascade moves on to the next rule.
type rule[T any] struct {
	name  string
	re    *regexp.Regexp
	guard guard
	parse func(s string, m []int) (T, bool)
}

// runCascade tries rules in order and consumes the span of the first valid
// match. It reports the value and whether anything was found.
func runCascade[T any](w *workText, rules []rule[T]) (T, bool) {
	var zero T
	s := w.String()
	for _, r := range rules {
		m := search(r.re, s, r.guard)
		if m == nil {
			continue
		}
		v, ok := r.parse(s, m)
		if !ok {
			continue
		}
		w.consume(m[0], m[1])
		return v, true
	}
	return zero, false
}

func group(s string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return s[m[2*n]:m[2*n+1]]
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

const phoneSep = `[\s\-()]*`

var phoneRules = []rule[string]{
	{
		name:  "plus7",
		re:    regexp.MustCompile(`\+7` + phoneSep + `(\d{3})` + phoneSep + `(\d{3})` + phoneSep + `(\d{2})` + phoneSep + `(\d{2})`),
		guard: func(s string, m []int) bool { return noDigitAfter(s, m[1]) },
		parse: parsePhone,
	},
	{
		name:  "trunk",
		re:    regexp.MustCompile(`8` + phoneSep + `(\d{3})` + phoneSep + `(\d{3})` + phoneSep + `(\d{2})` + phoneSep + `(\d{2})`),
		guard: standaloneDigits,
		parse: parsePhone,
	},
	{
		name:  "ten",
		re:    regexp.MustCompile(`\d{10}`),
		guard: standaloneDigits,
		parse: parsePhone,
	},
	{
		name:  "eleven",
		re:    regexp.MustCompile(`[78]\d{10}`),
		guard: standaloneDigits,
		parse: parsePhone,
	},
	{
		name:  "grouped",
		re:    regexp.MustCompile(`\d{3}[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}`),
		guard: standaloneDigits,
		parse: parsePhone,
	},
}

func parsePhone(s string, m []int) (string, bool) {
	p := reservation.NormalizePhone(digitsOnly(s[m[0]:m[1]]))
	return p, p != ""
}

// dateRules resolve day/month[/year]. The reference year is bound per call.
func dateRules(year int) []rule[string] {
	parse := func(s string, m []int) (string, bool) {
		day, month := atoi(group(s, m, 1)), atoi(group(s, m, 2))
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return "", false
		}
		y := year
		if ys := group(s, m, 3); ys != "" {
			y = atoi(ys)
			if len(ys) == 2 {
				y += 2000
			}
		}
		return fmt.Sprintf("%04d-%02d-%02d", y, month, day), true
	}
	return []rule[string]{
		{name: "full", re: reFullDate, guard: standaloneDigits, parse: parse},
		{name: "dotted", re: reDottedDate, guard: standaloneDigits, parse: parse},
		{name: "slashed", re: reSlashedDate, guard: standaloneDigits, parse: parse},
		{name: "spaced", re: reSpacedDate, guard: standaloneDigits, parse: parse},
	}
}

var (
	reFullDate    = regexp.MustCompile(`(\d{1,2})[./\-](\d{1,2})[./\-](\d{4}|\d{2})`)
	reDottedDate  = regexp.MustCompile(`(\d{1,2})[.\-](\d{1,2})`)
	reSlashedDate = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
	reSpacedDate  = regexp.MustCompile(`(\d{1,2})\s+(\d{1,2})`)
)

func parseClock(s string, m []int) (string, bool) {
	h, mm := atoi(group(s, m, 1)), atoi(group(s, m, 2))
	if h < 0 || h > 23 || mm < 0 || mm > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, mm), true
}

var timeRules = []rule[string]{
	{name: "colon", re: regexp.MustCompile(`(\d{1,2}):(\d{2})`), guard: standaloneDigits, parse: parseClock},
	{name: "dot", re: regexp.MustCompile(`(\d{1,2})\.(\d{2})`), guard: standaloneDigits, parse: parseClock},
	{name: "spaced", re: regexp.MustCompile(`(\d{1,2})\s+(\d{2})`), guard: standaloneDigits, parse: parseClock},
	{name: "hours", re: regexp.MustCompile(`(\d{1,2})[чЧhH](\d{2})`), guard: standaloneDigits, parse: parseClock},
}

type table struct {
	number string
	strict bool
}

var tableRules = []rule[table]{
	{
		name:  "token",
		re:    regexp.MustCompile(`\d+!?`),
		guard: isolated,
		parse: func(s string, m []int) (table, bool) {
			num, strict, ok := reservation.ParseTableToken(s[m[0]:m[1]])
			return table{num, strict}, ok
		},
	},
}

const guestUnits = `(?:человека|человек|чел|персон\p{L}*|гостей|гостя|people|persons|person|pax|guests|guest|ppl)`

var guestRules = []rule[int]{
	{
		name:  "for",
		re:    regexp.MustCompile(`(?i)(?:на|for)\s*(\d+)\s*` + guestUnits),
		guard: func(s string, m []int) bool { return noLetterBefore(s, m[0]) && noDigitBefore(s, m[2]) },
		parse: parseGuests,
	},
	{
		name:  "count",
		re:    regexp.MustCompile(`(?i)(\d+)\s*` + guestUnits),
		guard: func(s string, m []int) bool { return noWordBefore(s, m[0]) },
		parse: parseGuests,
	},
}

func parseGuests(s string, m []int) (int, bool) {
	n := atoi(group(s, m, 1))
	return n, n >= 1 && n <= 20
}

var reNumber = regexp.MustCompile(`\d+`)

package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Deposit rule names, in default order.
const (
	DepositKeyword   = "keyword"
	DepositShorthand = "shorthand"
	DepositThousand  = "thousand"
	DepositBare      = "bare"
	DepositCurrency  = "currency"
)

// DefaultDepositRules is the order deposit heuristics are tried in.
var DefaultDepositRules = []string{DepositKeyword, DepositShorthand, DepositThousand, DepositBare, DepositCurrency}

// minDeposit discards smaller matches as noise.
const minDeposit = 1000

// depositRule matches a number (group 1) with an optional unit suffix
// (group 2). A suffix meaning "thousand" multiplies the number by 1000.
type depositRule struct {
	name string
	re   *regexp.Regexp
	// lead must hold at the start of the match.
	lead func(s string, i int) bool
	// optionalSuffix drops a suffix glued to a following letter instead of
	// rejecting the whole match.
	optionalSuffix bool
}

const depositKeywords = `(?:депозит|деп|задаток|предоплата|deposit|dep|advance)`

var depositRuleSet = map[string]depositRule{
	DepositKeyword: {
		name:           DepositKeyword,
		re:             regexp.MustCompile(`(?i)` + depositKeywords + `[\s:]*(\d+)(?:\s*(тыс\p{L}*|thousand|к\.?|k\.?|руб\p{L}*|р\.?|₽|rub\p{L}*))?`),
		lead:           noLetterBefore,
		optionalSuffix: true,
	},
	DepositShorthand: {
		name: DepositShorthand,
		re:   regexp.MustCompile(`(?i)(\d+)\s*(к|k)`),
		lead: noWordBefore,
	},
	DepositThousand: {
		name: DepositThousand,
		re:   regexp.MustCompile(`(?i)(\d+)\s*(тыс\p{L}*|thousand)`),
		lead: noWordBefore,
	},
	DepositBare: {
		name: DepositBare,
		re:   regexp.MustCompile(`(\d{4,5})`),
		lead: noWordBefore,
	},
	DepositCurrency: {
		name: DepositCurrency,
		re:   regexp.MustCompile(`(?i)(\d{4,})\s*(руб\p{L}*|р|₽|rub\p{L}*)`),
		lead: noWordBefore,
	},
}

func buildDepositRules(names []string) ([]depositRule, error) {
	if len(names) == 0 {
		names = DefaultDepositRules
	}
	out := make([]depositRule, 0, len(names))
	for _, n := range names {
		r, ok := depositRuleSet[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown deposit rule %q", n)
		}
		out = append(out, r)
	}
	return out, nil
}

// match finds the first structural match of the rule and resolves its span
// and value. The value is not range-checked here.
func (r depositRule) match(s string) (start, end, value int, ok bool) {
	var suffixOK bool
	m := search(r.re, s, func(s string, m []int) bool {
		if !r.lead(s, m[0]) || !noDigitAfter(s, m[3]) {
			return false
		}
		if len(m) < 6 || m[4] < 0 {
			suffixOK = false
			return true
		}
		suffixOK = noWordAfter(s, m[5])
		return suffixOK || r.optionalSuffix
	})
	if m == nil {
		return 0, 0, 0, false
	}
	n := atoi(group(s, m, 1))
	if n < 0 {
		return 0, 0, 0, false
	}
	end = m[1]
	if len(m) >= 6 && m[4] >= 0 {
		if suffixOK {
			n *= suffixMultiplier(group(s, m, 2))
		} else {
			end = m[3]
		}
	}
	return m[0], end, n, true
}

func suffixMultiplier(suffix string) int {
	switch s := strings.ToLower(suffix); {
	case strings.HasPrefix(s, "тыс"), strings.HasPrefix(s, "thousand"),
		strings.HasPrefix(s, "к"), strings.HasPrefix(s, "k"):
		return 1000
	}
	return 1
}

// extractDeposit runs the configured rules in order. A rule whose first
// match is below minDeposit is abandoned and the next rule is tried.
func extractDeposit(w *workText, rules []depositRule) int {
	s := w.String()
	for _, r := range rules {
		start, end, v, ok := r.match(s)
		if !ok || v < minDeposit {
			continue
		}
		w.consume(start, end)
		return v
	}
	return 0
}

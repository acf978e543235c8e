package extract

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// workText is the shrinking copy of the input. Consumed spans are blanked
// with spaces so byte offsets of the remaining text never move and no two
// unrelated fragments are glued together.
type workText struct {
	b []byte
}

func newWorkText(s string) *workText { return &workText{b: []byte(s)} }

func (w *workText) String() string { return string(w.b) }

func (w *workText) consume(start, end int) {
	for i := start; i < end; i++ {
		w.b[i] = ' '
	}
}

// guard inspects a candidate match (submatch index pairs into s) and reports
// whether its surroundings are acceptable. It stands in for lookaround.
type guard func(s string, m []int) bool

// search returns the leftmost match of re in s accepted by ok, or nil.
// A rejected match is retried one rune further on, the way a backtracking
// engine would continue after a failed lookaround.
func search(re *regexp.Regexp, s string, ok guard) []int {
	pos := 0
	for pos <= len(s) {
		loc := re.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			return nil
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}
		if ok == nil || ok(s, loc) {
			return loc
		}
		_, size := utf8.DecodeRuneInString(s[loc[0]:])
		if size == 0 {
			size = 1
		}
		pos = loc[0] + size
	}
	return nil
}

// searchAll returns every non-overlapping match accepted by ok.
func searchAll(re *regexp.Regexp, s string, ok guard) [][]int {
	var out [][]int
	pos := 0
	for pos <= len(s) {
		loc := search(re, s[pos:], shifted(ok, s, pos))
		if loc == nil {
			break
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}
		out = append(out, loc)
		if loc[1] > loc[0] {
			pos = loc[1]
		} else {
			pos = loc[1] + 1
		}
	}
	return out
}

// shifted adapts a guard written against the full string to a suffix of it.
func shifted(ok guard, full string, offset int) guard {
	if ok == nil {
		return nil
	}
	return func(_ string, m []int) bool {
		abs := make([]int, len(m))
		for i, v := range m {
			if v >= 0 {
				abs[i] = v + offset
			} else {
				abs[i] = v
			}
		}
		return ok(full, abs)
	}
}

func runeBefore(s string, i int) (rune, bool) {
	if i <= 0 {
		return 0, false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return r, true
}

func runeAt(s string, i int) (rune, bool) {
	if i >= len(s) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

func noDigitBefore(s string, i int) bool {
	r, ok := runeBefore(s, i)
	return !ok || !isDigit(r)
}

func noDigitAfter(s string, i int) bool {
	r, ok := runeAt(s, i)
	return !ok || !isDigit(r)
}

func noLetterBefore(s string, i int) bool {
	r, ok := runeBefore(s, i)
	return !ok || !unicode.IsLetter(r)
}

func noLetterAfter(s string, i int) bool {
	r, ok := runeAt(s, i)
	return !ok || !unicode.IsLetter(r)
}

func noWordBefore(s string, i int) bool {
	r, ok := runeBefore(s, i)
	return !ok || !isWordRune(r)
}

func noWordAfter(s string, i int) bool {
	r, ok := runeAt(s, i)
	return !ok || !isWordRune(r)
}

// standaloneDigits accepts a match not glued to other digits.
func standaloneDigits(s string, m []int) bool {
	return noDigitBefore(s, m[0]) && noDigitAfter(s, m[1])
}

// isolated accepts a match not glued to letters or digits on either side.
func isolated(s string, m []int) bool {
	return noWordBefore(s, m[0]) && noWordAfter(s, m[1])
}

func digitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if isDigit(rune(s[i])) {
			out = append(out, s[i])
		}
	}
	return string(out)
}

package reservation

import (
	"sort"
	"strconv"
	"strings"
)

// ParseTableToken splits a table token like "21!" into its number and the
// strict flag. ok is false unless the token is digits with an optional "!".
func ParseTableToken(s string) (number string, strict bool, ok bool) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "!") {
		s = strings.TrimSuffix(s, "!")
		strict = true
	}
	if s == "" {
		return "", false, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false, false
		}
	}
	return s, strict, true
}

const (
	MaxTableNumber = 999
	maxRangeSpan   = 200
)

// ParseTableList parses waiter table lists: "11,12", "11-15", "11-14, 16".
// Ranges are inclusive, reversed ranges are swapped, the result is
// deduplicated and sorted numerically. Unparseable parts, numbers above
// MaxTableNumber and ranges wider than maxRangeSpan tables are dropped.
func ParseTableList(text string) []string {
	seen := map[int]bool{}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, found := strings.Cut(part, "-"); found {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start < 0 || end < 0 {
				continue
			}
			if start > end {
				start, end = end, start
			}
			if end > MaxTableNumber || end-start >= maxRangeSpan {
				continue
			}
			for i := start; i <= end; i++ {
				seen[i] = true
			}
			continue
		}
		if n, err := strconv.Atoi(part); err == nil && n >= 0 && n <= MaxTableNumber {
			seen[n] = true
		}
	}
	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = strconv.Itoa(n)
	}
	return out
}

// JoinTables is the storage form of a table list.
func JoinTables(tables []string) string {
	return strings.Join(tables, ",")
}

// SplitTables reverses JoinTables.
func SplitTables(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

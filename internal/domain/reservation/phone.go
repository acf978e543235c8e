package reservation

import "strings"

// NormalizePhone turns a 10-digit national number or an 11-digit number
// starting with 7 or 8 into "+7XXXXXXXXXX". Anything else yields "".
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 10:
		return "+7" + digits
	case len(digits) == 11 && (digits[0] == '7' || digits[0] == '8'):
		return "+7" + digits[1:]
	}
	return ""
}

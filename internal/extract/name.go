package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder names used when no usable word is left in the text.
const (
	NameGuest       = "Guest"
	NameUnspecified = "Unspecified"
)

var reWord = regexp.MustCompile(`[\p{L}-]+`)

var stopWords = toSet(
	// occasion words
	"др", "день", "рождения", "рожд", "годовщина", "свадьба", "встреча",
	"бизнес", "обед", "ужин", "романтик", "романтический", "деловой",
	"семейный", "корпоратив", "юбилей",
	"birthday", "bday", "anniversary", "wedding", "meeting", "business",
	"lunch", "dinner", "romantic", "family", "corporate", "jubilee",
	// deposit and currency
	"депозит", "деп", "задаток", "предоплата", "руб", "рублей", "р", "тыс",
	"deposit", "dep", "advance", "rub", "thousand",
	// guest units
	"чел", "человек", "персон", "гостей", "гостя", "человека",
	"people", "persons", "person", "pax", "guests", "ppl",
	// connectors
	"на", "с", "со", "и", "в", "во", "для", "за", "по", "под", "около",
	"примерно", "ок", "при", "без", "до", "после",
	"for", "at", "on", "with", "and", "the", "a", "to", "of", "by", "about",
	// booking vocabulary
	"стол", "столик", "номер", "телефон", "тел", "время", "дата",
	"сегодня", "завтра", "вечером", "днём", "днем", "утром",
	"table", "phone", "tel", "time", "date", "today", "tomorrow", "tonight",
	"овек", "овека", "guest", "client", "gost",
)

// Fragments of occasion and deposit words left behind by partial matches.
var indicatorFragments = []string{
	"рожд", "деньр", "годовщ", "свадьб", "встреч", "бизн", "обед", "ужин",
	"романт", "делов", "семей", "корпор", "юбил", "депоз", "задат", "овек",
	"birth", "anniv", "wedd", "meetin", "busin", "lunch", "dinner", "romant",
	"corpor", "jubil", "deposi",
}

var anonymousWords = toSet("гость", "клиент", "guest", "client")

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func isIndicator(lower string) bool {
	for _, f := range indicatorFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func startsUpper(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func hasLetter(w string) bool {
	return strings.IndexFunc(w, unicode.IsLetter) >= 0
}

// extractName picks the guest name out of whatever the other passes left.
// Capitalised words win; otherwise longer lowercase words; otherwise the
// first non-stop word; otherwise a placeholder.
func extractName(w *workText, phoneFound bool) string {
	tokens := reWord.FindAllString(w.String(), -1)

	var upper, lower []string
	for _, tok := range tokens {
		tok = strings.Trim(tok, "-")
		low := strings.ToLower(tok)
		if utf8.RuneCountInString(tok) < 2 || !hasLetter(tok) {
			continue
		}
		if stopWords[low] || isIndicator(low) {
			continue
		}
		if startsUpper(tok) {
			upper = append(upper, tok)
		} else if utf8.RuneCountInString(tok) > 3 && !anonymousWords[low] {
			lower = append(lower, tok)
		}
	}

	switch {
	case len(upper) > 0:
		return cleanName(upper[:min(2, len(upper))])
	case len(lower) > 0:
		return cleanName(lower[:min(2, len(lower))])
	}

	for _, tok := range tokens {
		tok = strings.Trim(tok, "-")
		if utf8.RuneCountInString(tok) >= 2 && hasLetter(tok) && !stopWords[strings.ToLower(tok)] {
			return cleanName([]string{tok})
		}
	}
	if phoneFound {
		return NameGuest
	}
	return NameUnspecified
}

// cleanName joins words, drops anything but letters, hyphens and spaces and
// collapses whitespace.
func cleanName(words []string) string {
	joined := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || r == '-' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.Join(words, " "))
	return strings.Join(strings.Fields(joined), " ")
}

package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Occasion maps a keyword found in the text to a display label. Keywords are
// matched case-insensitively at the start of a word. Unless WholeWord is set
// the keyword is a stem: trailing letters are allowed and consumed with it.
type Occasion struct {
	Keyword   string `yaml:"keyword"`
	Label     string `yaml:"label"`
	WholeWord bool   `yaml:"whole_word"`
}

// DefaultOccasions is ordered; the first keyword present wins, so more
// specific phrases must come before the general words they contain.
var DefaultOccasions = []Occasion{
	{Keyword: "др", Label: "Birthday", WholeWord: true},
	{Keyword: "день рождения", Label: "Birthday"},
	{Keyword: "деньрождения", Label: "Birthday"},
	{Keyword: "birthday", Label: "Birthday"},
	{Keyword: "bday", Label: "Birthday", WholeWord: true},
	{Keyword: "годовщина", Label: "Anniversary"},
	{Keyword: "anniversary", Label: "Anniversary"},
	{Keyword: "свадьба", Label: "Wedding"},
	{Keyword: "wedding", Label: "Wedding"},
	{Keyword: "встреча", Label: "Meeting"},
	{Keyword: "meeting", Label: "Meeting"},
	{Keyword: "бизнес", Label: "Business meeting"},
	{Keyword: "business", Label: "Business meeting"},
	{Keyword: "обед", Label: "Lunch"},
	{Keyword: "lunch", Label: "Lunch"},
	{Keyword: "ужин", Label: "Dinner"},
	{Keyword: "dinner", Label: "Dinner"},
	{Keyword: "романтик", Label: "Romantic dinner"},
	{Keyword: "romantic", Label: "Romantic dinner"},
	{Keyword: "деловой", Label: "Business meeting"},
	{Keyword: "семейный", Label: "Family dinner"},
	{Keyword: "family", Label: "Family dinner"},
	{Keyword: "корпоратив", Label: "Corporate party"},
	{Keyword: "corporate", Label: "Corporate party"},
	{Keyword: "юбилей", Label: "Jubilee"},
	{Keyword: "jubilee", Label: "Jubilee"},
}

type occasionsFile struct {
	Occasions []Occasion `yaml:"occasions"`
}

// LoadOccasions reads an ordered occasion table from a YAML file of the form
//
//	occasions:
//	  - keyword: др
//	    label: Birthday
//	    whole_word: true
func LoadOccasions(path string) ([]Occasion, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f occasionsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Occasions) == 0 {
		return nil, fmt.Errorf("%s: no occasions defined", path)
	}
	for i, o := range f.Occasions {
		if strings.TrimSpace(o.Keyword) == "" || strings.TrimSpace(o.Label) == "" {
			return nil, fmt.Errorf("%s: occasion %d needs keyword and label", path, i+1)
		}
	}
	return f.Occasions, nil
}

type occasionMatcher struct {
	Occasion
	re *regexp.Regexp
}

func compileOccasions(list []Occasion) []occasionMatcher {
	out := make([]occasionMatcher, 0, len(list))
	for _, o := range list {
		words := strings.Fields(strings.ToLower(o.Keyword))
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		pattern := `(?i)` + strings.Join(words, `\s+`)
		if !o.WholeWord {
			pattern += `\p{L}*`
		}
		out = append(out, occasionMatcher{Occasion: o, re: regexp.MustCompile(pattern)})
	}
	return out
}

func (m occasionMatcher) guard(s string, loc []int) bool {
	if !noLetterBefore(s, loc[0]) {
		return false
	}
	return !m.WholeWord || noLetterAfter(s, loc[1])
}

// extractOccasion finds the first keyword present and blanks every
// occurrence of it.
func extractOccasion(w *workText, matchers []occasionMatcher) string {
	s := w.String()
	for _, m := range matchers {
		all := searchAll(m.re, s, m.guard)
		if len(all) == 0 {
			continue
		}
		for _, loc := range all {
			w.consume(loc[0], loc[1])
		}
		return m.Label
	}
	return ""
}

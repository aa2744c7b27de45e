package decision

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitizer cleans free text an agent attaches to its action before it is
// shown to other players.
type Sanitizer struct {
	maxRunes int
	deny     []*regexp.Regexp
}

func NewSanitizer(maxRunes int, denylist []string) *Sanitizer {
	s := &Sanitizer{maxRunes: maxRunes}
	for _, term := range denylist {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		s.deny = append(s.deny, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(term)))
	}
	return s
}

func stripped(r rune) bool {
	switch r {
	case '<', '>', '{', '}', '`':
		return true
	}
	return unicode.IsControl(r)
}

func (s *Sanitizer) Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if r == utf8.RuneError || stripped(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	for _, re := range s.deny {
		out = re.ReplaceAllString(out, "***")
	}
	out = strings.TrimSpace(out)
	if s.maxRunes > 0 && utf8.RuneCountInString(out) > s.maxRunes {
		runes := []rune(out)
		out = strings.TrimSpace(string(runes[:s.maxRunes]))
	}
	return out
}

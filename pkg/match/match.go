// Package match decides whether two free-text product names refer to the
// same product.
package match

import (
	"strings"
	"unicode"
)

// Matcher reports whether two product names refer to the same product.
type Matcher interface {
	Match(a, b string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(a, b string) bool

func (f MatcherFunc) Match(a, b string) bool { return f(a, b) }

// Words is the word-containment Matcher backed by NamesMatch.
var Words Matcher = MatcherFunc(NamesMatch)

// NormalizeCanonicalName lowercases name, drops punctuation other than
// hyphens and underscores, collapses whitespace and trims.
func NormalizeCanonicalName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NamesMatch is true when the normalized names are equal, or when one
// contains the other and every word of the shorter one is also a word of
// the longer one. "pro" does not match "processor".
func NamesMatch(a, b string) bool {
	na, nb := NormalizeCanonicalName(a), NormalizeCanonicalName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if !strings.Contains(na, nb) && !strings.Contains(nb, na) {
		return false
	}

	shorter, longer := strings.Fields(na), strings.Fields(nb)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	words := make(map[string]bool, len(longer))
	for _, w := range longer {
		words[w] = true
	}
	for _, w := range shorter {
		if !words[w] {
			return false
		}
	}
	return true
}

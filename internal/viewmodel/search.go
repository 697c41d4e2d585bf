package viewmodel

import (
	"strings"

	"golang.org/x/text/cases"
)

// matcher folds a search term once and tests fields against it.
type matcher struct {
	term string
}

func newMatcher(term string) matcher {
	return matcher{term: fold(strings.TrimSpace(term))}
}

func (m matcher) empty() bool { return m.term == "" }

// any reports whether any field contains the term, ignoring case.
func (m matcher) any(fields ...string) bool {
	if m.empty() {
		return true
	}
	for _, f := range fields {
		if f != "" && strings.Contains(fold(f), m.term) {
			return true
		}
	}
	return false
}

// fold applies Unicode case folding. A Caser keeps state, so each call gets
// its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

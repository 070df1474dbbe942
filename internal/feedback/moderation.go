package feedback

import "strings"

// Moderator flags feedback comments containing configured terms.
type Moderator struct {
	terms []string
}

// NewModerator keeps the non-empty terms, lower-cased.
func NewModerator(terms []string) *Moderator {
	m := &Moderator{}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			m.terms = append(m.terms, t)
		}
	}
	return m
}

// Check returns the first flag term contained (case-insensitively) in
// comment, or "" when the comment is clean.
func (m *Moderator) Check(comment string) string {
	if m == nil || len(m.terms) == 0 || comment == "" {
		return ""
	}
	lower := strings.ToLower(comment)
	for _, t := range m.terms {
		if strings.Contains(lower, t) {
			return t
		}
	}
	return ""
}

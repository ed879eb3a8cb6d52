package digest

import "strings"

// KeywordSet is an ordered set of case-insensitive keywords, loaded once
// at startup and read-only for the process lifetime.
type KeywordSet struct {
	keywords []string
}

// NewKeywordSet builds a KeywordSet from raw keywords. Entries are
// trimmed and case-folded; empty entries are dropped. Order is preserved.
func NewKeywordSet(raw []string) *KeywordSet {
	ks := &KeywordSet{}
	seen := make(map[string]bool, len(raw))
	for _, k := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		ks.keywords = append(ks.keywords, k)
	}
	return ks
}

// Matches reports whether any keyword is a substring of the normalized
// (lower-cased, whitespace-trimmed) text.
//
// An empty keyword set matches nothing. Matching everything would defeat
// the filter's purpose, so the empty set is an explicit "off" switch.
func (ks *KeywordSet) Matches(text string) bool {
	if len(ks.keywords) == 0 {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	for _, k := range ks.keywords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	return false
}

// Len returns the number of keywords in the set.
func (ks *KeywordSet) Len() int { return len(ks.keywords) }

// Keywords returns the normalized keywords in their original order.
func (ks *KeywordSet) Keywords() []string {
	out := make([]string, len(ks.keywords))
	copy(out, ks.keywords)
	return out
}

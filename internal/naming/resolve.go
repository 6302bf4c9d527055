package naming

import "strings"

// UsedSet holds the titles already issued in one batch run.
type UsedSet map[string]struct{}

// NewUsedSet returns an empty set.
func NewUsedSet() UsedSet { return make(UsedSet) }

func (s UsedSet) Has(title string) bool {
	_, ok := s[title]
	return ok
}

func (s UsedSet) Add(title string) { s[title] = struct{}{} }

func (s UsedSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s UsedSet) Clone() UsedSet {
	c := make(UsedSet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Suffix returns the i-th word of the bijective base-26 sequence
// a, b, ..., z, aa, ab, ... (spreadsheet column order).
func Suffix(i int) string {
	if i < 0 {
		i = 0
	}
	var buf []byte
	for k := i; k >= 0; k = k/26 - 1 {
		buf = append(buf, byte('a'+k%26))
	}
	for l, r := 0, len(buf)-1; l < r; l, r = l+1, r-1 {
		buf[l], buf[r] = buf[r], buf[l]
	}
	return string(buf)
}

// Resolve returns candidate, or the first suffixed variant of it, that is not
// yet in used, and records the result in used. Suffixes never push the title
// past maxWords: a title already at the limit has its last word replaced.
func Resolve(candidate string, used UsedSet, maxWords int) string {
	if !used.Has(candidate) {
		used.Add(candidate)
		return candidate
	}

	if maxWords < 1 {
		maxWords = 1
	}
	words := strings.Fields(candidate)
	keep := words
	if len(words) >= maxWords {
		keep = words[:maxWords-1]
	}
	prefix := strings.Join(keep, " ")

	for i := 0; ; i++ {
		next := Suffix(i)
		if prefix != "" {
			next = prefix + " " + next
		}
		if !used.Has(next) {
			used.Add(next)
			return next
		}
	}
}

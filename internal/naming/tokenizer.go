// Package naming turns untrusted title suggestions into strict, collision-free
// file titles.
package naming

import "strings"

// WordSet is a set of lowercase words.
type WordSet map[string]struct{}

// NewWordSet builds a set from the given words, lower-casing each one.
func NewWordSet(words ...string) WordSet {
	set := make(WordSet, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Has reports whether w is in the set.
func (s WordSet) Has(w string) bool {
	_, ok := s[w]
	return ok
}

// ExtractWords returns the maximal runs of ASCII letters in text, lower-cased,
// without denylisted or stop words and without duplicates. Order of first
// occurrence is kept.
func ExtractWords(text string, denylist, stoplist WordSet) []string {
	var words []string
	seen := make(map[string]struct{})

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		w := strings.ToLower(text[start:end])
		start = -1
		if denylist.Has(w) || stoplist.Has(w) {
			return
		}
		if _, dup := seen[w]; dup {
			return
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}

	for i := 0; i < len(text); i++ {
		if isASCIILetter(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))

	return words
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

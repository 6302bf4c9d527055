package naming

import "strings"

// Normalize converts a raw oracle suggestion into a title that satisfies the
// policy's word band, casing and character set. hintWords are only used to pad
// short results, and only when the policy allows padding; in that case the
// generic vocabulary follows them in the fallback pool.
//
// With padding disabled the result may hold fewer than MinWords words. When no
// word survives at all the result is UntitledTitle.
func Normalize(raw string, hintWords []string, policy Policy) string {
	deny, stop := policy.denySet(), policy.stopSet()

	words := ExtractWords(raw, deny, stop)
	selected := make(map[string]struct{}, len(words))
	for _, w := range words {
		selected[w] = struct{}{}
	}

	if policy.AllowPadding && len(words) < policy.MinWords {
		for _, w := range fallbackPool(hintWords, policy, deny, stop) {
			if len(words) >= policy.MinWords {
				break
			}
			if _, dup := selected[w]; dup {
				continue
			}
			selected[w] = struct{}{}
			words = append(words, w)
		}

		filler := fillerWord(policy)
		for len(words) < policy.MinWords {
			words = append(words, filler)
		}
	}

	if policy.MaxWords > 0 && len(words) > policy.MaxWords {
		words = words[:policy.MaxWords]
	}
	if len(words) == 0 {
		return UntitledTitle
	}

	applyCasing(words, policy.Casing)
	return strings.Join(words, " ")
}

// WordCount returns the number of space separated words in title.
func WordCount(title string) int {
	return len(strings.Fields(title))
}

func fallbackPool(hintWords []string, policy Policy, deny, stop WordSet) []string {
	pool := ExtractWords(strings.Join(hintWords, " "), deny, stop)
	seen := make(map[string]struct{}, len(pool)+len(policy.Vocabulary))
	for _, w := range pool {
		seen[w] = struct{}{}
	}
	for _, w := range ExtractWords(strings.Join(policy.Vocabulary, " "), deny, stop) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		pool = append(pool, w)
	}
	return pool
}

func fillerWord(policy Policy) string {
	if w := ExtractWords(policy.Filler, nil, nil); len(w) > 0 {
		return w[0]
	}
	return "nature"
}

func applyCasing(words []string, casing Casing) {
	for i, w := range words {
		if casing == CasingSentence && i > 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
}

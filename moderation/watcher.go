package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// KeywordWatcher finds watched words in chat content, ignoring case, punctuation
// and common leet substitutions.
type KeywordWatcher struct {
	matcher  *goahocorasick.Machine
	keywords map[string]string // normalized -> configured spelling
}

// NewKeywordWatcher initializes the Aho-Corasick automaton with a normalized version of the watch list.
// Words that normalize to nothing are ignored.
func NewKeywordWatcher(words []string) (*KeywordWatcher, error) {
	w := &KeywordWatcher{keywords: make(map[string]string)}
	var patterns [][]rune
	for _, word := range words {
		norm := normalizeRunes([]rune(word))
		if len(norm) == 0 {
			continue
		}
		if _, ok := w.keywords[string(norm)]; ok {
			continue
		}
		w.keywords[string(norm)] = word
		patterns = append(patterns, norm)
	}
	if len(patterns) == 0 {
		return w, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	w.matcher = m
	return w, nil
}

// Match returns the watched words found in content, in order of first appearance.
func (w *KeywordWatcher) Match(content string) []string {
	if w == nil || w.matcher == nil {
		return nil
	}
	norm := normalizeRunes([]rune(content))
	if len(norm) == 0 {
		return nil
	}

	var found []string
	seen := make(map[string]struct{})
	for _, span := range w.matcher.MultiPatternSearch(norm, false) {
		word, ok := w.keywords[string(span.Word)]
		if !ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		found = append(found, word)
	}
	return found
}

// normalizeRunes applies simplification and noise removal to a slice of runes.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common Leet speak characters back to their standard alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

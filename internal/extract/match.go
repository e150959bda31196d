package extract

import (
	"regexp"
	"strings"
	"sync"
)

// Match is one located occurrence of a phrase in a text.
// Text is the substring actually found, in the text's own casing.
type Match struct {
	Start int
	End   int
	Text  string
}

// phraseMatcher does case-insensitive whole-word search and caches compiled patterns.
// Safe for concurrent use.
type phraseMatcher struct {
	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
}

func newPhraseMatcher() *phraseMatcher {
	return &phraseMatcher{compiled: make(map[string]*regexp.Regexp)}
}

// Find returns the first word-bounded occurrence of phrase in text.
// "pt" matches a standalone "PT" but never the "pt" inside "symptoms".
func (m *phraseMatcher) Find(phrase, text string) (Match, bool) {
	re := m.pattern(phrase)
	if re == nil {
		return Match{}, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return Match{}, false
	}
	return Match{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]}, true
}

// FindAll returns every non-overlapping word-bounded occurrence of phrase in text
func (m *phraseMatcher) FindAll(phrase, text string) []Match {
	re := m.pattern(phrase)
	if re == nil {
		return nil
	}
	var out []Match
	for _, loc := range re.FindAllStringIndex(text, -1) {
		out = append(out, Match{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]})
	}
	return out
}

func (m *phraseMatcher) pattern(phrase string) *regexp.Regexp {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil
	}
	key := strings.ToLower(phrase)

	m.mu.RLock()
	re, ok := m.compiled[key]
	m.mu.RUnlock()
	if ok {
		return re
	}

	re = regexp.MustCompile(boundaryPattern(phrase))

	m.mu.Lock()
	m.compiled[key] = re
	m.mu.Unlock()
	return re
}

// boundaryPattern anchors \b only on edges that are word characters,
// so quotes that start or end in punctuation can still match.
func boundaryPattern(phrase string) string {
	var b strings.Builder
	b.WriteString("(?i)")
	if isWordByte(phrase[0]) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(phrase))
	if isWordByte(phrase[len(phrase)-1]) {
		b.WriteString(`\b`)
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

var sharedMatcher = newPhraseMatcher()

// Occurrences returns every word-bounded, case-insensitive occurrence of
// phrase in text
func Occurrences(phrase, text string) []Match {
	return sharedMatcher.FindAll(phrase, text)
}

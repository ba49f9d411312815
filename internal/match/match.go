// Package match finds closed-vocabulary and numeric/technical spans in raw
// prompt text.
//
// Two extractors contribute candidates:
//   - an Aho–Corasick automaton over a fixed term→role vocabulary, matched
//     case-insensitively on whole-token boundaries, confidence 1.0;
//   - regex patterns for technical values (frame rate, duration, resolution,
//     aspect ratio, focal length, aperture, color temperature), with context
//     checks for shapes that also occur in ordinary prose.
//
// A Matcher is a pure function of its static tables: build once, share
// across goroutines.
package match

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

// Match is one extractor hit. Start and End are byte offsets into the
// original text; Text is re-sliced from the original, so the match carries
// the source casing regardless of how it was found.
type Match struct {
	Text       string
	Start      int
	End        int
	Role       string
	Confidence float64
	Pattern    string // extractor pattern name; empty for vocabulary hits
}

// Matcher holds the compiled vocabulary automaton and pattern table.
type Matcher struct {
	vocab     *Vocabulary
	automaton *automaton
	terms     []string // automaton term index → lowercased term
	roles     []string // automaton term index → taxonomy role
	patterns  []*pattern
}

// NewMatcher compiles the vocabulary into an automaton and initializes the
// pattern table. Vocabulary roles were validated against the registry at
// parse time.
func NewMatcher(vocab *Vocabulary) *Matcher {
	terms := vocab.Terms()
	roles := make([]string, len(terms))
	for i, t := range terms {
		roles[i], _ = vocab.Role(t)
	}
	return &Matcher{
		vocab:     vocab,
		automaton: newAutomaton(terms),
		terms:     terms,
		roles:     roles,
		patterns:  initPatterns(),
	}
}

// NewDefaultMatcher builds a matcher over the embedded vocabulary.
func NewDefaultMatcher(reg *taxonomy.Registry) *Matcher {
	return NewMatcher(DefaultVocabulary(reg))
}

// Find returns every vocabulary and pattern match in text, sorted by start
// ascending, end descending. Overlapping hits are all returned — conflict
// resolution belongs to the caller.
func (m *Matcher) Find(text string) []Match {
	if text == "" {
		return nil
	}

	matches := m.findVocab(text)
	matches = append(matches, m.findPatterns(text)...)

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		if matches[i].End != matches[j].End {
			return matches[i].End > matches[j].End
		}
		return matches[i].Role < matches[j].Role
	})
	return matches
}

// Vocabulary returns the matcher's term table.
func (m *Matcher) Vocabulary() *Vocabulary {
	return m.vocab
}

func (m *Matcher) findVocab(text string) []Match {
	lowered := lowerASCII(text)
	hits := m.automaton.find(lowered)

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		start := h.end - len(m.terms[h.term])
		if !wholeToken(text, start, h.end) {
			continue
		}
		matches = append(matches, Match{
			Text:       text[start:h.end],
			Start:      start,
			End:        h.end,
			Role:       m.roles[h.term],
			Confidence: 1.0,
		})
	}
	return matches
}

func (m *Matcher) findPatterns(text string) []Match {
	var matches []Match
	for _, p := range m.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if !wholeToken(text, start, end) {
				continue
			}

			value := text[start:end]
			if len(loc) >= 4 && loc[2] >= 0 {
				value = text[loc[2]:loc[3]]
			}
			if !acceptValue(p, value) {
				continue
			}
			if p.contextual && !acceptContext(p, text, start, end, value) {
				continue
			}

			matches = append(matches, Match{
				Text:       text[start:end],
				Start:      start,
				End:        end,
				Role:       p.role,
				Confidence: p.confidence,
				Pattern:    p.name,
			})
		}
	}
	return matches
}

// wholeToken rejects matches whose boundary falls inside an alphanumeric
// run — "pan" inside "company" is not a camera move.
func wholeToken(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

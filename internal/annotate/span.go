package annotate

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Source is the provenance of a span, used only for overlap tie-breaking,
// never for display. A closed enumeration keeps the priority table
// exhaustive.
type Source int

const (
	SourceUnknown Source = iota
	SourceFallback
	SourceHeuristic
	SourceModel
	SourcePattern
	SourceVocab
)

var sourceNames = map[Source]string{
	SourceUnknown:   "unknown",
	SourceFallback:  "fallback",
	SourceHeuristic: "heuristic",
	SourceModel:     "model",
	SourcePattern:   "pattern",
	SourceVocab:     "vocab",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSource maps provenance strings from external candidates onto the
// enum. Unrecognized tags land on SourceUnknown; an empty tag means an
// external extractor that did not declare itself, treated as model output.
func ParseSource(raw string) Source {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return SourceModel
	case "vocab", "vocabulary", "exact", "exact-match":
		return SourceVocab
	case "pattern", "regex":
		return SourcePattern
	case "model", "ml", "llm", "tagger":
		return SourceModel
	case "heuristic", "rule":
		return SourceHeuristic
	case "fallback":
		return SourceFallback
	default:
		return SourceUnknown
	}
}

// priorityTier groups sources for the closed-vocab priority tie-break:
// exact/pattern extraction outranks model/heuristic output, which outranks
// ambiguous fallback spans.
func (s Source) priorityTier() int {
	switch s {
	case SourceVocab, SourcePattern:
		return 2
	case SourceModel, SourceHeuristic:
		return 1
	default:
		return 0
	}
}

// MarshalJSON emits the source as its string tag.
func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts string provenance tags.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSource(raw)
	return nil
}

// Span is a labeled substring of the source text. Start and End are
// half-open byte offsets; Text is always re-sliced from the source at those
// offsets. Spans are created per annotation call and never shared.
type Span struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Role       string  `json:"role"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	ID         string  `json:"id"`
}

// SpanID derives the stable identifier for a span: a truncated SHA-256 of
// the source text plus (start, end, role). Identical spans over the same
// source always hash identically, which is what dedup and stable ordering
// need.
func SpanID(sourceText string, start, end int, role string) string {
	h := sha256.New()
	h.Write([]byte(sourceText))
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(start))
	binary.BigEndian.PutUint32(buf[4:], uint32(end))
	h.Write(buf[:])
	h.Write([]byte(role))
	return fmt.Sprintf("%x", h.Sum(nil)[:12])
}

func (s Span) length() int {
	return s.End - s.Start
}

// overlaps reports whether the two spans occupy intersecting ranges.
func (s Span) overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// clampConfidence pulls out-of-range confidences into [0,1]. NaN maps to 0.
func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c):
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// sortSpans orders spans by start ascending, end descending (longer first),
// confidence descending, then ID — the canonical processing and output
// order.
func sortSpans(spans []Span) {
	sort.Slice(spans, func(i, j int) bool {
		a, b := spans[i], spans[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ID < b.ID
	})
}

package annotate

import (
	"fmt"
	"sort"
)

// filterByConfidence drops spans strictly below minConfidence; equal values
// survive. Confidence was normalized at the boundary, so no NaN handling is
// needed here. One note per drop.
func filterByConfidence(spans []Span, minConfidence float64) ([]Span, []string) {
	if len(spans) == 0 {
		return spans, nil
	}

	var notes []string
	kept := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Confidence < minConfidence {
			notes = append(notes, fmt.Sprintf("dropped %q (%s): confidence %.2f below threshold %.2f",
				s.Text, s.Role, s.Confidence, minConfidence))
			continue
		}
		kept = append(kept, s)
	}
	return kept, notes
}

// truncateToMaxSpans caps the result to maxSpans, keeping the
// highest-confidence spans and re-sorting the survivors by position. An
// input already within the limit is returned as-is, same slice, no copy.
func truncateToMaxSpans(spans []Span, maxSpans int) ([]Span, []string) {
	if len(spans) <= maxSpans {
		return spans, nil
	}

	removed := len(spans) - maxSpans
	if maxSpans == 0 {
		return []Span{}, []string{fmt.Sprintf("removed all %d spans: max span limit is 0", removed)}
	}

	ranked := make([]Span, len(spans))
	copy(ranked, spans)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		if ranked[i].Start != ranked[j].Start {
			return ranked[i].Start < ranked[j].Start
		}
		return ranked[i].ID < ranked[j].ID
	})

	kept := ranked[:maxSpans]
	sortSpans(kept)
	return kept, []string{fmt.Sprintf("removed %d span(s): max span limit is %d", removed, maxSpans)}
}

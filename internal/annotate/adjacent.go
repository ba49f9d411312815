package annotate

import (
	"fmt"
	"strings"

	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

// mergeGapChars are the only characters allowed between two mergeable spans.
// Newlines and sentence punctuation change meaning and block the merge.
const mergeGapChars = " \t-–/"

// mergeAdjacent joins adjacent spans of a compatible category family — same
// parent, one role a refinement of the other — separated only by whitespace
// or connective characters. The merged span takes the more specific role and
// the mean confidence. A single linear pass, at most one merge per adjacent
// pair; merged spans are not re-merged.
func mergeAdjacent(text string, spans []Span, maxWords int) ([]Span, []string) {
	if len(spans) < 2 {
		return spans, nil
	}

	var notes []string
	out := make([]Span, 0, len(spans))
	for i := 0; i < len(spans); i++ {
		if i+1 < len(spans) && canMerge(text, spans[i], spans[i+1], maxWords) {
			a, b := spans[i], spans[i+1]
			merged := mergeSpans(text, a, b)
			notes = append(notes, fmt.Sprintf("merged %q (%s) + %q (%s) into %q (%s)",
				a.Text, a.Role, b.Text, b.Role, merged.Text, merged.Role))
			out = append(out, merged)
			i++
			continue
		}
		out = append(out, spans[i])
	}
	return out, notes
}

func canMerge(text string, a, b Span, maxWords int) bool {
	if a.End > b.Start {
		return false
	}
	if !compatibleRoles(a.Role, b.Role) {
		return false
	}

	gap := text[a.End:b.Start]
	for _, r := range gap {
		if !strings.ContainsRune(mergeGapChars, r) {
			return false
		}
	}

	if maxWords > 0 {
		if len(strings.Fields(text[a.Start:b.End])) > maxWords {
			return false
		}
	}
	return true
}

// compatibleRoles reports whether two roles belong to the same category
// family: identical, or one a dotted refinement of the other.
func compatibleRoles(a, b string) bool {
	if taxonomy.ParentOf(a) != taxonomy.ParentOf(b) {
		return false
	}
	return a == b || strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

func mergeSpans(text string, a, b Span) Span {
	role := a.Role
	if taxonomy.Specificity(b.Role) > taxonomy.Specificity(a.Role) {
		role = b.Role
	}
	source := a.Source
	if b.Source.priorityTier() > a.Source.priorityTier() {
		source = b.Source
	}
	return Span{
		Text:       text[a.Start:b.End],
		Start:      a.Start,
		End:        b.End,
		Role:       role,
		Confidence: (a.Confidence + b.Confidence) / 2,
		Source:     source,
		ID:         SpanID(text, a.Start, b.End, role),
	}
}

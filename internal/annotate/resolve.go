package annotate

import (
	"fmt"

	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

// resolveOverlaps produces a deduplicated, non-conflicting span list.
//
// Exact duplicates (same start, end, role) collapse first, keeping the
// highest confidence. Candidates are then swept left to right in canonical
// order; a candidate conflicts with an accepted span only when their ranges
// overlap AND they share a taxonomy parent — spans under different parents
// coexist even when overlapping. A challenger must outrank every span it
// conflicts with to replace them all; otherwise it is dropped.
//
// Running the resolver on its own output is a fixed point: a resolved set
// has no same-parent overlaps left to contest.
func resolveOverlaps(spans []Span, opts Options) ([]Span, []string) {
	if len(spans) == 0 {
		return spans, nil
	}

	var notes []string
	spans = dedupeExact(spans)
	sortSpans(spans)

	accepted := make([]Span, 0, len(spans))
	for _, cand := range spans {
		parent := taxonomy.ParentOf(cand.Role)

		var conflicts []int
		for i, a := range accepted {
			if a.overlaps(cand) && taxonomy.ParentOf(a.Role) == parent {
				conflicts = append(conflicts, i)
			}
		}
		if len(conflicts) == 0 {
			accepted = append(accepted, cand)
			continue
		}

		wins := true
		for _, i := range conflicts {
			if !outranks(cand, accepted[i], opts) {
				wins = false
				notes = append(notes, fmt.Sprintf("dropped %q (%s): overlaps %q (%s)",
					cand.Text, cand.Role, accepted[i].Text, accepted[i].Role))
				break
			}
		}
		if !wins {
			continue
		}

		// Winner evicts every span it conflicted with.
		kept := accepted[:0]
		drop := make(map[int]bool, len(conflicts))
		for _, i := range conflicts {
			drop[i] = true
			notes = append(notes, fmt.Sprintf("dropped %q (%s): displaced by %q (%s)",
				accepted[i].Text, accepted[i].Role, cand.Text, cand.Role))
		}
		for i, a := range accepted {
			if !drop[i] {
				kept = append(kept, a)
			}
		}
		accepted = append(kept, cand)
	}

	sortSpans(accepted)
	return accepted, notes
}

// outranks implements the ordered tie-break chain. The first decisive
// criterion wins; a complete tie keeps the incumbent (returns false), which
// together with the deterministic sweep order makes resolution stable.
func outranks(challenger, incumbent Span, opts Options) bool {
	// 1. Source priority, when closed-vocab priority mode is enabled.
	if opts.ClosedVocabPriority {
		ct, it := challenger.Source.priorityTier(), incumbent.Source.priorityTier()
		if ct != it {
			return ct > it
		}
	}

	// 2. Specificity: an attribute outranks its parent.
	cs, is := taxonomy.Specificity(challenger.Role), taxonomy.Specificity(incumbent.Role)
	if cs != is {
		return cs > is
	}

	// 3. Caller-selected strategy.
	switch opts.OverlapStrategy {
	case StrategyHighestConfidence:
		if challenger.Confidence != incumbent.Confidence {
			return challenger.Confidence > incumbent.Confidence
		}
		if challenger.length() != incumbent.length() {
			return challenger.length() > incumbent.length()
		}
	default: // StrategyLongestMatch
		if challenger.length() != incumbent.length() {
			return challenger.length() > incumbent.length()
		}
		if challenger.Confidence != incumbent.Confidence {
			return challenger.Confidence > incumbent.Confidence
		}
	}

	// 4. Position: the earlier-starting span wins.
	if challenger.Start != incumbent.Start {
		return challenger.Start < incumbent.Start
	}
	return false
}

// dedupeExact collapses spans identical in (start, end, role), keeping the
// highest confidence and the strongest source seen.
func dedupeExact(spans []Span) []Span {
	type key struct {
		start, end int
		role       string
	}
	seen := make(map[key]int, len(spans))
	out := make([]Span, 0, len(spans))

	for _, s := range spans {
		k := key{s.Start, s.End, s.Role}
		if i, ok := seen[k]; ok {
			if s.Confidence > out[i].Confidence {
				out[i].Confidence = s.Confidence
			}
			if s.Source.priorityTier() > out[i].Source.priorityTier() {
				out[i].Source = s.Source
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, s)
	}
	return out
}

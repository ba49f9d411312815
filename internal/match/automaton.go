package match

// Aho–Corasick automaton over the vocabulary terms. Built once per matcher;
// a single pass over the text finds every occurrence of every term. Operates
// on ASCII-lowercased bytes so offsets in the lowercased text are identical
// to offsets in the original.

type acNode struct {
	children map[byte]int32
	fail     int32
	output   []int32 // term indexes ending at this node, fail chain included
}

type automaton struct {
	nodes []acNode
	terms []string
}

// termHit marks an occurrence of terms[term] ending at byte offset end
// (exclusive) in the scanned text.
type termHit struct {
	term int32
	end  int
}

// newAutomaton builds the goto/fail structure for the given lowercased terms.
func newAutomaton(terms []string) *automaton {
	a := &automaton{
		nodes: []acNode{{children: map[byte]int32{}}},
		terms: terms,
	}

	for i, term := range terms {
		cur := int32(0)
		for j := 0; j < len(term); j++ {
			b := term[j]
			next, ok := a.nodes[cur].children[b]
			if !ok {
				next = int32(len(a.nodes))
				a.nodes = append(a.nodes, acNode{children: map[byte]int32{}})
				a.nodes[cur].children[b] = next
			}
			cur = next
		}
		a.nodes[cur].output = append(a.nodes[cur].output, int32(i))
	}

	// BFS to assign fail links; a node's fail target is always shallower, so
	// its output list is complete by the time we merge it.
	var queue []int32
	for _, child := range a.nodes[0].children {
		a.nodes[child].fail = 0
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for b, child := range a.nodes[cur].children {
			queue = append(queue, child)

			f := a.nodes[cur].fail
			for {
				if next, ok := a.nodes[f].children[b]; ok && next != child {
					a.nodes[child].fail = next
					break
				}
				if f == 0 {
					a.nodes[child].fail = 0
					break
				}
				f = a.nodes[f].fail
			}
			a.nodes[child].output = append(a.nodes[child].output, a.nodes[a.nodes[child].fail].output...)
		}
	}
	return a
}

// find scans text and returns every term occurrence. The caller is expected
// to pass lowercased text; hits carry byte offsets into it.
func (a *automaton) find(text string) []termHit {
	var hits []termHit
	cur := int32(0)
	for i := 0; i < len(text); i++ {
		b := text[i]
		for {
			if next, ok := a.nodes[cur].children[b]; ok {
				cur = next
				break
			}
			if cur == 0 {
				break
			}
			cur = a.nodes[cur].fail
		}
		for _, t := range a.nodes[cur].output {
			hits = append(hits, termHit{term: t, end: i + 1})
		}
	}
	return hits
}

// lowerASCII lowercases A–Z in place, leaving every other byte untouched so
// byte offsets stay aligned with the original text. Vocabulary terms are
// ASCII; non-ASCII text simply never matches them.
func lowerASCII(s string) string {
	lowered := []byte(s)
	changed := false
	for i, c := range lowered {
		if 'A' <= c && c <= 'Z' {
			lowered[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(lowered)
}

package annotate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

// Drop reason tags recorded by the visual-relevance filter.
const (
	reasonHeader          = "header"
	reasonVariationHeader = "variation-header"
	reasonNonVisual       = "non-visual"
)

// RelevanceConfig tunes the visual-relevance heuristics. These are
// best-effort string patterns, not a classifier — callers with unusual
// document formats can swap in their own.
type RelevanceConfig struct {
	// HeaderWords are short labels dropped when they sit in heading position
	// (markdown emphasis, trailing colon, or alone on a line). Compared
	// lowercased.
	HeaderWords []string
	// VariationMarker matches a line that opens a variation/alternative
	// block. Spans on a marker line are that block's label, not content.
	VariationMarker *regexp.Regexp
	// MetaParents are taxonomy parents treated as non-visual document
	// structure outside variation bodies.
	MetaParents []string
}

var defaultVariationMarkerRE = regexp.MustCompile(
	`(?i)^[\s*#>-]*(?:variation|alternative|alt(?:ernate)?\s+(?:angle|version|take))\b`)

// DefaultRelevanceConfig returns the recommended heuristics for prompt
// documents produced by the editor.
func DefaultRelevanceConfig() RelevanceConfig {
	return RelevanceConfig{
		HeaderWords: []string{
			"camera", "lighting", "shot", "style", "subject", "action",
			"scene", "setting", "environment", "color", "colors", "mood",
			"motion", "look", "audio", "notes", "details", "prompt",
		},
		VariationMarker: defaultVariationMarkerRE,
		MetaParents:     []string{"meta"},
	}
}

// filterVisualRelevance removes spans that are document structure rather
// than visual prompt content: section headers, variation-block labels, and
// meta-category spans outside variation bodies. Spans inside a variation's
// body survive even with a meta role — that text is a genuine alternative
// prompt.
func filterVisualRelevance(text string, spans []Span, cfg RelevanceConfig) ([]Span, []string) {
	if len(spans) == 0 {
		return spans, nil
	}

	doc := analyzeDocument(text, cfg)
	headerWords := make(map[string]bool, len(cfg.HeaderWords))
	for _, w := range cfg.HeaderWords {
		headerWords[strings.ToLower(w)] = true
	}
	metaParents := make(map[string]bool, len(cfg.MetaParents))
	for _, p := range cfg.MetaParents {
		metaParents[p] = true
	}

	var notes []string
	kept := make([]Span, 0, len(spans))
	for _, s := range spans {
		reason := ""
		switch {
		case doc.onVariationMarker(s):
			reason = reasonVariationHeader
		case isHeaderSpan(text, s, doc, headerWords):
			reason = reasonHeader
		case metaParents[taxonomy.ParentOf(s.Role)] && !doc.inVariationBody(s):
			reason = reasonNonVisual
		}
		if reason != "" {
			notes = append(notes, fmt.Sprintf("dropped %q (%s): %s", s.Text, s.Role, reason))
			continue
		}
		kept = append(kept, s)
	}
	return kept, notes
}

// docLine is one source line with its byte range (newline excluded).
type docLine struct {
	start, end int
	marker     bool // opens a variation block
	inBody     bool // inside a variation block's body
}

type docLayout struct {
	lines []docLine
}

var sectionHeadingRE = regexp.MustCompile(`^#{1,6}\s`)

// analyzeDocument splits text into lines and marks variation blocks. A
// variation body runs from the line after its marker to the next marker, the
// next markdown heading, or end of text.
func analyzeDocument(text string, cfg RelevanceConfig) *docLayout {
	marker := cfg.VariationMarker
	if marker == nil {
		marker = defaultVariationMarkerRE
	}

	d := &docLayout{}
	inBody := false
	offset := 0
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		lineEnd := len(text)
		if end >= 0 {
			lineEnd = offset + end
		}
		line := text[offset:lineEnd]

		isMarker := marker.MatchString(line)
		if isMarker {
			inBody = false
		} else if sectionHeadingRE.MatchString(strings.TrimSpace(line)) {
			inBody = false
		}

		d.lines = append(d.lines, docLine{
			start:  offset,
			end:    lineEnd,
			marker: isMarker,
			inBody: inBody && !isMarker,
		})

		if isMarker {
			inBody = true
		}
		if end < 0 {
			break
		}
		offset = lineEnd + 1
	}
	return d
}

// lineAt returns the line containing byte offset pos.
func (d *docLayout) lineAt(pos int) (docLine, bool) {
	for _, l := range d.lines {
		if pos >= l.start && pos <= l.end {
			return l, true
		}
	}
	return docLine{}, false
}

func (d *docLayout) onVariationMarker(s Span) bool {
	l, ok := d.lineAt(s.Start)
	return ok && l.marker
}

func (d *docLayout) inVariationBody(s Span) bool {
	l, ok := d.lineAt(s.Start)
	return ok && l.inBody
}

// headerBeforeChars may precede a header span on its line: list bullets,
// markdown emphasis, numbering.
const headerBeforeChars = " \t*#_>-0123456789."

// isHeaderSpan reports whether the span is a short known header word sitting
// in heading position: only heading syntax before it on the line, and either
// nothing, emphasis markers, or a colon immediately after it. "Lighting" in
// "**Lighting:** soft glow" is structure; "lighting" mid-sentence is not.
func isHeaderSpan(text string, s Span, doc *docLayout, headerWords map[string]bool) bool {
	if len(strings.Fields(s.Text)) > 2 {
		return false
	}
	if !headerWords[strings.ToLower(strings.TrimSpace(s.Text))] {
		return false
	}

	line, ok := doc.lineAt(s.Start)
	if !ok || s.End > line.end {
		return false
	}
	before := text[line.start:s.Start]
	if !onlyChars(before, headerBeforeChars) {
		return false
	}

	after := strings.TrimLeft(text[s.End:line.end], " \t*_")
	return after == "" || strings.HasPrefix(after, ":")
}

func onlyChars(s, allowed string) bool {
	for _, r := range s {
		if !strings.ContainsRune(allowed, r) {
			return false
		}
	}
	return true
}

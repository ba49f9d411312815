// Package annotate resolves candidate span lists into a single,
// non-overlapping, taxonomy-labeled annotation of raw prompt text.
//
// Candidates come from two places: the closed-vocabulary matcher (exact
// terms and technical patterns) and external extractors such as an ML
// tagger, supplied by the caller as an already-resolved list. The pipeline
// runs them through:
//  1. boundary normalization (clamp, validate, fallback roles)
//  2. overlap resolution with a deterministic tie-break chain
//  3. adjacent span merging
//  4. confidence filtering
//  5. visual-relevance filtering (headers, variation labels, meta content)
//  6. truncation to a span cap
//
// Every stage is a pure function over its input; data-quality problems drop
// individual spans with a diagnostic note and never fail the batch. The only
// shared state is the read-only registry and matcher tables, so concurrent
// invocations need no locking.
package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/reelprompt/reelprompt/internal/match"
	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

// OverlapStrategy selects how the resolver breaks ties between overlapping
// spans once source priority and specificity are exhausted.
type OverlapStrategy int

const (
	// StrategyLongestMatch prefers the longer span, confidence second.
	StrategyLongestMatch OverlapStrategy = iota
	// StrategyHighestConfidence prefers the more confident span, length second.
	StrategyHighestConfidence
)

func (s OverlapStrategy) String() string {
	if s == StrategyHighestConfidence {
		return "highest-confidence"
	}
	return "longest-match"
}

// ParseStrategy maps a configuration string onto an OverlapStrategy.
// Underscored spellings ("longest_match") are accepted alongside the
// hyphenated canonical forms.
func ParseStrategy(raw string) (OverlapStrategy, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-")
	switch norm {
	case "", "longest-match", "longest":
		return StrategyLongestMatch, nil
	case "highest-confidence", "confidence":
		return StrategyHighestConfidence, nil
	default:
		return StrategyLongestMatch, fmt.Errorf("unknown overlap strategy %q", raw)
	}
}

// Options are the per-call pipeline knobs.
type Options struct {
	// MinConfidence drops spans strictly below the threshold (equal survives).
	MinConfidence float64
	// MaxSpans caps the final result; 0 produces an empty result.
	MaxSpans int
	// StrictMode drops spans with unknown roles instead of falling back.
	StrictMode bool
	// OverlapStrategy is the length-vs-confidence tie-break preference.
	OverlapStrategy OverlapStrategy
	// ClosedVocabPriority puts source priority ahead of specificity in the
	// tie-break chain. When false the chain starts at specificity.
	ClosedVocabPriority bool
	// AllowOverlaps bypasses the overlap resolver entirely.
	AllowOverlaps bool
	// MaxMergeWords caps the word count of adjacent-merged spans; 0 is
	// unbounded.
	MaxMergeWords int
}

// DefaultOptions returns the recommended per-call settings.
func DefaultOptions() Options {
	return Options{
		MinConfidence:       0.3,
		MaxSpans:            50,
		OverlapStrategy:     StrategyLongestMatch,
		ClosedVocabPriority: true,
	}
}

// Candidate is an unvalidated span from an external extractor. It tolerates
// malformed JSON field values — a non-numeric confidence decodes to NaN and
// is handled at normalization rather than failing the batch.
type Candidate struct {
	Text       string
	Start      int
	End        int
	Role       string
	Confidence float64
	Source     string
}

// UnmarshalJSON decodes a candidate leniently: missing confidence reads as
// 0, a non-numeric confidence reads as NaN so normalization can note it.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text       string          `json:"text"`
		Start      int             `json:"start"`
		End        int             `json:"end"`
		Role       string          `json:"role"`
		Confidence json.RawMessage `json:"confidence"`
		Source     string          `json:"source"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Text = raw.Text
	c.Start = raw.Start
	c.End = raw.End
	c.Role = raw.Role
	c.Source = raw.Source

	c.Confidence = 0
	if len(raw.Confidence) > 0 && string(raw.Confidence) != "null" {
		var f float64
		if err := json.Unmarshal(raw.Confidence, &f); err != nil {
			c.Confidence = math.NaN()
		} else {
			c.Confidence = f
		}
	}
	return nil
}

// Result is the pipeline output: the final ordered span list plus
// human-readable diagnostics. Notes are observability only and never feed
// back into decisions.
type Result struct {
	Spans []Span   `json:"spans"`
	Notes []string `json:"notes,omitempty"`
}

// Pipeline ties the static tables together. Construct once, share freely;
// all per-call state lives on the stack of Annotate.
type Pipeline struct {
	registry  *taxonomy.Registry
	matcher   *match.Matcher
	relevance RelevanceConfig
}

// PipelineOption configures a Pipeline at construction.
type PipelineOption func(*Pipeline)

// WithRelevanceConfig overrides the visual-relevance heuristics.
func WithRelevanceConfig(cfg RelevanceConfig) PipelineOption {
	return func(p *Pipeline) {
		p.relevance = cfg
	}
}

// NewPipeline creates a pipeline over the given registry and matcher.
func NewPipeline(reg *taxonomy.Registry, m *match.Matcher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry:  reg,
		matcher:   m,
		relevance: DefaultRelevanceConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Annotate runs the full pipeline over text plus external candidates.
// Candidates may be nil or malformed per-span; those are skipped with notes.
// The returned error covers programmer-level misuse only, never data
// quality.
func (p *Pipeline) Annotate(ctx context.Context, text string, candidates []Candidate, opts Options) (Result, error) {
	if err := validateOptions(opts); err != nil {
		return Result{}, err
	}
	_ = ctx // no blocking work; kept for interface symmetry with extractors

	var notes []string

	spans := p.matcherSpans(text)
	normalized, normNotes := p.normalizeCandidates(text, candidates, opts)
	notes = append(notes, normNotes...)
	spans = append(spans, normalized...)

	if opts.AllowOverlaps {
		spans = dedupeExact(spans)
		sortSpans(spans)
	} else {
		var resolveNotes []string
		spans, resolveNotes = resolveOverlaps(spans, opts)
		notes = append(notes, resolveNotes...)
	}

	spans, mergeNotes := mergeAdjacent(text, spans, opts.MaxMergeWords)
	notes = append(notes, mergeNotes...)

	spans, confNotes := filterByConfidence(spans, opts.MinConfidence)
	notes = append(notes, confNotes...)

	spans, relNotes := filterVisualRelevance(text, spans, p.relevance)
	notes = append(notes, relNotes...)

	spans, truncNotes := truncateToMaxSpans(spans, opts.MaxSpans)
	notes = append(notes, truncNotes...)

	if spans == nil {
		spans = []Span{}
	}
	return Result{Spans: spans, Notes: notes}, nil
}

// Validate audits a span set against the taxonomy without mutating it.
func (p *Pipeline) Validate(spans []Span, strict bool) taxonomy.Report {
	v := taxonomy.NewValidator(p.registry, strict)
	return v.Validate(SpanInfos(spans))
}

// Registry exposes the pipeline's taxonomy registry.
func (p *Pipeline) Registry() *taxonomy.Registry {
	return p.registry
}

// SpanInfos adapts spans to the validator's minimal view.
func SpanInfos(spans []Span) []taxonomy.SpanInfo {
	infos := make([]taxonomy.SpanInfo, len(spans))
	for i, s := range spans {
		infos[i] = taxonomy.SpanInfo{ID: s.ID, Text: s.Text, Role: s.Role}
	}
	return infos
}

// matcherSpans converts closed-vocabulary and pattern matches into spans.
func (p *Pipeline) matcherSpans(text string) []Span {
	if p.matcher == nil {
		return nil
	}
	found := p.matcher.Find(text)
	spans := make([]Span, 0, len(found))
	for _, m := range found {
		src := SourceVocab
		if m.Pattern != "" {
			src = SourcePattern
		}
		spans = append(spans, Span{
			Text:       m.Text,
			Start:      m.Start,
			End:        m.End,
			Role:       m.Role,
			Confidence: m.Confidence,
			Source:     src,
			ID:         SpanID(text, m.Start, m.End, m.Role),
		})
	}
	return spans
}

// normalizeCandidates validates external candidates at the pipeline
// boundary. Malformed spans are dropped with a note; unknown roles fall back
// to the default category in lenient mode.
func (p *Pipeline) normalizeCandidates(text string, candidates []Candidate, opts Options) ([]Span, []string) {
	var spans []Span
	var notes []string

	for _, c := range candidates {
		if c.Start < 0 || c.End > len(text) || c.Start >= c.End {
			notes = append(notes, fmt.Sprintf("dropped candidate %q: invalid range [%d,%d)", c.Text, c.Start, c.End))
			continue
		}

		conf := c.Confidence
		if math.IsNaN(conf) {
			notes = append(notes, fmt.Sprintf("candidate %q: non-numeric confidence treated as 0", c.Text))
			conf = 0
		} else if conf < 0 || conf > 1 {
			clamped := clampConfidence(conf)
			notes = append(notes, fmt.Sprintf("candidate %q: confidence %g clamped to %g", c.Text, conf, clamped))
			conf = clamped
		}

		role := strings.TrimSpace(c.Role)
		switch {
		case role == "" && opts.StrictMode:
			notes = append(notes, fmt.Sprintf("dropped candidate %q: missing role", c.Text))
			continue
		case role != "" && !p.registry.IsRegistered(role) && opts.StrictMode:
			notes = append(notes, fmt.Sprintf("dropped candidate %q: unknown role %q", c.Text, role))
			continue
		case role == "" || !p.registry.IsRegistered(role):
			fallback := p.registry.Fallback()
			notes = append(notes, fmt.Sprintf("candidate %q: role %q replaced with %q", c.Text, role, fallback))
			role = fallback
		}

		spans = append(spans, Span{
			Text:       text[c.Start:c.End],
			Start:      c.Start,
			End:        c.End,
			Role:       role,
			Confidence: conf,
			Source:     ParseSource(c.Source),
			ID:         SpanID(text, c.Start, c.End, role),
		})
	}
	return spans, notes
}

func validateOptions(opts Options) error {
	if opts.MaxSpans < 0 {
		return fmt.Errorf("annotate: MaxSpans must be non-negative, got %d", opts.MaxSpans)
	}
	if math.IsNaN(opts.MinConfidence) {
		return fmt.Errorf("annotate: MinConfidence must be numeric")
	}
	if opts.MaxMergeWords < 0 {
		return fmt.Errorf("annotate: MaxMergeWords must be non-negative, got %d", opts.MaxMergeWords)
	}
	return nil
}

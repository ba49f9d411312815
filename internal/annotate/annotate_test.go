package annotate

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/reelprompt/reelprompt/internal/match"
	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	reg := taxonomy.Default()
	return NewPipeline(reg, match.NewDefaultMatcher(reg))
}

func TestAnnotateEmptyText(t *testing.T) {
	p := testPipeline(t)
	res, err := p.Annotate(context.Background(), "", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) != 0 {
		t.Errorf("empty text should produce no spans, got %+v", res.Spans)
	}
	if res.Spans == nil {
		t.Error("empty result should be an empty list, not nil")
	}
	if len(res.Notes) != 0 {
		t.Errorf("empty input is a success path with no notes, got %v", res.Notes)
	}
}

func TestAnnotateVocabularyOnly(t *testing.T) {
	p := testPipeline(t)
	text := "slow motion close-up at golden hour, 24fps"

	res, err := p.Annotate(context.Background(), text, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	roles := make(map[string]bool)
	for _, s := range res.Spans {
		roles[s.Role] = true
		if text[s.Start:s.End] != s.Text {
			t.Errorf("span %q not re-sliced from source", s.Text)
		}
		if s.ID == "" {
			t.Errorf("span %q missing id", s.Text)
		}
	}
	for _, want := range []string{"motion.speed", "shot.type", "lighting.time_of_day", "technical.framerate"} {
		if !roles[want] {
			t.Errorf("expected a %s span in %+v", want, res.Spans)
		}
	}
}

func TestAnnotateMergesExternalCandidates(t *testing.T) {
	p := testPipeline(t)
	text := "a weathered sailor stands on deck"

	cands := []Candidate{
		{Text: "weathered sailor", Start: 2, End: 18, Role: "subject.identity", Confidence: 0.85, Source: "ml"},
	}
	res, err := p.Annotate(context.Background(), text, cands, DefaultOptions())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	found := false
	for _, s := range res.Spans {
		if s.Role == "subject.identity" && s.Source == SourceModel {
			found = true
		}
	}
	if !found {
		t.Errorf("external candidate should survive, got %+v", res.Spans)
	}
}

func TestAnnotateDropsMalformedCandidates(t *testing.T) {
	p := testPipeline(t)
	text := "a quiet street"

	cands := []Candidate{
		{Text: "bad range", Start: 9, End: 4, Role: "subject", Confidence: 0.9},
		{Text: "out of bounds", Start: 0, End: 999, Role: "subject", Confidence: 0.9},
		{Text: "negative", Start: -2, End: 4, Role: "subject", Confidence: 0.9},
		{Text: "street", Start: 8, End: 14, Role: "environment.location", Confidence: 0.9},
	}
	opts := DefaultOptions()
	res, err := p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("malformed candidates must not fail the batch: %v", err)
	}

	if len(res.Spans) != 1 || res.Spans[0].Role != "environment.location" {
		t.Fatalf("only the well-formed candidate should survive, got %+v", res.Spans)
	}
	if len(res.Notes) < 3 {
		t.Errorf("each malformed candidate should leave a note, got %v", res.Notes)
	}
}

func TestAnnotateConfidenceClampAndNaN(t *testing.T) {
	p := testPipeline(t)
	text := "neon skyline"

	cands := []Candidate{
		{Text: "neon", Start: 0, End: 4, Role: "style.aesthetic", Confidence: 1.8},
		{Text: "skyline", Start: 5, End: 12, Role: "environment.location", Confidence: math.NaN()},
	}
	opts := DefaultOptions()
	opts.MinConfidence = 0
	res, err := p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	for _, s := range res.Spans {
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Errorf("confidence %f outside [0,1] after normalization", s.Confidence)
		}
	}
	if len(res.Spans) != 2 {
		t.Fatalf("both spans survive with threshold 0, got %+v", res.Spans)
	}
	if len(res.Notes) < 2 {
		t.Errorf("clamp and NaN should both leave notes, got %v", res.Notes)
	}
}

func TestAnnotateUnknownRoleLenientVsStrict(t *testing.T) {
	p := testPipeline(t)
	text := "something odd"
	cands := []Candidate{
		{Text: "something odd", Start: 0, End: 13, Role: "not.a.role", Confidence: 0.9},
	}

	opts := DefaultOptions()
	opts.MinConfidence = 0
	res, err := p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) != 1 || res.Spans[0].Role != taxonomy.FallbackID {
		t.Errorf("lenient mode should fall back to %q, got %+v", taxonomy.FallbackID, res.Spans)
	}

	opts.StrictMode = true
	res, err = p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) != 0 {
		t.Errorf("strict mode should drop unknown roles, got %+v", res.Spans)
	}
}

func TestAnnotateEmptyRoleLenientVsStrict(t *testing.T) {
	p := testPipeline(t)
	text := "something unlabeled"
	cands := []Candidate{
		{Text: "something unlabeled", Start: 0, End: 19, Confidence: 0.9},
	}

	opts := DefaultOptions()
	opts.MinConfidence = 0
	res, err := p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) != 1 || res.Spans[0].Role != taxonomy.FallbackID {
		t.Errorf("lenient mode should fall back to %q, got %+v", taxonomy.FallbackID, res.Spans)
	}
	if len(res.Notes) == 0 {
		t.Error("role reassignment should leave a note")
	}

	opts.StrictMode = true
	res, err = p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) != 0 {
		t.Errorf("strict mode should drop role-less candidates, got %+v", res.Spans)
	}
}

func TestAnnotateAllowOverlaps(t *testing.T) {
	p := testPipeline(t)
	text := "a man"
	cands := []Candidate{
		{Text: "man", Start: 2, End: 5, Role: "subject", Confidence: 0.9},
		{Text: "man", Start: 2, End: 5, Role: "subject.identity", Confidence: 0.4},
	}

	opts := DefaultOptions()
	opts.MinConfidence = 0
	opts.AllowOverlaps = true
	res, err := p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) != 2 {
		t.Errorf("AllowOverlaps should bypass the resolver, got %+v", res.Spans)
	}
}

func TestAnnotateMaxSpansZero(t *testing.T) {
	p := testPipeline(t)
	opts := DefaultOptions()
	opts.MaxSpans = 0

	res, err := p.Annotate(context.Background(), "golden hour close-up", nil, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) != 0 {
		t.Errorf("maxSpans=0 yields empty output, got %+v", res.Spans)
	}
	noted := false
	for _, n := range res.Notes {
		if strings.Contains(n, "max span limit") {
			noted = true
		}
	}
	if !noted {
		t.Errorf("maxSpans=0 should note the removal, got %v", res.Notes)
	}
}

func TestAnnotateRejectsBadOptions(t *testing.T) {
	p := testPipeline(t)
	opts := DefaultOptions()
	opts.MaxSpans = -1
	if _, err := p.Annotate(context.Background(), "x", nil, opts); err == nil {
		t.Error("negative MaxSpans is programmer misuse and must error")
	}

	opts = DefaultOptions()
	opts.MinConfidence = math.NaN()
	if _, err := p.Annotate(context.Background(), "x", nil, opts); err == nil {
		t.Error("NaN MinConfidence must error")
	}
}

func TestAnnotateFinalOrderInvariant(t *testing.T) {
	p := testPipeline(t)
	text := "handheld tracking shot of a dancer at golden hour, film grain, 4K, 16:9, shot on a 35mm prime at f/1.8"

	res, err := p.Annotate(context.Background(), text, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Spans) < 5 {
		t.Fatalf("expected a rich annotation, got %d spans", len(res.Spans))
	}
	for i := 1; i < len(res.Spans); i++ {
		prev, cur := res.Spans[i-1], res.Spans[i]
		if prev.Start > cur.Start {
			t.Fatalf("output not sorted by start: %+v", res.Spans)
		}
		if prev.Start == cur.Start && prev.End < cur.End {
			t.Fatalf("start ties must sort end-descending: %+v", res.Spans)
		}
	}
	// No same-parent overlaps in the final set.
	for i := 0; i < len(res.Spans); i++ {
		for j := i + 1; j < len(res.Spans); j++ {
			a, b := res.Spans[i], res.Spans[j]
			if taxonomy.ParentOf(a.Role) == taxonomy.ParentOf(b.Role) && a.overlaps(b) {
				t.Errorf("same-parent overlap in final output: %+v and %+v", a, b)
			}
		}
	}
}

func TestAnnotateThenValidate(t *testing.T) {
	p := testPipeline(t)
	text := "a sailor in a yellow raincoat"
	cands := []Candidate{
		{Text: "yellow raincoat", Start: 14, End: 29, Role: "subject.wardrobe", Confidence: 0.9},
	}

	opts := DefaultOptions()
	res, err := p.Annotate(context.Background(), text, cands, opts)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	report := p.Validate(res.Spans, false)
	if report.IsValid != true {
		t.Error("lenient validation of an orphan should stay valid")
	}
	if !report.HasWarnings {
		t.Error("wardrobe without a subject span is an orphan warning")
	}
	if len(report.Issues) != 1 || report.Issues[0].MissingParent != "subject" {
		t.Errorf("expected one orphan group missing 'subject', got %+v", report.Issues)
	}
}

func TestParseStrategy(t *testing.T) {
	cases := []struct {
		raw     string
		want    OverlapStrategy
		wantErr bool
	}{
		{"", StrategyLongestMatch, false},
		{"longest-match", StrategyLongestMatch, false},
		{"longest_match", StrategyLongestMatch, false},
		{"longest", StrategyLongestMatch, false},
		{"highest-confidence", StrategyHighestConfidence, false},
		{"highest_confidence", StrategyHighestConfidence, false},
		{"confidence", StrategyHighestConfidence, false},
		{"Longest_Match", StrategyLongestMatch, false},
		{"biggest", StrategyLongestMatch, true},
	}
	for _, tc := range cases {
		got, err := ParseStrategy(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStrategy(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStrategy(%q): %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseStrategyRoundTripsString(t *testing.T) {
	for _, s := range []OverlapStrategy{StrategyLongestMatch, StrategyHighestConfidence} {
		got, err := ParseStrategy(s.String())
		if err != nil {
			t.Fatalf("ParseStrategy(%q): %v", s.String(), err)
		}
		if got != s {
			t.Fatalf("round-trip %v = %v", s, got)
		}
	}
}

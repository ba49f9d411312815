package annotate

import (
	"strings"
	"testing"
)

func relevanceSpan(text string, start, end int, role string) Span {
	return span(text, start, end, role, 0.9, SourceModel)
}

func TestRelevanceDropsSectionHeader(t *testing.T) {
	text := "**Camera:**\nslow dolly zoom toward the window"
	// "Camera" at [2,8)
	spans := []Span{
		relevanceSpan("Camera", 2, 8, "camera"),
		relevanceSpan("dolly zoom", 17, 27, "camera.movement"),
	}

	kept, notes := filterVisualRelevance(text, spans, DefaultRelevanceConfig())

	if len(kept) != 1 || kept[0].Role != "camera.movement" {
		t.Fatalf("header span should be dropped, content kept; got %+v", kept)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], reasonHeader) {
		t.Errorf("expected a %q note, got %v", reasonHeader, notes)
	}
}

func TestRelevanceKeepsHeaderWordInProse(t *testing.T) {
	text := "the camera glides past a neon sign"
	spans := []Span{relevanceSpan("camera", 4, 10, "camera")}

	kept, _ := filterVisualRelevance(text, spans, DefaultRelevanceConfig())
	if len(kept) != 1 {
		t.Error("a header word mid-sentence is real content and must survive")
	}
}

func TestRelevanceHeaderAloneOnLine(t *testing.T) {
	text := "Lighting\nsoft diffused glow"
	spans := []Span{
		relevanceSpan("Lighting", 0, 8, "lighting"),
		relevanceSpan("soft diffused glow", 9, 27, "lighting.quality"),
	}

	kept, _ := filterVisualRelevance(text, spans, DefaultRelevanceConfig())
	if len(kept) != 1 || kept[0].Role != "lighting.quality" {
		t.Errorf("bare header line should be dropped, got %+v", kept)
	}
}

func TestRelevanceDropsVariationLabel(t *testing.T) {
	text := "A man walks through rain.\n\nVariation 1 (Alternate Angle)\nA low drone shot follows him."
	labelStart := strings.Index(text, "Alternate Angle")
	droneStart := strings.Index(text, "low drone shot")
	spans := []Span{
		relevanceSpan("Alternate Angle", labelStart, labelStart+len("Alternate Angle"), "camera.angle"),
		relevanceSpan("low drone shot", droneStart, droneStart+len("low drone shot"), "shot.type"),
	}

	kept, notes := filterVisualRelevance(text, spans, DefaultRelevanceConfig())

	if len(kept) != 1 || kept[0].Role != "shot.type" {
		t.Fatalf("variation label dropped, body content kept; got %+v", kept)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], reasonVariationHeader) {
		t.Errorf("expected a %q note, got %v", reasonVariationHeader, notes)
	}
}

func TestRelevanceMetaRoleOutsideVariation(t *testing.T) {
	text := "Setup notes here.\nsome meta label\nVariation 2\nreal alternative content"
	metaStart := strings.Index(text, "some meta label")
	bodyStart := strings.Index(text, "real alternative content")
	spans := []Span{
		relevanceSpan("some meta label", metaStart, metaStart+len("some meta label"), "meta.section"),
		relevanceSpan("real alternative content", bodyStart, bodyStart+len("real alternative content"), "meta.section"),
	}

	kept, notes := filterVisualRelevance(text, spans, DefaultRelevanceConfig())

	if len(kept) != 1 {
		t.Fatalf("expected exactly the in-variation span to survive, got %+v", kept)
	}
	if kept[0].Text != "real alternative content" {
		t.Errorf("meta role inside a variation body must be retained, got %+v", kept[0])
	}
	found := false
	for _, n := range notes {
		if strings.Contains(n, reasonNonVisual) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %q note, got %v", reasonNonVisual, notes)
	}
}

func TestRelevanceVariationBodyEndsAtHeading(t *testing.T) {
	text := "Variation 1\nalt body\n# Next Section\nafter the block"
	afterStart := strings.Index(text, "after the block")
	spans := []Span{
		relevanceSpan("after the block", afterStart, afterStart+len("after the block"), "meta.section"),
	}

	kept, _ := filterVisualRelevance(text, spans, DefaultRelevanceConfig())
	if len(kept) != 0 {
		t.Errorf("a heading ends the variation body; meta content after it drops, got %+v", kept)
	}
}

func TestRelevanceCustomHeaderWords(t *testing.T) {
	cfg := DefaultRelevanceConfig()
	cfg.HeaderWords = []string{"vibe"}

	text := "Vibe:\nneon noir"
	spans := []Span{
		relevanceSpan("Vibe", 0, 4, "style"),
		relevanceSpan("neon noir", 6, 15, "style.aesthetic"),
	}

	kept, _ := filterVisualRelevance(text, spans, cfg)
	if len(kept) != 1 || kept[0].Role != "style.aesthetic" {
		t.Errorf("custom header word should be honored, got %+v", kept)
	}
}

func TestRelevanceEmptyInput(t *testing.T) {
	kept, notes := filterVisualRelevance("anything", nil, DefaultRelevanceConfig())
	if len(kept) != 0 || len(notes) != 0 {
		t.Errorf("empty span set passes through, got %+v / %v", kept, notes)
	}
}

// Package mcp provides a Model Context Protocol server for ReelPrompt.
//
// It exposes the annotation pipeline (annotate, validate, vocab lookup) and
// the prompt library (save, get, list) as MCP tools, and the taxonomy as an
// MCP resource. Runs over stdio transport for editor and agent integrations.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/reelprompt/reelprompt/internal/annotate"
	"github.com/reelprompt/reelprompt/internal/match"
	"github.com/reelprompt/reelprompt/internal/store"
	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Registry *taxonomy.Registry
	Matcher  *match.Matcher
	Store    store.Store // optional, enables prompt library tools
	Version  string      // version string for MCP server info
}

// dbMu serializes MCP tool calls that touch the prompt database.
// The mcp-go library dispatches handlers concurrently via goroutines, and
// SQLite supports only one writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all ReelPrompt tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	reg := cfg.Registry
	if reg == nil {
		reg = taxonomy.Default()
	}
	m := cfg.Matcher
	if m == nil {
		m = match.NewDefaultMatcher(reg)
	}

	s := server.NewMCPServer(
		"ReelPrompt",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	pipeline := annotate.NewPipeline(reg, m)

	registerAnnotateTool(s, pipeline)
	registerValidateTool(s, reg)
	registerVocabTool(s, m)

	if cfg.Store != nil {
		registerPromptSaveTool(s, cfg.Store)
		registerPromptGetTool(s, cfg.Store)
		registerPromptListTool(s, cfg.Store)
	}

	registerTaxonomyResource(s, reg)

	return s
}

// --- Tools ---

func registerAnnotateTool(s *server.MCPServer, pipeline *annotate.Pipeline) {
	tool := mcp.NewTool("reelprompt_annotate",
		mcp.WithDescription("Annotate a video prompt with typed spans: closed-vocabulary terms, technical patterns (fps, aspect ratio, focal length), and optional external candidates. Returns resolved, merged, filtered spans with byte offsets."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The prompt text to annotate"),
		),
		mcp.WithString("candidates",
			mcp.Description("Optional JSON array of candidate spans from an external extractor: [{text,start,end,role,confidence,source}]"),
		),
		mcp.WithNumber("min_confidence",
			mcp.Description("Drop spans strictly below this confidence (default: 0.3)"),
		),
		mcp.WithNumber("max_spans",
			mcp.Description("Cap the result at the N most confident spans (default: 50)"),
		),
		mcp.WithString("strategy",
			mcp.Description("Overlap tie-break preference (default: longest_match)"),
			mcp.Enum("longest_match", "highest_confidence"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Drop spans with unknown roles instead of reassigning to the fallback category (default: false)"),
		),
		mcp.WithBoolean("allow_overlaps",
			mcp.Description("Skip overlap resolution and keep overlapping spans (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		var candidates []annotate.Candidate
		if raw, err := req.RequireString("candidates"); err == nil && strings.TrimSpace(raw) != "" {
			if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid candidates JSON: %v", err)), nil
			}
		}

		opts := annotate.DefaultOptions()
		if v, err := req.RequireFloat("min_confidence"); err == nil {
			opts.MinConfidence = v
		}
		if v, err := req.RequireFloat("max_spans"); err == nil && int(v) >= 0 {
			opts.MaxSpans = int(v)
		}
		if raw, err := req.RequireString("strategy"); err == nil && raw != "" {
			strategy, err := annotate.ParseStrategy(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid strategy: %v", err)), nil
			}
			opts.OverlapStrategy = strategy
		}
		if v, err := req.RequireString("strict"); err == nil {
			opts.StrictMode = v == "true"
		}
		if v, err := req.RequireString("allow_overlaps"); err == nil {
			opts.AllowOverlaps = v == "true"
		}

		result, err := pipeline.Annotate(ctx, text, candidates, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("annotate error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerValidateTool(s *server.MCPServer, reg *taxonomy.Registry) {
	tool := mcp.NewTool("reelprompt_validate",
		mcp.WithDescription("Validate a span set against the taxonomy: flags attribute spans whose parent category is missing (orphans) and unknown roles."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("spans",
			mcp.Required(),
			mcp.Description("JSON array of spans to validate: [{id,text,role}]"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Treat unknown roles as errors instead of warnings (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("spans")
		if err != nil {
			return mcp.NewToolResultError("spans is required"), nil
		}

		var infos []taxonomy.SpanInfo
		if err := json.Unmarshal([]byte(raw), &infos); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid spans JSON: %v", err)), nil
		}

		strict := false
		if v, err := req.RequireString("strict"); err == nil {
			strict = v == "true"
		}

		report := taxonomy.NewValidator(reg, strict).Validate(infos)
		data, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerVocabTool(s *server.MCPServer, m *match.Matcher) {
	tool := mcp.NewTool("reelprompt_vocab",
		mcp.WithDescription("Look up the closed vocabulary: pass a term to get its taxonomy role, or omit it to list every known term."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("term",
			mcp.Description("A single term to look up (e.g. 'dolly zoom'). Empty lists all terms."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		vocab := m.Vocabulary()

		if term, err := req.RequireString("term"); err == nil && strings.TrimSpace(term) != "" {
			role, ok := vocab.Role(strings.ToLower(strings.TrimSpace(term)))
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("unknown term: %q", term)), nil
			}
			data, _ := json.MarshalIndent(map[string]string{"term": term, "role": role}, "", "  ")
			return mcp.NewToolResultText(string(data)), nil
		}

		type entry struct {
			Term string `json:"term"`
			Role string `json:"role"`
		}
		entries := make([]entry, 0, vocab.Len())
		for _, t := range vocab.Terms() {
			role, _ := vocab.Role(t)
			entries = append(entries, entry{Term: t, Role: role})
		}
		data, _ := json.MarshalIndent(map[string]interface{}{
			"terms": entries,
			"count": len(entries),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerPromptSaveTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("reelprompt_prompt_save",
		mcp.WithDescription("Save a prompt to the local library. Identical content is deduplicated: saving the same text again returns the existing record."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The prompt text to save"),
		),
		mcp.WithString("title",
			mcp.Description("Optional display title for the prompt"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		content, err := req.RequireString("content")
		if err != nil || strings.TrimSpace(content) == "" {
			return mcp.NewToolResultError("content is required"), nil
		}
		title := ""
		if v, err := req.RequireString("title"); err == nil {
			title = v
		}

		p, created, err := st.Save(ctx, title, content)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("save error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"id":      p.ID,
			"title":   p.Title,
			"created": created,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerPromptGetTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("reelprompt_prompt_get",
		mcp.WithDescription("Fetch a saved prompt by ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The prompt ID returned by reelprompt_prompt_save or reelprompt_prompt_list"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		p, err := st.Get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"id":         p.ID,
			"title":      p.Title,
			"content":    p.Content,
			"created_at": p.CreatedAt,
			"updated_at": p.UpdatedAt,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerPromptListTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("reelprompt_prompt_list",
		mcp.WithDescription("List saved prompts, most recently updated first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of prompts to return (default: 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of prompts to skip for pagination (default: 0)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		opts := store.ListOpts{}
		if v, err := req.RequireFloat("limit"); err == nil && int(v) > 0 {
			opts.Limit = int(v)
		}
		if v, err := req.RequireFloat("offset"); err == nil && int(v) > 0 {
			opts.Offset = int(v)
		}

		prompts, err := st.List(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}

		type item struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Preview   string `json:"preview"`
			UpdatedAt string `json:"updated_at"`
		}
		items := make([]item, 0, len(prompts))
		for _, p := range prompts {
			items = append(items, item{
				ID:        p.ID,
				Title:     p.Title,
				Preview:   preview(p.Content, 120),
				UpdatedAt: p.UpdatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"prompts": items,
			"count":   len(items),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Resources ---

func registerTaxonomyResource(s *server.MCPServer, reg *taxonomy.Registry) {
	resource := mcp.NewResource(
		"reelprompt://taxonomy",
		"Taxonomy",
		mcp.WithResourceDescription("The role taxonomy: every category with its parent, label, and attribute IDs."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type categoryInfo struct {
			ID         string   `json:"id"`
			Parent     string   `json:"parent,omitempty"`
			Label      string   `json:"label"`
			Attributes []string `json:"attributes,omitempty"`
		}

		cats := reg.Categories()
		out := make([]categoryInfo, 0, len(cats))
		for _, c := range cats {
			out = append(out, categoryInfo{
				ID:         c.ID,
				Parent:     c.Parent,
				Label:      c.Label,
				Attributes: c.Attributes,
			})
		}

		payload := map[string]interface{}{
			"categories": out,
			"fallback":   reg.Fallback(),
			"count":      len(out),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so the cut never splits a multi-byte rune.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reelprompt/reelprompt/internal/annotate"
)

func TestResolve_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `db_path: ~/.reelprompt/from-config.db
annotate:
  min_confidence: "0.4"
  max_spans: "25"
  overlap_strategy: highest-confidence
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("REELPROMPT_DB", "~/from-env.db")
	t.Setenv("REELPROMPT_MIN_CONFIDENCE", "0.6")

	resolved, err := Resolve(ResolveOptions{
		ConfigPath:       cfgPath,
		CLIDBPath:        "~/from-cli.db",
		CLIMinConfidence: "0.7",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if resolved.DBPath.Source != SourceCLI {
		t.Fatalf("expected DB path source cli, got %s", resolved.DBPath.Source)
	}
	if resolved.MinConfidence.Source != SourceCLI || resolved.MinConfidence.Value != "0.7" {
		t.Fatalf("expected min confidence from cli, got %+v", resolved.MinConfidence)
	}
	if resolved.MaxSpans.Source != SourceConfig || resolved.MaxSpans.Value != "25" {
		t.Fatalf("expected max spans from config, got %+v", resolved.MaxSpans)
	}
	if resolved.Strategy.Value != "highest-confidence" {
		t.Fatalf("expected strategy from config, got %+v", resolved.Strategy)
	}
}

func TestResolve_EnvOverridesConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("annotate:\n  max_spans: \"10\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REELPROMPT_MAX_SPANS", "15")

	resolved, err := Resolve(ResolveOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.MaxSpans.Source != SourceEnv || resolved.MaxSpans.Value != "15" {
		t.Fatalf("expected max spans from env, got %+v", resolved.MaxSpans)
	}
	if resolved.MaxSpans.From != "REELPROMPT_MAX_SPANS" {
		t.Fatalf("From should name the env var, got %q", resolved.MaxSpans.From)
	}
}

func TestResolve_MissingConfigUsesDefaults(t *testing.T) {
	resolved, err := Resolve(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	if err != nil {
		t.Fatalf("missing config file must not error: %v", err)
	}
	if resolved.MinConfidence.Source != SourceDefault {
		t.Fatalf("expected built-in default, got %+v", resolved.MinConfidence)
	}

	opts, err := resolved.AnnotateOptions()
	if err != nil {
		t.Fatalf("AnnotateOptions: %v", err)
	}
	want := annotate.DefaultOptions()
	if opts.MinConfidence != want.MinConfidence || opts.MaxSpans != want.MaxSpans {
		t.Fatalf("defaults should round-trip, got %+v", opts)
	}
}

func TestResolve_BadConfigFileErrors(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("{{{not yaml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Resolve(ResolveOptions{ConfigPath: cfgPath}); err == nil {
		t.Fatal("unparseable config must error")
	}
}

func TestAnnotateOptions_BadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*ResolvedConfig)
	}{
		{"min confidence", func(r *ResolvedConfig) { r.MinConfidence.Value = "lots" }},
		{"max spans", func(r *ResolvedConfig) { r.MaxSpans.Value = "many" }},
		{"strategy", func(r *ResolvedConfig) { r.Strategy.Value = "vibes" }},
		{"vocab priority", func(r *ResolvedConfig) { r.VocabPriority.Value = "maybe" }},
		{"strict", func(r *ResolvedConfig) { r.Strict.Value = "kinda" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := Resolve(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			tc.mut(&resolved)
			if _, err := resolved.AnnotateOptions(); err == nil {
				t.Errorf("expected parse error for bad %s", tc.name)
			}
		})
	}
}

func TestExpandUserPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandUserPath("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Errorf("expandUserPath(~/x.db) = %q", got)
	}
	if got := expandUserPath("/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("absolute paths pass through, got %q", got)
	}
}

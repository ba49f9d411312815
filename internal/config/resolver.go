// Package config resolves reelprompt settings from a YAML config file,
// environment variables, and CLI flags, with per-value source tracking so
// diagnostics can say where a setting came from. Precedence: CLI > env >
// config file > built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reelprompt/reelprompt/internal/annotate"
	"gopkg.in/yaml.v3"
)

// ValueSource identifies where a resolved value came from.
type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI-supplied overrides into resolution.
type ResolveOptions struct {
	ConfigPath string

	CLIMinConfidence string
	CLIMaxSpans      string
	CLIStrategy      string
	CLIVocabPriority string
	CLIStrict        string
	CLIDBPath        string
	CLITaxonomyPath  string
	CLIVocabPath     string
}

// ResolvedConfig is the fully layered configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath       ResolvedValue `json:"db_path"`
	TaxonomyPath ResolvedValue `json:"taxonomy_path"`
	VocabPath    ResolvedValue `json:"vocab_path"`

	MinConfidence ResolvedValue `json:"min_confidence"`
	MaxSpans      ResolvedValue `json:"max_spans"`
	Strategy      ResolvedValue `json:"overlap_strategy"`
	VocabPriority ResolvedValue `json:"closed_vocab_priority"`
	Strict        ResolvedValue `json:"strict_mode"`
}

type fileConfig struct {
	DBPath       string `yaml:"db_path"`
	TaxonomyPath string `yaml:"taxonomy_path"`
	VocabPath    string `yaml:"vocab_path"`
	Annotate     struct {
		MinConfidence string `yaml:"min_confidence"`
		MaxSpans      string `yaml:"max_spans"`
		Strategy      string `yaml:"overlap_strategy"`
		VocabPriority string `yaml:"closed_vocab_priority"`
		Strict        string `yaml:"strict_mode"`
	} `yaml:"annotate"`
}

// DefaultConfigPath is where reelprompt looks for its config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reelprompt", "config.yaml")
}

// DefaultDBPath is the default prompt library location.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reelprompt", "prompts.db")
}

// Resolve layers config file, environment, and CLI values. A missing config
// file is not an error; an unreadable or unparseable one is.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}
	defaults := annotate.DefaultOptions()
	out.DBPath = ResolvedValue{Value: DefaultDBPath(), Source: SourceDefault, From: "built-in default"}
	out.MinConfidence = ResolvedValue{Value: formatFloat(defaults.MinConfidence), Source: SourceDefault, From: "built-in default"}
	out.MaxSpans = ResolvedValue{Value: strconv.Itoa(defaults.MaxSpans), Source: SourceDefault, From: "built-in default"}
	out.Strategy = ResolvedValue{Value: defaults.OverlapStrategy.String(), Source: SourceDefault, From: "built-in default"}
	out.VocabPriority = ResolvedValue{Value: strconv.FormatBool(defaults.ClosedVocabPriority), Source: SourceDefault, From: "built-in default"}
	out.Strict = ResolvedValue{Value: strconv.FormatBool(defaults.StrictMode), Source: SourceDefault, From: "built-in default"}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.TaxonomyPath, cfg.TaxonomyPath, SourceConfig, path)
		apply(&out.VocabPath, cfg.VocabPath, SourceConfig, path)
		apply(&out.MinConfidence, cfg.Annotate.MinConfidence, SourceConfig, path)
		apply(&out.MaxSpans, cfg.Annotate.MaxSpans, SourceConfig, path)
		apply(&out.Strategy, cfg.Annotate.Strategy, SourceConfig, path)
		apply(&out.VocabPriority, cfg.Annotate.VocabPriority, SourceConfig, path)
		apply(&out.Strict, cfg.Annotate.Strict, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "REELPROMPT_DB")
	applyEnv(&out.TaxonomyPath, "REELPROMPT_TAXONOMY")
	applyEnv(&out.VocabPath, "REELPROMPT_VOCAB")
	applyEnv(&out.MinConfidence, "REELPROMPT_MIN_CONFIDENCE")
	applyEnv(&out.MaxSpans, "REELPROMPT_MAX_SPANS")
	applyEnv(&out.Strategy, "REELPROMPT_OVERLAP_STRATEGY")
	applyEnv(&out.VocabPriority, "REELPROMPT_VOCAB_PRIORITY")
	applyEnv(&out.Strict, "REELPROMPT_STRICT")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.TaxonomyPath, opts.CLITaxonomyPath, SourceCLI, "--taxonomy")
	apply(&out.VocabPath, opts.CLIVocabPath, SourceCLI, "--vocab")
	apply(&out.MinConfidence, opts.CLIMinConfidence, SourceCLI, "--min-confidence")
	apply(&out.MaxSpans, opts.CLIMaxSpans, SourceCLI, "--max-spans")
	apply(&out.Strategy, opts.CLIStrategy, SourceCLI, "--strategy")
	apply(&out.VocabPriority, opts.CLIVocabPriority, SourceCLI, "--vocab-priority")
	apply(&out.Strict, opts.CLIStrict, SourceCLI, "--strict")

	out.DBPath.Value = expandUserPath(out.DBPath.Value)
	out.TaxonomyPath.Value = expandUserPath(out.TaxonomyPath.Value)
	out.VocabPath.Value = expandUserPath(out.VocabPath.Value)

	return out, nil
}

// AnnotateOptions parses the resolved string values into pipeline options.
func (r ResolvedConfig) AnnotateOptions() (annotate.Options, error) {
	opts := annotate.DefaultOptions()

	if v := r.MinConfidence.Value; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("min confidence %q (%s): %w", v, r.MinConfidence.Source, err)
		}
		opts.MinConfidence = f
	}
	if v := r.MaxSpans.Value; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("max spans %q (%s): %w", v, r.MaxSpans.Source, err)
		}
		opts.MaxSpans = n
	}
	if v := r.Strategy.Value; v != "" {
		s, err := annotate.ParseStrategy(v)
		if err != nil {
			return opts, fmt.Errorf("overlap strategy (%s): %w", r.Strategy.Source, err)
		}
		opts.OverlapStrategy = s
	}
	if v := r.VocabPriority.Value; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("vocab priority %q (%s): %w", v, r.VocabPriority.Source, err)
		}
		opts.ClosedVocabPriority = b
	}
	if v := r.Strict.Value; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("strict mode %q (%s): %w", v, r.Strict.Source, err)
		}
		opts.StrictMode = b
	}
	return opts, nil
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, key string) {
	apply(dst, os.Getenv(key), SourceEnv, key)
}

func expandUserPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reelprompt/reelprompt/internal/annotate"
	"github.com/reelprompt/reelprompt/internal/config"
	"github.com/reelprompt/reelprompt/internal/match"
	"github.com/reelprompt/reelprompt/internal/taxonomy"
)

// buildEnvironment loads the taxonomy and vocabulary named by the resolved
// config, falling back to the embedded defaults when no path is set.
func buildEnvironment(cfg config.ResolvedConfig) (*taxonomy.Registry, *match.Matcher, error) {
	reg := taxonomy.Default()
	if path := cfg.TaxonomyPath.Value; path != "" {
		var err error
		reg, err = taxonomy.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading taxonomy: %w", err)
		}
	}

	if path := cfg.VocabPath.Value; path != "" {
		vocab, err := match.LoadVocabulary(path, reg)
		if err != nil {
			return nil, nil, fmt.Errorf("loading vocabulary: %w", err)
		}
		return reg, match.NewMatcher(vocab), nil
	}
	return reg, match.NewDefaultMatcher(reg), nil
}

// readText returns the positional args joined, or stdin when args are empty
// or the single arg is "-".
func readText(args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func runAnnotate(args []string) error {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	candidatesPath := fs.String("candidates", "", "JSON file of candidate spans (use - for stdin)")
	minConfidence := fs.String("min-confidence", "", "Drop spans below this confidence")
	maxSpans := fs.String("max-spans", "", "Cap the result at the N most confident spans")
	strategy := fs.String("strategy", "", "Overlap tie-break: longest_match or highest_confidence")
	strict := fs.Bool("strict", false, "Drop unknown roles instead of reassigning them")
	allowOverlaps := fs.Bool("allow-overlaps", false, "Keep overlapping spans")
	vocabPriority := fs.String("vocab-priority", "", "Try source tier before specificity when resolving overlaps (true/false)")
	taxonomyPath := fs.String("taxonomy", "", "Taxonomy YAML path (default: embedded catalog)")
	vocabPath := fs.String("vocab", "", "Vocabulary YAML path (default: embedded vocabulary)")
	asJSON := fs.Bool("json", false, "Emit JSON")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolveOpts := config.ResolveOptions{
		ConfigPath:       *configPath,
		CLIMinConfidence: *minConfidence,
		CLIMaxSpans:      *maxSpans,
		CLIStrategy:      *strategy,
		CLIVocabPriority: *vocabPriority,
		CLITaxonomyPath:  *taxonomyPath,
		CLIVocabPath:     *vocabPath,
	}
	if *strict {
		resolveOpts.CLIStrict = "true"
	}
	cfg, err := config.Resolve(resolveOpts)
	if err != nil {
		return err
	}
	opts, err := cfg.AnnotateOptions()
	if err != nil {
		return err
	}
	opts.AllowOverlaps = *allowOverlaps

	reg, matcher, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}

	text, err := readText(fs.Args())
	if err != nil {
		return err
	}

	var candidates []annotate.Candidate
	if *candidatesPath != "" {
		data, err := readFileOrStdin(*candidatesPath)
		if err != nil {
			return fmt.Errorf("reading candidates: %w", err)
		}
		if err := json.Unmarshal(data, &candidates); err != nil {
			return fmt.Errorf("parsing candidates: %w", err)
		}
	}

	pipeline := annotate.NewPipeline(reg, matcher)
	result, err := pipeline.Annotate(context.Background(), text, candidates, opts)
	if err != nil {
		return err
	}

	if *asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printSpans(result.Spans)
	for _, note := range result.Notes {
		fmt.Fprintf(os.Stderr, "note: %s\n", note)
	}
	return nil
}

func printSpans(spans []annotate.Span) {
	if len(spans) == 0 {
		fmt.Println("No spans found.")
		return
	}
	fmt.Printf("%d spans:\n", len(spans))
	for _, sp := range spans {
		fmt.Printf("  [%4d:%4d]  %-24s  %.2f  %-8s  %q\n",
			sp.Start, sp.End, sp.Role, sp.Confidence, sp.Source, sp.Text)
	}
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	strict := fs.Bool("strict", false, "Treat unknown roles as errors")
	text := fs.Bool("text", false, "Treat the argument as prompt text: annotate first, then validate")
	taxonomyPath := fs.String("taxonomy", "", "Taxonomy YAML path (default: embedded catalog)")
	vocabPath := fs.String("vocab", "", "Vocabulary YAML path (default: embedded vocabulary)")
	asJSON := fs.Bool("json", false, "Emit JSON")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:      *configPath,
		CLITaxonomyPath: *taxonomyPath,
		CLIVocabPath:    *vocabPath,
	})
	if err != nil {
		return err
	}
	reg, matcher, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}

	var infos []taxonomy.SpanInfo
	if *text {
		prompt, err := readText(fs.Args())
		if err != nil {
			return err
		}
		pipeline := annotate.NewPipeline(reg, matcher)
		opts, err := cfg.AnnotateOptions()
		if err != nil {
			return err
		}
		result, err := pipeline.Annotate(context.Background(), prompt, nil, opts)
		if err != nil {
			return err
		}
		infos = annotate.SpanInfos(result.Spans)
	} else {
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: reelprompt validate [--strict] <spans.json | ->")
		}
		data, err := readFileOrStdin(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &infos); err != nil {
			return fmt.Errorf("parsing spans: %w", err)
		}
	}

	report := taxonomy.NewValidator(reg, *strict).Validate(infos)

	if *asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printReport(report)
	}

	if !report.IsValid {
		os.Exit(1)
	}
	return nil
}

func printReport(report taxonomy.Report) {
	if report.IsValid && !report.HasWarnings {
		fmt.Println("OK: no issues found.")
		return
	}
	for _, issue := range report.Issues {
		fmt.Printf("%s: %s", issue.Severity, issue.Type)
		if issue.MissingParent != "" {
			fmt.Printf(" (missing parent: %s)", issue.MissingParent)
		}
		fmt.Println()
		for _, sp := range issue.Spans {
			fmt.Printf("  - %s %q\n", sp.Role, sp.Text)
		}
		if issue.Suggestion != "" {
			fmt.Printf("  suggestion: %s\n", issue.Suggestion)
		}
	}
}

func runVocab(args []string) error {
	fs := flag.NewFlagSet("vocab", flag.ContinueOnError)
	taxonomyPath := fs.String("taxonomy", "", "Taxonomy YAML path (default: embedded catalog)")
	vocabPath := fs.String("vocab", "", "Vocabulary YAML path (default: embedded vocabulary)")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:      *configPath,
		CLITaxonomyPath: *taxonomyPath,
		CLIVocabPath:    *vocabPath,
	})
	if err != nil {
		return err
	}
	_, matcher, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}
	vocab := matcher.Vocabulary()

	if fs.NArg() > 0 {
		term := strings.ToLower(strings.Join(fs.Args(), " "))
		role, ok := vocab.Role(term)
		if !ok {
			return fmt.Errorf("unknown term: %q", term)
		}
		fmt.Printf("%s → %s\n", term, role)
		return nil
	}

	for _, term := range vocab.Terms() {
		role, _ := vocab.Role(term)
		fmt.Printf("%-28s %s\n", term, role)
	}
	fmt.Printf("\n%d terms\n", vocab.Len())
	return nil
}

func runTaxonomy(args []string) error {
	fs := flag.NewFlagSet("taxonomy", flag.ContinueOnError)
	taxonomyPath := fs.String("taxonomy", "", "Taxonomy YAML path (default: embedded catalog)")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:      *configPath,
		CLITaxonomyPath: *taxonomyPath,
	})
	if err != nil {
		return err
	}
	reg, _, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}

	for _, cat := range reg.Categories() {
		if cat.Parent != "" {
			continue
		}
		fmt.Printf("%s  (%s)\n", cat.ID, cat.Label)
		for _, attr := range cat.Attributes {
			fmt.Printf("  %s\n", attr)
		}
	}
	return nil
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(config.ResolveOptions{ConfigPath: *configPath})
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

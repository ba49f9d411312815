package main

import (
	"flag"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/reelprompt/reelprompt/internal/config"
	"github.com/reelprompt/reelprompt/internal/mcp"
	"github.com/reelprompt/reelprompt/internal/store"
)

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Prompt library path")
	noStore := fs.Bool("no-store", false, "Disable the prompt library tools")
	taxonomyPath := fs.String("taxonomy", "", "Taxonomy YAML path (default: embedded catalog)")
	vocabPath := fs.String("vocab", "", "Vocabulary YAML path (default: embedded vocabulary)")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:      *configPath,
		CLIDBPath:       *dbPath,
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

	var st store.Store
	if !*noStore {
		s, err := store.Open(cfg.DBPath.Value)
		if err != nil {
			return fmt.Errorf("opening prompt library: %w", err)
		}
		defer s.Close()
		st = s
	}

	srv := mcp.NewServer(mcp.ServerConfig{
		Registry: reg,
		Matcher:  matcher,
		Store:    st,
		Version:  version,
	})
	return server.ServeStdio(srv)
}

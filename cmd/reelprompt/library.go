package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/reelprompt/reelprompt/internal/config"
	"github.com/reelprompt/reelprompt/internal/store"
)

func openStore(configPath, dbPath string) (*store.SQLiteStore, error) {
	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath: configPath,
		CLIDBPath:  dbPath,
	})
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.DBPath.Value)
}

func runSave(args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	title := fs.String("title", "", "Display title for the prompt")
	dbPath := fs.String("db", "", "Prompt library path")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	content, err := readText(fs.Args())
	if err != nil {
		return err
	}

	s, err := openStore(*configPath, *dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	p, created, err := s.Save(context.Background(), *title, content)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Saved %s\n", p.ID)
	} else {
		fmt.Printf("Already saved as %s\n", p.ID)
	}
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "Maximum prompts to show")
	offset := fs.Int("offset", 0, "Prompts to skip")
	dbPath := fs.String("db", "", "Prompt library path")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openStore(*configPath, *dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	prompts, err := s.List(context.Background(), store.ListOpts{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		fmt.Println("No saved prompts.")
		return nil
	}

	for _, p := range prompts {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-24s  %s\n", p.ID, title, p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Prompt library path")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: reelprompt get <id>")
	}

	s, err := openStore(*configPath, *dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.Get(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	if p.Title != "" {
		fmt.Printf("# %s\n\n", p.Title)
	}
	fmt.Println(p.Content)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Prompt library path")
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: reelprompt delete <id>")
	}

	s, err := openStore(*configPath, *dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(context.Background(), fs.Arg(0)); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

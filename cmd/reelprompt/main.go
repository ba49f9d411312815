package main

import (
	"fmt"
	"os"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "annotate":
		if err := runAnnotate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := runValidate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "vocab":
		if err := runVocab(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "taxonomy":
		if err := runTaxonomy(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "save":
		if err := runSave(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := runList(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "get":
		if err := runGet(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "delete":
		if err := runDelete(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := runConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("reelprompt %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`reelprompt %s — Span annotation for AI video prompts

Usage:
  reelprompt <command> [arguments]

Commands:
  annotate <text>     Annotate a prompt with typed spans
  validate <file>     Validate a span set against the taxonomy
  vocab [term]        Look up a vocabulary term, or list all terms
  taxonomy            Print the role taxonomy
  save <text>         Save a prompt to the local library
  list                List saved prompts
  get <id>            Print a saved prompt
  delete <id>         Delete a saved prompt
  config              Show resolved configuration and value sources
  mcp                 Serve the MCP server over stdio
  version             Print version

Annotate Flags:
  --candidates <file>   JSON candidate spans from an external extractor
  --min-confidence <f>  Drop spans below this confidence
  --max-spans <n>       Cap the result at the N most confident spans
  --strategy <s>        Overlap tie-break: longest_match or highest_confidence
  --strict              Drop unknown roles instead of reassigning them
  --vocab-priority <b>  Try source tier before specificity (true/false)
  --taxonomy <file>     Taxonomy YAML overriding the embedded catalog
  --vocab <file>        Vocabulary YAML overriding the embedded vocabulary
  --json                Emit JSON instead of the span table

Flags:
  -h, --help          Show this help message
  -v, --version       Print version
`, version)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/vsinha/quoting/pkg/infrastructure/config"
	"github.com/vsinha/quoting/pkg/interfaces/cli/commands"
)

// overrides collects repeatable NODE=VALUE flags
type overrides []string

func (o *overrides) String() string     { return strings.Join(*o, ",") }
func (o *overrides) Set(v string) error { *o = append(*o, v); return nil }

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Command line flags
	var (
		assemblyFile = flag.String("assembly", "", "Path to assembly tree JSON document")
		catalogDir   = flag.String("catalog", "", "Directory containing categories.csv and products.csv")
		driver       = flag.String("driver", env.CatalogDriver(), "Catalog backend: memory, sqlite, postgres")
		dsn          = flag.String("dsn", env.CatalogDSN(), "Catalog database DSN")
		cacheTTL     = flag.Duration("cache-ttl", env.CacheTTL(), "Catalog lookup cache TTL (0 disables)")
		outputDir    = flag.String("output", "", "Output directory for results (optional)")
		format       = flag.String("format", "text", "Output format: text, json, csv")
		logLevel     = flag.String("log-level", env.LogLevel(), "Log level")
		verbose      = flag.Bool("verbose", false, "Enable verbose output")
		help         = flag.Bool("help", false, "Show help message")
		quantities   overrides
		alloys       overrides
	)
	flag.Var(&quantities, "qty", "Quantity override NODE=N (repeatable)")
	flag.Var(&alloys, "alloy", "Alloy change NODE=KEY (repeatable)")

	flag.Parse()

	// Create command configuration
	cfg := commands.Config{
		AssemblyFile:  *assemblyFile,
		CatalogDir:    *catalogDir,
		CatalogDriver: *driver,
		CatalogDSN:    *dsn,
		CacheTTL:      *cacheTTL,
		OutputDir:     *outputDir,
		Format:        *format,
		LogLevel:      *logLevel,
		LogFormat:     env.LogFormat(),
		Verbose:       *verbose,
		Help:          *help,
		Quantities:    make(map[string]int64),
		Alloys:        make(map[string]string),
	}

	for _, raw := range quantities {
		id, qty, err := commands.ParseQuantity(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		cfg.Quantities[id] = qty
	}
	for _, raw := range alloys {
		id, key, err := commands.ParseAlloy(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		cfg.Alloys[id] = key
	}

	// Create and execute command
	cmd := commands.NewQuoteCommand(cfg)
	ctx := context.Background()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vsinha/quoting/pkg/application/dto"
	"github.com/vsinha/quoting/pkg/application/services/quoting"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/services/matching"
	"github.com/vsinha/quoting/pkg/infrastructure/catalog"
	"github.com/vsinha/quoting/pkg/infrastructure/events"
	"github.com/vsinha/quoting/pkg/infrastructure/importer"
	"github.com/vsinha/quoting/pkg/infrastructure/logging"
	"github.com/vsinha/quoting/pkg/infrastructure/metrics"
	"github.com/vsinha/quoting/pkg/interfaces/cli/output"
	"go.uber.org/zap"
)

// Config holds configuration for the quote command
type Config struct {
	AssemblyFile  string
	CatalogDir    string
	CatalogDriver string
	CatalogDSN    string
	CacheTTL      time.Duration
	OutputDir     string
	Format        string
	LogLevel      string
	LogFormat     string
	Verbose       bool
	Help          bool
	// Quantities and Alloys are applied after the first pass, keyed by node id.
	// An empty alloy key clears the part's material.
	Quantities map[string]int64
	Alloys     map[string]string
	// Out receives command output; nil means os.Stdout
	Out io.Writer
}

// QuoteCommand quotes one assembly file against the configured catalog
type QuoteCommand struct {
	config Config
}

// NewQuoteCommand creates a new quote command with the given configuration
func NewQuoteCommand(config Config) *QuoteCommand {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	return &QuoteCommand{
		config: config,
	}
}

// Execute runs the quote command
func (c *QuoteCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:      c.config.LogLevel,
		Format:     c.config.LogFormat,
		OutputPath: "stderr",
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	if c.config.Verbose {
		fmt.Fprintf(c.config.Out, "📂 Loading assembly %s\n", c.config.AssemblyFile)
	}
	root, err := importer.NewDecoder(nil).DecodeFile(c.config.AssemblyFile)
	if err != nil {
		return fmt.Errorf("error loading assembly: %w", err)
	}

	cat, err := catalog.Open(ctx, catalog.Options{
		Driver:   c.config.CatalogDriver,
		DSN:      c.config.CatalogDSN,
		SeedDir:  c.config.CatalogDir,
		CacheTTL: c.config.CacheTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("error opening catalog: %w", err)
	}
	defer cat.Close()

	recorder := metrics.NewRecorder()
	eventStore := events.NewInMemoryEventStore(logger)
	if err := eventStore.Subscribe(events.SessionEventTypes, recorder); err != nil {
		return fmt.Errorf("error subscribing to session events: %w", err)
	}
	session, err := quoting.NewSession(root, quoting.Config{
		ID:           string(root.ID),
		Catalog:      cat,
		Logger:       logger,
		EventStore:   eventStore,
		Observer:     recorder,
		MatchOptions: []matching.Option{matching.WithObserver(recorder)},
	})
	if err != nil {
		return fmt.Errorf("error creating quote session: %w", err)
	}
	defer session.Close()

	if c.config.Verbose {
		fmt.Fprintln(c.config.Out, "🔄 Generating quotes...")
	}
	startTime := time.Now()
	if err := session.GenerateQuotes(ctx); err != nil {
		return fmt.Errorf("error generating quotes: %w", err)
	}

	if err := c.applyOverrides(ctx, session); err != nil {
		return err
	}
	elapsed := time.Since(startTime)

	logger.Info("quote completed",
		zap.String("assembly", c.config.AssemblyFile),
		zap.String("total_cost", session.Totals().TotalCost.StringFixed(2)),
		zap.Duration("elapsed", elapsed))

	result := dto.NewQuoteResult(session.ID(), session.Root(), session.Totals(), session.QuotesGenerated())
	if err := output.Generate(result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Elapsed:   elapsed,
		Out:       c.config.Out,
	}); err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Fprintln(c.config.Out, "\n📈 Metrics")
		if err := metrics.WriteSummary(c.config.Out, prometheus.DefaultGatherer); err != nil {
			return err
		}
	}
	return nil
}

// applyOverrides runs alloy changes before quantity updates, each in node id order
func (c *QuoteCommand) applyOverrides(ctx context.Context, session *quoting.Session) error {
	for _, id := range sortedKeys(c.config.Alloys) {
		nodeID := entities.NodeID(id)
		key := c.config.Alloys[id]

		node, err := session.Node(nodeID)
		if err != nil {
			return err
		}
		alloy := entities.AlloyByKey(node.Quote.AvailableAlloys, key)
		if err := session.ChangeAlloy(ctx, nodeID, alloy); err != nil {
			return fmt.Errorf("error changing alloy of %s: %w", id, err)
		}
	}

	for _, id := range sortedKeys(c.config.Quantities) {
		if err := session.UpdateQuantity(ctx, entities.NodeID(id), entities.Quantity(c.config.Quantities[id])); err != nil {
			return fmt.Errorf("error updating quantity of %s: %w", id, err)
		}
	}
	return nil
}

func (c *QuoteCommand) validateInputs() error {
	if c.config.AssemblyFile == "" {
		return fmt.Errorf("assembly file is required (-assembly)")
	}
	if _, err := os.Stat(c.config.AssemblyFile); err != nil {
		return fmt.Errorf("assembly file not found: %s", c.config.AssemblyFile)
	}

	driver := strings.ToLower(c.config.CatalogDriver)
	if (driver == "" || driver == catalog.DriverMemory) && c.config.CatalogDir == "" {
		return fmt.Errorf("catalog directory is required for the memory catalog (-catalog)")
	}

	switch c.config.Format {
	case "", "text", "json", "csv":
	default:
		return fmt.Errorf("invalid format: %s (must be text, json, or csv)", c.config.Format)
	}
	return nil
}

func (c *QuoteCommand) showHelp() {
	fmt.Fprint(c.config.Out, `Assembly Quoting Tool

Matches every part of an assembly to a raw-material product and prices it.

USAGE:
    quote -assembly <file.json> -catalog <dir> [options]

OPTIONS:
    -assembly <file>     Assembly tree JSON document
    -catalog <dir>       Directory with categories.csv and products.csv
    -driver <name>       Catalog backend: memory, sqlite, postgres (default: memory)
    -dsn <dsn>           Catalog database DSN for sqlite/postgres
    -cache-ttl <dur>     Cache catalog lookups for this long (0 disables)
    -alloy NODE=KEY      Re-match a part within an alloy; empty KEY clears it (repeatable)
    -qty NODE=N          Override a part quantity (repeatable)
    -format <fmt>        Output format: text, json, csv (default: text)
    -output <dir>        Write results to a file in this directory
    -log-level <level>   debug, info, warn, error (default: info)
    -verbose             Enable verbose output and print a metrics summary
    -help                Show this help message

ENVIRONMENT:
    QUOTE_CATALOG_DRIVER, QUOTE_CATALOG_DSN, QUOTE_CACHE_TTL,
    QUOTE_LOG_LEVEL, QUOTE_LOG_FORMAT provide defaults for the flags above.
`)
}

// ParseQuantity parses a NODE=N override
func ParseQuantity(raw string) (string, int64, error) {
	id, value, ok := strings.Cut(raw, "=")
	if !ok || id == "" {
		return "", 0, fmt.Errorf("invalid quantity override %q (expected NODE=N)", raw)
	}
	qty, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid quantity in %q: %w", raw, err)
	}
	return id, qty, nil
}

// ParseAlloy parses a NODE=KEY override
func ParseAlloy(raw string) (string, string, error) {
	id, key, ok := strings.Cut(raw, "=")
	if !ok || id == "" {
		return "", "", fmt.Errorf("invalid alloy override %q (expected NODE=KEY)", raw)
	}
	return id, strings.TrimSpace(key), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/quoting/pkg/application/dto"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Elapsed   time.Duration
	// Out receives stdout output; nil means os.Stdout
	Out io.Writer
}

const (
	textFile = "quote.txt"
	jsonFile = "quote.json"
	csvFile  = "quote.csv"
)

var csvHeader = []string{
	"path", "id", "name", "kind", "depth", "shape_key", "quantity", "product_id", "product_name",
	"alloy_key", "material_cost", "processing_cost", "unit_cost", "extended_cost", "quoted",
}

// Generate creates output in the specified format
func Generate(result *dto.QuoteResult, config Config) error {
	if config.Out == nil {
		config.Out = os.Stdout
	}

	switch config.Format {
	case "text", "":
		return emit(config, textFile, func(w io.Writer) error { return WriteText(w, result, config.Elapsed) })
	case "json":
		return emit(config, jsonFile, func(w io.Writer) error { return WriteJSON(w, result) })
	case "csv":
		return emit(config, csvFile, func(w io.Writer) error { return WriteCSV(w, result) })
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// createFile opens an output file for writing
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// emit writes to stdout, or to filename inside the output directory when one is set
func emit(config Config, filename string, write func(w io.Writer) error) error {
	if config.OutputDir == "" {
		return write(config.Out)
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(config.OutputDir, filename)
	file, err := createFile(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Out, "💾 Results saved to: %s\n", path)
	}
	return nil
}

// WriteText renders the indented quote tree and the session totals
func WriteText(w io.Writer, result *dto.QuoteResult, elapsed time.Duration) error {
	fmt.Fprintf(w, "📊 Quote Summary\n")
	fmt.Fprintf(w, "================\n\n")

	fmt.Fprintf(w, "%-36s %-22s %5s %-8s %10s %10s %10s %12s\n",
		"Node", "Shape", "Qty", "Product", "Material", "Process", "Unit", "Extended")
	fmt.Fprintf(w, "%-36s %-22s %5s %-8s %10s %10s %10s %12s\n",
		strings.Repeat("-", 36), strings.Repeat("-", 22), "-----", "--------",
		"----------", "----------", "----------", "------------")

	for _, node := range result.Nodes {
		label := strings.Repeat("  ", node.Depth) + string(node.ID)
		if node.Kind != "Part" {
			fmt.Fprintf(w, "%-36s %-22s %5s %-8s %10s %10s %10s %12s\n",
				label, "", "", "", "", "", node.UnitCost.StringFixed(2), node.ExtendedCost.StringFixed(2))
			continue
		}

		product := "-"
		if node.ProductID != 0 {
			product = strconv.FormatInt(node.ProductID, 10)
		}
		if !node.Quoted {
			product = "n/q"
		}
		fmt.Fprintf(w, "%-36s %-22s %5d %-8s %10s %10s %10s %12s\n",
			label, node.ShapeKey, node.Quantity, product,
			node.MaterialCost.StringFixed(2), node.ProcessingCost.StringFixed(2),
			node.UnitCost.StringFixed(2), node.ExtendedCost.StringFixed(2))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Material cost:   %12s\n", result.Totals.MaterialCost.StringFixed(2))
	fmt.Fprintf(w, "Processing cost: %12s\n", result.Totals.ProcessingCost.StringFixed(2))
	fmt.Fprintf(w, "Total cost:      %12s\n", result.Totals.TotalCost.StringFixed(2))
	if elapsed > 0 {
		fmt.Fprintf(w, "Quoted in %v\n", elapsed)
	}
	return nil
}

// WriteJSON renders the result as indented JSON
func WriteJSON(w io.Writer, result *dto.QuoteResult) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

// WriteCSV renders one row per node, parents before children
func WriteCSV(w io.Writer, result *dto.QuoteResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, node := range result.Nodes {
		var quantity, productID string
		if node.Quantity > 0 {
			quantity = strconv.FormatInt(int64(node.Quantity), 10)
		}
		if node.ProductID != 0 {
			productID = strconv.FormatInt(node.ProductID, 10)
		}
		record := []string{
			node.Path,
			string(node.ID),
			node.Name,
			node.Kind,
			strconv.Itoa(node.Depth),
			string(node.ShapeKey),
			quantity,
			productID,
			node.ProductName,
			node.AlloyKey,
			node.MaterialCost.StringFixed(2),
			node.ProcessingCost.StringFixed(2),
			node.UnitCost.StringFixed(2),
			node.ExtendedCost.StringFixed(2),
			strconv.FormatBool(node.Quoted),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", node.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

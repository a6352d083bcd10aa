package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
)

const (
	// CategoriesFile and ProductsFile are the file names LoadCatalog expects in its directory
	CategoriesFile = "categories.csv"
	ProductsFile   = "products.csv"
)

var (
	categoriesHeader = []string{"id", "key", "name", "parent_key"}
	productsHeader   = []string{"id", "name", "shape", "alloy", "width", "length", "height", "thickness", "diameter", "density", "price_per_kg"}

	// property columns of products.csv, by column index
	productProperties = map[int]entities.PropertyKey{
		4:  entities.PropWidth,
		5:  entities.PropLength,
		6:  entities.PropHeight,
		7:  entities.PropThickness,
		8:  entities.PropDiameter,
		9:  entities.PropDensity,
		10: entities.PropPricePerKg,
	}
)

// Loader handles loading catalog data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadCatalog reads categories.csv and products.csv from dir into the writer
func (l *Loader) LoadCatalog(dir string, writer repositories.CatalogWriter) error {
	categories, err := l.LoadCategories(filepath.Join(dir, CategoriesFile))
	if err != nil {
		return err
	}
	products, err := l.LoadProducts(filepath.Join(dir, ProductsFile), categories)
	if err != nil {
		return err
	}

	if err := writer.LoadCategories(categories); err != nil {
		return fmt.Errorf("failed to store categories: %w", err)
	}
	if err := writer.LoadProducts(products); err != nil {
		return fmt.Errorf("failed to store products: %w", err)
	}
	return nil
}

// LoadCategories loads the category taxonomy from a CSV file
func (l *Loader) LoadCategories(filename string) ([]*entities.Category, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open categories file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadCategories(file)
}

// ReadCategories parses categories from a CSV stream
func (l *Loader) ReadCategories(r io.Reader) ([]*entities.Category, error) {
	records, err := readRecords(r, "categories", categoriesHeader)
	if err != nil {
		return nil, err
	}

	var categories []*entities.Category
	for i, record := range records {
		id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("categories CSV row %d: invalid id: %s", i+2, record[0])
		}
		key := strings.TrimSpace(record[1])
		if key == "" {
			return nil, fmt.Errorf("categories CSV row %d: key cannot be empty", i+2)
		}

		categories = append(categories, &entities.Category{
			ID:        id,
			Key:       key,
			Name:      record[2],
			ParentKey: strings.TrimSpace(record[3]),
		})
	}

	return categories, nil
}

// LoadProducts loads products from a CSV file. Shape and alloy keys are
// resolved against categories; unknown keys are tagged with a bare category.
func (l *Loader) LoadProducts(filename string, categories []*entities.Category) ([]*entities.Product, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open products file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadProducts(file, categories)
}

// ReadProducts parses products from a CSV stream
func (l *Loader) ReadProducts(r io.Reader, categories []*entities.Category) ([]*entities.Product, error) {
	records, err := readRecords(r, "products", productsHeader)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]entities.Category, len(categories))
	for _, category := range categories {
		byKey[category.Key] = *category
	}

	var products []*entities.Product
	for i, record := range records {
		product, err := parseProduct(record, byKey)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		products = append(products, product)
	}

	return products, nil
}

// Helper functions for parsing CSV records

func readRecords(r io.Reader, name string, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", name)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(record))
		}
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseProduct(record []string, categories map[string]entities.Category) (*entities.Product, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}

	shape, err := entities.ParseShapeKey(strings.TrimSpace(record[2]))
	if err != nil {
		return nil, err
	}

	product := &entities.Product{
		ID:         id,
		Name:       record[1],
		Categories: []entities.Category{resolveCategory(categories, string(shape), "")},
		Properties: make(map[entities.PropertyKey]decimal.Decimal),
	}

	if alloyKey := strings.TrimSpace(record[3]); alloyKey != "" {
		alloy := resolveCategory(categories, alloyKey, entities.AlloyRootKey)
		if !alloy.IsAlloy() {
			return nil, fmt.Errorf("category %s is not an alloy", alloyKey)
		}
		product.Categories = append(product.Categories, alloy)
	}

	for column, key := range productProperties {
		raw := strings.TrimSpace(record[column])
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", productsHeader[column], raw)
		}
		product.Properties[key] = value
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}
	return product, nil
}

func resolveCategory(categories map[string]entities.Category, key, defaultParent string) entities.Category {
	if category, ok := categories[key]; ok {
		return category
	}
	return entities.Category{Key: key, Name: key, ParentKey: defaultParent}
}

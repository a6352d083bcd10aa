package sqlstore

import (
	"fmt"
	"strings"

	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
)

// Dialect captures the differences between the supported SQL backends
type Dialect struct {
	// Name is the value accepted by Open
	Name string
	// Driver is the database/sql driver name
	Driver string
	// Bind renders the n-th (1-based) positional parameter
	Bind func(n int) string
}

var (
	Postgres = Dialect{
		Name:   "postgres",
		Driver: "pgx",
		Bind:   func(n int) string { return fmt.Sprintf("$%d", n) },
	}
	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite3",
		Bind:   func(int) string { return "?" },
	}
)

// DialectFor resolves a configured driver name
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported catalog driver: %s", name)
	}
}

// productColumns lists the products table columns in scan order
var productColumns = []string{
	"id", "name", "shape", "alloy_key",
	"width", "length", "height", "thickness", "diameter", "density", "price_per_kg",
}

// propertyColumns maps the nullable numeric columns to product properties
var propertyColumns = []struct {
	column string
	key    entities.PropertyKey
}{
	{"width", entities.PropWidth},
	{"length", entities.PropLength},
	{"height", entities.PropHeight},
	{"thickness", entities.PropThickness},
	{"diameter", entities.PropDiameter},
	{"density", entities.PropDensity},
	{"price_per_kg", entities.PropPricePerKg},
}

// Schema returns the DDL statements creating the catalog tables.
// Numeric properties are stored as decimal text so no precision is lost.
func (d Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGINT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			parent_key TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			shape TEXT NOT NULL,
			alloy_key TEXT NOT NULL DEFAULT '',
			width TEXT,
			length TEXT,
			height TEXT,
			thickness TEXT,
			diameter TEXT,
			density TEXT,
			price_per_kg TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS products_shape_alloy ON products (shape, alloy_key)`,
	}
}

// CandidateSQL renders the part of a candidate query the database evaluates:
// the shape and alloy filters. Dimension bounds compare decimals and are
// applied after scanning.
func (d Dialect) CandidateSQL(query repositories.CandidateQuery) (string, []interface{}) {
	var sb strings.Builder
	args := []interface{}{string(query.Shape)}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(productColumns, ", "))
	sb.WriteString(" FROM products WHERE shape = ")
	sb.WriteString(d.Bind(len(args)))

	if query.AlloyKey != "" {
		args = append(args, query.AlloyKey)
		sb.WriteString(" AND alloy_key = ")
		sb.WriteString(d.Bind(len(args)))
	}
	sb.WriteString(" ORDER BY id")
	return sb.String(), args
}

// AlloysSQL renders the distinct-alloys lookup for a shape
func (d Dialect) AlloysSQL(shape entities.ShapeKey) (string, []interface{}) {
	query := "SELECT DISTINCT p.alloy_key, COALESCE(c.id, 0), COALESCE(c.name, p.alloy_key)" +
		" FROM products p LEFT JOIN categories c ON c.key = p.alloy_key" +
		" WHERE p.shape = " + d.Bind(1) + " AND p.alloy_key <> ''" +
		" ORDER BY p.alloy_key"
	return query, []interface{}{string(shape)}
}

// InsertCategorySQL renders the category upsert statement. Reloading the
// same seed into an existing database refreshes rows in place.
func (d Dialect) InsertCategorySQL() string {
	return fmt.Sprintf("INSERT INTO categories (id, key, name, parent_key) VALUES (%s, %s, %s, %s)%s",
		d.Bind(1), d.Bind(2), d.Bind(3), d.Bind(4),
		upsertClause([]string{"id", "key", "name", "parent_key"}))
}

// InsertProductSQL renders the product upsert statement
func (d Dialect) InsertProductSQL() string {
	binds := make([]string, len(productColumns))
	for i := range binds {
		binds[i] = d.Bind(i + 1)
	}
	return fmt.Sprintf("INSERT INTO products (%s) VALUES (%s)%s",
		strings.Join(productColumns, ", "), strings.Join(binds, ", "),
		upsertClause(productColumns))
}

// upsertClause renders ON CONFLICT (id) DO UPDATE for every non-key column.
// PostgreSQL and SQLite share the syntax.
func upsertClause(columns []string) string {
	sets := make([]string, 0, len(columns)-1)
	for _, column := range columns {
		if column == "id" {
			continue
		}
		sets = append(sets, column+" = excluded."+column)
	}
	return " ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}

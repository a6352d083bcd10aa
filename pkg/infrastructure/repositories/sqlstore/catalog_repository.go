// Package sqlstore keeps the raw-material catalog in PostgreSQL (through the
// pgx stdlib driver) or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
	"go.uber.org/zap"
)

// CatalogRepository serves catalog queries from a SQL database
type CatalogRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)
var _ repositories.CatalogWriter = (*CatalogRepository)(nil)

// Open connects to the catalog database and creates the schema if needed
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*CatalogRepository, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s catalog: %w", dialect.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s catalog: %w", dialect.Name, err)
	}

	repo := NewCatalogRepository(db, dialect, logger)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("catalog database ready", zap.String("dialect", dialect.Name))
	return repo, nil
}

// NewCatalogRepository wraps an open database handle
func NewCatalogRepository(db *sql.DB, dialect Dialect, logger *zap.Logger) *CatalogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRepository{db: db, dialect: dialect, logger: logger}
}

// Close releases the database handle
func (r *CatalogRepository) Close() error {
	return r.db.Close()
}

// Migrate creates the catalog tables
func (r *CatalogRepository) Migrate(ctx context.Context) error {
	for _, statement := range r.dialect.Schema() {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	return nil
}

// FindCandidates selects the products of a shape and applies the remaining bounds
func (r *CatalogRepository) FindCandidates(ctx context.Context, query repositories.CandidateQuery) ([]entities.Product, error) {
	categories, err := r.categoriesByKey(ctx)
	if err != nil {
		return nil, err
	}

	statement, args := r.dialect.CandidateSQL(query)
	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var products []entities.Product
	for rows.Next() {
		product, err := scanProduct(rows, categories)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	return query.Apply(products), nil
}

// ListAlloysForShape returns the distinct alloys carried by products of a shape
func (r *CatalogRepository) ListAlloysForShape(ctx context.Context, shape entities.ShapeKey) ([]entities.Category, error) {
	statement, args := r.dialect.AlloysSQL(shape)
	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alloys: %w", err)
	}
	defer rows.Close()

	var alloys []entities.Category
	for rows.Next() {
		alloy := entities.Category{ParentKey: entities.AlloyRootKey}
		if err := rows.Scan(&alloy.Key, &alloy.ID, &alloy.Name); err != nil {
			return nil, fmt.Errorf("failed to scan alloy: %w", err)
		}
		alloys = append(alloys, alloy)
	}
	return alloys, rows.Err()
}

// LoadCategories inserts categories in one transaction
func (r *CatalogRepository) LoadCategories(categories []*entities.Category) error {
	return r.inTx(context.Background(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(r.dialect.InsertCategorySQL())
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range categories {
			if _, err := stmt.Exec(c.ID, c.Key, c.Name, c.ParentKey); err != nil {
				return fmt.Errorf("failed to insert category %s: %w", c.Key, err)
			}
		}
		return nil
	})
}

// LoadProducts validates and inserts products in one transaction
func (r *CatalogRepository) LoadProducts(products []*entities.Product) error {
	return r.inTx(context.Background(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(r.dialect.InsertProductSQL())
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range products {
			if err := p.Validate(); err != nil {
				return err
			}
			if _, err := stmt.Exec(productArgs(p)...); err != nil {
				return fmt.Errorf("failed to insert product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (r *CatalogRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit()
}

func (r *CatalogRepository) categoriesByKey(ctx context.Context) (map[string]entities.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, key, name, parent_key FROM categories")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make(map[string]entities.Category)
	for rows.Next() {
		var c entities.Category
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &c.ParentKey); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories[c.Key] = c
	}
	return categories, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner, categories map[string]entities.Category) (entities.Product, error) {
	var (
		product  entities.Product
		shape    string
		alloyKey string
		values   = make([]sql.NullString, len(propertyColumns))
	)

	dest := []interface{}{&product.ID, &product.Name, &shape, &alloyKey}
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := row.Scan(dest...); err != nil {
		return entities.Product{}, fmt.Errorf("failed to scan product: %w", err)
	}

	product.Categories = []entities.Category{categoryOrBare(categories, shape, "")}
	if alloyKey != "" {
		product.Categories = append(product.Categories, categoryOrBare(categories, alloyKey, entities.AlloyRootKey))
	}

	product.Properties = make(map[entities.PropertyKey]decimal.Decimal)
	for i, value := range values {
		if !value.Valid || value.String == "" {
			continue
		}
		d, err := decimal.NewFromString(value.String)
		if err != nil {
			return entities.Product{}, fmt.Errorf("product %d: invalid %s %q", product.ID, propertyColumns[i].column, value.String)
		}
		product.Properties[propertyColumns[i].key] = d
	}
	return product, nil
}

func categoryOrBare(categories map[string]entities.Category, key, parent string) entities.Category {
	if c, ok := categories[key]; ok {
		return c
	}
	return entities.Category{Key: key, Name: key, ParentKey: parent}
}

func productArgs(p *entities.Product) []interface{} {
	var alloyKey string
	if alloy := p.Alloy(); alloy != nil {
		alloyKey = alloy.Key
	}
	args := []interface{}{p.ID, p.Name, string(p.ShapeKeys()[0]), alloyKey}
	for _, column := range propertyColumns {
		if value, ok := p.Property(column.key); ok {
			args = append(args, value.String())
		} else {
			args = append(args, nil)
		}
	}
	return args
}

// Package catalog opens the configured raw-material catalog backend.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vsinha/quoting/pkg/domain/repositories"
	"github.com/vsinha/quoting/pkg/infrastructure/repositories/cached"
	"github.com/vsinha/quoting/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/quoting/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/quoting/pkg/infrastructure/repositories/sqlstore"
	"go.uber.org/zap"
)

// DriverMemory keeps the catalog in process, loaded from CSV
const DriverMemory = "memory"

// Options selects and seeds a catalog backend
type Options struct {
	// Driver is memory, sqlite or postgres
	Driver string
	DSN    string
	// SeedDir holds categories.csv and products.csv. Required for memory;
	// for SQL drivers the files are imported into the database.
	SeedDir string
	// CacheTTL enables the lookup cache when positive
	CacheTTL time.Duration
}

// Catalog is an opened catalog backend
type Catalog struct {
	repositories.CatalogRepository
	close func() error
}

// Close releases the backend
func (c *Catalog) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// Open builds the catalog described by opts
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := strings.ToLower(opts.Driver)
	if driver == "" {
		driver = DriverMemory
	}

	var (
		repo   repositories.CatalogRepository
		writer repositories.CatalogWriter
		closer func() error
	)

	switch driver {
	case DriverMemory:
		if opts.SeedDir == "" {
			return nil, fmt.Errorf("memory catalog requires a CSV directory")
		}
		memoryRepo := memory.NewCatalogRepository(0)
		repo, writer = memoryRepo, memoryRepo
	default:
		store, err := sqlstore.Open(ctx, driver, opts.DSN, logger)
		if err != nil {
			return nil, err
		}
		repo, writer, closer = store, store, store.Close
	}

	if opts.SeedDir != "" {
		if err := csv.NewLoader().LoadCatalog(opts.SeedDir, writer); err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, fmt.Errorf("failed to load catalog from %s: %w", opts.SeedDir, err)
		}
		logger.Info("catalog loaded", zap.String("driver", driver), zap.String("dir", opts.SeedDir))
	}

	if opts.CacheTTL > 0 {
		repo = cached.NewCatalogRepository(repo, opts.CacheTTL)
	}

	return &Catalog{CatalogRepository: repo, close: closer}, nil
}

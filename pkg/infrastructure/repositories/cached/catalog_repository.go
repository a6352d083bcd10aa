// Package cached memoizes catalog lookups in front of a slower repository.
package cached

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
)

// CatalogRepository caches FindCandidates and ListAlloysForShape results.
// Failed lookups are never cached.
type CatalogRepository struct {
	inner repositories.CatalogRepository
	cache *gocache.Cache
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository wraps inner with a cache whose entries live for ttl
func NewCatalogRepository(inner repositories.CatalogRepository, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *CatalogRepository) FindCandidates(ctx context.Context, query repositories.CandidateQuery) ([]entities.Product, error) {
	key := candidateKey(query)
	if cached, ok := r.cache.Get(key); ok {
		return copyProducts(cached.([]entities.Product)), nil
	}

	products, err := r.inner.FindCandidates(ctx, query)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, copyProducts(products))
	return products, nil
}

func (r *CatalogRepository) ListAlloysForShape(ctx context.Context, shape entities.ShapeKey) ([]entities.Category, error) {
	key := "alloys|" + string(shape)
	if cached, ok := r.cache.Get(key); ok {
		return append([]entities.Category(nil), cached.([]entities.Category)...), nil
	}

	alloys, err := r.inner.ListAlloysForShape(ctx, shape)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, append([]entities.Category(nil), alloys...))
	return alloys, nil
}

// Flush drops every cached lookup, e.g. after the catalog was reloaded
func (r *CatalogRepository) Flush() {
	r.cache.Flush()
}

// Len reports the number of cached lookups
func (r *CatalogRepository) Len() int {
	return r.cache.ItemCount()
}

func candidateKey(q repositories.CandidateQuery) string {
	bound := func(d *decimal.Decimal) string {
		if d == nil {
			return "-"
		}
		return d.String()
	}
	return strings.Join([]string{
		"candidates",
		string(q.Shape),
		q.AlloyKey,
		bound(q.MinWidth),
		bound(q.MinLength),
		bound(q.Thickness),
		fmt.Sprint(int(q.Order)),
		fmt.Sprint(q.Limit),
	}, "|")
}

func copyProducts(products []entities.Product) []entities.Product {
	if products == nil {
		return nil
	}
	return append([]entities.Product(nil), products...)
}

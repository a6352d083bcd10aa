package repositories

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
)

// SortOrder selects how a repository orders its results
type SortOrder int

const (
	// SortByID orders by product id ascending
	SortByID SortOrder = iota
	// SortByWidthLength orders by WIDTH then LENGTH ascending, product id breaking ties
	SortByWidthLength
)

// CandidateQuery is a typed catalog lookup. Nil bounds are not applied.
type CandidateQuery struct {
	Shape     entities.ShapeKey
	AlloyKey  string
	MinWidth  *decimal.Decimal
	MinLength *decimal.Decimal
	// Thickness matches products whose THICKNESS equals this value after
	// both sides are rounded half-up to two decimals
	Thickness *decimal.Decimal
	Order     SortOrder
	// Limit caps the result size; zero means unlimited
	Limit int
}

// CatalogRepository provides access to the raw-material catalog
type CatalogRepository interface {
	FindCandidates(ctx context.Context, query CandidateQuery) ([]entities.Product, error)
	ListAlloysForShape(ctx context.Context, shape entities.ShapeKey) ([]entities.Category, error)
}

// CatalogWriter loads catalog data into a repository
type CatalogWriter interface {
	LoadCategories(categories []*entities.Category) error
	LoadProducts(products []*entities.Product) error
}

// Matches applies the query's shape, alloy and dimension bounds to a product.
// A bound on a property the product does not carry excludes the product.
func (q CandidateQuery) Matches(product *entities.Product) bool {
	if !product.HasCategory(string(q.Shape)) {
		return false
	}
	if q.AlloyKey != "" {
		alloy := product.Alloy()
		if alloy == nil || alloy.Key != q.AlloyKey {
			return false
		}
	}
	if q.MinWidth != nil && !atLeast(product, entities.PropWidth, *q.MinWidth) {
		return false
	}
	if q.MinLength != nil && !atLeast(product, entities.PropLength, *q.MinLength) {
		return false
	}
	if q.Thickness != nil {
		thickness, ok := product.Property(entities.PropThickness)
		if !ok || !thickness.Round(2).Equal(q.Thickness.Round(2)) {
			return false
		}
	}
	return true
}

// Apply filters, orders and limits products in place of a store that cannot
// evaluate the whole query itself
func (q CandidateQuery) Apply(products []entities.Product) []entities.Product {
	matches := make([]entities.Product, 0, len(products))
	for i := range products {
		if q.Matches(&products[i]) {
			matches = append(matches, products[i])
		}
	}

	SortProducts(matches, q.Order)
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches
}

// SortProducts orders products per the sort order; product id always breaks ties
func SortProducts(products []entities.Product, order SortOrder) {
	switch order {
	case SortByWidthLength:
		sort.SliceStable(products, func(i, j int) bool {
			a, b := &products[i], &products[j]
			if c := a.PropertyOrZero(entities.PropWidth).Cmp(b.PropertyOrZero(entities.PropWidth)); c != 0 {
				return c < 0
			}
			if c := a.PropertyOrZero(entities.PropLength).Cmp(b.PropertyOrZero(entities.PropLength)); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].ID < products[j].ID
		})
	}
}

func atLeast(product *entities.Product, key entities.PropertyKey, bound decimal.Decimal) bool {
	value, ok := product.Property(key)
	return ok && value.GreaterThanOrEqual(bound)
}

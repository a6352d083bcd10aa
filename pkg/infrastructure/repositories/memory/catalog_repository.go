package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
)

// CatalogRepository provides in-memory catalog storage
type CatalogRepository struct {
	mu          sync.RWMutex
	categories  []entities.Category
	categoryMap map[string]int
	products    []entities.Product
	productMap  map[int64]int
	shapeIndex  map[entities.ShapeKey][]int
}

// NewCatalogRepository creates a new in-memory catalog repository
func NewCatalogRepository(expectedProducts int) *CatalogRepository {
	return &CatalogRepository{
		categoryMap: make(map[string]int),
		products:    make([]entities.Product, 0, expectedProducts),
		productMap:  make(map[int64]int, expectedProducts),
		shapeIndex:  make(map[entities.ShapeKey][]int),
	}
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)
var _ repositories.CatalogWriter = (*CatalogRepository)(nil)

// LoadCategories loads categories into the repository
func (r *CatalogRepository) LoadCategories(categories []*entities.Category) error {
	for _, category := range categories {
		if err := r.SaveCategory(category); err != nil {
			return err
		}
	}
	return nil
}

// SaveCategory stores a category, rejecting duplicate keys
func (r *CatalogRepository) SaveCategory(category *entities.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if category.Key == "" {
		return fmt.Errorf("category key cannot be empty")
	}
	if _, exists := r.categoryMap[category.Key]; exists {
		return fmt.Errorf("duplicate category key: %s", category.Key)
	}
	r.categoryMap[category.Key] = len(r.categories)
	r.categories = append(r.categories, *category)
	return nil
}

// GetCategory returns a category by key
func (r *CatalogRepository) GetCategory(key string) (*entities.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.categoryMap[key]
	if !exists {
		return nil, fmt.Errorf("category not found: %s", key)
	}
	category := r.categories[index]
	return &category, nil
}

// LoadProducts loads products into the repository
func (r *CatalogRepository) LoadProducts(products []*entities.Product) error {
	for _, product := range products {
		if err := r.SaveProduct(product); err != nil {
			return err
		}
	}
	return nil
}

// SaveProduct validates and stores a product, rejecting duplicate ids
func (r *CatalogRepository) SaveProduct(product *entities.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.productMap[product.ID]; exists {
		return fmt.Errorf("duplicate product id: %d", product.ID)
	}

	index := len(r.products)
	r.products = append(r.products, *product)
	r.productMap[product.ID] = index
	shape := product.ShapeKeys()[0]
	r.shapeIndex[shape] = append(r.shapeIndex[shape], index)
	return nil
}

// GetProduct returns a product by id
func (r *CatalogRepository) GetProduct(id int64) (*entities.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.productMap[id]
	if !exists {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	product := r.products[index]
	return &product, nil
}

// GetAllProducts returns every product in insertion order
func (r *CatalogRepository) GetAllProducts() []entities.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]entities.Product, len(r.products))
	copy(products, r.products)
	return products
}

// FindCandidates filters the products tagged with the query's shape
func (r *CatalogRepository) FindCandidates(ctx context.Context, query repositories.CandidateQuery) ([]entities.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	indexed := r.shapeIndex[query.Shape]
	products := make([]entities.Product, len(indexed))
	for i, index := range indexed {
		products[i] = r.products[index]
	}
	r.mu.RUnlock()

	return query.Apply(products), nil
}

// ListAlloysForShape returns the distinct alloys carried by products of a shape, ordered by key
func (r *CatalogRepository) ListAlloysForShape(ctx context.Context, shape entities.ShapeKey) ([]entities.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var alloys []entities.Category
	for _, index := range r.shapeIndex[shape] {
		alloy := r.products[index].Alloy()
		if alloy == nil || seen[alloy.Key] {
			continue
		}
		seen[alloy.Key] = true
		if i, ok := r.categoryMap[alloy.Key]; ok {
			alloys = append(alloys, r.categories[i])
		} else {
			alloys = append(alloys, *alloy)
		}
	}

	sort.Slice(alloys, func(i, j int) bool {
		return alloys[i].Key < alloys[j].Key
	})
	return alloys, nil
}

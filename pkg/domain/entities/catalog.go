package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlloyRootKey is the key of the category that parents every alloy
const AlloyRootKey = "ALLOY"

// Category is a taxonomy node used to tag catalog products
type Category struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	ParentKey string `json:"parent_key,omitempty"`
}

// IsAlloy reports whether the category is a direct child of the alloy root
func (c Category) IsAlloy() bool {
	return c.ParentKey == AlloyRootKey
}

// AlloyByKey resolves an alloy key against the alloys offered for a part.
// An empty key yields nil; a key not on offer yields a bare alloy category
// so the caller can still request it from the catalog.
func AlloyByKey(alloys []Category, key string) *Category {
	if key == "" {
		return nil
	}
	for i := range alloys {
		if alloys[i].Key == key {
			alloy := alloys[i]
			return &alloy
		}
	}
	return &Category{Key: key, Name: key, ParentKey: AlloyRootKey}
}

// PropertyKey names a numeric property of a catalog product
type PropertyKey string

const (
	PropWidth      PropertyKey = "WIDTH"
	PropLength     PropertyKey = "LENGTH"
	PropHeight     PropertyKey = "HEIGHT"
	PropThickness  PropertyKey = "THICKNESS"
	PropDiameter   PropertyKey = "DIAMETER"
	PropDensity    PropertyKey = "DENSITY"
	PropPricePerKg PropertyKey = "PRICEPERKG"
)

// Product is a raw-material candidate from the catalog
type Product struct {
	ID         int64                           `json:"id"`
	Name       string                          `json:"name"`
	Categories []Category                      `json:"categories"`
	Properties map[PropertyKey]decimal.Decimal `json:"properties"`
}

// Property returns the named property and whether it is present
func (p *Product) Property(key PropertyKey) (decimal.Decimal, bool) {
	if p == nil || p.Properties == nil {
		return decimal.Zero, false
	}
	v, ok := p.Properties[key]
	return v, ok
}

// PropertyOrZero returns the named property, or zero when absent
func (p *Product) PropertyOrZero(key PropertyKey) decimal.Decimal {
	v, _ := p.Property(key)
	return v
}

// Alloy returns the product's alloy tag, if any
func (p *Product) Alloy() *Category {
	if p == nil {
		return nil
	}
	for i := range p.Categories {
		if p.Categories[i].IsAlloy() {
			alloy := p.Categories[i]
			return &alloy
		}
	}
	return nil
}

// HasCategory reports whether the product is tagged with the given category key
func (p *Product) HasCategory(key string) bool {
	for _, c := range p.Categories {
		if c.Key == key {
			return true
		}
	}
	return false
}

// ShapeKeys returns every known shape key the product is tagged with
func (p *Product) ShapeKeys() []ShapeKey {
	var shapes []ShapeKey
	for _, c := range p.Categories {
		if key := ShapeKey(c.Key); key.IsKnown() {
			shapes = append(shapes, key)
		}
	}
	return shapes
}

// Validate checks the catalog invariants of a product
func (p *Product) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("product id must be positive, got %d", p.ID)
	}
	if shapes := p.ShapeKeys(); len(shapes) != 1 {
		return fmt.Errorf("product %d must carry exactly one shape tag, got %d", p.ID, len(shapes))
	}
	alloys := 0
	for _, c := range p.Categories {
		if c.IsAlloy() {
			alloys++
		}
	}
	if alloys > 1 {
		return fmt.Errorf("product %d carries %d alloy tags", p.ID, alloys)
	}
	return nil
}

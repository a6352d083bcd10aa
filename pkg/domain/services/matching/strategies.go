package matching

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
)

// MaxCandidates caps the ranked candidate list for any part
const MaxCandidates = 10

var tubeThicknessWeight = decimal.NewFromInt(10)

// SheetRequirement is the stock a sheet part must be cut from
type SheetRequirement struct {
	Width     decimal.Decimal
	Length    decimal.Decimal
	Thickness decimal.Decimal
}

// SheetRequirementFor prefers the flat pattern and falls back to the bounding box.
// Width is always the smaller side; thickness is rounded to two decimals.
func SheetRequirementFor(part *entities.Part) SheetRequirement {
	width, length := part.FlatWidth, part.FlatLength
	if !width.IsPositive() || !length.IsPositive() {
		width, length = part.BoundingBox.X, part.BoundingBox.Y
	}
	if width.GreaterThan(length) {
		width, length = length, width
	}
	return SheetRequirement{
		Width:     width,
		Length:    length,
		Thickness: part.Thickness.Round(2),
	}
}

// TubeSection is the cross-section a profile part needs
type TubeSection struct {
	Width     decimal.Decimal
	Height    decimal.Decimal
	Thickness decimal.Decimal
	Diameter  decimal.Decimal
}

// TubeSectionFor normalizes so width >= height and defaults thickness to one unit
func TubeSectionFor(part *entities.Part) TubeSection {
	width, height := part.SectionWidth, part.SectionHeight
	if height.GreaterThan(width) {
		width, height = height, width
	}
	return TubeSection{
		Width:     width,
		Height:    height,
		Thickness: part.ThicknessOrUnit(),
		Diameter:  part.Diameter,
	}
}

// RectangularTubeDistance scores a product against a rectangular section. The
// dimension term takes the better of the straight and swapped pairing so the
// score does not depend on how the catalog orients width and height.
func RectangularTubeDistance(product *entities.Product, section TubeSection) decimal.Decimal {
	tw := product.PropertyOrZero(entities.PropWidth)
	th := product.PropertyOrZero(entities.PropHeight)
	tt := product.PropertyOrZero(entities.PropThickness)

	straight := tw.Sub(section.Width).Abs().Add(th.Sub(section.Height).Abs())
	swapped := tw.Sub(section.Height).Abs().Add(th.Sub(section.Width).Abs())
	return decimal.Min(straight, swapped).Add(tt.Sub(section.Thickness).Abs().Mul(tubeThicknessWeight))
}

// RankRectangularTubes orders products by ascending RectangularTubeDistance
func RankRectangularTubes(products []entities.Product, section TubeSection) []entities.Product {
	return rankBy(products, func(p *entities.Product) []decimal.Decimal {
		return []decimal.Decimal{RectangularTubeDistance(p, section)}
	})
}

// RankRoundTubes orders by diameter distance, then thickness distance
func RankRoundTubes(products []entities.Product, section TubeSection) []entities.Product {
	return rankBy(products, func(p *entities.Product) []decimal.Decimal {
		return []decimal.Decimal{
			p.PropertyOrZero(entities.PropDiameter).Sub(section.Diameter).Abs(),
			p.PropertyOrZero(entities.PropThickness).Sub(section.Thickness).Abs(),
		}
	})
}

// RankRoundBars orders by diameter distance
func RankRoundBars(products []entities.Product, section TubeSection) []entities.Product {
	return rankBy(products, func(p *entities.Product) []decimal.Decimal {
		return []decimal.Decimal{p.PropertyOrZero(entities.PropDiameter).Sub(section.Diameter).Abs()}
	})
}

// rankBy sorts a copy of products by the given keys, product id breaking ties,
// and caps the result at MaxCandidates
func rankBy(products []entities.Product, keys func(p *entities.Product) []decimal.Decimal) []entities.Product {
	type scored struct {
		product entities.Product
		keys    []decimal.Decimal
	}

	ranked := make([]scored, len(products))
	for i := range products {
		ranked[i] = scored{product: products[i], keys: keys(&products[i])}
	}

	sort.Slice(ranked, func(i, j int) bool {
		for k := range ranked[i].keys {
			if c := ranked[i].keys[k].Cmp(ranked[j].keys[k]); c != 0 {
				return c < 0
			}
		}
		return ranked[i].product.ID < ranked[j].product.ID
	})

	out := make([]entities.Product, len(ranked))
	for i := range ranked {
		out[i] = ranked[i].product
	}
	return capCandidates(out)
}

// SortByID orders products by id ascending
func SortByID(products []entities.Product) []entities.Product {
	sorted := make([]entities.Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func capCandidates(products []entities.Product) []entities.Product {
	if len(products) > MaxCandidates {
		return products[:MaxCandidates]
	}
	return products
}

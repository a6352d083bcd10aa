// Package costing converts a part and its selected raw material into
// material and processing cost. Every currency value is rounded at the
// step where it is produced so totals reproduce the step-order rounding.
package costing

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
)

// Rates holds the constants the cost formulas depend on
type Rates struct {
	DefaultDensity    decimal.Decimal // kg/m³
	DefaultPricePerKg decimal.Decimal
	FillFactor        decimal.Decimal // share of the bounding box assumed solid
	CuttingSpeed      decimal.Decimal // mm/s
	LaserHourlyRate   decimal.Decimal
	BendPrice         decimal.Decimal
	SawingCost        decimal.Decimal
}

var (
	mm3PerM3       = decimal.NewFromInt(1_000_000_000)
	secondsPerHour = decimal.NewFromInt(3600)
)

// DefaultRates returns steel defaults and the standard shop rates
func DefaultRates() Rates {
	return Rates{
		DefaultDensity:    decimal.NewFromInt(7850),
		DefaultPricePerKg: decimal.NewFromInt(1),
		FillFactor:        decimal.RequireFromString("0.5"),
		CuttingSpeed:      decimal.RequireFromString("28.5"),
		LaserHourlyRate:   decimal.NewFromInt(150),
		BendPrice:         decimal.RequireFromString("0.20"),
		SawingCost:        decimal.RequireFromString("2.00"),
	}
}

// Calculator holds the rates used by the cost formulas
type Calculator struct {
	rates Rates
}

// NewCalculator creates a calculator with the given rates
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rates returns the calculator's rates
func (c *Calculator) Rates() Rates {
	return c.rates
}

// Breakdown is the per-unit cost of one part
type Breakdown struct {
	MaterialCost   decimal.Decimal
	ProcessingCost decimal.Decimal
	UnitCost       decimal.Decimal
}

// Cost computes the full per-unit breakdown. A nil product falls back to
// the default density and price.
func (c *Calculator) Cost(part *entities.Part, product *entities.Product) Breakdown {
	material := c.MaterialCost(part, product)
	processing := c.ProcessingCost(part)
	return Breakdown{
		MaterialCost:   material,
		ProcessingCost: processing,
		UnitCost:       Round2(material.Add(processing)),
	}
}

// MaterialCost is the weight of the part times the product's price per kg
func (c *Calculator) MaterialCost(part *entities.Part, product *entities.Product) decimal.Decimal {
	density, ok := product.Property(entities.PropDensity)
	if !ok {
		density = c.rates.DefaultDensity
	}
	pricePerKg, ok := product.Property(entities.PropPricePerKg)
	if !ok {
		pricePerKg = c.rates.DefaultPricePerKg
	}

	volumeM3 := c.volumeMM3(part).Div(mm3PerM3)
	return Round2(volumeM3.Mul(density).Mul(pricePerKg))
}

// volumeMM3 uses the reported volume, or estimates it from the bounding box
func (c *Calculator) volumeMM3(part *entities.Part) decimal.Decimal {
	if part == nil {
		return decimal.Zero
	}
	if !part.Volume.IsZero() {
		return part.Volume
	}
	box := part.BoundingBox
	return box.X.Mul(box.Y).Mul(box.Z).Mul(c.rates.FillFactor)
}

// ProcessingCost prices laser cutting and bending for sheets and sawing for profiles
func (c *Calculator) ProcessingCost(part *entities.Part) decimal.Decimal {
	if part == nil {
		return decimal.Zero
	}

	switch {
	case part.ShapeKey.IsSheet():
		seconds := Round6(part.ContourLength.Div(c.rates.CuttingSpeed))
		hours := Round6(seconds.Div(secondsPerHour))
		cost := Round2(hours.Mul(c.rates.LaserHourlyRate))
		if part.ShapeKey == entities.SheetMetalFolded && part.BendCount > 0 {
			bends := c.rates.BendPrice.Mul(decimal.NewFromInt(int64(part.BendCount)))
			cost = Round2(cost.Add(bends))
		}
		return cost
	case part.ShapeKey.IsRectangularTube(), part.ShapeKey.IsRoundTube(), part.ShapeKey == entities.BarRound:
		return c.rates.SawingCost
	default:
		return decimal.Zero
	}
}

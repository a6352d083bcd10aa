package entities

import "github.com/shopspring/decimal"

// Dimensions is an axis-aligned bounding box in millimetres
type Dimensions struct {
	X decimal.Decimal `json:"x"`
	Y decimal.Decimal `json:"y"`
	Z decimal.Decimal `json:"z"`
}

// Part holds the geometry extracted from CAD for a single part.
// Zero values mean the attribute was not reported by the import tool.
// Parts are shared between every node instancing the same geometry and
// must not be mutated after import.
type Part struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ShapeKey    ShapeKey   `json:"shape_key"`
	BoundingBox Dimensions `json:"bounding_box"`

	// Sheet metal
	FlatWidth     decimal.Decimal `json:"flat_width"`
	FlatLength    decimal.Decimal `json:"flat_length"`
	ContourLength decimal.Decimal `json:"contour_length"`
	BendCount     int             `json:"bend_count"`

	// Profiles
	SectionWidth  decimal.Decimal `json:"section_width"`
	SectionHeight decimal.Decimal `json:"section_height"`
	Diameter      decimal.Decimal `json:"diameter"`
	Length        decimal.Decimal `json:"length"`

	Thickness decimal.Decimal `json:"thickness"`
	Volume    decimal.Decimal `json:"volume"`
	TotalArea decimal.Decimal `json:"total_area"`
}

// ThicknessOrUnit returns the thickness, substituting 1 when it is missing
func (p *Part) ThicknessOrUnit() decimal.Decimal {
	if p.Thickness.IsPositive() {
		return p.Thickness
	}
	return decimal.NewFromInt(1)
}

package costing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func steelSheet(price string) *entities.Product {
	return &entities.Product{
		ID:   1,
		Name: "Sheet 2mm",
		Properties: map[entities.PropertyKey]decimal.Decimal{
			entities.PropDensity:    d("7850"),
			entities.PropPricePerKg: d(price),
		},
	}
}

func TestCalculator_FlatSheetScenario(t *testing.T) {
	calc := NewCalculator(DefaultRates())
	part := &entities.Part{
		ShapeKey:      entities.SheetMetalFlat,
		Thickness:     d("2.00"),
		ContourLength: d("1000"),
		Volume:        d("500000"),
	}

	breakdown := calc.Cost(part, steelSheet("1.20"))

	if !breakdown.MaterialCost.Equal(d("4.71")) {
		t.Errorf("Expected material cost 4.71, got %s", breakdown.MaterialCost)
	}
	if !breakdown.ProcessingCost.Equal(d("1.46")) {
		t.Errorf("Expected processing cost 1.46, got %s", breakdown.ProcessingCost)
	}
	if !breakdown.UnitCost.Equal(d("6.17")) {
		t.Errorf("Expected unit cost 6.17, got %s", breakdown.UnitCost)
	}
}

func TestCalculator_MaterialDefaults(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	testCases := []struct {
		name     string
		part     *entities.Part
		product  *entities.Product
		expected string
	}{
		{
			// 0.001 m³ * 7850 * 1
			name:     "no product uses steel at 1 per kg",
			part:     &entities.Part{ShapeKey: entities.BarRound, Volume: d("1000000")},
			product:  nil,
			expected: "7.85",
		},
		{
			// 100*100*100*0.5 = 500000 mm³
			name: "bounding box fill factor when volume missing",
			part: &entities.Part{
				ShapeKey:    entities.BarRectangular,
				BoundingBox: entities.Dimensions{X: d("100"), Y: d("100"), Z: d("100")},
			},
			product:  steelSheet("2"),
			expected: "7.85",
		},
		{
			name: "product without density keeps price",
			part: &entities.Part{ShapeKey: entities.TubeRound, Volume: d("1000000")},
			product: &entities.Product{Properties: map[entities.PropertyKey]decimal.Decimal{
				entities.PropPricePerKg: d("3"),
			}},
			expected: "23.55",
		},
		{
			name:     "no geometry costs nothing",
			part:     &entities.Part{ShapeKey: entities.TubeRound},
			product:  steelSheet("3"),
			expected: "0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.MaterialCost(tc.part, tc.product)
			if !got.Equal(d(tc.expected)) {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestCalculator_ProcessingByShape(t *testing.T) {
	calc := NewCalculator(DefaultRates())

	testCases := []struct {
		name     string
		part     *entities.Part
		expected string
	}{
		{"folded sheet adds bends", &entities.Part{ShapeKey: entities.SheetMetalFolded, ContourLength: d("1000"), BendCount: 3}, "2.06"},
		{"folded sheet without bends", &entities.Part{ShapeKey: entities.SheetMetalFolded, ContourLength: d("1000")}, "1.46"},
		{"flat sheet ignores bends", &entities.Part{ShapeKey: entities.SheetMetalFlat, ContourLength: d("1000"), BendCount: 3}, "1.46"},
		{"rectangular tube", &entities.Part{ShapeKey: entities.TubeRectangular}, "2.00"},
		{"bent rectangular tube", &entities.Part{ShapeKey: entities.BentTubeRectangular}, "2.00"},
		{"round tube", &entities.Part{ShapeKey: entities.TubeRound}, "2.00"},
		{"bent round tube", &entities.Part{ShapeKey: entities.BentTubeRound}, "2.00"},
		{"round bar", &entities.Part{ShapeKey: entities.BarRound}, "2.00"},
		{"rectangular bar", &entities.Part{ShapeKey: entities.BarRectangular}, "0"},
		{"unknown", &entities.Part{ShapeKey: entities.ShapeUnknown}, "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.ProcessingCost(tc.part)
			if !got.Equal(d(tc.expected)) {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestRounding_HalfUp(t *testing.T) {
	if got := Round2(d("1.465")); !got.Equal(d("1.47")) {
		t.Errorf("Expected 1.47, got %s", got)
	}
	if got := Round2(d("0.125")); !got.Equal(d("0.13")) {
		t.Errorf("Expected 0.13, got %s", got)
	}
	if got := Round6(d("0.0097465886")); !got.Equal(d("0.009747")) {
		t.Errorf("Expected 0.009747, got %s", got)
	}
}

package entities

import "fmt"

// ShapeKey classifies a part's manufacturing geometry
type ShapeKey string

const (
	SheetMetalFlat      ShapeKey = "SHEET_METAL_FLAT"
	SheetMetalFolded    ShapeKey = "SHEET_METAL_FOLDED"
	TubeRectangular     ShapeKey = "TUBE_RECTANGULAR"
	TubeRound           ShapeKey = "TUBE_ROUND"
	BentTubeRectangular ShapeKey = "BENT_TUBE_RECTANGULAR"
	BentTubeRound       ShapeKey = "BENT_TUBE_ROUND"
	BarRound            ShapeKey = "BAR_ROUND"
	BarRectangular      ShapeKey = "BAR_RECTANGULAR"
	ShapeUnknown        ShapeKey = "UNKNOWN"
	ShapeUnrecognized   ShapeKey = "UNRECOGNIZED"
)

// knownShapes lists every shape key the import tool may emit
var knownShapes = map[ShapeKey]bool{
	SheetMetalFlat:      true,
	SheetMetalFolded:    true,
	TubeRectangular:     true,
	TubeRound:           true,
	BentTubeRectangular: true,
	BentTubeRound:       true,
	BarRound:            true,
	BarRectangular:      true,
	ShapeUnknown:        true,
	ShapeUnrecognized:   true,
}

// quotableShapes is the whitelist of shapes eligible for cost estimation
var quotableShapes = map[ShapeKey]bool{
	SheetMetalFlat:      true,
	SheetMetalFolded:    true,
	TubeRectangular:     true,
	TubeRound:           true,
	BentTubeRectangular: true,
	BentTubeRound:       true,
	BarRound:            true,
	BarRectangular:      true,
}

// ParseShapeKey validates a raw shape key string
func ParseShapeKey(raw string) (ShapeKey, error) {
	key := ShapeKey(raw)
	if !key.IsKnown() {
		return "", fmt.Errorf("%w: %q", ErrInvalidShape, raw)
	}
	return key, nil
}

// IsKnown reports whether the key is one of the declared shape keys
func (s ShapeKey) IsKnown() bool {
	return knownShapes[s]
}

// IsQuotable reports whether parts of this shape are matched and costed
func (s ShapeKey) IsQuotable() bool {
	return quotableShapes[s]
}

// IsSheet reports whether the shape is flat or folded sheet metal
func (s ShapeKey) IsSheet() bool {
	return s == SheetMetalFlat || s == SheetMetalFolded
}

// IsRectangularTube covers straight and bent rectangular tubes
func (s ShapeKey) IsRectangularTube() bool {
	return s == TubeRectangular || s == BentTubeRectangular
}

// IsRoundTube covers straight and bent round tubes
func (s ShapeKey) IsRoundTube() bool {
	return s == TubeRound || s == BentTubeRound
}

// IsTubeOrBar reports whether missing thickness defaults to one unit
func (s ShapeKey) IsTubeOrBar() bool {
	return s.IsRectangularTube() || s.IsRoundTube() || s == BarRound || s == BarRectangular
}

func (s ShapeKey) String() string {
	return string(s)
}

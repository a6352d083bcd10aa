package testing

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/infrastructure/repositories/memory"
)

// Alloy categories used by the sample catalog
var (
	AlloyS235    = entities.Category{ID: 101, Key: "S235", Name: "Steel S235", ParentKey: entities.AlloyRootKey}
	AlloyAL5754  = entities.Category{ID: 102, Key: "AL5754", Name: "Aluminium 5754", ParentKey: entities.AlloyRootKey}
	AlloyINOX304 = entities.Category{ID: 103, Key: "INOX304", Name: "Stainless 304", ParentKey: entities.AlloyRootKey}
)

// D parses a decimal literal and panics on malformed input
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Props builds a property map from alternating key/value pairs
func Props(pairs ...string) map[entities.PropertyKey]decimal.Decimal {
	props := make(map[entities.PropertyKey]decimal.Decimal, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		props[entities.PropertyKey(pairs[i])] = D(pairs[i+1])
	}
	return props
}

// NewProduct tags a product with its shape and an optional alloy
func NewProduct(id int64, name string, shape entities.ShapeKey, alloy *entities.Category, props map[entities.PropertyKey]decimal.Decimal) *entities.Product {
	categories := []entities.Category{{Key: string(shape), Name: string(shape), ParentKey: "SHAPE"}}
	if alloy != nil {
		categories = append(categories, *alloy)
	}
	return &entities.Product{ID: id, Name: name, Categories: categories, Properties: props}
}

// SampleCategories returns the shape and alloy taxonomy of the sample catalog
func SampleCategories() []*entities.Category {
	categories := []*entities.Category{
		{ID: 1, Key: "SHAPE", Name: "Shapes"},
		{ID: 2, Key: entities.AlloyRootKey, Name: "Alloys"},
	}
	shapes := []entities.ShapeKey{
		entities.SheetMetalFlat, entities.SheetMetalFolded,
		entities.TubeRectangular, entities.TubeRound,
		entities.BentTubeRectangular, entities.BentTubeRound,
		entities.BarRound, entities.BarRectangular,
	}
	for i, shape := range shapes {
		categories = append(categories, &entities.Category{ID: int64(10 + i), Key: string(shape), Name: string(shape), ParentKey: "SHAPE"})
	}
	for _, alloy := range []entities.Category{AlloyS235, AlloyAL5754, AlloyINOX304} {
		a := alloy
		categories = append(categories, &a)
	}
	return categories
}

// SampleProducts returns a small raw-material catalog covering every quotable shape
func SampleProducts() []*entities.Product {
	steel := []string{"DENSITY", "7850", "PRICEPERKG", "1.20"}
	alu := []string{"DENSITY", "2660", "PRICEPERKG", "4.50"}
	inox := []string{"DENSITY", "7900", "PRICEPERKG", "3.80"}
	with := func(base []string, pairs ...string) map[entities.PropertyKey]decimal.Decimal {
		return Props(append(append([]string{}, base...), pairs...)...)
	}

	return []*entities.Product{
		NewProduct(1, "Sheet S235 1000x2000x2", entities.SheetMetalFlat, &AlloyS235, with(steel, "WIDTH", "1000", "LENGTH", "2000", "THICKNESS", "2.00")),
		NewProduct(2, "Sheet S235 1250x2500x2", entities.SheetMetalFlat, &AlloyS235, with(steel, "WIDTH", "1250", "LENGTH", "2500", "THICKNESS", "2.00")),
		NewProduct(3, "Sheet S235 1000x2000x3", entities.SheetMetalFlat, &AlloyS235, with(steel, "WIDTH", "1000", "LENGTH", "2000", "THICKNESS", "3.00")),
		NewProduct(4, "Sheet AL5754 1000x2000x2", entities.SheetMetalFlat, &AlloyAL5754, with(alu, "WIDTH", "1000", "LENGTH", "2000", "THICKNESS", "2.00")),
		NewProduct(5, "Sheet S235 1500x3000x2", entities.SheetMetalFlat, &AlloyS235, with(steel, "WIDTH", "1500", "LENGTH", "3000", "THICKNESS", "2.00")),
		NewProduct(6, "Sheet S235 1000x2000x1.5", entities.SheetMetalFolded, &AlloyS235, with(steel, "WIDTH", "1000", "LENGTH", "2000", "THICKNESS", "1.50")),
		NewProduct(7, "Sheet INOX304 1250x2500x1.5", entities.SheetMetalFolded, &AlloyINOX304, with(inox, "WIDTH", "1250", "LENGTH", "2500", "THICKNESS", "1.50")),
		NewProduct(10, "RHS S235 50x30x2", entities.TubeRectangular, &AlloyS235, with(steel, "WIDTH", "50", "HEIGHT", "30", "THICKNESS", "2")),
		NewProduct(11, "RHS S235 30x50x2", entities.TubeRectangular, &AlloyS235, with(steel, "WIDTH", "30", "HEIGHT", "50", "THICKNESS", "2")),
		NewProduct(12, "RHS S235 60x40x3", entities.TubeRectangular, &AlloyS235, with(steel, "WIDTH", "60", "HEIGHT", "40", "THICKNESS", "3")),
		NewProduct(13, "RHS AL5754 50x30x2", entities.TubeRectangular, &AlloyAL5754, with(alu, "WIDTH", "50", "HEIGHT", "30", "THICKNESS", "2")),
		NewProduct(14, "RHS S235 40x20x2", entities.BentTubeRectangular, &AlloyS235, with(steel, "WIDTH", "40", "HEIGHT", "20", "THICKNESS", "2")),
		NewProduct(20, "CHS S235 42.4x2", entities.TubeRound, &AlloyS235, with(steel, "DIAMETER", "42.4", "THICKNESS", "2")),
		NewProduct(21, "CHS S235 48.3x2.6", entities.TubeRound, &AlloyS235, with(steel, "DIAMETER", "48.3", "THICKNESS", "2.6")),
		NewProduct(22, "CHS AL5754 42.4x3.2", entities.TubeRound, &AlloyAL5754, with(alu, "DIAMETER", "42.4", "THICKNESS", "3.2")),
		NewProduct(23, "CHS S235 33.7x2", entities.BentTubeRound, &AlloyS235, with(steel, "DIAMETER", "33.7", "THICKNESS", "2")),
		NewProduct(30, "Round bar S235 D20", entities.BarRound, &AlloyS235, with(steel, "DIAMETER", "20")),
		NewProduct(31, "Round bar S235 D25", entities.BarRound, &AlloyS235, with(steel, "DIAMETER", "25")),
		NewProduct(32, "Round bar AL5754 D30", entities.BarRound, &AlloyAL5754, with(alu, "DIAMETER", "30")),
		NewProduct(40, "Flat bar S235 40x10", entities.BarRectangular, &AlloyS235, with(steel, "WIDTH", "40", "HEIGHT", "10")),
		NewProduct(41, "Flat bar S235 50x10", entities.BarRectangular, &AlloyS235, with(steel, "WIDTH", "50", "HEIGHT", "10")),
	}
}

// BuildSampleCatalog loads the sample taxonomy and products into a memory repository
func BuildSampleCatalog() *memory.CatalogRepository {
	repo := memory.NewCatalogRepository(32)
	if err := repo.LoadCategories(SampleCategories()); err != nil {
		panic(err)
	}
	if err := repo.LoadProducts(SampleProducts()); err != nil {
		panic(err)
	}
	return repo
}

// FlatSheetPart is the reference flat sheet: 2 mm, 1000 mm contour, 500 cm³
func FlatSheetPart() *entities.Part {
	return &entities.Part{
		ID:            "PART-BASE",
		Name:          "Base plate",
		ShapeKey:      entities.SheetMetalFlat,
		FlatWidth:     D("600"),
		FlatLength:    D("400"),
		Thickness:     D("2.00"),
		ContourLength: D("1000"),
		Volume:        D("500000"),
	}
}

// BuildSampleAssembly builds a two-level frame assembly:
//
//	ROOT
//	├── BASE       flat sheet x2
//	├── BRACKETS
//	│   ├── GUSSET folded sheet x4
//	│   ├── RAIL   rectangular tube x2
//	│   └── LABEL  unknown shape x3
//	├── POST       round tube x1
//	└── PIN        round bar x6
func BuildSampleAssembly() *entities.Node {
	base := mustPart("BASE", "Base plate", FlatSheetPart(), 2)
	gusset := mustPart("GUSSET", "Gusset", &entities.Part{
		ID:            "PART-GUSSET",
		Name:          "Gusset",
		ShapeKey:      entities.SheetMetalFolded,
		FlatWidth:     D("200"),
		FlatLength:    D("300"),
		Thickness:     D("1.5"),
		ContourLength: D("800"),
		BendCount:     2,
		Volume:        D("120000"),
	}, 4)
	rail := mustPart("RAIL", "Rail", &entities.Part{
		ID:            "PART-RAIL",
		Name:          "Rail",
		ShapeKey:      entities.TubeRectangular,
		SectionWidth:  D("30"),
		SectionHeight: D("50"),
		Thickness:     D("2"),
		Length:        D("1200"),
		Volume:        D("364800"),
	}, 2)
	label := mustPart("LABEL", "Label", &entities.Part{
		ID:       "PART-LABEL",
		Name:     "Label",
		ShapeKey: entities.ShapeUnknown,
		Volume:   D("1000"),
	}, 3)
	post := mustPart("POST", "Post", &entities.Part{
		ID:        "PART-POST",
		Name:      "Post",
		ShapeKey:  entities.TubeRound,
		Diameter:  D("42"),
		Thickness: D("2"),
		Length:    D("800"),
		Volume:    D("201062"),
	}, 1)
	pin := mustPart("PIN", "Pin", &entities.Part{
		ID:       "PART-PIN",
		Name:     "Pin",
		ShapeKey: entities.BarRound,
		Diameter: D("20"),
		Length:   D("100"),
		Volume:   D("31416"),
	}, 6)

	brackets := mustAssembly("BRACKETS", "Bracket sub-assembly", gusset, rail, label)
	return mustAssembly("ROOT", "Frame assembly", base, brackets, post, pin)
}

func mustPart(id entities.NodeID, name string, part *entities.Part, qty entities.Quantity) *entities.Node {
	node, err := entities.NewPartNode(id, name, part, qty)
	if err != nil {
		panic(err)
	}
	return node
}

func mustAssembly(id entities.NodeID, name string, children ...*entities.Node) *entities.Node {
	node, err := entities.NewAssemblyNode(id, name, children...)
	if err != nil {
		panic(err)
	}
	return node
}

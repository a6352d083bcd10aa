package entities

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewPartNode_Validation(t *testing.T) {
	part := &Part{ID: "P1", ShapeKey: SheetMetalFlat}

	node, err := NewPartNode("N1", "Bracket", part, 3)
	if err != nil {
		t.Fatalf("Expected valid part node creation to succeed: %v", err)
	}
	if node.Quote.Quantity != 3 {
		t.Errorf("Expected quantity 3, got %d", node.Quote.Quantity)
	}
	if !node.IsPart() || !node.IsQuotable() {
		t.Error("Expected a quotable part node")
	}

	if _, err := NewPartNode("", "x", part, 1); err == nil {
		t.Error("Expected error for empty id")
	}
	if _, err := NewPartNode("N2", "x", nil, 1); err == nil {
		t.Error("Expected error for missing part")
	}
	if _, err := NewPartNode("N3", "x", part, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got %v", err)
	}
}

func TestNode_WalkOrderAndDepth(t *testing.T) {
	leafA, _ := NewPartNode("A", "A", &Part{ShapeKey: BarRound}, 1)
	leafB, _ := NewPartNode("B", "B", &Part{ShapeKey: ShapeUnknown}, 1)
	sub, _ := NewAssemblyNode("SUB", "Sub", leafB)
	root, _ := NewAssemblyNode("ROOT", "Root", leafA, sub)

	var order []NodeID
	depths := map[NodeID]int{}
	root.Walk(func(n *Node, depth int) {
		order = append(order, n.ID)
		depths[n.ID] = depth
	})

	expected := []NodeID{"ROOT", "A", "SUB", "B"}
	if len(order) != len(expected) {
		t.Fatalf("Expected %d nodes, got %d", len(expected), len(order))
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], order[i])
		}
	}
	if depths["B"] != 2 {
		t.Errorf("Expected depth 2 for B, got %d", depths["B"])
	}
	if leafB.IsQuotable() {
		t.Error("UNKNOWN part must not be quotable")
	}
}

func TestNode_ExtendedCost(t *testing.T) {
	part, _ := NewPartNode("A", "A", &Part{ShapeKey: BarRound}, 4)
	part.Quote.UnitCost = decimal.RequireFromString("2.50")
	if !part.ExtendedCost().Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("Expected 10.00, got %s", part.ExtendedCost())
	}

	asm, _ := NewAssemblyNode("R", "R", part)
	asm.Quote.UnitCost = decimal.RequireFromString("2.50")
	if !asm.ExtendedCost().Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("Assembly extended cost must not scale, got %s", asm.ExtendedCost())
	}
}

func TestProduct_Alloy(t *testing.T) {
	product := &Product{
		ID:   1,
		Name: "Sheet 2mm S235",
		Categories: []Category{
			{Key: "SHEET_METAL_FLAT", ParentKey: "SHAPE"},
			{Key: "S235", ParentKey: AlloyRootKey},
		},
	}

	alloy := product.Alloy()
	if alloy == nil {
		t.Fatal("Expected alloy category")
	}
	if alloy.Key != "S235" {
		t.Errorf("Expected S235, got %s", alloy.Key)
	}

	var none *Product
	if none.Alloy() != nil {
		t.Error("Expected nil alloy for nil product")
	}
	if _, ok := none.Property(PropDensity); ok {
		t.Error("Expected no property on nil product")
	}
}

func TestTotals_Add(t *testing.T) {
	var totals Totals
	totals.Add(decimal.RequireFromString("4.71"), decimal.RequireFromString("1.46"), 2)

	if !totals.MaterialCost.Equal(decimal.RequireFromString("9.42")) {
		t.Errorf("Expected material 9.42, got %s", totals.MaterialCost)
	}
	if !totals.ProcessingCost.Equal(decimal.RequireFromString("2.92")) {
		t.Errorf("Expected processing 2.92, got %s", totals.ProcessingCost)
	}
	if !totals.TotalCost.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("Expected total 12.34, got %s", totals.TotalCost)
	}
}

func TestAlloyByKey(t *testing.T) {
	offered := []Category{
		{ID: 101, Key: "S235", Name: "Steel S235", ParentKey: AlloyRootKey},
		{ID: 102, Key: "AL5754", Name: "Aluminium 5754", ParentKey: AlloyRootKey},
	}

	if got := AlloyByKey(offered, ""); got != nil {
		t.Errorf("Expected nil for empty key, got %+v", got)
	}

	got := AlloyByKey(offered, "AL5754")
	if got == nil || got.ID != 102 || got.Name != "Aluminium 5754" {
		t.Fatalf("Expected offered AL5754 category, got %+v", got)
	}
	got.Name = "changed"
	if offered[1].Name != "Aluminium 5754" {
		t.Error("Expected AlloyByKey to return a copy")
	}

	bare := AlloyByKey(offered, "INOX304")
	if bare == nil {
		t.Fatal("Expected bare category for key not on offer")
	}
	if bare.ID != 0 || bare.Key != "INOX304" || bare.Name != "INOX304" || !bare.IsAlloy() {
		t.Errorf("Unexpected bare category %+v", bare)
	}
	if AlloyByKey(nil, "S235") == nil {
		t.Error("Expected bare category when nothing is offered")
	}
}

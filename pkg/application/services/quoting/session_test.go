package quoting

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
	"github.com/vsinha/quoting/pkg/infrastructure/events"
	testinghelpers "github.com/vsinha/quoting/pkg/infrastructure/testing"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newSampleSession(t *testing.T) *Session {
	t.Helper()
	session, err := NewSession(testinghelpers.BuildSampleAssembly(), Config{
		ID:      "test-session",
		Catalog: testinghelpers.BuildSampleCatalog(),
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return session
}

func mustNode(t *testing.T, s *Session, id entities.NodeID) *entities.Node {
	t.Helper()
	node, err := s.Node(id)
	if err != nil {
		t.Fatalf("Node %s not found: %v", id, err)
	}
	return node
}

func expectCost(t *testing.T, label string, got decimal.Decimal, expected string) {
	t.Helper()
	if !got.Equal(d(expected)) {
		t.Errorf("%s: expected %s, got %s", label, expected, got.StringFixed(2))
	}
}

// assertConsistent checks the recompute invariants over the whole tree
func assertConsistent(t *testing.T, s *Session) {
	t.Helper()

	totals := s.Totals()
	if !totals.TotalCost.Equal(totals.MaterialCost.Add(totals.ProcessingCost)) {
		t.Errorf("Total %s != material %s + processing %s", totals.TotalCost, totals.MaterialCost, totals.ProcessingCost)
	}

	material, processing := decimal.Zero, decimal.Zero
	s.Root().Walk(func(node *entities.Node, _ int) {
		if node.IsPart() {
			if node.Quote.Quoted {
				qty := decimal.NewFromInt(int64(node.Quote.Quantity))
				material = material.Add(node.Quote.MaterialCost.Mul(qty))
				processing = processing.Add(node.Quote.ProcessingCost.Mul(qty))
			}
			return
		}
		sum := decimal.Zero
		for _, child := range node.Children {
			sum = sum.Add(child.Quote.UnitCost)
		}
		if !node.Quote.UnitCost.Equal(sum) {
			t.Errorf("Assembly %s unit cost %s != children sum %s", node.ID, node.Quote.UnitCost, sum)
		}
	})

	if !totals.MaterialCost.Equal(material) {
		t.Errorf("Total material %s != sum over parts %s", totals.MaterialCost, material)
	}
	if !totals.ProcessingCost.Equal(processing) {
		t.Errorf("Total processing %s != sum over parts %s", totals.ProcessingCost, processing)
	}
}

func TestSession_GenerateQuotes_SampleAssembly(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)

	if session.QuotesGenerated() {
		t.Fatal("Expected no quotes before the first pass")
	}
	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	if !session.QuotesGenerated() {
		t.Error("Expected quotes generated after the first pass")
	}

	testCases := []struct {
		id         entities.NodeID
		productID  int64
		material   string
		processing string
		unit       string
	}{
		{"BASE", 1, "4.71", "1.46", "6.17"},
		{"GUSSET", 6, "1.13", "1.57", "2.70"},
		{"RAIL", 10, "3.44", "2.00", "5.44"},
		{"POST", 20, "1.89", "2.00", "3.89"},
		{"PIN", 30, "0.30", "2.00", "2.30"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.id), func(t *testing.T) {
			node := mustNode(t, session, tc.id)
			if !node.Quote.Quoted {
				t.Error("Expected part to be quoted")
			}
			if node.Quote.RawMaterial == nil || node.Quote.RawMaterial.ID != tc.productID {
				t.Fatalf("Expected product %d, got %+v", tc.productID, node.Quote.RawMaterial)
			}
			expectCost(t, "material", node.Quote.MaterialCost, tc.material)
			expectCost(t, "processing", node.Quote.ProcessingCost, tc.processing)
			expectCost(t, "unit", node.Quote.UnitCost, tc.unit)
			if node.Quote.SelectedAlloy == nil || node.Quote.SelectedAlloy.Key != "S235" {
				t.Errorf("Expected S235 selected alloy, got %+v", node.Quote.SelectedAlloy)
			}
		})
	}

	expectCost(t, "BRACKETS unit", mustNode(t, session, "BRACKETS").Quote.UnitCost, "8.14")
	expectCost(t, "ROOT unit", mustNode(t, session, "ROOT").Quote.UnitCost, "20.50")

	totals := session.Totals()
	expectCost(t, "total material", totals.MaterialCost, "24.51")
	expectCost(t, "total processing", totals.ProcessingCost, "27.20")
	expectCost(t, "total", totals.TotalCost, "51.71")

	assertConsistent(t, session)
}

func TestSession_FlatSheetScenario(t *testing.T) {
	part, err := entities.NewPartNode("SHEET", "Sheet", testinghelpers.FlatSheetPart(), 2)
	if err != nil {
		t.Fatalf("Failed to create part node: %v", err)
	}
	session, err := NewSession(part, Config{Catalog: testinghelpers.BuildSampleCatalog()})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := session.GenerateQuotes(context.Background()); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	totals := session.Totals()
	expectCost(t, "material", totals.MaterialCost, "9.42")
	expectCost(t, "processing", totals.ProcessingCost, "2.92")
	expectCost(t, "total", totals.TotalCost, "12.34")
}

func TestSession_UnknownPartsContributeNothing(t *testing.T) {
	session := newSampleSession(t)
	if err := session.GenerateQuotes(context.Background()); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	label := mustNode(t, session, "LABEL")
	if label.Quote.Quoted {
		t.Error("UNKNOWN part must not be quoted")
	}
	if label.Quote.RawMaterial != nil {
		t.Error("UNKNOWN part must not be matched")
	}
	expectCost(t, "label unit", label.Quote.UnitCost, "0")
	expectCost(t, "label material", label.Quote.MaterialCost, "0")

	unrecognized, _ := entities.NewPartNode("X", "X", &entities.Part{ShapeKey: entities.ShapeUnrecognized, Volume: d("1000")}, 5)
	root, _ := entities.NewAssemblyNode("R", "R", unrecognized)
	other, err := NewSession(root, Config{Catalog: testinghelpers.BuildSampleCatalog()})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := other.GenerateQuotes(context.Background()); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	if !other.Totals().TotalCost.IsZero() {
		t.Errorf("Expected zero totals, got %s", other.Totals().TotalCost)
	}
	if !root.Quote.Quoted {
		t.Error("Assemblies are quoted after any completed pass")
	}
	expectCost(t, "root unit", root.Quote.UnitCost, "0")
}

func TestSession_GenerateQuotesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)

	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("First pass failed: %v", err)
	}
	first := session.Totals()
	unitCosts := map[entities.NodeID]decimal.Decimal{}
	session.Root().Walk(func(node *entities.Node, _ int) {
		unitCosts[node.ID] = node.Quote.UnitCost
	})

	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("Second pass failed: %v", err)
	}
	if !session.Totals().Equal(first) {
		t.Errorf("Totals changed between passes: %+v vs %+v", first, session.Totals())
	}
	session.Root().Walk(func(node *entities.Node, _ int) {
		if !node.Quote.UnitCost.Equal(unitCosts[node.ID]) {
			t.Errorf("Node %s unit cost changed: %s vs %s", node.ID, unitCosts[node.ID], node.Quote.UnitCost)
		}
	})
}

func TestSession_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)
	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	if err := session.UpdateQuantity(ctx, "BASE", 5); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}

	base := mustNode(t, session, "BASE")
	if base.Quote.Quantity != 5 {
		t.Errorf("Expected quantity 5, got %d", base.Quote.Quantity)
	}
	expectCost(t, "base unit unchanged", base.Quote.UnitCost, "6.17")
	expectCost(t, "root unit unchanged", session.Root().Quote.UnitCost, "20.50")

	// three more base plates: +14.13 material, +4.38 processing
	totals := session.Totals()
	expectCost(t, "total material", totals.MaterialCost, "38.64")
	expectCost(t, "total processing", totals.ProcessingCost, "31.58")
	expectCost(t, "total", totals.TotalCost, "70.22")
	assertConsistent(t, session)
}

func TestSession_UpdateQuantity_Rejected(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)
	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	before := session.Totals()

	if err := session.UpdateQuantity(ctx, "BASE", 0); !errors.Is(err, entities.ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got %v", err)
	}
	if err := session.UpdateQuantity(ctx, "BRACKETS", 2); !errors.Is(err, entities.ErrNotPartNode) {
		t.Errorf("Expected ErrNotPartNode, got %v", err)
	}
	if err := session.UpdateQuantity(ctx, "MISSING", 2); !errors.Is(err, entities.ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
	if !session.Totals().Equal(before) {
		t.Error("Rejected updates must leave totals untouched")
	}
	if mustNode(t, session, "BASE").Quote.Quantity != 2 {
		t.Error("Rejected update must leave quantity untouched")
	}
}

func TestSession_UpdateMaterial(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)
	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	base := mustNode(t, session, "BASE")
	var aluminium entities.Product
	for _, candidate := range base.Quote.AvailableMaterials {
		if candidate.ID == 4 {
			aluminium = candidate
		}
	}
	if aluminium.ID != 4 {
		t.Fatalf("Expected aluminium sheet among candidates, got %d candidates", len(base.Quote.AvailableMaterials))
	}

	if err := session.UpdateMaterial(ctx, "BASE", &aluminium); err != nil {
		t.Fatalf("UpdateMaterial failed: %v", err)
	}

	// 0.0005 m³ * 2660 * 4.50 = 5.985
	expectCost(t, "material", base.Quote.MaterialCost, "5.99")
	expectCost(t, "processing", base.Quote.ProcessingCost, "1.46")
	expectCost(t, "unit", base.Quote.UnitCost, "7.45")
	if base.Quote.SelectedAlloy == nil || base.Quote.SelectedAlloy.Key != "AL5754" {
		t.Errorf("Expected AL5754 alloy, got %+v", base.Quote.SelectedAlloy)
	}
	expectCost(t, "root unit", session.Root().Quote.UnitCost, "21.78")
	assertConsistent(t, session)

	if err := session.UpdateMaterial(ctx, "BASE", nil); err != nil {
		t.Fatalf("UpdateMaterial(nil) failed: %v", err)
	}
	// defaults: 0.0005 * 7850 * 1
	expectCost(t, "default material", base.Quote.MaterialCost, "3.93")
	assertConsistent(t, session)

	if err := session.UpdateMaterial(ctx, "LABEL", &aluminium); !errors.Is(err, entities.ErrNotQuotable) {
		t.Errorf("Expected ErrNotQuotable, got %v", err)
	}
}

func TestSession_ChangeAlloy(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)
	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	if err := session.ChangeAlloy(ctx, "RAIL", &testinghelpers.AlloyAL5754); err != nil {
		t.Fatalf("ChangeAlloy failed: %v", err)
	}

	rail := mustNode(t, session, "RAIL")
	if rail.Quote.RawMaterial == nil || rail.Quote.RawMaterial.ID != 13 {
		t.Fatalf("Expected aluminium tube 13, got %+v", rail.Quote.RawMaterial)
	}
	// 0.0003648 * 2660 * 4.50 = 4.366656
	expectCost(t, "material", rail.Quote.MaterialCost, "4.37")
	expectCost(t, "unit", rail.Quote.UnitCost, "6.37")
	if rail.Quote.SelectedAlloy == nil || rail.Quote.SelectedAlloy.Key != "AL5754" {
		t.Errorf("Expected AL5754 selected, got %+v", rail.Quote.SelectedAlloy)
	}
	assertConsistent(t, session)
}

func TestSession_ChangeAlloyWithoutCandidateZeroesCosts(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)
	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	if err := session.ChangeAlloy(ctx, "PIN", &testinghelpers.AlloyINOX304); err != nil {
		t.Fatalf("ChangeAlloy failed: %v", err)
	}

	pin := mustNode(t, session, "PIN")
	if pin.Quote.RawMaterial != nil {
		t.Errorf("Expected no material, got %+v", pin.Quote.RawMaterial)
	}
	expectCost(t, "unit", pin.Quote.UnitCost, "0")
	expectCost(t, "processing", pin.Quote.ProcessingCost, "0")
	assertConsistent(t, session)
}

func TestSession_ChangeAlloyToNoneAlwaysZeroes(t *testing.T) {
	ctx := context.Background()

	for _, id := range []entities.NodeID{"BASE", "GUSSET", "RAIL", "POST", "PIN"} {
		t.Run(string(id), func(t *testing.T) {
			session := newSampleSession(t)
			if err := session.GenerateQuotes(ctx); err != nil {
				t.Fatalf("GenerateQuotes failed: %v", err)
			}
			before := session.Totals()

			if err := session.ChangeAlloy(ctx, id, nil); err != nil {
				t.Fatalf("ChangeAlloy(nil) failed: %v", err)
			}

			node := mustNode(t, session, id)
			if node.Quote.RawMaterial != nil {
				t.Error("Expected material cleared")
			}
			if node.Quote.SelectedAlloy != nil {
				t.Error("Expected alloy cleared")
			}
			expectCost(t, "material", node.Quote.MaterialCost, "0")
			expectCost(t, "processing", node.Quote.ProcessingCost, "0")
			expectCost(t, "unit", node.Quote.UnitCost, "0")
			if !session.Totals().TotalCost.LessThan(before.TotalCost) {
				t.Error("Expected totals to drop")
			}
			assertConsistent(t, session)
		})
	}
}

func TestSession_RecalculateDoesNotRematch(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)
	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	// A manual override survives recalculation but not regeneration
	if err := session.ChangeAlloy(ctx, "POST", nil); err != nil {
		t.Fatalf("ChangeAlloy failed: %v", err)
	}
	if err := session.RecalculateTotals(ctx); err != nil {
		t.Fatalf("RecalculateTotals failed: %v", err)
	}
	expectCost(t, "post after recalc", mustNode(t, session, "POST").Quote.UnitCost, "0")

	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	expectCost(t, "post after regenerate", mustNode(t, session, "POST").Quote.UnitCost, "3.89")
	expectCost(t, "total", session.Totals().TotalCost, "51.71")
}

func TestSession_NoCandidateUsesDefaults(t *testing.T) {
	part, _ := entities.NewPartNode("ODD", "Odd sheet", &entities.Part{
		ID:            "ODD",
		ShapeKey:      entities.SheetMetalFlat,
		FlatWidth:     d("100"),
		FlatLength:    d("100"),
		Thickness:     d("7"),
		ContourLength: d("400"),
		Volume:        d("70000"),
	}, 1)

	session, err := NewSession(part, Config{Catalog: testinghelpers.BuildSampleCatalog()})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := session.GenerateQuotes(context.Background()); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	if part.Quote.RawMaterial != nil {
		t.Errorf("Expected no material, got %+v", part.Quote.RawMaterial)
	}
	if !part.Quote.Quoted {
		t.Error("A match miss is still quoted")
	}
	// 0.00007 * 7850 * 1 = 0.5495
	expectCost(t, "material", part.Quote.MaterialCost, "0.55")
	if part.Quote.ProcessingCost.IsZero() {
		t.Error("Expected processing cost despite the match miss")
	}
}

type brokenCatalog struct{}

func (brokenCatalog) FindCandidates(context.Context, repositories.CandidateQuery) ([]entities.Product, error) {
	return nil, errors.New("catalog offline")
}

func (brokenCatalog) ListAlloysForShape(context.Context, entities.ShapeKey) ([]entities.Category, error) {
	return nil, errors.New("catalog offline")
}

func TestSession_CatalogFailureDoesNotAbortWalk(t *testing.T) {
	session, err := NewSession(testinghelpers.BuildSampleAssembly(), Config{Catalog: brokenCatalog{}})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := session.GenerateQuotes(context.Background()); err != nil {
		t.Fatalf("Catalog failures must be absorbed, got %v", err)
	}

	base := mustNode(t, session, "BASE")
	if base.Quote.RawMaterial != nil {
		t.Error("Expected no material with an offline catalog")
	}
	// 0.0005 * 7850 * 1 = 3.925
	expectCost(t, "base material", base.Quote.MaterialCost, "3.93")
	assertConsistent(t, session)
}

func TestSession_SharedPartRecords(t *testing.T) {
	shared := testinghelpers.FlatSheetPart()
	left, _ := entities.NewPartNode("LEFT", "Left", shared, 1)
	right, _ := entities.NewPartNode("RIGHT", "Right", shared, 3)
	root, _ := entities.NewAssemblyNode("ROOT", "Root", left, right)

	session, err := NewSession(root, Config{Catalog: testinghelpers.BuildSampleCatalog()})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := session.GenerateQuotes(context.Background()); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}

	expectCost(t, "root unit", root.Quote.UnitCost, "12.34")
	expectCost(t, "total", session.Totals().TotalCost, "24.68")
	assertConsistent(t, session)
}

func TestSession_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	store := events.NewInMemoryEventStore(nil)
	session, err := NewSession(testinghelpers.BuildSampleAssembly(), Config{
		ID:         "evented",
		Catalog:    testinghelpers.BuildSampleCatalog(),
		EventStore: store,
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := session.GenerateQuotes(ctx); err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	if err := session.UpdateQuantity(ctx, "PIN", 10); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}

	recorded, err := store.ReadEvents("evented", 1)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(recorded) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(recorded))
	}
	if recorded[0].Type() != events.QuotesGeneratedEvent || recorded[1].Type() != events.QuantityUpdatedEvent {
		t.Errorf("Unexpected event types: %s, %s", recorded[0].Type(), recorded[1].Type())
	}
	generated := recorded[0].Data().(events.QuotesGenerated)
	if generated.QuotedParts != 5 {
		t.Errorf("Expected 5 quoted parts, got %d", generated.QuotedParts)
	}
}

func TestSession_Closed(t *testing.T) {
	ctx := context.Background()
	session := newSampleSession(t)
	session.Close()

	if err := session.GenerateQuotes(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if err := session.UpdateQuantity(ctx, "BASE", 3); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if err := session.ChangeAlloy(ctx, "BASE", nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}

func TestNewSession_RejectsInvalidTree(t *testing.T) {
	bad, _ := entities.NewPartNode("X", "x", &entities.Part{ShapeKey: "SPHERE"}, 1)
	if _, err := NewSession(bad, Config{Catalog: testinghelpers.BuildSampleCatalog()}); err == nil {
		t.Error("Expected invalid tree to be rejected")
	}
	if _, err := NewSession(testinghelpers.BuildSampleAssembly(), Config{}); err == nil {
		t.Error("Expected missing catalog to be rejected")
	}
}

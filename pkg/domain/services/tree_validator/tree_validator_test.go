package tree_validator

import (
	"testing"

	"github.com/vsinha/quoting/pkg/domain/entities"
	testinghelpers "github.com/vsinha/quoting/pkg/infrastructure/testing"
)

func TestValidateTree_SampleAssemblyIsValid(t *testing.T) {
	result := ValidateTree(testinghelpers.BuildSampleAssembly())
	if !result.Valid() {
		t.Fatalf("Expected sample assembly to be valid, got %v", result.Errors)
	}
	if result.Err() != nil {
		t.Errorf("Expected nil error, got %v", result.Err())
	}
}

func TestValidateTree_DetectsCycle(t *testing.T) {
	a, _ := entities.NewAssemblyNode("A", "A")
	b, _ := entities.NewAssemblyNode("B", "B", a)
	a.Children = append(a.Children, b)

	result := ValidateTree(a)
	if !result.HasCycles {
		t.Error("Expected cycle to be detected")
	}
	if result.Valid() {
		t.Error("Expected validation errors for cycles")
	}
}

func TestValidateTree_StructuralErrors(t *testing.T) {
	part := &entities.Part{ShapeKey: entities.BarRound}

	testCases := []struct {
		name  string
		build func() *entities.Node
	}{
		{"nil root", func() *entities.Node { return nil }},
		{"duplicate ids", func() *entities.Node {
			x, _ := entities.NewPartNode("X", "x", part, 1)
			y, _ := entities.NewPartNode("X", "y", part, 1)
			root, _ := entities.NewAssemblyNode("R", "r", x, y)
			return root
		}},
		{"shared child pointer", func() *entities.Node {
			x, _ := entities.NewPartNode("X", "x", part, 1)
			root, _ := entities.NewAssemblyNode("R", "r", x, x)
			return root
		}},
		{"unknown shape", func() *entities.Node {
			x, _ := entities.NewPartNode("X", "x", &entities.Part{ShapeKey: "SPHERE"}, 1)
			return x
		}},
		{"zero quantity", func() *entities.Node {
			x, _ := entities.NewPartNode("X", "x", part, 1)
			x.Quote.Quantity = 0
			return x
		}},
		{"part without geometry", func() *entities.Node {
			return &entities.Node{ID: "X", Kind: entities.PartNodeKind, Quote: entities.QuoteLine{Quantity: 1}}
		}},
		{"nil child", func() *entities.Node {
			root, _ := entities.NewAssemblyNode("R", "r", nil)
			return root
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateTree(tc.build())
			if result.Valid() {
				t.Fatalf("Expected validation to fail for %s", tc.name)
			}
		})
	}
}

func TestValidateTree_SharedPartGeometryIsAllowed(t *testing.T) {
	part := &entities.Part{ID: "P", ShapeKey: entities.BarRound}
	x, _ := entities.NewPartNode("X", "x", part, 1)
	y, _ := entities.NewPartNode("Y", "y", part, 2)
	root, _ := entities.NewAssemblyNode("R", "r", x, y)

	if result := ValidateTree(root); !result.Valid() {
		t.Errorf("Expected shared part records to be valid, got %v", result.Errors)
	}
}

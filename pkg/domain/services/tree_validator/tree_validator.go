package tree_validator

import (
	"fmt"

	"github.com/vsinha/quoting/pkg/domain/entities"
)

// ValidationResult contains the results of tree validation
type ValidationResult struct {
	HasCycles    bool
	DuplicateIDs []entities.NodeID
	UnknownShape []entities.NodeID
	Errors       []string
}

// Valid reports whether no structural error was found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err folds the validation errors into a single error
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("invalid assembly tree: %v", r.Errors)
}

// ValidateTree checks the structural contract the quoting engine relies on:
// every node reachable once, unique ids, parts with geometry and positive
// quantity, assemblies without parts, and only declared shape keys.
func ValidateTree(root *entities.Node) *ValidationResult {
	result := &ValidationResult{
		DuplicateIDs: make([]entities.NodeID, 0),
		UnknownShape: make([]entities.NodeID, 0),
		Errors:       make([]string, 0),
	}

	if root == nil {
		result.Errors = append(result.Errors, "tree has no root")
		return result
	}

	seenIDs := make(map[entities.NodeID]bool)
	onPath := make(map[*entities.Node]bool)
	visited := make(map[*entities.Node]bool)
	validateNode(root, seenIDs, onPath, visited, result)

	return result
}

func validateNode(
	node *entities.Node,
	seenIDs map[entities.NodeID]bool,
	onPath map[*entities.Node]bool,
	visited map[*entities.Node]bool,
	result *ValidationResult,
) {
	if node == nil {
		result.Errors = append(result.Errors, "nil node in tree")
		return
	}
	if onPath[node] {
		result.HasCycles = true
		result.Errors = append(result.Errors, fmt.Sprintf("cycle detected at node %s", node.ID))
		return
	}
	if visited[node] {
		result.Errors = append(result.Errors, fmt.Sprintf("node %s is reachable from more than one parent", node.ID))
		return
	}
	visited[node] = true

	if node.ID == "" {
		result.Errors = append(result.Errors, "node with empty id")
	} else if seenIDs[node.ID] {
		result.DuplicateIDs = append(result.DuplicateIDs, node.ID)
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate node id: %s", node.ID))
	}
	seenIDs[node.ID] = true

	switch node.Kind {
	case entities.PartNodeKind:
		validatePart(node, result)
	case entities.AssemblyNodeKind:
		if node.Part != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("assembly %s carries a part", node.ID))
		}
		onPath[node] = true
		for _, child := range node.Children {
			validateNode(child, seenIDs, onPath, visited, result)
		}
		onPath[node] = false
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("node %s has unknown kind %d", node.ID, node.Kind))
	}
}

func validatePart(node *entities.Node, result *ValidationResult) {
	if len(node.Children) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("part node %s has children", node.ID))
	}
	if node.Part == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("part node %s has no part", node.ID))
		return
	}
	if !node.Part.ShapeKey.IsKnown() {
		result.UnknownShape = append(result.UnknownShape, node.ID)
		result.Errors = append(result.Errors, fmt.Sprintf("part node %s: %v %q", node.ID, entities.ErrInvalidShape, node.Part.ShapeKey))
	}
	if node.Quote.Quantity < 1 {
		result.Errors = append(result.Errors, fmt.Sprintf("part node %s: quantity must be positive, got %d", node.ID, node.Quote.Quantity))
	}
}

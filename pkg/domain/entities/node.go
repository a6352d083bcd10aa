package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NodeID identifies a node within an assembly tree
type NodeID string

// Quantity represents an integer quantity of discrete parts
type Quantity int64

// NodeKind distinguishes part leaves from assemblies
type NodeKind int

const (
	PartNodeKind NodeKind = iota
	AssemblyNodeKind
)

// String method for NodeKind enum
func (k NodeKind) String() string {
	switch k {
	case PartNodeKind:
		return "Part"
	case AssemblyNodeKind:
		return "Assembly"
	default:
		return "Unknown"
	}
}

// QuoteLine is the mutable quoting state attached to every node
type QuoteLine struct {
	RawMaterial        *Product
	AvailableMaterials []Product
	AvailableAlloys    []Category
	SelectedAlloy      *Category
	Quantity           Quantity
	MaterialCost       decimal.Decimal
	ProcessingCost     decimal.Decimal
	UnitCost           decimal.Decimal
	Quoted             bool
}

// ClearCosts drops the selected material and zeroes every cost field
func (q *QuoteLine) ClearCosts() {
	q.RawMaterial = nil
	q.MaterialCost = decimal.Zero
	q.ProcessingCost = decimal.Zero
	q.UnitCost = decimal.Zero
}

// Node is either a part leaf carrying a quantity or an assembly with ordered children.
// Structure is fixed at import; quoting only writes the Quote field.
type Node struct {
	ID       NodeID
	Name     string
	Kind     NodeKind
	Part     *Part
	Children []*Node
	Quote    QuoteLine
}

// NewPartNode creates a validated part leaf
func NewPartNode(id NodeID, name string, part *Part, quantity Quantity) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("node id cannot be empty")
	}
	if part == nil {
		return nil, fmt.Errorf("part node %s has no part", id)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidQuantity, quantity)
	}
	return &Node{
		ID:    id,
		Name:  name,
		Kind:  PartNodeKind,
		Part:  part,
		Quote: QuoteLine{Quantity: quantity},
	}, nil
}

// NewAssemblyNode creates an assembly over the given children
func NewAssemblyNode(id NodeID, name string, children ...*Node) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("node id cannot be empty")
	}
	return &Node{
		ID:       id,
		Name:     name,
		Kind:     AssemblyNodeKind,
		Children: children,
	}, nil
}

// IsPart reports whether the node is a part leaf
func (n *Node) IsPart() bool {
	return n.Kind == PartNodeKind
}

// IsQuotable reports whether the node is a part with a whitelisted shape
func (n *Node) IsQuotable() bool {
	return n.IsPart() && n.Part != nil && n.Part.ShapeKey.IsQuotable()
}

// ExtendedCost is the unit cost multiplied by quantity for parts, and the unit cost for assemblies
func (n *Node) ExtendedCost() decimal.Decimal {
	if !n.IsPart() {
		return n.Quote.UnitCost
	}
	return n.Quote.UnitCost.Mul(decimal.NewFromInt(int64(n.Quote.Quantity)))
}

// Walk visits the node and its descendants depth first, parents before children
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int), depth int) {
	fn(n, depth)
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

package quoting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
)

// NodeContext provides context information during tree traversal
type NodeContext struct {
	Node  *entities.Node
	Level int
}

// PartVisitor computes the quote line of a quotable part leaf.
// Assemblies and non-quotable parts are handled by the traverser itself.
type PartVisitor interface {
	VisitPart(ctx context.Context, nodeCtx NodeContext) (entities.QuoteLine, error)
}

// StagedLine is a quote line computed for a node but not yet written to it
type StagedLine struct {
	Node *entities.Node
	Line entities.QuoteLine
}

// Pass is the staged outcome of one full walk. Nothing in the tree changes
// until Commit, so a failed walk leaves the previous state intact.
type Pass struct {
	Lines       []StagedLine
	Totals      entities.Totals
	QuotedParts int
}

// Commit writes every staged line to its node
func (p *Pass) Commit() {
	for _, staged := range p.Lines {
		staged.Node.Quote = staged.Line
	}
}

// TreeTraverser walks an assembly tree postorder, delegating quotable parts to a visitor
type TreeTraverser struct{}

// NewTreeTraverser creates a new tree traverser
func NewTreeTraverser() *TreeTraverser {
	return &TreeTraverser{}
}

// Traverse performs one full pass starting from zero totals
func (tt *TreeTraverser) Traverse(ctx context.Context, root *entities.Node, visitor PartVisitor) (*Pass, error) {
	pass := &Pass{}
	if _, err := tt.traverse(ctx, root, 0, visitor, pass); err != nil {
		return nil, err
	}
	return pass, nil
}

func (tt *TreeTraverser) traverse(
	ctx context.Context,
	node *entities.Node,
	level int,
	visitor PartVisitor,
	pass *Pass,
) (decimal.Decimal, error) {
	if node.IsPart() {
		return tt.traversePart(ctx, node, level, visitor, pass)
	}

	sum := decimal.Zero
	for _, child := range node.Children {
		childCost, err := tt.traverse(ctx, child, level+1, visitor, pass)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(childCost)
	}

	line := node.Quote
	line.UnitCost = sum
	line.Quoted = true
	pass.Lines = append(pass.Lines, StagedLine{Node: node, Line: line})
	return sum, nil
}

func (tt *TreeTraverser) traversePart(
	ctx context.Context,
	node *entities.Node,
	level int,
	visitor PartVisitor,
	pass *Pass,
) (decimal.Decimal, error) {
	if node.Part == nil || !node.Part.ShapeKey.IsKnown() {
		return decimal.Zero, fmt.Errorf("%w on node %s", entities.ErrInvalidShape, node.ID)
	}

	if !node.Part.ShapeKey.IsQuotable() {
		line := node.Quote
		line.ClearCosts()
		line.AvailableMaterials = nil
		line.SelectedAlloy = nil
		line.Quoted = false
		pass.Lines = append(pass.Lines, StagedLine{Node: node, Line: line})
		return decimal.Zero, nil
	}

	line, err := visitor.VisitPart(ctx, NodeContext{Node: node, Level: level})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to quote node %s: %w", node.ID, err)
	}
	pass.Lines = append(pass.Lines, StagedLine{Node: node, Line: line})

	if !line.Quoted {
		return decimal.Zero, nil
	}
	pass.QuotedParts++
	pass.Totals.Add(line.MaterialCost, line.ProcessingCost, line.Quantity)
	return line.UnitCost, nil
}

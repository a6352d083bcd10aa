package dto

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
)

// QuoteResult is the flattened, serializable view of a quote session
type QuoteResult struct {
	SessionID       string          `json:"session_id"`
	QuotesGenerated bool            `json:"quotes_generated"`
	Totals          entities.Totals `json:"totals"`
	Nodes           []NodeView      `json:"nodes"`
}

// CandidateView summarizes a candidate product offered for a part
type CandidateView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	AlloyKey string `json:"alloy_key,omitempty"`
}

// NodeView is one row of the flattened tree, parents before children
type NodeView struct {
	ID             entities.NodeID   `json:"id"`
	Name           string            `json:"name"`
	Kind           string            `json:"kind"`
	Depth          int               `json:"depth"`
	Path           string            `json:"path"`
	ShapeKey       entities.ShapeKey `json:"shape_key,omitempty"`
	Quantity       entities.Quantity `json:"quantity,omitempty"`
	ProductID      int64             `json:"product_id,omitempty"`
	ProductName    string            `json:"product_name,omitempty"`
	AlloyKey       string            `json:"alloy_key,omitempty"`
	MaterialCost   decimal.Decimal   `json:"material_cost"`
	ProcessingCost decimal.Decimal   `json:"processing_cost"`
	UnitCost       decimal.Decimal   `json:"unit_cost"`
	ExtendedCost   decimal.Decimal   `json:"extended_cost"`
	Quoted         bool              `json:"quoted"`
	Candidates     []CandidateView   `json:"candidates,omitempty"`
	Alloys         []string          `json:"alloys,omitempty"`
}

// PathSeparator joins node ids in NodeView.Path
const PathSeparator = "/"

// NewQuoteResult flattens the tree rooted at root
func NewQuoteResult(sessionID string, root *entities.Node, totals entities.Totals, quotesGenerated bool) *QuoteResult {
	result := &QuoteResult{
		SessionID:       sessionID,
		QuotesGenerated: quotesGenerated,
		Totals:          totals,
	}
	if root != nil {
		result.Nodes = flatten(root, 0, nil, result.Nodes)
	}
	return result
}

// Parts returns only the part rows
func (r *QuoteResult) Parts() []NodeView {
	var parts []NodeView
	for _, node := range r.Nodes {
		if node.Kind == entities.PartNodeKind.String() {
			parts = append(parts, node)
		}
	}
	return parts
}

func flatten(node *entities.Node, depth int, path []string, out []NodeView) []NodeView {
	path = append(path, string(node.ID))
	out = append(out, NewNodeView(node, depth, strings.Join(path, PathSeparator)))
	for _, child := range node.Children {
		out = flatten(child, depth+1, path, out)
	}
	return out
}

// NewNodeView builds the view of a single node
func NewNodeView(node *entities.Node, depth int, path string) NodeView {
	quote := node.Quote
	view := NodeView{
		ID:             node.ID,
		Name:           node.Name,
		Kind:           node.Kind.String(),
		Depth:          depth,
		Path:           path,
		MaterialCost:   quote.MaterialCost,
		ProcessingCost: quote.ProcessingCost,
		UnitCost:       quote.UnitCost,
		ExtendedCost:   node.ExtendedCost(),
		Quoted:         quote.Quoted,
	}

	if !node.IsPart() {
		return view
	}

	view.Quantity = quote.Quantity
	if node.Part != nil {
		view.ShapeKey = node.Part.ShapeKey
	}
	if quote.RawMaterial != nil {
		view.ProductID = quote.RawMaterial.ID
		view.ProductName = quote.RawMaterial.Name
	}
	if quote.SelectedAlloy != nil {
		view.AlloyKey = quote.SelectedAlloy.Key
	}
	for i := range quote.AvailableMaterials {
		candidate := &quote.AvailableMaterials[i]
		summary := CandidateView{ID: candidate.ID, Name: candidate.Name}
		if alloy := candidate.Alloy(); alloy != nil {
			summary.AlloyKey = alloy.Key
		}
		view.Candidates = append(view.Candidates, summary)
	}
	for _, alloy := range quote.AvailableAlloys {
		view.Alloys = append(view.Alloys, alloy.Key)
	}
	return view
}

package quoting

import (
	"context"

	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/services/costing"
	"github.com/vsinha/quoting/pkg/domain/services/matching"
)

// quotingVisitor matches and costs every quotable part. Parts shared by
// several nodes are matched once per pass.
type quotingVisitor struct {
	matcher    *matching.Matcher
	calculator *costing.Calculator
	matches    map[*entities.Part]matching.Result
}

func newQuotingVisitor(matcher *matching.Matcher, calculator *costing.Calculator) *quotingVisitor {
	return &quotingVisitor{
		matcher:    matcher,
		calculator: calculator,
		matches:    make(map[*entities.Part]matching.Result),
	}
}

func (v *quotingVisitor) VisitPart(ctx context.Context, nodeCtx NodeContext) (entities.QuoteLine, error) {
	part := nodeCtx.Node.Part

	result, ok := v.matches[part]
	if !ok {
		var err error
		result, err = v.matcher.Match(ctx, part)
		if err != nil {
			return entities.QuoteLine{}, err
		}
		v.matches[part] = result
	}

	line := nodeCtx.Node.Quote
	applyMatch(&line, result)
	applyCost(&line, v.calculator.Cost(part, line.RawMaterial))
	return line, nil
}

// resumVisitor reuses the stored costs of each part. Overrides replace the
// stored line of the nodes an update operation just recomputed.
type resumVisitor struct {
	overrides map[entities.NodeID]entities.QuoteLine
}

func (v *resumVisitor) VisitPart(_ context.Context, nodeCtx NodeContext) (entities.QuoteLine, error) {
	if line, ok := v.overrides[nodeCtx.Node.ID]; ok {
		return line, nil
	}
	return nodeCtx.Node.Quote, nil
}

func applyMatch(line *entities.QuoteLine, result matching.Result) {
	line.RawMaterial = result.Selected
	line.AvailableMaterials = result.Candidates
	line.AvailableAlloys = result.AvailableAlloys
	line.SelectedAlloy = result.SelectedAlloy()
}

func applyCost(line *entities.QuoteLine, breakdown costing.Breakdown) {
	line.MaterialCost = breakdown.MaterialCost
	line.ProcessingCost = breakdown.ProcessingCost
	line.UnitCost = breakdown.UnitCost
	line.Quoted = true
}

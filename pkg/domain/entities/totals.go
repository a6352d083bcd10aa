package entities

import "github.com/shopspring/decimal"

// Totals holds session-level cost sums
type Totals struct {
	MaterialCost   decimal.Decimal `json:"total_material_cost"`
	ProcessingCost decimal.Decimal `json:"total_processing_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
}

// Add accumulates one quoted part line scaled by its quantity
func (t *Totals) Add(materialCost, processingCost decimal.Decimal, quantity Quantity) {
	qty := decimal.NewFromInt(int64(quantity))
	t.MaterialCost = t.MaterialCost.Add(materialCost.Mul(qty))
	t.ProcessingCost = t.ProcessingCost.Add(processingCost.Mul(qty))
	t.TotalCost = t.MaterialCost.Add(t.ProcessingCost)
}

// Equal compares totals by value
func (t Totals) Equal(other Totals) bool {
	return t.MaterialCost.Equal(other.MaterialCost) &&
		t.ProcessingCost.Equal(other.ProcessingCost) &&
		t.TotalCost.Equal(other.TotalCost)
}

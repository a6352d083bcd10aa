package events

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/quoting/pkg/domain/entities"
)

const (
	QuotesGeneratedEvent    = "quotes.generated"
	TotalsRecalculatedEvent = "totals.recalculated"
	MaterialUpdatedEvent    = "node.material.updated"
	QuantityUpdatedEvent    = "node.quantity.updated"
	AlloyChangedEvent       = "node.alloy.changed"
)

// SessionEventTypes lists every event a quoting session publishes
var SessionEventTypes = []string{
	QuotesGeneratedEvent,
	TotalsRecalculatedEvent,
	MaterialUpdatedEvent,
	QuantityUpdatedEvent,
	AlloyChangedEvent,
}

type QuotesGenerated struct {
	Totals      entities.Totals `json:"totals"`
	QuotedParts int             `json:"quoted_parts"`
}

type TotalsRecalculated struct {
	Totals entities.Totals `json:"totals"`
}

type MaterialUpdated struct {
	NodeID    entities.NodeID `json:"node_id"`
	ProductID int64           `json:"product_id,omitempty"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type QuantityUpdated struct {
	NodeID      entities.NodeID   `json:"node_id"`
	OldQuantity entities.Quantity `json:"old_quantity"`
	NewQuantity entities.Quantity `json:"new_quantity"`
}

type AlloyChanged struct {
	NodeID    entities.NodeID `json:"node_id"`
	AlloyKey  string          `json:"alloy_key,omitempty"`
	ProductID int64           `json:"product_id,omitempty"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// Package quoting holds the quote session: the assembly tree under quotation,
// its running totals, and the operations that keep both consistent.
//
// A Session is single-threaded. Callers must not run two operations on the
// same session concurrently.
package quoting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
	"github.com/vsinha/quoting/pkg/domain/services/costing"
	"github.com/vsinha/quoting/pkg/domain/services/matching"
	"github.com/vsinha/quoting/pkg/domain/services/tree_validator"
	"github.com/vsinha/quoting/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by every operation after Close
var ErrSessionClosed = errors.New("quote session is closed")

const (
	passGenerate    = "generate"
	passRecalculate = "recalculate"
)

// PassObserver is notified after each committed pass
type PassObserver interface {
	PassCompleted(kind string, duration time.Duration, nodes int)
}

// Config holds the collaborators of a session. Only Catalog is required.
type Config struct {
	ID           string
	Catalog      repositories.CatalogRepository
	Rates        *costing.Rates
	Logger       *zap.Logger
	EventStore   events.EventStore
	Observer     PassObserver
	MatchOptions []matching.Option
}

// Session is the quoting state of one assembly tree
type Session struct {
	id              string
	root            *entities.Node
	index           map[entities.NodeID]*entities.Node
	matcher         *matching.Matcher
	calculator      *costing.Calculator
	traverser       *TreeTraverser
	totals          entities.Totals
	quotesGenerated bool
	closed          bool
	logger          *zap.Logger
	eventStore      events.EventStore
	observer        PassObserver
}

// NewSession validates the tree and indexes its nodes by id
func NewSession(root *entities.Node, config Config) (*Session, error) {
	if config.Catalog == nil {
		return nil, fmt.Errorf("quote session requires a catalog repository")
	}
	if result := tree_validator.ValidateTree(root); !result.Valid() {
		return nil, result.Err()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rates := costing.DefaultRates()
	if config.Rates != nil {
		rates = *config.Rates
	}

	matchOptions := append([]matching.Option{matching.WithLogger(logger)}, config.MatchOptions...)

	s := &Session{
		id:         config.ID,
		root:       root,
		index:      make(map[entities.NodeID]*entities.Node),
		matcher:    matching.NewMatcher(config.Catalog, matchOptions...),
		calculator: costing.NewCalculator(rates),
		traverser:  NewTreeTraverser(),
		logger:     logger.With(zap.String("session_id", config.ID)),
		eventStore: config.EventStore,
		observer:   config.Observer,
	}
	root.Walk(func(node *entities.Node, _ int) {
		s.index[node.ID] = node
	})
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Root returns the tree under quotation
func (s *Session) Root() *entities.Node {
	return s.root
}

// Totals returns the session-level cost totals
func (s *Session) Totals() entities.Totals {
	return s.totals
}

// QuotesGenerated reports whether at least one full quoting pass completed
func (s *Session) QuotesGenerated() bool {
	return s.quotesGenerated
}

// Node looks a node up by id
func (s *Session) Node(id entities.NodeID) (*entities.Node, error) {
	node, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrNodeNotFound, id)
	}
	return node, nil
}

// GenerateQuotes matches and costs every quotable part and rebuilds the totals
func (s *Session) GenerateQuotes(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}

	start := time.Now()
	visitor := newQuotingVisitor(s.matcher, s.calculator)
	pass, err := s.traverser.Traverse(ctx, s.root, visitor)
	if err != nil {
		return fmt.Errorf("failed to generate quotes: %w", err)
	}

	s.commit(pass, passGenerate, start)
	s.quotesGenerated = true
	s.publish(events.QuotesGeneratedEvent, events.QuotesGenerated{
		Totals:      s.totals,
		QuotedParts: pass.QuotedParts,
	})
	return nil
}

// RecalculateTotals re-sums the stored costs without matching again
func (s *Session) RecalculateTotals(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.recalculate(ctx, nil); err != nil {
		return err
	}
	s.publish(events.TotalsRecalculatedEvent, events.TotalsRecalculated{Totals: s.totals})
	return nil
}

// UpdateMaterial replaces the selected material of a part and recomputes its costs.
// A nil product prices the part with the default density and price.
func (s *Session) UpdateMaterial(ctx context.Context, id entities.NodeID, product *entities.Product) error {
	node, err := s.quotableNode(id)
	if err != nil {
		return err
	}

	line := node.Quote
	if product != nil {
		selected := *product
		line.RawMaterial = &selected
	} else {
		line.RawMaterial = nil
	}
	line.SelectedAlloy = line.RawMaterial.Alloy()
	applyCost(&line, s.calculator.Cost(node.Part, line.RawMaterial))

	if err := s.recalculate(ctx, map[entities.NodeID]entities.QuoteLine{id: line}); err != nil {
		return err
	}

	var productID int64
	if product != nil {
		productID = product.ID
	}
	s.publish(events.MaterialUpdatedEvent, events.MaterialUpdated{
		NodeID:    id,
		ProductID: productID,
		UnitCost:  line.UnitCost,
	})
	return nil
}

// UpdateQuantity replaces the quantity of a part. Unit costs do not depend on
// quantity, so only the totals change.
func (s *Session) UpdateQuantity(ctx context.Context, id entities.NodeID, quantity entities.Quantity) error {
	if s.closed {
		return ErrSessionClosed
	}
	node, err := s.Node(id)
	if err != nil {
		return err
	}
	if !node.IsPart() {
		return fmt.Errorf("%w: %s", entities.ErrNotPartNode, id)
	}
	if quantity < 1 {
		return fmt.Errorf("%w, got %d", entities.ErrInvalidQuantity, quantity)
	}

	oldQuantity := node.Quote.Quantity
	line := node.Quote
	line.Quantity = quantity

	if err := s.recalculate(ctx, map[entities.NodeID]entities.QuoteLine{id: line}); err != nil {
		return err
	}

	s.publish(events.QuantityUpdatedEvent, events.QuantityUpdated{
		NodeID:      id,
		OldQuantity: oldQuantity,
		NewQuantity: quantity,
	})
	return nil
}

// ChangeAlloy re-matches a part within the given alloy and takes the top
// candidate. A nil alloy, or an alloy with no candidate, clears the material
// and zeroes the part's costs.
func (s *Session) ChangeAlloy(ctx context.Context, id entities.NodeID, alloy *entities.Category) error {
	node, err := s.quotableNode(id)
	if err != nil {
		return err
	}

	line := node.Quote
	line.Quoted = true
	if alloy == nil {
		line.ClearCosts()
		line.SelectedAlloy = nil
	} else {
		result, err := s.matcher.MatchForAlloy(ctx, node.Part, *alloy)
		if err != nil {
			return fmt.Errorf("failed to match node %s for alloy %s: %w", id, alloy.Key, err)
		}
		selectedAlloy := *alloy
		line.SelectedAlloy = &selectedAlloy
		line.AvailableMaterials = result.Candidates
		if len(result.AvailableAlloys) > 0 {
			line.AvailableAlloys = result.AvailableAlloys
		}
		if result.Selected == nil {
			line.ClearCosts()
		} else {
			line.RawMaterial = result.Selected
			applyCost(&line, s.calculator.Cost(node.Part, result.Selected))
		}
	}

	if err := s.recalculate(ctx, map[entities.NodeID]entities.QuoteLine{id: line}); err != nil {
		return err
	}

	event := events.AlloyChanged{NodeID: id, UnitCost: line.UnitCost}
	if alloy != nil {
		event.AlloyKey = alloy.Key
	}
	if line.RawMaterial != nil {
		event.ProductID = line.RawMaterial.ID
	}
	s.publish(events.AlloyChangedEvent, event)
	return nil
}

// Close disposes the session; every later operation fails with ErrSessionClosed
func (s *Session) Close() {
	s.closed = true
	s.index = nil
}

func (s *Session) quotableNode(id entities.NodeID) (*entities.Node, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	node, err := s.Node(id)
	if err != nil {
		return nil, err
	}
	if !node.IsPart() {
		return nil, fmt.Errorf("%w: %s", entities.ErrNotPartNode, id)
	}
	if !node.IsQuotable() {
		return nil, fmt.Errorf("%w: %s on node %s", entities.ErrNotQuotable, node.Part.ShapeKey, id)
	}
	return node, nil
}

func (s *Session) recalculate(ctx context.Context, overrides map[entities.NodeID]entities.QuoteLine) error {
	start := time.Now()
	pass, err := s.traverser.Traverse(ctx, s.root, &resumVisitor{overrides: overrides})
	if err != nil {
		return fmt.Errorf("failed to recalculate totals: %w", err)
	}
	s.commit(pass, passRecalculate, start)
	return nil
}

func (s *Session) commit(pass *Pass, kind string, start time.Time) {
	pass.Commit()
	s.totals = pass.Totals

	duration := time.Since(start)
	if s.observer != nil {
		s.observer.PassCompleted(kind, duration, len(pass.Lines))
	}
	s.logger.Debug("quote pass committed",
		zap.String("kind", kind),
		zap.Int("nodes", len(pass.Lines)),
		zap.Int("quoted_parts", pass.QuotedParts),
		zap.String("total_material_cost", s.totals.MaterialCost.StringFixed(2)),
		zap.String("total_processing_cost", s.totals.ProcessingCost.StringFixed(2)),
		zap.String("total_cost", s.totals.TotalCost.StringFixed(2)),
		zap.Duration("duration", duration))
}

func (s *Session) publish(eventType string, data interface{}) {
	if s.eventStore == nil {
		return
	}
	if err := s.eventStore.AppendEvent(s.id, events.NewEvent(eventType, s.id, data)); err != nil {
		s.logger.Warn("failed to record session event", zap.String("event_type", eventType), zap.Error(err))
	}
}

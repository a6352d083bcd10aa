// Package matching selects raw-material candidates from the catalog for a
// part. Each shape has its own query and ranking rule; catalog failures are
// absorbed and reported as an empty candidate list.
package matching

import (
	"context"
	"fmt"

	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
	"go.uber.org/zap"
)

// Outcome labels a finished match for observers
type Outcome string

const (
	OutcomeMatched     Outcome = "matched"
	OutcomeNoCandidate Outcome = "no_candidate"
)

// Observer receives match outcomes and absorbed catalog failures
type Observer interface {
	MatchCompleted(shape entities.ShapeKey, outcome Outcome)
	CatalogFailed(shape entities.ShapeKey, operation string)
}

type nopObserver struct{}

func (nopObserver) MatchCompleted(entities.ShapeKey, Outcome) {}
func (nopObserver) CatalogFailed(entities.ShapeKey, string)   {}

// Result is the outcome of matching one part
type Result struct {
	Selected        *entities.Product
	Candidates      []entities.Product
	AvailableAlloys []entities.Category
}

// SelectedAlloy is the alloy tag of the selected product
func (r Result) SelectedAlloy() *entities.Category {
	return r.Selected.Alloy()
}

// Matcher turns part geometry into catalog queries and ranks the answers
type Matcher struct {
	catalog  repositories.CatalogRepository
	logger   *zap.Logger
	observer Observer
}

// Option configures a Matcher
type Option func(*Matcher)

// WithLogger sets the logger used for absorbed catalog failures
func WithLogger(logger *zap.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver registers an outcome observer
func WithObserver(observer Observer) Option {
	return func(m *Matcher) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// NewMatcher creates a matcher over the given catalog
func NewMatcher(catalog repositories.CatalogRepository, opts ...Option) *Matcher {
	m := &Matcher{
		catalog:  catalog,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match finds candidates for a part across every alloy
func (m *Matcher) Match(ctx context.Context, part *entities.Part) (Result, error) {
	return m.match(ctx, part, nil)
}

// MatchForAlloy restricts candidates to products tagged with the given alloy
func (m *Matcher) MatchForAlloy(ctx context.Context, part *entities.Part, alloy entities.Category) (Result, error) {
	return m.match(ctx, part, &alloy)
}

func (m *Matcher) match(ctx context.Context, part *entities.Part, alloy *entities.Category) (Result, error) {
	if part == nil {
		return Result{}, fmt.Errorf("cannot match a nil part")
	}
	if !part.ShapeKey.IsKnown() {
		return Result{}, fmt.Errorf("%w: %q on part %s", entities.ErrInvalidShape, part.ShapeKey, part.ID)
	}
	if !part.ShapeKey.IsQuotable() {
		return Result{}, fmt.Errorf("%w: %s on part %s", entities.ErrNotQuotable, part.ShapeKey, part.ID)
	}

	alloyKey := ""
	if alloy != nil {
		alloyKey = alloy.Key
	}

	var candidates []entities.Product
	shape := part.ShapeKey
	switch {
	case shape.IsSheet():
		candidates = m.matchSheet(ctx, part, alloyKey)
	case shape.IsRectangularTube():
		candidates = RankRectangularTubes(m.fetchAll(ctx, part, alloyKey), TubeSectionFor(part))
	case shape.IsRoundTube():
		candidates = RankRoundTubes(m.fetchAll(ctx, part, alloyKey), TubeSectionFor(part))
	case shape == entities.BarRound:
		candidates = RankRoundBars(m.fetchAll(ctx, part, alloyKey), TubeSectionFor(part))
	default:
		candidates = m.find(ctx, part, repositories.CandidateQuery{
			Shape:    shape,
			AlloyKey: alloyKey,
			Order:    repositories.SortByID,
			Limit:    MaxCandidates,
		})
	}
	candidates = capCandidates(candidates)

	result := Result{
		Candidates:      candidates,
		AvailableAlloys: m.alloysFor(ctx, part),
	}
	if len(candidates) > 0 {
		selected := candidates[0]
		result.Selected = &selected
		m.observer.MatchCompleted(shape, OutcomeMatched)
	} else {
		m.observer.MatchCompleted(shape, OutcomeNoCandidate)
	}
	return result, nil
}

// matchSheet requires stock at least as large as the flat pattern with the
// exact thickness. With an alloy constraint the size bounds are not applied,
// and when no product has the exact thickness the thickness filter is dropped
// rather than relaxed to the nearest value.
func (m *Matcher) matchSheet(ctx context.Context, part *entities.Part, alloyKey string) []entities.Product {
	req := SheetRequirementFor(part)

	if alloyKey == "" {
		return m.find(ctx, part, repositories.CandidateQuery{
			Shape:     part.ShapeKey,
			MinWidth:  &req.Width,
			MinLength: &req.Length,
			Thickness: &req.Thickness,
			Order:     repositories.SortByWidthLength,
			Limit:     MaxCandidates,
		})
	}

	exact := m.find(ctx, part, repositories.CandidateQuery{
		Shape:     part.ShapeKey,
		AlloyKey:  alloyKey,
		Thickness: &req.Thickness,
		Order:     repositories.SortByWidthLength,
		Limit:     MaxCandidates,
	})
	if len(exact) > 0 {
		return exact
	}

	return m.find(ctx, part, repositories.CandidateQuery{
		Shape:    part.ShapeKey,
		AlloyKey: alloyKey,
		Order:    repositories.SortByWidthLength,
		Limit:    MaxCandidates,
	})
}

func (m *Matcher) fetchAll(ctx context.Context, part *entities.Part, alloyKey string) []entities.Product {
	return m.find(ctx, part, repositories.CandidateQuery{
		Shape:    part.ShapeKey,
		AlloyKey: alloyKey,
		Order:    repositories.SortByID,
	})
}

func (m *Matcher) find(ctx context.Context, part *entities.Part, query repositories.CandidateQuery) []entities.Product {
	products, err := m.catalog.FindCandidates(ctx, query)
	if err != nil {
		m.logger.Warn("catalog lookup failed, treating as no candidate",
			zap.String("part_id", part.ID),
			zap.String("shape", string(query.Shape)),
			zap.String("alloy", query.AlloyKey),
			zap.Error(err))
		m.observer.CatalogFailed(part.ShapeKey, "find_candidates")
		return nil
	}
	return products
}

func (m *Matcher) alloysFor(ctx context.Context, part *entities.Part) []entities.Category {
	alloys, err := m.catalog.ListAlloysForShape(ctx, part.ShapeKey)
	if err != nil {
		m.logger.Warn("alloy lookup failed",
			zap.String("part_id", part.ID),
			zap.String("shape", string(part.ShapeKey)),
			zap.Error(err))
		m.observer.CatalogFailed(part.ShapeKey, "list_alloys")
		return nil
	}
	return alloys
}

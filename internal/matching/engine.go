// Package matching decides which cocktails a user can make from the
// ingredients they own, honouring per-cocktail ingredient alternatives.
package matching

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/models"
)

// Mode selects the matching policy.
type Mode string

const (
	// ModeStrict returns only cocktails whose hard requirements are all covered.
	ModeStrict Mode = "strict"
	// ModeFlexible returns partially covered cocktails ranked by missing count.
	ModeFlexible Mode = "flexible"
)

// ParseMode maps a raw mode value. Empty means flexible; anything unknown is
// a validation error.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeFlexible:
		return ModeFlexible, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", apperrors.NewValidationError("mode", "must be %q or %q, got %q", ModeStrict, ModeFlexible, raw)
	}
}

// Result is one matched cocktail.
type Result struct {
	Cocktail             models.Cocktail
	MissingCount         int
	MissingIngredientIDs []int64
}

// Engine evaluates inventories against the catalog. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	store       Store
	hardLevelID int64
	logger      *zap.Logger
}

// NewEngine creates an engine; hardLevelID is the importance level whose
// requirements gate feasibility.
func NewEngine(store Store, hardLevelID int64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, hardLevelID: hardLevelID, logger: logger.Named("matching")}
}

// Match returns the cocktails satisfiable from inventory under mode. An empty
// inventory yields an empty list. Store failures abort the call.
func (e *Engine) Match(ctx context.Context, inventory []int64, mode Mode) ([]Result, error) {
	if mode != ModeStrict && mode != ModeFlexible {
		return nil, apperrors.NewValidationError("mode", "must be %q or %q, got %q", ModeStrict, ModeFlexible, mode)
	}
	ids, err := NormalizeIDs("inventoryIds", inventory)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Result{}, nil
	}

	var graph *Graph
	err = e.store.Snapshot(ctx, func(r Reader) error {
		candidates, err := r.CandidateCocktailIDs(ctx, e.hardLevelID, ids)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			graph = NewGraph()
			return nil
		}
		graph, err = r.LoadGraph(ctx, e.hardLevelID, candidates)
		return err
	})
	if err != nil {
		e.logger.Error("match failed", zap.String("mode", string(mode)), zap.Int("inventory_size", len(ids)), zap.Error(err))
		return nil, apperrors.Store("match", err)
	}

	results := Evaluate(graph, NewInventory(ids), mode)
	e.logger.Debug("match evaluated",
		zap.String("mode", string(mode)),
		zap.Int("inventory_size", len(ids)),
		zap.Int("candidates", graph.Len()),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Evaluate applies mode to every cocktail of graph. Strict results are ordered
// by name; flexible results by missing count, then name. Ties on name fall
// back to id so the order is total.
//
// Every mode other than ModeStrict is evaluated as flexible, the same default
// ParseMode applies to an empty mode. Match rejects unknown modes before
// reaching this point.
func Evaluate(graph *Graph, inv Inventory, mode Mode) []Result {
	results := make([]Result, 0, graph.Len())
	if len(inv) == 0 {
		return results
	}

	strict := mode == ModeStrict
	for id, cocktail := range graph.cocktails {
		missing, touched := graph.coverage(id, inv)
		if strict && len(missing) > 0 {
			continue
		}
		if !strict && !touched && len(missing) > 0 {
			continue
		}
		results = append(results, Result{
			Cocktail:             cocktail,
			MissingCount:         len(missing),
			MissingIngredientIDs: missing,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !strict && a.MissingCount != b.MissingCount {
			return a.MissingCount < b.MissingCount
		}
		return lessByName(a.Cocktail, b.Cocktail)
	})
	return results
}

func lessByName(a, b models.Cocktail) bool {
	an, bn := strings.ToLower(a.NameEn), strings.ToLower(b.NameEn)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

// NormalizeIDs validates ids (all must be positive) and returns them
// deduplicated in ascending order.
func NormalizeIDs(field string, ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for i, id := range ids {
		if id <= 0 {
			return nil, apperrors.NewValidationError(field, "element %d must be a positive integer, got %d", i, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

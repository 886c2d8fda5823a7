package matching

import (
	"sort"

	"github.com/example/barmen/internal/models"
)

type requirementKey struct {
	cocktailID   int64
	ingredientID int64
}

// Graph is the hard-requirement and alternative graph of a set of cocktails,
// loaded once per match call.
type Graph struct {
	cocktails    map[int64]models.Cocktail
	requirements map[int64][]int64
	alternatives map[requirementKey][]int64
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		cocktails:    make(map[int64]models.Cocktail),
		requirements: make(map[int64][]int64),
		alternatives: make(map[requirementKey][]int64),
	}
}

// AddCocktail registers a cocktail. A cocktail without hard requirements is
// trivially covered.
func (g *Graph) AddCocktail(c models.Cocktail) {
	g.cocktails[c.ID] = c
}

// AddRequirement records a hard requirement. Duplicate edges are ignored.
func (g *Graph) AddRequirement(cocktailID, ingredientID int64) {
	for _, id := range g.requirements[cocktailID] {
		if id == ingredientID {
			return
		}
	}
	g.requirements[cocktailID] = append(g.requirements[cocktailID], ingredientID)
}

// AddAlternative records that alternativeID may replace originalID in cocktailID.
// Alternatives of ingredients that are not hard requirements are never consulted.
func (g *Graph) AddAlternative(cocktailID, originalID, alternativeID int64) {
	key := requirementKey{cocktailID: cocktailID, ingredientID: originalID}
	for _, id := range g.alternatives[key] {
		if id == alternativeID {
			return
		}
	}
	g.alternatives[key] = append(g.alternatives[key], alternativeID)
}

// Len returns the number of registered cocktails.
func (g *Graph) Len() int {
	return len(g.cocktails)
}

// covered is the single coverage predicate shared by both modes and the
// flexible pre-filter.
func (g *Graph) covered(cocktailID, ingredientID int64, inv Inventory) bool {
	if inv.Has(ingredientID) {
		return true
	}
	for _, alt := range g.alternatives[requirementKey{cocktailID: cocktailID, ingredientID: ingredientID}] {
		if inv.Has(alt) {
			return true
		}
	}
	return false
}

// coverage returns the uncovered hard requirements of a cocktail (sorted) and
// whether at least one hard requirement was covered.
func (g *Graph) coverage(cocktailID int64, inv Inventory) (missing []int64, touched bool) {
	missing = []int64{}
	for _, ingredientID := range g.requirements[cocktailID] {
		if g.covered(cocktailID, ingredientID, inv) {
			touched = true
			continue
		}
		missing = append(missing, ingredientID)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, touched
}

// Inventory is a set of owned ingredient ids.
type Inventory map[int64]struct{}

// NewInventory builds a set from ids; duplicates are harmless.
func NewInventory(ids []int64) Inventory {
	inv := make(Inventory, len(ids))
	for _, id := range ids {
		inv[id] = struct{}{}
	}
	return inv
}

// Has reports whether id is owned.
func (inv Inventory) Has(id int64) bool {
	_, ok := inv[id]
	return ok
}

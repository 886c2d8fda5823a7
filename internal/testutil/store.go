// Package testutil provides shared test helpers for barmen packages.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/models"
)

// Compile-time interface guards.
var (
	_ matching.Store  = (*MemoryStore)(nil)
	_ matching.Reader = (*MemoryStore)(nil)
)

// MemoryStore is an in-memory catalog implementing matching.Store with the
// same semantics as the SQL stores.
type MemoryStore struct {
	mu sync.RWMutex

	Categories   []models.IngredientCategory
	Ingredients  []models.Ingredient
	Cocktails    []models.Cocktail
	Requirements []models.Requirement
	Alternatives []models.Alternative

	// Err, when set, is returned by every read.
	Err error
	// Snapshots counts Snapshot calls.
	Snapshots int
}

// Snapshot runs fn against the store under a read lock.
func (s *MemoryStore) Snapshot(ctx context.Context, fn func(r matching.Reader) error) error {
	s.mu.Lock()
	s.Snapshots++
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s)
}

func (s *MemoryStore) fail(op string) error {
	if s.Err != nil {
		return &apperrors.StoreError{Op: op, Err: s.Err}
	}
	return nil
}

func (s *MemoryStore) category(id *int64) *models.IngredientCategory {
	if id == nil {
		return nil
	}
	for i := range s.Categories {
		if s.Categories[i].ID == *id {
			c := s.Categories[i]
			return &c
		}
	}
	return nil
}

func (s *MemoryStore) ingredient(id int64) *models.Ingredient {
	for _, ing := range s.Ingredients {
		if ing.ID == id {
			ing.Category = s.category(ing.CategoryID)
			return &ing
		}
	}
	return nil
}

// GetIngredient implements matching.Reader.
func (s *MemoryStore) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	if err := s.fail("get ingredient"); err != nil {
		return nil, err
	}
	for _, ing := range s.Ingredients {
		if ing.ID == id {
			ing.Category = s.category(ing.CategoryID)
			return &ing, nil
		}
	}
	return nil, fmt.Errorf("ingredient %d: %w", id, apperrors.ErrNotFound)
}

// GetCocktail implements matching.Reader.
func (s *MemoryStore) GetCocktail(ctx context.Context, id int64) (*models.Cocktail, error) {
	if err := s.fail("get cocktail"); err != nil {
		return nil, err
	}
	for _, c := range s.Cocktails {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("cocktail %d: %w", id, apperrors.ErrNotFound)
}

// ListRequirements implements matching.Reader.
func (s *MemoryStore) ListRequirements(ctx context.Context, cocktailID int64) ([]models.Requirement, error) {
	if err := s.fail("list requirements"); err != nil {
		return nil, err
	}
	out := []models.Requirement{}
	for _, r := range s.Requirements {
		if r.CocktailID == cocktailID {
			r.Ingredient = s.ingredient(r.IngredientID)
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAlternatives implements matching.Reader.
func (s *MemoryStore) ListAlternatives(ctx context.Context, cocktailID, originalIngredientID int64) ([]models.Alternative, error) {
	if err := s.fail("list alternatives"); err != nil {
		return nil, err
	}
	out := []models.Alternative{}
	for _, a := range s.Alternatives {
		if a.CocktailID == cocktailID && a.OriginalIngredientID == originalIngredientID {
			a.AlternativeIngredient = s.ingredient(a.AlternativeIngredientID)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) isHard(cocktailID, ingredientID, hardLevelID int64) bool {
	for _, r := range s.Requirements {
		if r.CocktailID == cocktailID && r.IngredientID == ingredientID && r.ImportanceLevelID == hardLevelID {
			return true
		}
	}
	return false
}

// CandidateCocktailIDs implements matching.Reader.
func (s *MemoryStore) CandidateCocktailIDs(ctx context.Context, hardLevelID int64, inventory []int64) ([]int64, error) {
	if err := s.fail("candidate cocktails"); err != nil {
		return nil, err
	}
	inv := matching.NewInventory(inventory)
	found := make(map[int64]struct{})
	hardCount := make(map[int64]int)

	for _, r := range s.Requirements {
		if _, ok := hardCount[r.CocktailID]; !ok {
			hardCount[r.CocktailID] = 0
		}
		if r.ImportanceLevelID != hardLevelID {
			continue
		}
		hardCount[r.CocktailID]++
		if inv.Has(r.IngredientID) {
			found[r.CocktailID] = struct{}{}
		}
	}
	for _, a := range s.Alternatives {
		if inv.Has(a.AlternativeIngredientID) && s.isHard(a.CocktailID, a.OriginalIngredientID, hardLevelID) {
			found[a.CocktailID] = struct{}{}
		}
	}
	for id, n := range hardCount {
		if n == 0 {
			found[id] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LoadGraph implements matching.Reader.
func (s *MemoryStore) LoadGraph(ctx context.Context, hardLevelID int64, cocktailIDs []int64) (*matching.Graph, error) {
	if err := s.fail("load graph"); err != nil {
		return nil, err
	}
	want := matching.NewInventory(cocktailIDs)
	g := matching.NewGraph()
	for _, c := range s.Cocktails {
		if want.Has(c.ID) {
			g.AddCocktail(c)
		}
	}
	for _, r := range s.Requirements {
		if want.Has(r.CocktailID) && r.ImportanceLevelID == hardLevelID {
			g.AddRequirement(r.CocktailID, r.IngredientID)
		}
	}
	for _, a := range s.Alternatives {
		if want.Has(a.CocktailID) && s.isHard(a.CocktailID, a.OriginalIngredientID, hardLevelID) {
			g.AddAlternative(a.CocktailID, a.OriginalIngredientID, a.AlternativeIngredientID)
		}
	}
	return g, nil
}

// CoOccurringIngredients implements matching.Reader.
func (s *MemoryStore) CoOccurringIngredients(ctx context.Context, baseIDs []int64) ([]models.Ingredient, error) {
	if err := s.fail("co-occurring ingredients"); err != nil {
		return nil, err
	}
	base := matching.NewInventory(baseIDs)
	cocktails := make(map[int64]struct{})
	for _, r := range s.Requirements {
		if base.Has(r.IngredientID) {
			cocktails[r.CocktailID] = struct{}{}
		}
	}

	var out []models.Ingredient
	for _, r := range s.Requirements {
		if _, ok := cocktails[r.CocktailID]; !ok {
			continue
		}
		for _, ing := range s.Ingredients {
			if ing.ID == r.IngredientID {
				ing.Category = s.category(ing.CategoryID)
				out = append(out, ing)
			}
		}
	}
	return out, nil
}

// Package store implements the catalog reader on top of GORM (PostgreSQL).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/models"
)

// Compile-time interface guards.
var (
	_ matching.Store  = (*GormStore)(nil)
	_ matching.Reader = (*reader)(nil)
)

// maxBatch bounds the size of IN lists sent in a single statement.
const maxBatch = 1000

// candidateSQL selects every cocktail that an inventory can possibly cover:
// a hard requirement in inventory, an alternative of a hard requirement in
// inventory, or no hard requirement at all.
const candidateSQL = `
SELECT cr.cocktail_id FROM cocktail_requirements cr
WHERE cr.importance_level_id = @hard AND cr.ingredient_id IN @inventory
UNION
SELECT ra.cocktail_id FROM recipe_alternatives ra
JOIN cocktail_requirements cr
  ON cr.cocktail_id = ra.cocktail_id AND cr.ingredient_id = ra.original_ingredient_id
WHERE cr.importance_level_id = @hard AND ra.alternative_ingredient_id IN @inventory
UNION
SELECT cocktail_id FROM cocktail_requirements
GROUP BY cocktail_id
HAVING SUM(CASE WHEN importance_level_id = @hard THEN 1 ELSE 0 END) = 0
ORDER BY 1`

// GormStore serves catalog reads from the GORM connection.
type GormStore struct {
	db *gorm.DB
}

// New wraps an open GORM connection.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Snapshot runs fn inside a read-only REPEATABLE READ transaction so that
// requirements and alternatives are observed consistently.
func (s *GormStore) Snapshot(ctx context.Context, fn func(r matching.Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&reader{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// Reader returns a reader outside of any explicit transaction, for single reads.
func (s *GormStore) Reader() matching.Reader {
	return &reader{db: s.db}
}

type reader struct {
	db *gorm.DB
}

type alternativeEdge struct {
	CocktailID              int64
	OriginalIngredientID    int64
	AlternativeIngredientID int64
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, apperrors.ErrNotFound)
	}
	return apperrors.Store("get "+what, err)
}

func (r *reader) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := r.db.WithContext(ctx).Preload("Category").First(&ing, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "ingredient", id)
	}
	return &ing, nil
}

func (r *reader) GetCocktail(ctx context.Context, id int64) (*models.Cocktail, error) {
	var cocktail models.Cocktail
	if err := r.db.WithContext(ctx).First(&cocktail, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "cocktail", id)
	}
	return &cocktail, nil
}

func (r *reader) ListRequirements(ctx context.Context, cocktailID int64) ([]models.Requirement, error) {
	requirements := []models.Requirement{}
	err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Preload("Ingredient.Category").
		Preload("ImportanceLevel").
		Where("cocktail_id = ?", cocktailID).
		Order("importance_level_id, id").
		Find(&requirements).Error
	if err != nil {
		return nil, apperrors.Store("list requirements", err)
	}
	return requirements, nil
}

func (r *reader) ListAlternatives(ctx context.Context, cocktailID, originalIngredientID int64) ([]models.Alternative, error) {
	alternatives := []models.Alternative{}
	err := r.db.WithContext(ctx).
		Preload("AlternativeIngredient").
		Where("cocktail_id = ? AND original_ingredient_id = ?", cocktailID, originalIngredientID).
		Order("id").
		Find(&alternatives).Error
	if err != nil {
		return nil, apperrors.Store("list alternatives", err)
	}
	return alternatives, nil
}

func (r *reader) CandidateCocktailIDs(ctx context.Context, hardLevelID int64, inventory []int64) ([]int64, error) {
	if len(inventory) == 0 {
		return []int64{}, nil
	}
	seen := make(map[int64]struct{})
	ids := []int64{}
	for _, batch := range chunk(inventory, maxBatch) {
		var found []int64
		err := r.db.WithContext(ctx).
			Raw(candidateSQL, map[string]any{"hard": hardLevelID, "inventory": batch}).
			Scan(&found).Error
		if err != nil {
			return nil, apperrors.Store("candidate cocktails", err)
		}
		for _, id := range found {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (r *reader) LoadGraph(ctx context.Context, hardLevelID int64, cocktailIDs []int64) (*matching.Graph, error) {
	g := matching.NewGraph()
	db := r.db.WithContext(ctx)

	for _, batch := range chunk(cocktailIDs, maxBatch) {
		var cocktails []models.Cocktail
		if err := db.Where("id IN ?", batch).Find(&cocktails).Error; err != nil {
			return nil, apperrors.Store("load cocktails", err)
		}
		for _, c := range cocktails {
			g.AddCocktail(c)
		}

		var requirements []models.Requirement
		if err := db.Select("cocktail_id", "ingredient_id").
			Where("cocktail_id IN ? AND importance_level_id = ?", batch, hardLevelID).
			Find(&requirements).Error; err != nil {
			return nil, apperrors.Store("load requirements", err)
		}
		for _, req := range requirements {
			g.AddRequirement(req.CocktailID, req.IngredientID)
		}

		var edges []alternativeEdge
		if err := db.Table("recipe_alternatives AS ra").
			Select("ra.cocktail_id, ra.original_ingredient_id, ra.alternative_ingredient_id").
			Joins("JOIN cocktail_requirements cr ON cr.cocktail_id = ra.cocktail_id AND cr.ingredient_id = ra.original_ingredient_id").
			Where("ra.cocktail_id IN ? AND cr.importance_level_id = ?", batch, hardLevelID).
			Scan(&edges).Error; err != nil {
			return nil, apperrors.Store("load alternatives", err)
		}
		for _, e := range edges {
			g.AddAlternative(e.CocktailID, e.OriginalIngredientID, e.AlternativeIngredientID)
		}
	}
	return g, nil
}

func (r *reader) CoOccurringIngredients(ctx context.Context, baseIDs []int64) ([]models.Ingredient, error) {
	ingredients := []models.Ingredient{}
	if len(baseIDs) == 0 {
		return ingredients, nil
	}
	db := r.db.WithContext(ctx)
	cocktails := db.Model(&models.Requirement{}).Select("cocktail_id").Where("ingredient_id IN ?", baseIDs)
	required := db.Model(&models.Requirement{}).Select("ingredient_id").Where("cocktail_id IN (?)", cocktails)

	if err := db.Preload("Category").
		Where("id IN (?)", required).
		Order("id").
		Find(&ingredients).Error; err != nil {
		return nil, apperrors.Store("co-occurring ingredients", err)
	}
	return ingredients, nil
}

func chunk(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

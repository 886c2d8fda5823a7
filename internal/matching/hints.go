package matching

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/models"
)

// OtherCategoryName labels hint ingredients that have no category.
const OtherCategoryName = "Other"

// HintGroup is one category of suggested ingredients.
type HintGroup struct {
	Category    models.IngredientCategory `json:"category"`
	Ingredients []models.Ingredient       `json:"ingredients"`
}

// HintCache stores advisor results keyed by HintCacheKey.
type HintCache interface {
	Get(ctx context.Context, key string) ([]HintGroup, bool, error)
	Set(ctx context.Context, key string, groups []HintGroup) error
}

// Advisor suggests complementary ingredients for a set of base spirits.
type Advisor struct {
	store            Store
	spiritCategories map[string]struct{}
	cache            HintCache
	logger           *zap.Logger
}

// NewAdvisor creates an advisor. Ingredients whose category name or parent
// category name is in spiritCategories are never suggested. cache may be nil.
func NewAdvisor(store Store, spiritCategories []string, cache HintCache, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(spiritCategories))
	for _, name := range spiritCategories {
		set[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &Advisor{store: store, spiritCategories: set, cache: cache, logger: logger.Named("hints")}
}

// HintCacheKey derives the cache key for a normalized id set.
func HintCacheKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "barmen:hints:" + strings.Join(parts, ",")
}

// SuggestHints returns non-spirit ingredients that appear in cocktails
// requiring at least one of baseSpiritIDs, grouped by category.
func (a *Advisor) SuggestHints(ctx context.Context, baseSpiritIDs []int64) ([]HintGroup, error) {
	ids, err := NormalizeIDs("baseSpiritIds", baseSpiritIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []HintGroup{}, nil
	}

	key := HintCacheKey(ids)
	if a.cache != nil {
		groups, ok, err := a.cache.Get(ctx, key)
		if err != nil {
			a.logger.Warn("hint cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return groups, nil
		}
	}

	var ingredients []models.Ingredient
	err = a.store.Snapshot(ctx, func(r Reader) error {
		var err error
		ingredients, err = r.CoOccurringIngredients(ctx, ids)
		return err
	})
	if err != nil {
		a.logger.Error("hint lookup failed", zap.Int64s("base_ids", ids), zap.Error(err))
		return nil, apperrors.Store("hints", err)
	}

	groups := a.group(ingredients, NewInventory(ids))
	if a.cache != nil {
		if err := a.cache.Set(ctx, key, groups); err != nil {
			a.logger.Warn("hint cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return groups, nil
}

func (a *Advisor) isSpirit(ing models.Ingredient) bool {
	if ing.Family != nil && *ing.Family != "" {
		return true
	}
	if ing.Category == nil {
		return false
	}
	if _, ok := a.spiritCategories[strings.ToLower(ing.Category.NameEn)]; ok {
		return true
	}
	_, ok := a.spiritCategories[strings.ToLower(ing.Category.ParentCategoryName)]
	return ok
}

func (a *Advisor) group(ingredients []models.Ingredient, base Inventory) []HintGroup {
	byCategory := make(map[int64]*HintGroup)
	seen := make(map[int64]struct{})

	for _, ing := range ingredients {
		if base.Has(ing.ID) || a.isSpirit(ing) {
			continue
		}
		if _, dup := seen[ing.ID]; dup {
			continue
		}
		seen[ing.ID] = struct{}{}

		category := models.IngredientCategory{NameEn: OtherCategoryName, NameRu: "Другое"}
		if ing.Category != nil {
			category = *ing.Category
		}
		g, ok := byCategory[category.ID]
		if !ok {
			g = &HintGroup{Category: category}
			byCategory[category.ID] = g
		}
		item := ing
		item.Category = nil
		g.Ingredients = append(g.Ingredients, item)
	}

	groups := make([]HintGroup, 0, len(byCategory))
	for _, g := range byCategory {
		sort.Slice(g.Ingredients, func(i, j int) bool {
			x, y := strings.ToLower(g.Ingredients[i].NameEn), strings.ToLower(g.Ingredients[j].NameEn)
			if x != y {
				return x < y
			}
			return g.Ingredients[i].ID < g.Ingredients[j].ID
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		x, y := strings.ToLower(groups[i].Category.NameEn), strings.ToLower(groups[j].Category.NameEn)
		if x != y {
			return x < y
		}
		return groups[i].Category.ID < groups[j].Category.ID
	})
	return groups
}

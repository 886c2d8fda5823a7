package enrichment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barmen/internal/models"
)

// Update is one planned change of ingredients.family.
type Update struct {
	IngredientID int64
	Name         string
	From         *string
	To           string
}

// Plan classifies ingredients and returns the changes to apply. Ingredients
// that already have a family are kept unless force is set.
func Plan(ingredients []models.Ingredient, force bool) []Update {
	var updates []Update
	for _, ing := range ingredients {
		if ing.Family != nil && *ing.Family != "" && !force {
			continue
		}
		family := SpiritFamily(ing.NameEn)
		if family == "" {
			family = SpiritFamily(ing.NameRu)
		}
		if family == "" {
			continue
		}
		if ing.Family != nil && *ing.Family == family {
			continue
		}
		updates = append(updates, Update{IngredientID: ing.ID, Name: ing.NameEn, From: ing.Family, To: family})
	}
	return updates
}

// FamilyJob tags spirit ingredients with their family.
type FamilyJob struct {
	DB               *gorm.DB
	SpiritCategories []string
	Force            bool
	DryRun           bool
	// Logger is optional; a nil Logger discards output.
	Logger           *zap.Logger
}

func (j *FamilyJob) logger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}

// Run loads every ingredient of a spirit category, plans and applies updates
// in one transaction. It returns the planned updates.
func (j *FamilyJob) Run(ctx context.Context) ([]Update, error) {
	names := make([]string, len(j.SpiritCategories))
	for i, n := range j.SpiritCategories {
		names[i] = strings.ToLower(n)
	}

	var ingredients []models.Ingredient
	err := j.DB.WithContext(ctx).
		Select("ingredients.*").
		Joins("JOIN ingredient_categories ON ingredient_categories.id = ingredients.category_id").
		Where("LOWER(ingredient_categories.name_en) IN ? OR LOWER(ingredient_categories.parent_category_name) IN ?", names, names).
		Order("ingredients.id").
		Find(&ingredients).Error
	if err != nil {
		return nil, fmt.Errorf("load spirits: %w", err)
	}

	updates := Plan(ingredients, j.Force)
	j.logger().Info("family plan ready", zap.Int("spirits", len(ingredients)), zap.Int("updates", len(updates)))
	if j.DryRun || len(updates) == 0 {
		return updates, nil
	}

	err = j.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&models.Ingredient{}).Where("id = ?", u.IngredientID).Update("family", u.To).Error; err != nil {
				return fmt.Errorf("update ingredient %d: %w", u.IngredientID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updates, nil
}

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/models"
	"github.com/example/barmen/internal/utils"
)

// CocktailHandler serves cocktail listings and recipe details.
type CocktailHandler struct {
	db          *gorm.DB
	store       matching.Store
	hardLevelID int64
}

// NewCocktailHandler constructs CocktailHandler. db may be nil when the
// catalog is served by a read-only store; only GetCocktail works then.
func NewCocktailHandler(db *gorm.DB, store matching.Store, hardLevelID int64) *CocktailHandler {
	return &CocktailHandler{db: db, store: store, hardLevelID: hardLevelID}
}

// ListCocktails returns paginated cocktails filtered by search and alcoholic.
func (h *CocktailHandler) ListCocktails(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Cocktail{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + search + "%"
		query = query.Where("name_en ILIKE ? OR name_ru ILIKE ?", q, q)
	}

	if v := c.Query("alcoholic"); v != "" {
		if alcoholic, err := strconv.ParseBool(v); err == nil {
			query = query.Where("is_alcoholic = ?", alcoholic)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var cocktails []models.Cocktail
	if err := query.Limit(pg.Limit).Offset(pg.Offset).
		Order("LOWER(name_en), id").
		Find(&cocktails).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    cocktails,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type requirementView struct {
	IngredientID int64             `json:"ingredientId"`
	Ingredient   string            `json:"ingredient"`
	Amount       string            `json:"amount"`
	Importance   string            `json:"importance"`
	Color        string            `json:"color"`
	Hard         bool              `json:"hard"`
	Alternatives []alternativeView `json:"alternatives"`
}

type alternativeView struct {
	IngredientID int64  `json:"ingredientId"`
	Ingredient   string `json:"ingredient"`
	Amount       string `json:"amount"`
}

// GetCocktail returns a cocktail with its requirements and the alternatives
// registered for its hard requirements, read from one snapshot.
func (h *CocktailHandler) GetCocktail(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	lang := c.Query("lang", "en")
	ctx := c.UserContext()

	var cocktail *models.Cocktail
	var requirements []requirementView
	err = h.store.Snapshot(ctx, func(r matching.Reader) error {
		var err error
		if cocktail, err = r.GetCocktail(ctx, id); err != nil {
			return err
		}
		reqs, err := r.ListRequirements(ctx, id)
		if err != nil {
			return err
		}
		requirements = make([]requirementView, 0, len(reqs))
		for _, req := range reqs {
			view := requirementView{
				IngredientID: req.IngredientID,
				Amount:       models.Localized(lang, req.AmountEn, req.AmountRu),
				Hard:         req.ImportanceLevelID == h.hardLevelID,
				Alternatives: []alternativeView{},
			}
			if req.Ingredient != nil {
				view.Ingredient = req.Ingredient.Name(lang)
			}
			if req.ImportanceLevel != nil {
				view.Importance = models.Localized(lang, req.ImportanceLevel.NameEn, req.ImportanceLevel.NameRu)
				view.Color = req.ImportanceLevel.Color
			}
			if view.Hard {
				alts, err := r.ListAlternatives(ctx, id, req.IngredientID)
				if err != nil {
					return err
				}
				for _, alt := range alts {
					av := alternativeView{
						IngredientID: alt.AlternativeIngredientID,
						Amount:       models.Localized(lang, alt.AmountEn, alt.AmountRu),
					}
					if alt.AlternativeIngredient != nil {
						av.Ingredient = alt.AlternativeIngredient.Name(lang)
					}
					view.Alternatives = append(view.Alternatives, av)
				}
			}
			requirements = append(requirements, view)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           cocktail.ID,
			"external_id":  cocktail.ExternalID,
			"name":         cocktail.Name(lang),
			"instructions": models.Localized(lang, cocktail.InstructionsEn, cocktail.InstructionsRu),
			"glass":        cocktail.Glass(lang),
			"tags":         models.Localized(lang, cocktail.TagsEn, cocktail.TagsRu),
			"history":      models.Localized(lang, cocktail.HistoryEn, cocktail.HistoryRu),
			"is_alcoholic": cocktail.IsAlcoholic,
			"image_url":    cocktail.ImageURL,
			"requirements": requirements,
		},
	})
}

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

// IngredientHandler serves ingredients, categories and importance levels.
type IngredientHandler struct {
	db    *gorm.DB
	store matching.Store
}

// NewIngredientHandler constructs IngredientHandler. db may be nil when the
// catalog is served by a read-only store; only GetIngredient works then.
func NewIngredientHandler(db *gorm.DB, store matching.Store) *IngredientHandler {
	return &IngredientHandler{db: db, store: store}
}

// ListIngredients returns paginated ingredients with optional filters.
func (h *IngredientHandler) ListIngredients(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Ingredient{})

	if v := c.Query("category_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			query = query.Where("category_id = ?", id)
		}
	}

	if family := c.Query("family"); family != "" {
		query = query.Where("family = ?", strings.ToLower(family))
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + search + "%"
		query = query.Where("name_en ILIKE ? OR name_ru ILIKE ?", q, q)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var ingredients []models.Ingredient
	if err := query.Preload("Category").
		Limit(pg.Limit).Offset(pg.Offset).
		Order("LOWER(name_en), id").
		Find(&ingredients).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    ingredients,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetIngredient returns a single ingredient with its category.
func (h *IngredientHandler) GetIngredient(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	var ingredient *models.Ingredient
	err = h.store.Snapshot(ctx, func(r matching.Reader) error {
		var err error
		ingredient, err = r.GetIngredient(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": ingredient})
}

// ListCategories returns every ingredient category ordered by name.
func (h *IngredientHandler) ListCategories(c *fiber.Ctx) error {
	var categories []models.IngredientCategory
	if err := h.db.WithContext(c.UserContext()).Order("name_en, id").Find(&categories).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}

// ListImportanceLevels returns every importance level.
func (h *IngredientHandler) ListImportanceLevels(c *fiber.Ctx) error {
	var levels []models.ImportanceLevel
	if err := h.db.WithContext(c.UserContext()).Order("id").Find(&levels).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": levels})
}

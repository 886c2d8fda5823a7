package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/barmen/internal/models"
	"github.com/example/barmen/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db               *gorm.DB
	hardLevelID      int64
	spiritCategories []string
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, hardLevelID int64, spiritCategories []string) *AdminHandler {
	lowered := make([]string, len(spiritCategories))
	for i, name := range spiritCategories {
		lowered[i] = strings.ToLower(strings.TrimSpace(name))
	}
	return &AdminHandler{db: db, hardLevelID: hardLevelID, spiritCategories: lowered}
}

// DashboardStats returns aggregate statistics about the catalog.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	counts := make(map[string]int64)
	for name, model := range map[string]any{
		"total_cocktails":    &models.Cocktail{},
		"total_ingredients":  &models.Ingredient{},
		"total_requirements": &models.Requirement{},
		"total_alternatives": &models.Alternative{},
		"total_users":        &models.User{},
	} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return err
		}
		counts[name] = n
	}

	// Requirements by importance level
	type levelCount struct {
		ImportanceLevelID int64 `json:"importance_level_id"`
		Count             int64 `json:"count"`
	}
	var levelCounts []levelCount
	if err := db.Model(&models.Requirement{}).
		Select("importance_level_id, count(*) as count").
		Group("importance_level_id").
		Order("importance_level_id").
		Scan(&levelCounts).Error; err != nil {
		return err
	}

	// Spirits still waiting for a family
	var unclassified int64
	if err := db.Model(&models.Ingredient{}).
		Joins("JOIN ingredient_categories ON ingredient_categories.id = ingredients.category_id").
		Where("ingredients.family IS NULL").
		Where("LOWER(ingredient_categories.name_en) IN ? OR LOWER(ingredient_categories.parent_category_name) IN ?", h.spiritCategories, h.spiritCategories).
		Count(&unclassified).Error; err != nil {
		return err
	}

	// Cocktails without any hard requirement match every inventory
	var unconstrained int64
	if err := db.Model(&models.Cocktail{}).
		Where("NOT EXISTS (SELECT 1 FROM cocktail_requirements cr WHERE cr.cocktail_id = cocktails.id AND cr.importance_level_id = ?)", h.hardLevelID).
		Count(&unconstrained).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_cocktails":         counts["total_cocktails"],
			"total_ingredients":       counts["total_ingredients"],
			"total_requirements":      counts["total_requirements"],
			"total_alternatives":      counts["total_alternatives"],
			"total_users":             counts["total_users"],
			"requirements_by_level":   levelCounts,
			"unclassified_spirits":    unclassified,
			"unconstrained_cocktails": unconstrained,
		},
	})
}

// ListAllUsers returns all registered users with pagination and search.
func (h *AdminHandler) ListAllUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.User{})

	if search := c.Query("search"); search != "" {
		query = query.Where("email ILIKE ? OR display_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

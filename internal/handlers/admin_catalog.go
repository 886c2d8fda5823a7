package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/models"
	"github.com/example/barmen/internal/utils"
)

func notFoundErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	}
	return err
}

func exists(ctx context.Context, db *gorm.DB, model any, id int64) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

type ingredientPayload struct {
	NameEn     string  `json:"name_en"`
	NameRu     string  `json:"name_ru"`
	CategoryID *int64  `json:"category_id"`
	Family     *string `json:"family"`
}

func (h *AdminHandler) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := exists(ctx, h.db, &models.IngredientCategory{}, *id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("category_id", "category %d does not exist", *id)
	}
	return nil
}

// CreateIngredient persists a new ingredient.
func (h *AdminHandler) CreateIngredient(c *fiber.Ctx) error {
	var payload ingredientPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(payload.NameEn) == "" {
		return apperrors.NewValidationError("name_en", "is required")
	}
	if err := h.checkCategory(c.UserContext(), payload.CategoryID); err != nil {
		return err
	}

	ingredient := models.Ingredient{
		NameEn:     strings.TrimSpace(payload.NameEn),
		NameRu:     strings.TrimSpace(payload.NameRu),
		CategoryID: payload.CategoryID,
		Family:     payload.Family,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&ingredient).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": ingredient})
}

// UpdateIngredient updates an existing ingredient. Omitted fields are kept.
func (h *AdminHandler) UpdateIngredient(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	db := h.db.WithContext(c.UserContext())

	var ingredient models.Ingredient
	if err := db.First(&ingredient, "id = ?", id).Error; err != nil {
		return notFoundErr(err, "ingredient")
	}

	var payload ingredientPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.checkCategory(c.UserContext(), payload.CategoryID); err != nil {
		return err
	}

	updates := models.Ingredient{
		NameEn:     strings.TrimSpace(payload.NameEn),
		NameRu:     strings.TrimSpace(payload.NameRu),
		CategoryID: payload.CategoryID,
		Family:     payload.Family,
	}
	if err := db.Model(&ingredient).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": ingredient})
}

// DeleteIngredient removes an ingredient that no recipe references.
func (h *AdminHandler) DeleteIngredient(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	db := h.db.WithContext(c.UserContext())

	var refs int64
	if err := db.Model(&models.Requirement{}).Where("ingredient_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	var altRefs int64
	if err := db.Model(&models.Alternative{}).
		Where("original_ingredient_id = ? OR alternative_ingredient_id = ?", id, id).
		Count(&altRefs).Error; err != nil {
		return err
	}
	if refs+altRefs > 0 {
		return apperrors.Conflict("ingredient is used by recipes")
	}

	if err := db.Delete(&models.Ingredient{}, "id = ?", id).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type cocktailPayload struct {
	ExternalID     *string `json:"external_id"`
	NameEn         string  `json:"name_en"`
	NameRu         string  `json:"name_ru"`
	InstructionsEn string  `json:"instructions_en"`
	InstructionsRu string  `json:"instructions_ru"`
	GlassEn        string  `json:"glass_en"`
	GlassRu        string  `json:"glass_ru"`
	TagsEn         string  `json:"tags_en"`
	TagsRu         string  `json:"tags_ru"`
	HistoryEn      string  `json:"history_en"`
	HistoryRu      string  `json:"history_ru"`
	IsAlcoholic    *bool   `json:"is_alcoholic"`
	ImageURL       string  `json:"image_url"`
}

func (p cocktailPayload) model() models.Cocktail {
	return models.Cocktail{
		ExternalID:     p.ExternalID,
		NameEn:         strings.TrimSpace(p.NameEn),
		NameRu:         strings.TrimSpace(p.NameRu),
		InstructionsEn: p.InstructionsEn,
		InstructionsRu: p.InstructionsRu,
		GlassEn:        p.GlassEn,
		GlassRu:        p.GlassRu,
		TagsEn:         p.TagsEn,
		TagsRu:         p.TagsRu,
		HistoryEn:      p.HistoryEn,
		HistoryRu:      p.HistoryRu,
		ImageURL:       p.ImageURL,
	}
}

// CreateCocktail persists a new cocktail without requirements.
func (h *AdminHandler) CreateCocktail(c *fiber.Ctx) error {
	var payload cocktailPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(payload.NameEn) == "" {
		return apperrors.NewValidationError("name_en", "is required")
	}

	cocktail := payload.model()
	cocktail.IsAlcoholic = payload.IsAlcoholic == nil || *payload.IsAlcoholic
	if err := h.db.WithContext(c.UserContext()).Create(&cocktail).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": cocktail})
}

// UpdateCocktail updates an existing cocktail. Omitted fields are kept.
func (h *AdminHandler) UpdateCocktail(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	db := h.db.WithContext(c.UserContext())

	var cocktail models.Cocktail
	if err := db.First(&cocktail, "id = ?", id).Error; err != nil {
		return notFoundErr(err, "cocktail")
	}

	var payload cocktailPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := db.Model(&cocktail).Updates(payload.model()).Error; err != nil {
		return err
	}
	if payload.IsAlcoholic != nil {
		if err := db.Model(&cocktail).Update("is_alcoholic", *payload.IsAlcoholic).Error; err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": cocktail})
}

// DeleteCocktail removes a cocktail with its requirements and alternatives.
func (h *AdminHandler) DeleteCocktail(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Alternative{}, "cocktail_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Requirement{}, "cocktail_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Cocktail{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "cocktail not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type requirementPayload struct {
	IngredientID      int64  `json:"ingredient_id"`
	ImportanceLevelID int64  `json:"importance_level_id"`
	AmountEn          string `json:"amount_en"`
	AmountRu          string `json:"amount_ru"`
}

// CreateRequirement adds an ingredient to a cocktail recipe. The importance
// level defaults to the hard level.
func (h *AdminHandler) CreateRequirement(c *fiber.Ctx) error {
	cocktailID, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	var payload requirementPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if payload.IngredientID <= 0 {
		return apperrors.NewValidationError("ingredient_id", "must be a positive integer")
	}
	if payload.ImportanceLevelID == 0 {
		payload.ImportanceLevelID = h.hardLevelID
	}

	ctx := c.UserContext()
	for _, check := range []struct {
		model any
		id    int64
		field string
	}{
		{&models.Cocktail{}, cocktailID, "id"},
		{&models.Ingredient{}, payload.IngredientID, "ingredient_id"},
		{&models.ImportanceLevel{}, payload.ImportanceLevelID, "importance_level_id"},
	} {
		ok, err := exists(ctx, h.db, check.model, check.id)
		if err != nil {
			return err
		}
		if !ok {
			if check.field == "id" {
				return fiber.NewError(fiber.StatusNotFound, "cocktail not found")
			}
			return apperrors.NewValidationError(check.field, "%d does not exist", check.id)
		}
	}

	db := h.db.WithContext(ctx)
	var dup int64
	if err := db.Model(&models.Requirement{}).
		Where("cocktail_id = ? AND ingredient_id = ?", cocktailID, payload.IngredientID).
		Count(&dup).Error; err != nil {
		return err
	}
	if dup > 0 {
		return apperrors.Conflict("ingredient is already part of the recipe")
	}

	requirement := models.Requirement{
		CocktailID:        cocktailID,
		IngredientID:      payload.IngredientID,
		ImportanceLevelID: payload.ImportanceLevelID,
		AmountEn:          payload.AmountEn,
		AmountRu:          payload.AmountRu,
	}
	if err := db.Create(&requirement).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": requirement})
}

// DeleteRequirement removes a requirement together with the alternatives
// registered for it.
func (h *AdminHandler) DeleteRequirement(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var requirement models.Requirement
		if err := tx.First(&requirement, "id = ?", id).Error; err != nil {
			return notFoundErr(err, "requirement")
		}
		if err := tx.Delete(&models.Alternative{},
			"cocktail_id = ? AND original_ingredient_id = ?", requirement.CocktailID, requirement.IngredientID).Error; err != nil {
			return err
		}
		return tx.Delete(&requirement).Error
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type alternativePayload struct {
	OriginalIngredientID    int64  `json:"original_ingredient_id"`
	AlternativeIngredientID int64  `json:"alternative_ingredient_id"`
	AmountEn                string `json:"amount_en"`
	AmountRu                string `json:"amount_ru"`
}

// CreateAlternative registers a substitute for one hard requirement of a
// cocktail. Alternatives of soft requirements are rejected.
func (h *AdminHandler) CreateAlternative(c *fiber.Ctx) error {
	cocktailID, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	var payload alternativePayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if payload.OriginalIngredientID <= 0 {
		return apperrors.NewValidationError("original_ingredient_id", "must be a positive integer")
	}
	if payload.AlternativeIngredientID <= 0 {
		return apperrors.NewValidationError("alternative_ingredient_id", "must be a positive integer")
	}
	if payload.OriginalIngredientID == payload.AlternativeIngredientID {
		return apperrors.NewValidationError("alternative_ingredient_id", "must differ from the original ingredient")
	}

	ctx := c.UserContext()
	db := h.db.WithContext(ctx)

	var requirement models.Requirement
	err = db.Where("cocktail_id = ? AND ingredient_id = ?", cocktailID, payload.OriginalIngredientID).
		First(&requirement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewValidationError("original_ingredient_id", "is not required by cocktail %d", cocktailID)
	} else if err != nil {
		return err
	}
	if requirement.ImportanceLevelID != h.hardLevelID {
		return apperrors.NewValidationError("original_ingredient_id", "only hard requirements accept alternatives")
	}

	ok, err := exists(ctx, h.db, &models.Ingredient{}, payload.AlternativeIngredientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("alternative_ingredient_id", "%d does not exist", payload.AlternativeIngredientID)
	}

	var dup int64
	if err := db.Model(&models.Alternative{}).
		Where("cocktail_id = ? AND original_ingredient_id = ? AND alternative_ingredient_id = ?",
			cocktailID, payload.OriginalIngredientID, payload.AlternativeIngredientID).
		Count(&dup).Error; err != nil {
		return err
	}
	if dup > 0 {
		return apperrors.Conflict("alternative already registered")
	}

	alternative := models.Alternative{
		CocktailID:              cocktailID,
		OriginalIngredientID:    payload.OriginalIngredientID,
		AlternativeIngredientID: payload.AlternativeIngredientID,
		AmountEn:                payload.AmountEn,
		AmountRu:                payload.AmountRu,
	}
	if err := db.Create(&alternative).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": alternative})
}

// DeleteAlternative removes an alternative by ID.
func (h *AdminHandler) DeleteAlternative(c *fiber.Ctx) error {
	id, err := utils.ParseID("id", c.Params("id"))
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).Delete(&models.Alternative{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "alternative not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

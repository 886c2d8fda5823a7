package models

// IngredientCategory groups ingredients. ParentCategoryName is a soft label,
// not a foreign key.
type IngredientCategory struct {
	CatalogModel
	NameEn             string `gorm:"not null" json:"name_en"`
	NameRu             string `json:"name_ru"`
	ParentCategoryName string `gorm:"index" json:"parent_category_name"`
}

func (IngredientCategory) TableName() string { return "ingredient_categories" }

// Name returns the display name for lang.
func (c IngredientCategory) Name(lang string) string {
	return Localized(lang, c.NameEn, c.NameRu)
}

// Ingredient is anything a recipe can call for. Family is a precomputed spirit
// sub-classification (whiskey, rum, gin...) and is nil for non-spirits.
type Ingredient struct {
	CatalogModel
	NameEn     string              `gorm:"not null" json:"name_en"`
	NameRu     string              `json:"name_ru"`
	CategoryID *int64              `gorm:"index" json:"category_id"`
	Category   *IngredientCategory `json:"category,omitempty"`
	Family     *string             `gorm:"size:32;index" json:"family"`
}

// Name returns the display name for lang.
func (i Ingredient) Name(lang string) string {
	return Localized(lang, i.NameEn, i.NameRu)
}

// ImportanceLevel tags a requirement as mandatory or decorative.
type ImportanceLevel struct {
	CatalogModel
	NameEn string `gorm:"not null" json:"name_en"`
	NameRu string `json:"name_ru"`
	Color  string `json:"color"`
}

func (ImportanceLevel) TableName() string { return "importance_levels" }

package models

// Cocktail is the aggregate root of a recipe.
type Cocktail struct {
	CatalogModel
	ExternalID     *string       `gorm:"size:64;index" json:"external_id"`
	NameEn         string        `gorm:"not null;index" json:"name_en"`
	NameRu         string        `json:"name_ru"`
	InstructionsEn string        `json:"instructions_en"`
	InstructionsRu string        `json:"instructions_ru"`
	GlassEn        string        `json:"glass_en"`
	GlassRu        string        `json:"glass_ru"`
	TagsEn         string        `json:"tags_en"`
	TagsRu         string        `json:"tags_ru"`
	HistoryEn      string        `json:"history_en"`
	HistoryRu      string        `json:"history_ru"`
	IsAlcoholic    bool          `gorm:"not null" json:"is_alcoholic"`
	ImageURL       string        `json:"image_url"`
	Requirements   []Requirement `json:"requirements,omitempty"`
	Alternatives   []Alternative `json:"alternatives,omitempty"`
}

// Name returns the display name for lang.
func (c Cocktail) Name(lang string) string {
	return Localized(lang, c.NameEn, c.NameRu)
}

// Glass returns the glass type for lang.
func (c Cocktail) Glass(lang string) string {
	return Localized(lang, c.GlassEn, c.GlassRu)
}

// Requirement says a cocktail needs an ingredient at some importance level.
// A (cocktail, ingredient) pair appears at most once.
type Requirement struct {
	CatalogModel
	CocktailID        int64            `gorm:"not null;uniqueIndex:idx_requirement_pair" json:"cocktail_id"`
	IngredientID      int64            `gorm:"not null;uniqueIndex:idx_requirement_pair;index" json:"ingredient_id"`
	Ingredient        *Ingredient      `json:"ingredient,omitempty"`
	ImportanceLevelID int64            `gorm:"not null;index" json:"importance_level_id"`
	ImportanceLevel   *ImportanceLevel `json:"importance_level,omitempty"`
	AmountEn          string           `json:"amount_en"`
	AmountRu          string           `json:"amount_ru"`
}

func (Requirement) TableName() string { return "cocktail_requirements" }

// Alternative lets AlternativeIngredientID stand in for OriginalIngredientID,
// within CocktailID only.
type Alternative struct {
	CatalogModel
	CocktailID              int64       `gorm:"not null;index:idx_alternative_lookup" json:"cocktail_id"`
	OriginalIngredientID    int64       `gorm:"not null;index:idx_alternative_lookup" json:"original_ingredient_id"`
	AlternativeIngredientID int64       `gorm:"not null;index" json:"alternative_ingredient_id"`
	AlternativeIngredient   *Ingredient `gorm:"foreignKey:AlternativeIngredientID" json:"alternative_ingredient,omitempty"`
	AmountEn                string      `json:"amount_en"`
	AmountRu                string      `json:"amount_ru"`
}

func (Alternative) TableName() string { return "recipe_alternatives" }

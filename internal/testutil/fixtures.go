package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/example/barmen/internal/models"
)

// Importance levels of the bar fixture.
const (
	LevelRequired int64 = 1
	LevelGarnish  int64 = 2
)

// Ingredient ids of the bar fixture.
const (
	WhiteRum int64 = iota + 1
	LimeJuice
	Sugar
	Soda
	Mint
	Vodka
	Gin
	Tonic
	Cranberry
	TripleSec
	Saffron
	LemonWedge
)

// Cocktail ids of the bar fixture.
const (
	Mojito int64 = iota + 1
	GinTonic
	Cosmopolitan
	Daiquiri
	MintTea
	VodkaSoda
)

// Category ids of the bar fixture.
const (
	CatSpirits int64 = iota + 1
	CatJuices
	CatSweeteners
	CatHerbs
	CatMixers
	CatLiqueurs
)

// Logger returns a zap logger that writes through t.Log.
func Logger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

func ptr[T any](v T) *T { return &v }

func catalogModel(id int64) models.CatalogModel {
	return models.CatalogModel{ID: id}
}

// NewBarStore returns a small bar catalog:
//
//	Mojito        rum, lime, sugar, soda (hard); mint (garnish); rum -> vodka alternative
//	Gin Tonic     gin, tonic (hard); lemon wedge (garnish)
//	Cosmopolitan  vodka, triple sec, cranberry, lime (hard)
//	Daiquiri      rum, lime, sugar (hard)
//	Mint Tea      mint (garnish only)
//	Vodka Soda    vodka, soda (hard)
func NewBarStore() *MemoryStore {
	s := &MemoryStore{}

	s.Categories = []models.IngredientCategory{
		{CatalogModel: catalogModel(CatSpirits), NameEn: "Spirits", NameRu: "Крепкий алкоголь"},
		{CatalogModel: catalogModel(CatJuices), NameEn: "Juices", NameRu: "Соки", ParentCategoryName: "Mixers"},
		{CatalogModel: catalogModel(CatSweeteners), NameEn: "Sweeteners", NameRu: "Подсластители"},
		{CatalogModel: catalogModel(CatHerbs), NameEn: "Herbs", NameRu: "Травы"},
		{CatalogModel: catalogModel(CatMixers), NameEn: "Mixers", NameRu: "Миксеры"},
		{CatalogModel: catalogModel(CatLiqueurs), NameEn: "Liqueurs", NameRu: "Ликёры", ParentCategoryName: "Spirits"},
	}

	ing := func(id int64, name string, category int64, family *string) models.Ingredient {
		return models.Ingredient{CatalogModel: catalogModel(id), NameEn: name, CategoryID: ptr(category), Family: family}
	}
	s.Ingredients = []models.Ingredient{
		ing(WhiteRum, "White Rum", CatSpirits, ptr("rum")),
		ing(LimeJuice, "Lime Juice", CatJuices, nil),
		ing(Sugar, "Sugar", CatSweeteners, nil),
		ing(Soda, "Soda Water", CatMixers, nil),
		ing(Mint, "Mint", CatHerbs, nil),
		ing(Vodka, "Vodka", CatSpirits, ptr("vodka")),
		ing(Gin, "Gin", CatSpirits, ptr("gin")),
		ing(Tonic, "Tonic Water", CatMixers, nil),
		ing(Cranberry, "Cranberry Juice", CatJuices, nil),
		ing(TripleSec, "Triple Sec", CatLiqueurs, nil),
		ing(Saffron, "Saffron", CatHerbs, nil),
		{CatalogModel: catalogModel(LemonWedge), NameEn: "Lemon Wedge"},
	}

	s.Cocktails = []models.Cocktail{
		{CatalogModel: catalogModel(Mojito), NameEn: "Mojito", NameRu: "Мохито", IsAlcoholic: true},
		{CatalogModel: catalogModel(GinTonic), NameEn: "Gin Tonic", NameRu: "Джин-тоник", IsAlcoholic: true},
		{CatalogModel: catalogModel(Cosmopolitan), NameEn: "Cosmopolitan", NameRu: "Космополитен", IsAlcoholic: true},
		{CatalogModel: catalogModel(Daiquiri), NameEn: "Daiquiri", NameRu: "Дайкири", IsAlcoholic: true},
		{CatalogModel: catalogModel(MintTea), NameEn: "Mint Tea", NameRu: "Мятный чай"},
		{CatalogModel: catalogModel(VodkaSoda), NameEn: "Vodka Soda", NameRu: "Водка с содовой", IsAlcoholic: true},
	}

	var reqID int64
	req := func(cocktail, ingredient, level int64) models.Requirement {
		reqID++
		return models.Requirement{
			CatalogModel:      catalogModel(reqID),
			CocktailID:        cocktail,
			IngredientID:      ingredient,
			ImportanceLevelID: level,
		}
	}
	s.Requirements = []models.Requirement{
		req(Mojito, WhiteRum, LevelRequired),
		req(Mojito, LimeJuice, LevelRequired),
		req(Mojito, Sugar, LevelRequired),
		req(Mojito, Soda, LevelRequired),
		req(Mojito, Mint, LevelGarnish),
		req(GinTonic, Gin, LevelRequired),
		req(GinTonic, Tonic, LevelRequired),
		req(GinTonic, LemonWedge, LevelGarnish),
		req(Cosmopolitan, Vodka, LevelRequired),
		req(Cosmopolitan, TripleSec, LevelRequired),
		req(Cosmopolitan, Cranberry, LevelRequired),
		req(Cosmopolitan, LimeJuice, LevelRequired),
		req(Daiquiri, WhiteRum, LevelRequired),
		req(Daiquiri, LimeJuice, LevelRequired),
		req(Daiquiri, Sugar, LevelRequired),
		req(MintTea, Mint, LevelGarnish),
		req(VodkaSoda, Vodka, LevelRequired),
		req(VodkaSoda, Soda, LevelRequired),
	}

	s.Alternatives = []models.Alternative{
		{
			CatalogModel:            catalogModel(1),
			CocktailID:              Mojito,
			OriginalIngredientID:    WhiteRum,
			AlternativeIngredientID: Vodka,
			AmountEn:                "50 ml",
		},
	}

	return s
}

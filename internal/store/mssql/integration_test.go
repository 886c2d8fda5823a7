package mssql_test

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"net"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/models"
	"github.com/example/barmen/internal/store/mssql"
	tu "github.com/example/barmen/internal/testutil"
)

// Rows added on top of the bar fixture. Their ids sort after any 500 id
// inventory prefix, so they land in a later query batch.
const (
	eggWhite     int64 = 4900
	aquafaba     int64 = 5000
	ginFizz      int64 = 900
	aquafabaSour int64 = 901
)

var schema = []string{
	`CREATE TABLE importance_levels (
		id BIGINT PRIMARY KEY,
		name_en NVARCHAR(255) NOT NULL,
		name_ru NVARCHAR(255) NULL,
		color NVARCHAR(32) NULL)`,
	`CREATE TABLE ingredient_categories (
		id BIGINT PRIMARY KEY,
		name_en NVARCHAR(255) NOT NULL,
		name_ru NVARCHAR(255) NULL,
		parent_category_name NVARCHAR(255) NULL)`,
	`CREATE TABLE ingredients (
		id BIGINT PRIMARY KEY,
		name_en NVARCHAR(255) NOT NULL,
		name_ru NVARCHAR(255) NULL,
		category_id BIGINT NULL,
		family NVARCHAR(32) NULL)`,
	`CREATE TABLE cocktails (
		id BIGINT PRIMARY KEY,
		external_id NVARCHAR(64) NULL,
		name_en NVARCHAR(255) NOT NULL,
		name_ru NVARCHAR(255) NULL,
		instructions_en NVARCHAR(MAX) NULL,
		instructions_ru NVARCHAR(MAX) NULL,
		glass_en NVARCHAR(255) NULL,
		glass_ru NVARCHAR(255) NULL,
		tags_en NVARCHAR(255) NULL,
		tags_ru NVARCHAR(255) NULL,
		history_en NVARCHAR(MAX) NULL,
		history_ru NVARCHAR(MAX) NULL,
		is_alcoholic BIT NULL,
		image_url NVARCHAR(512) NULL)`,
	`CREATE TABLE cocktail_requirements (
		id BIGINT PRIMARY KEY,
		cocktail_id BIGINT NOT NULL,
		ingredient_id BIGINT NOT NULL,
		importance_level_id BIGINT NOT NULL,
		amount_en NVARCHAR(64) NULL,
		amount_ru NVARCHAR(64) NULL)`,
	`CREATE TABLE recipe_alternatives (
		id BIGINT PRIMARY KEY,
		cocktail_id BIGINT NOT NULL,
		original_ingredient_id BIGINT NOT NULL,
		alternative_ingredient_id BIGINT NOT NULL,
		amount_en NVARCHAR(64) NULL,
		amount_ru NVARCHAR(64) NULL)`,
}

var tables = []string{
	"recipe_alternatives",
	"cocktail_requirements",
	"cocktails",
	"ingredients",
	"ingredient_categories",
	"importance_levels",
}

// barFixture is the bar catalog plus a Gin Fizz whose egg white can be
// replaced by aquafaba, and an Aquafaba Sour only reachable through aquafaba.
func barFixture() *tu.MemoryStore {
	s := tu.NewBarStore()
	externalID := "iba-gin-fizz"
	s.Ingredients = append(s.Ingredients,
		models.Ingredient{CatalogModel: models.CatalogModel{ID: eggWhite}, NameEn: "Egg White", NameRu: "Яичный белок"},
		models.Ingredient{CatalogModel: models.CatalogModel{ID: aquafaba}, NameEn: "Aquafaba"},
	)
	s.Cocktails = append(s.Cocktails,
		models.Cocktail{CatalogModel: models.CatalogModel{ID: ginFizz}, NameEn: "Gin Fizz", NameRu: "Джин-физ", IsAlcoholic: true, ExternalID: &externalID},
		models.Cocktail{CatalogModel: models.CatalogModel{ID: aquafabaSour}, NameEn: "Aquafaba Sour", NameRu: "Аквафаба сауэр"},
	)
	next := int64(len(s.Requirements))
	for _, r := range [][2]int64{{ginFizz, tu.Gin}, {ginFizz, eggWhite}, {aquafabaSour, aquafaba}, {aquafabaSour, tu.LimeJuice}} {
		next++
		s.Requirements = append(s.Requirements, models.Requirement{
			CatalogModel:      models.CatalogModel{ID: next},
			CocktailID:        r[0],
			IngredientID:      r[1],
			ImportanceLevelID: tu.LevelRequired,
		})
	}
	s.Alternatives = append(s.Alternatives, models.Alternative{
		CatalogModel:            models.CatalogModel{ID: int64(len(s.Alternatives) + 1)},
		CocktailID:              ginFizz,
		OriginalIngredientID:    eggWhite,
		AlternativeIngredientID: aquafaba,
		AmountEn:                "30 ml",
	})
	return s
}

func dsnFromEnv(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	host := os.Getenv("MSSQL_HOST")
	user := os.Getenv("MSSQL_USER")
	password := os.Getenv("MSSQL_PASSWORD")
	database := os.Getenv("MSSQL_DATABASE")
	if host == "" || user == "" || password == "" || database == "" {
		t.Skip("skipping integration test: MSSQL_HOST, MSSQL_USER, MSSQL_PASSWORD, or MSSQL_DATABASE not set")
	}
	port := os.Getenv("MSSQL_PORT")
	if port == "" {
		port = "1433"
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		RawQuery: url.Values{"database": {database}}.Encode(),
	}
	return u.String()
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func seed(ctx context.Context, db *sql.DB, fixture *tu.MemoryStore) error {
	exec := func(query string, args ...any) error {
		_, err := db.ExecContext(ctx, query, args...)
		return err
	}

	for _, level := range []models.ImportanceLevel{
		{CatalogModel: models.CatalogModel{ID: tu.LevelRequired}, NameEn: "Required", NameRu: "Обязательно", Color: "#d9534f"},
		{CatalogModel: models.CatalogModel{ID: tu.LevelGarnish}, NameEn: "Garnish", NameRu: "Украшение", Color: "#5cb85c"},
	} {
		if err := exec(`INSERT INTO importance_levels (id, name_en, name_ru, color) VALUES (@p1, @p2, @p3, @p4)`,
			level.ID, level.NameEn, level.NameRu, level.Color); err != nil {
			return err
		}
	}
	for _, c := range fixture.Categories {
		if err := exec(`INSERT INTO ingredient_categories (id, name_en, name_ru, parent_category_name) VALUES (@p1, @p2, @p3, @p4)`,
			c.ID, c.NameEn, c.NameRu, c.ParentCategoryName); err != nil {
			return err
		}
	}
	for _, i := range fixture.Ingredients {
		if err := exec(`INSERT INTO ingredients (id, name_en, name_ru, category_id, family) VALUES (@p1, @p2, @p3, @p4, @p5)`,
			i.ID, i.NameEn, i.NameRu, nullable(i.CategoryID), nullable(i.Family)); err != nil {
			return err
		}
	}
	for _, c := range fixture.Cocktails {
		if err := exec(`INSERT INTO cocktails (id, external_id, name_en, name_ru, glass_en, is_alcoholic, image_url)
			VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`,
			c.ID, nullable(c.ExternalID), c.NameEn, c.NameRu, c.GlassEn, c.IsAlcoholic, c.ImageURL); err != nil {
			return err
		}
	}
	for _, r := range fixture.Requirements {
		if err := exec(`INSERT INTO cocktail_requirements (id, cocktail_id, ingredient_id, importance_level_id, amount_en, amount_ru)
			VALUES (@p1, @p2, @p3, @p4, @p5, @p6)`,
			r.ID, r.CocktailID, r.IngredientID, r.ImportanceLevelID, r.AmountEn, r.AmountRu); err != nil {
			return err
		}
	}
	for _, a := range fixture.Alternatives {
		if err := exec(`INSERT INTO recipe_alternatives (id, cocktail_id, original_ingredient_id, alternative_ingredient_id, amount_en, amount_ru)
			VALUES (@p1, @p2, @p3, @p4, @p5, @p6)`,
			a.ID, a.CocktailID, a.OriginalIngredientID, a.AlternativeIngredientID, a.AmountEn, a.AmountRu); err != nil {
			return err
		}
	}
	return nil
}

func dropTables(ctx context.Context, db *sql.DB) error {
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, `IF OBJECT_ID(N'`+table+`', N'U') IS NOT NULL DROP TABLE `+table); err != nil {
			return err
		}
	}
	return nil
}

// setupStore recreates the catalog tables in MSSQL_DATABASE, which must be a
// scratch database, seeds them with fixture and drops them on cleanup.
func setupStore(t *testing.T, fixture *tu.MemoryStore) *mssql.Store {
	t.Helper()
	dsn := dsnFromEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("sqlserver", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, dropTables(ctx, db))
	for _, stmt := range schema {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := dropTables(ctx, db); err != nil {
			t.Logf("drop tables: %v", err)
		}
	})
	require.NoError(t, seed(ctx, db, fixture))

	s, err := mssql.Open(ctx, dsn, mssql.Options{MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func requireSameResults(t *testing.T, want, got []matching.Result, msgAndArgs ...any) {
	t.Helper()
	require.Len(t, got, len(want), msgAndArgs...)
	for j := range want {
		assert.Equal(t, want[j].Cocktail.ID, got[j].Cocktail.ID, msgAndArgs...)
		assert.Equal(t, want[j].MissingCount, got[j].MissingCount, msgAndArgs...)
		assert.Equal(t, want[j].MissingIngredientIDs, got[j].MissingIngredientIDs, msgAndArgs...)
	}
}

func TestMSSQLStore_MatchesMemoryStore(t *testing.T) {
	fixture := barFixture()
	s := setupStore(t, fixture)
	ctx := context.Background()

	sqlEngine := matching.NewEngine(s, tu.LevelRequired, tu.Logger(t))
	memEngine := matching.NewEngine(barFixture(), tu.LevelRequired, tu.Logger(t))
	rng := rand.New(rand.NewSource(7))

	pool := []int64{eggWhite, aquafaba}
	for id := tu.WhiteRum; id <= tu.LemonWedge; id++ {
		pool = append(pool, id)
	}

	for i := 0; i < 50; i++ {
		var inv []int64
		for _, id := range pool {
			if rng.Intn(3) == 0 {
				inv = append(inv, id)
			}
		}
		for _, mode := range []matching.Mode{matching.ModeStrict, matching.ModeFlexible} {
			want, err := memEngine.Match(ctx, inv, mode)
			require.NoError(t, err)
			got, err := sqlEngine.Match(ctx, inv, mode)
			require.NoError(t, err)
			requireSameResults(t, want, got, "inventory %v mode %s", inv, mode)
		}
	}
}

func TestMSSQLStore_InventoryAcrossBatches(t *testing.T) {
	fixture := barFixture()
	s := setupStore(t, fixture)
	ctx := context.Background()

	// Gin, Vodka and Soda sort into the first batch of 500; aquafaba comes
	// after 600 unknown ids and lands in the second.
	inv := []int64{tu.Gin, tu.Vodka, tu.Soda}
	for id := int64(1000); id < 1600; id++ {
		inv = append(inv, id)
	}
	inv = append(inv, aquafaba)

	sqlEngine := matching.NewEngine(s, tu.LevelRequired, tu.Logger(t))
	memEngine := matching.NewEngine(barFixture(), tu.LevelRequired, tu.Logger(t))
	for _, mode := range []matching.Mode{matching.ModeStrict, matching.ModeFlexible} {
		want, err := memEngine.Match(ctx, inv, mode)
		require.NoError(t, err)
		got, err := sqlEngine.Match(ctx, inv, mode)
		require.NoError(t, err)
		requireSameResults(t, want, got, "mode %s", mode)
	}

	sorted, err := matching.NormalizeIDs("inventoryIds", inv)
	require.NoError(t, err)
	err = s.Snapshot(ctx, func(r matching.Reader) error {
		ids, err := r.CandidateCocktailIDs(ctx, tu.LevelRequired, sorted)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{tu.GinTonic, tu.Mojito, tu.Cosmopolitan, tu.MintTea, tu.VodkaSoda, ginFizz, aquafabaSour}, ids,
			"the zero-hard-requirement branch repeats per batch and must not duplicate Mint Tea")

		graph, err := r.LoadGraph(ctx, tu.LevelRequired, append(ids, sorted...))
		require.NoError(t, err)
		assert.Equal(t, len(fixture.Cocktails), graph.Len())
		return nil
	})
	require.NoError(t, err)
}

func TestMSSQLStore_CoOccurringIngredients(t *testing.T) {
	fixture := barFixture()
	s := setupStore(t, fixture)
	ctx := context.Background()

	base := []int64{tu.Gin}
	for id := int64(1000); id < 1600; id++ {
		base = append(base, id)
	}
	base = append(base, aquafaba)

	want, err := fixture.CoOccurringIngredients(ctx, base)
	require.NoError(t, err)
	got, err := s.Reader().CoOccurringIngredients(ctx, base)
	require.NoError(t, err)

	// The memory store yields one row per requirement; the SQL store one per
	// ingredient, across all batches.
	wantIDs := map[int64]struct{}{}
	for _, ing := range want {
		wantIDs[ing.ID] = struct{}{}
	}
	gotIDs := map[int64]struct{}{}
	for _, ing := range got {
		_, dup := gotIDs[ing.ID]
		assert.False(t, dup, "ingredient %d returned twice", ing.ID)
		gotIDs[ing.ID] = struct{}{}
	}
	assert.Equal(t, wantIDs, gotIDs)

	spirits := []string{"Spirits"}
	groups, err := matching.NewAdvisor(s, spirits, nil, tu.Logger(t)).SuggestHints(ctx, []int64{tu.Gin, aquafaba})
	require.NoError(t, err)
	memGroups, err := matching.NewAdvisor(barFixture(), spirits, nil, tu.Logger(t)).SuggestHints(ctx, []int64{tu.Gin, aquafaba})
	require.NoError(t, err)
	assert.Equal(t, hintIDs(memGroups), hintIDs(groups))
}

// hintIDs flattens groups to category id -> ingredient ids.
func hintIDs(groups []matching.HintGroup) map[int64][]int64 {
	out := make(map[int64][]int64, len(groups))
	for _, g := range groups {
		for _, ing := range g.Ingredients {
			out[g.Category.ID] = append(out[g.Category.ID], ing.ID)
		}
	}
	return out
}

func TestMSSQLStore_Reader(t *testing.T) {
	s := setupStore(t, barFixture())
	ctx := context.Background()
	r := s.Reader()

	ing, err := r.GetIngredient(ctx, tu.Vodka)
	require.NoError(t, err)
	assert.Equal(t, "Vodka", ing.NameEn)
	require.NotNil(t, ing.Family)
	assert.Equal(t, "vodka", *ing.Family)
	require.NotNil(t, ing.Category)
	assert.Equal(t, "Spirits", ing.Category.NameEn)

	_, err = r.GetIngredient(ctx, 4242)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	cocktail, err := r.GetCocktail(ctx, ginFizz)
	require.NoError(t, err)
	assert.Equal(t, "Джин-физ", cocktail.NameRu)
	assert.True(t, cocktail.IsAlcoholic)
	require.NotNil(t, cocktail.ExternalID)

	_, err = r.GetCocktail(ctx, 4242)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	reqs, err := r.ListRequirements(ctx, tu.Mojito)
	require.NoError(t, err)
	assert.Len(t, reqs, 5)
	require.NotNil(t, reqs[0].ImportanceLevel)
	assert.Equal(t, "Required", reqs[0].ImportanceLevel.NameEn)
	require.NotNil(t, reqs[0].Ingredient)

	alts, err := r.ListAlternatives(ctx, ginFizz, eggWhite)
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, aquafaba, alts[0].AlternativeIngredientID)
	assert.Equal(t, "30 ml", alts[0].AmountEn)
	require.NotNil(t, alts[0].AlternativeIngredient)
	assert.Equal(t, "Aquafaba", alts[0].AlternativeIngredient.NameEn)

	alts, err = r.ListAlternatives(ctx, tu.Daiquiri, tu.WhiteRum)
	require.NoError(t, err)
	assert.Empty(t, alts)
}

func TestMSSQLStore_SnapshotPropagatesErrors(t *testing.T) {
	s := setupStore(t, barFixture())
	boom := errors.New("boom")

	err := s.Snapshot(context.Background(), func(r matching.Reader) error {
		_, err := r.GetCocktail(context.Background(), tu.Mojito)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

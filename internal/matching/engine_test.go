package matching_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/models"
	tu "github.com/example/barmen/internal/testutil"
)

func newEngine(t *testing.T, store *tu.MemoryStore) *matching.Engine {
	t.Helper()
	return matching.NewEngine(store, tu.LevelRequired, tu.Logger(t))
}

func names(results []matching.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Cocktail.NameEn
	}
	return out
}

func missingByName(results []matching.Result) map[string]int {
	out := make(map[string]int, len(results))
	for _, r := range results {
		out[r.Cocktail.NameEn] = r.MissingCount
	}
	return out
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    matching.Mode
		wantErr bool
	}{
		{raw: "", want: matching.ModeFlexible},
		{raw: "flexible", want: matching.ModeFlexible},
		{raw: " Strict ", want: matching.ModeStrict},
		{raw: "fuzzy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := matching.ParseMode(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_Strict_MojitoWithoutGarnish(t *testing.T) {
	engine := newEngine(t, tu.NewBarStore())

	results, err := engine.Match(context.Background(),
		[]int64{tu.WhiteRum, tu.LimeJuice, tu.Sugar, tu.Soda}, matching.ModeStrict)
	require.NoError(t, err)

	assert.Equal(t, []string{"Daiquiri", "Mint Tea", "Mojito"}, names(results))
	for _, r := range results {
		assert.Zero(t, r.MissingCount, r.Cocktail.NameEn)
		assert.Empty(t, r.MissingIngredientIDs, r.Cocktail.NameEn)
	}
}

func TestMatch_Flexible_RanksByMissingThenName(t *testing.T) {
	engine := newEngine(t, tu.NewBarStore())

	results, err := engine.Match(context.Background(),
		[]int64{tu.WhiteRum, tu.LimeJuice, tu.Sugar, tu.Soda}, matching.ModeFlexible)
	require.NoError(t, err)

	assert.Equal(t, []string{"Daiquiri", "Mint Tea", "Mojito", "Vodka Soda", "Cosmopolitan"}, names(results))
	assert.Equal(t, map[string]int{
		"Daiquiri":     0,
		"Mint Tea":     0,
		"Mojito":       0,
		"Vodka Soda":   1,
		"Cosmopolitan": 3,
	}, missingByName(results))

	last := results[len(results)-1]
	assert.Equal(t, []int64{tu.Vodka, tu.Cranberry, tu.TripleSec}, last.MissingIngredientIDs)
}

func TestMatch_Strict_AlternativeCoversRequirement(t *testing.T) {
	store := &tu.MemoryStore{
		Cocktails: []models.Cocktail{{CatalogModel: models.CatalogModel{ID: 1}, NameEn: "Mojito"}},
		Requirements: []models.Requirement{
			{CatalogModel: models.CatalogModel{ID: 1}, CocktailID: 1, IngredientID: tu.WhiteRum, ImportanceLevelID: tu.LevelRequired},
			{CatalogModel: models.CatalogModel{ID: 2}, CocktailID: 1, IngredientID: tu.Mint, ImportanceLevelID: tu.LevelGarnish},
		},
		Alternatives: []models.Alternative{
			{CatalogModel: models.CatalogModel{ID: 1}, CocktailID: 1, OriginalIngredientID: tu.WhiteRum, AlternativeIngredientID: tu.Vodka},
		},
	}
	engine := newEngine(t, store)

	results, err := engine.Match(context.Background(), []int64{tu.Vodka}, matching.ModeStrict)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Mojito", results[0].Cocktail.NameEn)
	assert.Zero(t, results[0].MissingCount)
}

func TestMatch_AlternativesAreCocktailScoped(t *testing.T) {
	engine := newEngine(t, tu.NewBarStore())
	inventory := []int64{tu.Vodka, tu.LimeJuice, tu.Sugar, tu.Soda}

	strict, err := engine.Match(context.Background(), inventory, matching.ModeStrict)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mint Tea", "Mojito", "Vodka Soda"}, names(strict))

	flexible, err := engine.Match(context.Background(), inventory, matching.ModeFlexible)
	require.NoError(t, err)
	missing := missingByName(flexible)
	// Rum -> vodka is registered for Mojito only.
	assert.Equal(t, 1, missing["Daiquiri"])
	assert.Equal(t, 0, missing["Mojito"])
}

func TestMatch_AlternativeOfGarnishIsIgnored(t *testing.T) {
	store := tu.NewBarStore()
	store.Alternatives = append(store.Alternatives, models.Alternative{
		CatalogModel:            models.CatalogModel{ID: 2},
		CocktailID:              tu.GinTonic,
		OriginalIngredientID:    tu.LemonWedge,
		AlternativeIngredientID: tu.LimeJuice,
	})
	engine := newEngine(t, store)

	results, err := engine.Match(context.Background(), []int64{tu.LimeJuice}, matching.ModeFlexible)
	require.NoError(t, err)
	assert.NotContains(t, names(results), "Gin Tonic")
}

func TestMatch_GarnishNeverCounts(t *testing.T) {
	engine := newEngine(t, tu.NewBarStore())
	ctx := context.Background()

	onlyMint, err := engine.Match(ctx, []int64{tu.Mint}, matching.ModeFlexible)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mint Tea"}, names(onlyMint))

	base := []int64{tu.WhiteRum, tu.LimeJuice, tu.Gin}
	without, err := engine.Match(ctx, base, matching.ModeFlexible)
	require.NoError(t, err)
	with, err := engine.Match(ctx, append([]int64{tu.Mint, tu.LemonWedge}, base...), matching.ModeFlexible)
	require.NoError(t, err)
	assert.Equal(t, missingByName(without), missingByName(with))
}

func TestMatch_EmptyInventory(t *testing.T) {
	store := tu.NewBarStore()
	engine := newEngine(t, store)

	for _, mode := range []matching.Mode{matching.ModeStrict, matching.ModeFlexible} {
		results, err := engine.Match(context.Background(), nil, mode)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Zero(t, store.Snapshots)
}

func TestMatch_UnknownIngredientIsIgnored(t *testing.T) {
	engine := newEngine(t, tu.NewBarStore())
	ctx := context.Background()
	base := []int64{tu.WhiteRum, tu.LimeJuice, tu.Sugar, tu.Soda}

	for _, mode := range []matching.Mode{matching.ModeStrict, matching.ModeFlexible} {
		want, err := engine.Match(ctx, base, mode)
		require.NoError(t, err)
		got, err := engine.Match(ctx, append([]int64{tu.Saffron, 9999}, base...), mode)
		require.NoError(t, err)
		assert.Equal(t, want, got, mode)
	}
}

func TestMatch_DuplicatesAreHarmless(t *testing.T) {
	engine := newEngine(t, tu.NewBarStore())
	ctx := context.Background()

	want, err := engine.Match(ctx, []int64{tu.Vodka, tu.Soda}, matching.ModeFlexible)
	require.NoError(t, err)
	got, err := engine.Match(ctx, []int64{tu.Soda, tu.Vodka, tu.Vodka, tu.Soda}, matching.ModeFlexible)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMatch_ValidationHappensBeforeStoreAccess(t *testing.T) {
	store := tu.NewBarStore()
	engine := newEngine(t, store)

	_, err := engine.Match(context.Background(), []int64{tu.Vodka, 0}, matching.ModeStrict)
	assert.True(t, apperrors.IsValidation(err))

	_, err = engine.Match(context.Background(), []int64{-4}, matching.ModeFlexible)
	assert.True(t, apperrors.IsValidation(err))

	_, err = engine.Match(context.Background(), []int64{tu.Vodka}, matching.Mode("fuzzy"))
	assert.True(t, apperrors.IsValidation(err))

	assert.Zero(t, store.Snapshots)
}

func TestMatch_StoreErrorAbortsCall(t *testing.T) {
	store := tu.NewBarStore()
	store.Err = errors.New("connection reset")
	engine := newEngine(t, store)

	results, err := engine.Match(context.Background(), []int64{tu.Vodka}, matching.ModeFlexible)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, apperrors.IsStore(err))
	assert.False(t, apperrors.IsValidation(err))
}

// hardCovered recomputes coverage straight from the store rows.
func hardCovered(store *tu.MemoryStore, cocktailID int64, inv matching.Inventory) bool {
	for _, r := range store.Requirements {
		if r.CocktailID != cocktailID || r.ImportanceLevelID != tu.LevelRequired {
			continue
		}
		if inv.Has(r.IngredientID) {
			continue
		}
		covered := false
		for _, a := range store.Alternatives {
			if a.CocktailID == cocktailID && a.OriginalIngredientID == r.IngredientID && inv.Has(a.AlternativeIngredientID) {
				covered = true
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func randomInventory(rng *rand.Rand) []int64 {
	var inv []int64
	for id := tu.WhiteRum; id <= tu.LemonWedge; id++ {
		if rng.Intn(3) == 0 {
			inv = append(inv, id)
		}
	}
	return inv
}

func TestMatch_Properties(t *testing.T) {
	store := tu.NewBarStore()
	engine := newEngine(t, store)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		inv := randomInventory(rng)

		strict, err := engine.Match(ctx, inv, matching.ModeStrict)
		require.NoError(t, err)
		flexible, err := engine.Match(ctx, inv, matching.ModeFlexible)
		require.NoError(t, err)

		// Strict soundness.
		set := matching.NewInventory(inv)
		strictIDs := make(map[int64]bool)
		for _, r := range strict {
			strictIDs[r.Cocktail.ID] = true
			assert.True(t, hardCovered(store, r.Cocktail.ID, set), "inventory %v: %s", inv, r.Cocktail.NameEn)
		}

		// Flexible results with nothing missing are exactly the strict results.
		readyIDs := make(map[int64]bool)
		for _, r := range flexible {
			if r.MissingCount == 0 {
				readyIDs[r.Cocktail.ID] = true
			}
		}
		assert.Equal(t, strictIDs, readyIDs, "inventory %v", inv)

		// Monotonicity under a superset.
		bigger := append(append([]int64{}, inv...), tu.WhiteRum+int64(rng.Intn(int(tu.LemonWedge))))
		strict2, err := engine.Match(ctx, bigger, matching.ModeStrict)
		require.NoError(t, err)
		flexible2, err := engine.Match(ctx, bigger, matching.ModeFlexible)
		require.NoError(t, err)

		strict2IDs := make(map[int64]bool)
		for _, r := range strict2 {
			strict2IDs[r.Cocktail.ID] = true
		}
		for id := range strictIDs {
			assert.True(t, strict2IDs[id], "superset %v dropped cocktail %d", bigger, id)
		}
		after := make(map[int64]int)
		for _, r := range flexible2 {
			after[r.Cocktail.ID] = r.MissingCount
		}
		for _, r := range flexible {
			n, ok := after[r.Cocktail.ID]
			if assert.True(t, ok, "superset %v dropped cocktail %d", bigger, r.Cocktail.ID) {
				assert.LessOrEqual(t, n, r.MissingCount)
			}
		}

		// Idempotence.
		again, err := engine.Match(ctx, inv, matching.ModeFlexible)
		require.NoError(t, err)
		assert.Equal(t, flexible, again)
	}
}

func TestMatch_ConcurrentCallers(t *testing.T) {
	engine := newEngine(t, tu.NewBarStore())
	ctx := context.Background()
	inv := []int64{tu.Vodka, tu.Soda, tu.LimeJuice}

	want, err := engine.Match(ctx, inv, matching.ModeFlexible)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := engine.Match(ctx, inv, matching.ModeFlexible)
			if err != nil {
				errs <- err
				return
			}
			if !assert.ObjectsAreEqual(want, got) {
				errs <- errors.New("concurrent result differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEvaluate_CocktailWithoutHardRequirementsPassesStrict(t *testing.T) {
	g := matching.NewGraph()
	g.AddCocktail(models.Cocktail{CatalogModel: models.CatalogModel{ID: 7}, NameEn: "Garnish Only"})

	results := matching.Evaluate(g, matching.NewInventory([]int64{1}), matching.ModeStrict)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].MissingCount)
}

func TestEvaluate_NameTieBreaksByID(t *testing.T) {
	g := matching.NewGraph()
	for _, id := range []int64{9, 3, 5} {
		g.AddCocktail(models.Cocktail{CatalogModel: models.CatalogModel{ID: id}, NameEn: "Sour"})
		g.AddRequirement(id, 1)
	}

	results := matching.Evaluate(g, matching.NewInventory([]int64{1}), matching.ModeFlexible)
	require.Len(t, results, 3)
	assert.Equal(t, []int64{3, 5, 9}, []int64{results[0].Cocktail.ID, results[1].Cocktail.ID, results[2].Cocktail.ID})
}

func TestEvaluate_NonStrictModeIsFlexible(t *testing.T) {
	g := matching.NewGraph()
	g.AddCocktail(models.Cocktail{CatalogModel: models.CatalogModel{ID: 1}, NameEn: "Sour"})
	g.AddRequirement(1, 1)
	g.AddRequirement(1, 2)
	inv := matching.NewInventory([]int64{1})

	want := matching.Evaluate(g, inv, matching.ModeFlexible)
	require.Len(t, want, 1)
	assert.Equal(t, []int64{2}, want[0].MissingIngredientIDs)

	for _, mode := range []matching.Mode{"", "fuzzy"} {
		assert.Equal(t, want, matching.Evaluate(g, inv, mode), "mode %q", mode)
	}
	assert.Empty(t, matching.Evaluate(g, inv, matching.ModeStrict))
}

func TestNormalizeIDs(t *testing.T) {
	ids, err := matching.NormalizeIDs("ids", []int64{5, 1, 5, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids)

	_, err = matching.NormalizeIDs("ids", []int64{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ids: element 1")
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/utils"
)

// Presentation buckets of a flexible match.
const (
	BucketReady   = "ready"
	BucketAlmost  = "almost"
	BucketExplore = "explore"
)

// Bucket groups a missing count for display: 0 ready, 1-2 almost, 3+ explore.
func Bucket(missing int) string {
	switch {
	case missing == 0:
		return BucketReady
	case missing <= 2:
		return BucketAlmost
	default:
		return BucketExplore
	}
}

// MatchHandler exposes the matching engine and the hint advisor.
type MatchHandler struct {
	engine  *matching.Engine
	advisor *matching.Advisor
}

// NewMatchHandler constructs MatchHandler.
func NewMatchHandler(engine *matching.Engine, advisor *matching.Advisor) *MatchHandler {
	return &MatchHandler{engine: engine, advisor: advisor}
}

type matchRequest struct {
	InventoryIDs any    `json:"inventoryIds"`
	Mode         string `json:"mode"`
}

type matchResult struct {
	CocktailID           int64   `json:"cocktailId"`
	Name                 string  `json:"name"`
	ImageURL             string  `json:"imageUrl"`
	IsAlcoholic          bool    `json:"isAlcoholic"`
	Glass                string  `json:"glass"`
	MissingCount         int     `json:"missingCount"`
	MissingIngredientIDs []int64 `json:"missingIngredientIds"`
	Bucket               string  `json:"bucket"`
}

// Match evaluates a JSON body {"inventoryIds": [...], "mode": "..."}.
func (h *MatchHandler) Match(c *fiber.Ctx) error {
	var req matchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	ids, err := utils.ParseIDList("inventoryIds", req.InventoryIDs)
	if err != nil {
		return err
	}
	return h.match(c, ids, req.Mode)
}

// MatchQuery evaluates ?ids=1,2,3&mode=strict.
func (h *MatchHandler) MatchQuery(c *fiber.Ctx) error {
	ids, err := utils.ParseIDQuery("ids", c.Query("ids"))
	if err != nil {
		return err
	}
	return h.match(c, ids, c.Query("mode"))
}

func (h *MatchHandler) match(c *fiber.Ctx, ids []int64, rawMode string) error {
	mode, err := matching.ParseMode(rawMode)
	if err != nil {
		return err
	}
	results, err := h.engine.Match(c.UserContext(), ids, mode)
	if err != nil {
		return err
	}

	lang := c.Query("lang", "en")
	buckets := fiber.Map{BucketReady: 0, BucketAlmost: 0, BucketExplore: 0}
	items := make([]matchResult, 0, len(results))
	for _, r := range results {
		bucket := Bucket(r.MissingCount)
		buckets[bucket] = buckets[bucket].(int) + 1
		missing := r.MissingIngredientIDs
		if missing == nil {
			missing = []int64{}
		}
		items = append(items, matchResult{
			CocktailID:           r.Cocktail.ID,
			Name:                 r.Cocktail.Name(lang),
			ImageURL:             r.Cocktail.ImageURL,
			IsAlcoholic:          r.Cocktail.IsAlcoholic,
			Glass:                r.Cocktail.Glass(lang),
			MissingCount:         r.MissingCount,
			MissingIngredientIDs: missing,
			Bucket:               bucket,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"mode":    mode,
			"results": items,
			"buckets": buckets,
		},
	})
}

type hintsRequest struct {
	BaseSpiritIDs any `json:"baseSpiritIds"`
}

type hintIngredient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type hintGroup struct {
	CategoryID  *int64           `json:"categoryId"`
	Category    string           `json:"category"`
	Ingredients []hintIngredient `json:"ingredients"`
}

// Hints suggests complementary ingredients for {"baseSpiritIds": [...]}.
func (h *MatchHandler) Hints(c *fiber.Ctx) error {
	var req hintsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	ids, err := utils.ParseIDList("baseSpiritIds", req.BaseSpiritIDs)
	if err != nil {
		return err
	}
	return h.hints(c, ids)
}

// HintsQuery suggests complementary ingredients for ?ids=1,2.
func (h *MatchHandler) HintsQuery(c *fiber.Ctx) error {
	ids, err := utils.ParseIDQuery("ids", c.Query("ids"))
	if err != nil {
		return err
	}
	return h.hints(c, ids)
}

func (h *MatchHandler) hints(c *fiber.Ctx, ids []int64) error {
	groups, err := h.advisor.SuggestHints(c.UserContext(), ids)
	if err != nil {
		return err
	}

	lang := c.Query("lang", "en")
	out := make([]hintGroup, 0, len(groups))
	for _, g := range groups {
		item := hintGroup{Category: g.Category.Name(lang), Ingredients: make([]hintIngredient, 0, len(g.Ingredients))}
		if g.Category.ID != 0 {
			id := g.Category.ID
			item.CategoryID = &id
		}
		for _, ing := range g.Ingredients {
			item.Ingredients = append(item.Ingredients, hintIngredient{ID: ing.ID, Name: ing.Name(lang)})
		}
		out = append(out, item)
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/barmen/internal/config"
	"github.com/example/barmen/internal/handlers"
	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/middleware"
)

// Deps are the services the routes are built from. DB is nil for read-only
// deployments; only the store backed routes are registered then.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Store   matching.Store
	Engine  *matching.Engine
	Advisor *matching.Advisor
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config

	matchHandler := handlers.NewMatchHandler(deps.Engine, deps.Advisor)
	cocktailHandler := handlers.NewCocktailHandler(deps.DB, deps.Store, cfg.HardImportanceLevelID)
	ingredientHandler := handlers.NewIngredientHandler(deps.DB, deps.Store)

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	// Matching
	barmen := api.Group("/barmen")
	barmen.Post("/match", matchHandler.Match)
	barmen.Get("/match", matchHandler.MatchQuery)
	barmen.Post("/hints", matchHandler.Hints)
	barmen.Get("/hints", matchHandler.HintsQuery)

	// Catalog reads served by the store
	api.Get("/cocktails/:id", cocktailHandler.GetCocktail)
	api.Get("/ingredients/:id", ingredientHandler.GetIngredient)

	if deps.DB == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(deps.DB, cfg)
	adminHandler := handlers.NewAdminHandler(deps.DB, cfg.HardImportanceLevelID, cfg.SpiritCategories)

	api.Get("/cocktails", cocktailHandler.ListCocktails)
	api.Get("/ingredients", ingredientHandler.ListIngredients)
	api.Get("/ingredient-categories", ingredientHandler.ListCategories)
	api.Get("/importance-levels", ingredientHandler.ListImportanceLevels)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthMiddleware(cfg.JWTSecret), authHandler.Me)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg.JWTSecret), middleware.RequireAdmin())
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/users", adminHandler.ListAllUsers)

	admin.Post("/ingredients", adminHandler.CreateIngredient)
	admin.Put("/ingredients/:id", adminHandler.UpdateIngredient)
	admin.Delete("/ingredients/:id", adminHandler.DeleteIngredient)

	admin.Post("/cocktails", adminHandler.CreateCocktail)
	admin.Put("/cocktails/:id", adminHandler.UpdateCocktail)
	admin.Delete("/cocktails/:id", adminHandler.DeleteCocktail)
	admin.Post("/cocktails/:id/requirements", adminHandler.CreateRequirement)
	admin.Post("/cocktails/:id/alternatives", adminHandler.CreateAlternative)

	admin.Delete("/requirements/:id", adminHandler.DeleteRequirement)
	admin.Delete("/alternatives/:id", adminHandler.DeleteAlternative)
}

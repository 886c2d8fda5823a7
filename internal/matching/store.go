package matching

import (
	"context"

	"github.com/example/barmen/internal/models"
)

// Reader is the read-only catalog surface used by the engine and the advisor.
// Implementations wrap driver failures in *apperrors.StoreError and return
// apperrors.ErrNotFound for missing rows.
type Reader interface {
	GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error)
	GetCocktail(ctx context.Context, id int64) (*models.Cocktail, error)
	ListRequirements(ctx context.Context, cocktailID int64) ([]models.Requirement, error)
	ListAlternatives(ctx context.Context, cocktailID, originalIngredientID int64) ([]models.Alternative, error)

	// CandidateCocktailIDs returns cocktails that can possibly be covered by
	// inventory: those with a hard requirement or a hard requirement's
	// alternative in inventory, plus those with no hard requirements at all.
	CandidateCocktailIDs(ctx context.Context, hardLevelID int64, inventory []int64) ([]int64, error)

	// LoadGraph batch-loads cocktails, their hard requirements and the
	// alternatives of those requirements.
	LoadGraph(ctx context.Context, hardLevelID int64, cocktailIDs []int64) (*Graph, error)

	// CoOccurringIngredients returns every ingredient (any importance level)
	// required by a cocktail that also requires one of baseIDs, with Category
	// populated.
	CoOccurringIngredients(ctx context.Context, baseIDs []int64) ([]models.Ingredient, error)
}

// Store hands out a Reader bound to one consistent snapshot of the catalog.
type Store interface {
	Snapshot(ctx context.Context, fn func(r Reader) error) error
}

// Package mssql serves catalog reads from a SQL Server database through
// database/sql and go-mssqldb. It is read-only: the catalog is owned by the
// system that populates the SQL Server schema.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/example/barmen/internal/apperrors"
	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/models"
)

// Compile-time interface guards.
var (
	_ matching.Store  = (*Store)(nil)
	_ matching.Reader = (*reader)(nil)
)

// SQL Server caps a statement at 2100 parameters.
const maxBatch = 500

// Options tune the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Isolation of snapshot transactions. Defaults to REPEATABLE READ; use
	// sql.LevelSnapshot when the database has ALLOW_SNAPSHOT_ISOLATION on.
	Isolation sql.IsolationLevel
}

// Store reads the catalog from SQL Server.
type Store struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

// Open connects to SQL Server using a sqlserver:// DSN and verifies the connection.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}
	return New(db, opts.Isolation), nil
}

// New wraps an open *sql.DB using the sqlserver driver.
func New(db *sql.DB, isolation sql.IsolationLevel) *Store {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelRepeatableRead
	}
	return &Store{db: db, isolation: isolation}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot runs fn in one transaction. go-mssqldb rejects read-only
// transactions, so the transaction is always rolled back instead.
func (s *Store) Snapshot(ctx context.Context, fn func(r matching.Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: s.isolation})
	if err != nil {
		return apperrors.Store("begin snapshot", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only work, nothing to commit

	return fn(&reader{q: tx})
}

// Reader returns a reader outside of any explicit transaction.
func (s *Store) Reader() matching.Reader {
	return &reader{q: s.db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type reader struct {
	q querier
}

// placeholders returns "@p<from>, ..., @p<from+n-1>".
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "@p" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func chunk(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

const ingredientColumns = `i.id, ISNULL(i.name_en, ''), ISNULL(i.name_ru, ''), i.category_id, i.family,
	c.id, ISNULL(c.name_en, ''), ISNULL(c.name_ru, ''), ISNULL(c.parent_category_name, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngredient(row rowScanner) (models.Ingredient, error) {
	var (
		ing        models.Ingredient
		categoryID sql.NullInt64
		family     sql.NullString
		catID      sql.NullInt64
		cat        models.IngredientCategory
	)
	if err := row.Scan(&ing.ID, &ing.NameEn, &ing.NameRu, &categoryID, &family,
		&catID, &cat.NameEn, &cat.NameRu, &cat.ParentCategoryName); err != nil {
		return ing, err
	}
	if categoryID.Valid {
		ing.CategoryID = &categoryID.Int64
	}
	if family.Valid {
		ing.Family = &family.String
	}
	if catID.Valid {
		cat.ID = catID.Int64
		ing.Category = &cat
	}
	return ing, nil
}

func (r *reader) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+ingredientColumns+`
		FROM ingredients i
		LEFT JOIN ingredient_categories c ON c.id = i.category_id
		WHERE i.id = @p1`, id)
	ing, err := scanIngredient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingredient %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Store("get ingredient", err)
	}
	return &ing, nil
}

const cocktailColumns = `id, external_id, ISNULL(name_en, ''), ISNULL(name_ru, ''),
	ISNULL(instructions_en, ''), ISNULL(instructions_ru, ''), ISNULL(glass_en, ''), ISNULL(glass_ru, ''),
	ISNULL(tags_en, ''), ISNULL(tags_ru, ''), ISNULL(history_en, ''), ISNULL(history_ru, ''),
	ISNULL(is_alcoholic, 1), ISNULL(image_url, '')`

func scanCocktail(row rowScanner) (models.Cocktail, error) {
	var (
		c          models.Cocktail
		externalID sql.NullString
	)
	err := row.Scan(&c.ID, &externalID, &c.NameEn, &c.NameRu,
		&c.InstructionsEn, &c.InstructionsRu, &c.GlassEn, &c.GlassRu,
		&c.TagsEn, &c.TagsRu, &c.HistoryEn, &c.HistoryRu,
		&c.IsAlcoholic, &c.ImageURL)
	if externalID.Valid {
		c.ExternalID = &externalID.String
	}
	return c, err
}

func (r *reader) GetCocktail(ctx context.Context, id int64) (*models.Cocktail, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+cocktailColumns+` FROM cocktails WHERE id = @p1`, id)
	c, err := scanCocktail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cocktail %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Store("get cocktail", err)
	}
	return &c, nil
}

func (r *reader) ListRequirements(ctx context.Context, cocktailID int64) ([]models.Requirement, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT cr.id, cr.cocktail_id, cr.importance_level_id,
			ISNULL(cr.amount_en, ''), ISNULL(cr.amount_ru, ''),
			il.id, ISNULL(il.name_en, ''), ISNULL(il.name_ru, ''), ISNULL(il.color, ''),
			`+ingredientColumns+`
		FROM cocktail_requirements cr
		JOIN ingredients i ON i.id = cr.ingredient_id
		LEFT JOIN ingredient_categories c ON c.id = i.category_id
		LEFT JOIN importance_levels il ON il.id = cr.importance_level_id
		WHERE cr.cocktail_id = @p1
		ORDER BY cr.importance_level_id, cr.id`, cocktailID)
	if err != nil {
		return nil, apperrors.Store("list requirements", err)
	}
	defer rows.Close()

	requirements := []models.Requirement{}
	for rows.Next() {
		var (
			req     models.Requirement
			levelID sql.NullInt64
			level   models.ImportanceLevel
			ing     models.Ingredient
			catID   sql.NullInt64
			family  sql.NullString
			catFK   sql.NullInt64
			cat     models.IngredientCategory
		)
		if err := rows.Scan(&req.ID, &req.CocktailID, &req.ImportanceLevelID, &req.AmountEn, &req.AmountRu,
			&levelID, &level.NameEn, &level.NameRu, &level.Color,
			&ing.ID, &ing.NameEn, &ing.NameRu, &catFK, &family,
			&catID, &cat.NameEn, &cat.NameRu, &cat.ParentCategoryName); err != nil {
			return nil, apperrors.Store("list requirements", err)
		}
		if catFK.Valid {
			ing.CategoryID = &catFK.Int64
		}
		if family.Valid {
			ing.Family = &family.String
		}
		if catID.Valid {
			cat.ID = catID.Int64
			ing.Category = &cat
		}
		if levelID.Valid {
			level.ID = levelID.Int64
			req.ImportanceLevel = &level
		}
		req.IngredientID = ing.ID
		req.Ingredient = &ing
		requirements = append(requirements, req)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list requirements", err)
	}
	return requirements, nil
}

func (r *reader) ListAlternatives(ctx context.Context, cocktailID, originalIngredientID int64) ([]models.Alternative, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT ra.id, ra.cocktail_id, ra.original_ingredient_id,
			ISNULL(ra.amount_en, ''), ISNULL(ra.amount_ru, ''), `+ingredientColumns+`
		FROM recipe_alternatives ra
		JOIN ingredients i ON i.id = ra.alternative_ingredient_id
		LEFT JOIN ingredient_categories c ON c.id = i.category_id
		WHERE ra.cocktail_id = @p1 AND ra.original_ingredient_id = @p2
		ORDER BY ra.id`, cocktailID, originalIngredientID)
	if err != nil {
		return nil, apperrors.Store("list alternatives", err)
	}
	defer rows.Close()

	alternatives := []models.Alternative{}
	for rows.Next() {
		var (
			alt    models.Alternative
			ing    models.Ingredient
			catFK  sql.NullInt64
			family sql.NullString
			catID  sql.NullInt64
			cat    models.IngredientCategory
		)
		if err := rows.Scan(&alt.ID, &alt.CocktailID, &alt.OriginalIngredientID, &alt.AmountEn, &alt.AmountRu,
			&ing.ID, &ing.NameEn, &ing.NameRu, &catFK, &family,
			&catID, &cat.NameEn, &cat.NameRu, &cat.ParentCategoryName); err != nil {
			return nil, apperrors.Store("list alternatives", err)
		}
		if catFK.Valid {
			ing.CategoryID = &catFK.Int64
		}
		if family.Valid {
			ing.Family = &family.String
		}
		if catID.Valid {
			cat.ID = catID.Int64
			ing.Category = &cat
		}
		alt.AlternativeIngredientID = ing.ID
		alt.AlternativeIngredient = &ing
		alternatives = append(alternatives, alt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list alternatives", err)
	}
	return alternatives, nil
}

// candidateQuery builds the candidate statement for n inventory ids. @p1 is
// the hard level, @p2.. the inventory.
func candidateQuery(n int) string {
	in := placeholders(2, n)
	return `SELECT cr.cocktail_id FROM cocktail_requirements cr
		WHERE cr.importance_level_id = @p1 AND cr.ingredient_id IN (` + in + `)
		UNION
		SELECT ra.cocktail_id FROM recipe_alternatives ra
		JOIN cocktail_requirements cr
		  ON cr.cocktail_id = ra.cocktail_id AND cr.ingredient_id = ra.original_ingredient_id
		WHERE cr.importance_level_id = @p1 AND ra.alternative_ingredient_id IN (` + in + `)
		UNION
		SELECT cocktail_id FROM cocktail_requirements
		GROUP BY cocktail_id
		HAVING SUM(CASE WHEN importance_level_id = @p1 THEN 1 ELSE 0 END) = 0
		ORDER BY 1`
}

func (r *reader) queryIDs(ctx context.Context, op, query string, args []any, each func(rows *sql.Rows) error) error {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return apperrors.Store(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return apperrors.Store(op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.Store(op, err)
	}
	return nil
}

func (r *reader) CandidateCocktailIDs(ctx context.Context, hardLevelID int64, inventory []int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	ids := []int64{}
	for _, batch := range chunk(inventory, maxBatch) {
		args := append([]any{hardLevelID}, int64Args(batch)...)
		err := r.queryIDs(ctx, "candidate cocktails", candidateQuery(len(batch)), args, func(rows *sql.Rows) error {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (r *reader) LoadGraph(ctx context.Context, hardLevelID int64, cocktailIDs []int64) (*matching.Graph, error) {
	g := matching.NewGraph()

	for _, batch := range chunk(cocktailIDs, maxBatch) {
		in := placeholders(1, len(batch))
		args := int64Args(batch)

		err := r.queryIDs(ctx, "load cocktails",
			`SELECT `+cocktailColumns+` FROM cocktails WHERE id IN (`+in+`)`, args,
			func(rows *sql.Rows) error {
				c, err := scanCocktail(rows)
				if err != nil {
					return err
				}
				g.AddCocktail(c)
				return nil
			})
		if err != nil {
			return nil, err
		}

		hardArgs := append(append([]any{}, args...), hardLevelID)
		hard := "@p" + strconv.Itoa(len(batch)+1)

		err = r.queryIDs(ctx, "load requirements",
			`SELECT cocktail_id, ingredient_id FROM cocktail_requirements
			WHERE cocktail_id IN (`+in+`) AND importance_level_id = `+hard, hardArgs,
			func(rows *sql.Rows) error {
				var cocktailID, ingredientID int64
				if err := rows.Scan(&cocktailID, &ingredientID); err != nil {
					return err
				}
				g.AddRequirement(cocktailID, ingredientID)
				return nil
			})
		if err != nil {
			return nil, err
		}

		err = r.queryIDs(ctx, "load alternatives",
			`SELECT ra.cocktail_id, ra.original_ingredient_id, ra.alternative_ingredient_id
			FROM recipe_alternatives ra
			JOIN cocktail_requirements cr
			  ON cr.cocktail_id = ra.cocktail_id AND cr.ingredient_id = ra.original_ingredient_id
			WHERE ra.cocktail_id IN (`+in+`) AND cr.importance_level_id = `+hard, hardArgs,
			func(rows *sql.Rows) error {
				var cocktailID, originalID, alternativeID int64
				if err := rows.Scan(&cocktailID, &originalID, &alternativeID); err != nil {
					return err
				}
				g.AddAlternative(cocktailID, originalID, alternativeID)
				return nil
			})
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (r *reader) CoOccurringIngredients(ctx context.Context, baseIDs []int64) ([]models.Ingredient, error) {
	ingredients := []models.Ingredient{}
	seen := make(map[int64]struct{})

	for _, batch := range chunk(baseIDs, maxBatch) {
		err := r.queryIDs(ctx, "co-occurring ingredients", `SELECT `+ingredientColumns+`
			FROM ingredients i
			LEFT JOIN ingredient_categories c ON c.id = i.category_id
			WHERE i.id IN (
				SELECT ingredient_id FROM cocktail_requirements
				WHERE cocktail_id IN (
					SELECT cocktail_id FROM cocktail_requirements WHERE ingredient_id IN (`+placeholders(1, len(batch))+`)
				)
			)
			ORDER BY i.id`, int64Args(batch),
			func(rows *sql.Rows) error {
				ing, err := scanIngredient(rows)
				if err != nil {
					return err
				}
				if _, ok := seen[ing.ID]; !ok {
					seen[ing.ID] = struct{}{}
					ingredients = append(ingredients, ing)
				}
				return nil
			})
		if err != nil {
			return nil, err
		}
	}
	return ingredients, nil
}

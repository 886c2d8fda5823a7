package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/barmen/internal/database"
	"github.com/example/barmen/internal/models"
)

var (
	sharedDB     *gorm.DB
	sharedDBOnce sync.Once
	sharedDBErr  error
)

// PostgresDB starts one PostgreSQL container per test binary, migrates it and
// seeds it with the bar fixture. It skips in short mode.
func PostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = setupPostgres()
	})
	if sharedDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDBErr)
	}
	return sharedDB
}

func setupPostgres() (*gorm.DB, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "barmen_test",
				"POSTGRES_USER":     "barmen",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://barmen:test_password@%s:%s/barmen_test?sslmode=disable", host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	if err := Seed(db, NewBarStore()); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}
	return db, nil
}

// Seed inserts the importance levels and every row of fixture, then moves the
// id sequences past the explicit ids.
func Seed(db *gorm.DB, fixture *MemoryStore) error {
	levels := []models.ImportanceLevel{
		{CatalogModel: catalogModel(LevelRequired), NameEn: "Required", NameRu: "Обязательно", Color: "#d9534f"},
		{CatalogModel: catalogModel(LevelGarnish), NameEn: "Garnish", NameRu: "Украшение", Color: "#5cb85c"},
	}
	tables := []string{
		"importance_levels",
		"ingredient_categories",
		"ingredients",
		"cocktails",
		"cocktail_requirements",
		"recipe_alternatives",
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, rows := range []any{
			&levels,
			&fixture.Categories,
			&fixture.Ingredients,
			&fixture.Cocktails,
			&fixture.Requirements,
			&fixture.Alternatives,
		} {
			if err := tx.Create(rows).Error; err != nil {
				return err
			}
		}
		for _, table := range tables {
			stmt := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))", table, table)
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

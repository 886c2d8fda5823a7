package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/barmen/internal/logging"
	"github.com/example/barmen/internal/models"
)

// Options tune Connect.
type Options struct {
	AutoMigrate bool
	// Verbose logs every SQL statement.
	Verbose bool
}

// Connect opens the PostgreSQL connection, creating the database when it does
// not exist yet, and optionally runs migrations.
func Connect(dsn string, opts Options, log *zap.Logger) (*gorm.DB, error) {
	log = log.With(zap.String("dsn", logging.SanitizeDSN(dsn)))

	if err := ensureDatabase(dsn); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	level := logger.Warn
	if opts.Verbose {
		level = logger.Info
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if opts.AutoMigrate {
		if err := Migrate(conn); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("database migrated")
	}

	log.Info("database connected")
	return conn, nil
}

// Migrate creates or updates every table of the schema.
func Migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.IngredientCategory{},
		&models.Ingredient{},
		&models.ImportanceLevel{},
		&models.Cocktail{},
		&models.Requirement{},
		&models.Alternative{},
		&models.User{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barmen/internal/cache"
	"github.com/example/barmen/internal/config"
	"github.com/example/barmen/internal/database"
	"github.com/example/barmen/internal/handlers"
	"github.com/example/barmen/internal/logging"
	"github.com/example/barmen/internal/matching"
	"github.com/example/barmen/internal/middleware"
	"github.com/example/barmen/internal/routes"
	"github.com/example/barmen/internal/store"
	"github.com/example/barmen/internal/store/mssql"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logging.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db           *gorm.DB
		catalogStore matching.Store
	)
	switch cfg.DBDriver {
	case config.DriverMSSQL:
		s, err := mssql.Open(ctx, cfg.DatabaseURL, mssql.Options{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("sql server: %w", err)
		}
		defer s.Close()
		catalogStore = s
		zapLogger.Info("serving read-only catalog from SQL Server",
			zap.String("dsn", logging.SanitizeDSN(cfg.DatabaseURL)))
	default:
		conn, err := database.Connect(cfg.DatabaseURL, database.Options{
			AutoMigrate: cfg.AutoMigrate,
			Verbose:     !cfg.IsProduction(),
		}, zapLogger)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		db = conn
		catalogStore = store.New(conn)
	}

	var hintCache matching.HintCache
	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Warn("hint cache disabled", zap.Error(err))
	} else if redisClient != nil {
		defer redisClient.Close()
		hintCache = cache.NewHintCache(redisClient, cfg.HintCacheTTL)
		zapLogger.Info("hint cache enabled", zap.Duration("ttl", cfg.HintCacheTTL))
	}

	engine := matching.NewEngine(catalogStore, cfg.HardImportanceLevelID, zapLogger)
	advisor := matching.NewAdvisor(catalogStore, cfg.SpiritCategories, hintCache, zapLogger)

	app := fiber.New(fiber.Config{
		AppName:      "Barmen Backend",
		ErrorHandler: handlers.ErrorHandler(zapLogger),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID(zapLogger))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${respHeader:X-Request-ID} ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Register(app, routes.Deps{
		Config:  cfg,
		DB:      db,
		Store:   catalogStore,
		Engine:  engine,
		Advisor: advisor,
	})

	go func() {
		<-ctx.Done()
		zapLogger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("driver", cfg.DBDriver),
		zap.Int64("hard_importance_level", cfg.HardImportanceLevelID),
	)
	return app.Listen(":" + cfg.AppPort)
}

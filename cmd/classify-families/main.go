// Command classify-families tags spirit ingredients with their family
// (whiskey, rum, gin...) so the hint advisor can exclude them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/example/barmen/internal/config"
	"github.com/example/barmen/internal/database"
	"github.com/example/barmen/internal/enrichment"
	"github.com/example/barmen/internal/logging"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print planned updates without writing them")
	force := flag.Bool("force", false, "reclassify ingredients that already have a family")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DBDriver != config.DriverPostgres {
		log.Fatalf("classify-families needs DB_DRIVER=%s, got %q", config.DriverPostgres, cfg.DBDriver)
	}

	zapLogger, err := logging.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.DatabaseURL, database.Options{AutoMigrate: cfg.AutoMigrate}, zapLogger)
	if err != nil {
		zapLogger.Fatal("connect", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	job := &enrichment.FamilyJob{
		DB:               db,
		SpiritCategories: cfg.SpiritCategories,
		Force:            *force,
		DryRun:           *dryRun,
		Logger:           zapLogger.Named("families"),
	}
	updates, err := job.Run(ctx)
	if err != nil {
		zapLogger.Fatal("classify families", zap.Error(err))
	}

	for _, u := range updates {
		from := "-"
		if u.From != nil {
			from = *u.From
		}
		fmt.Fprintf(os.Stdout, "%6d  %-40s %s -> %s\n", u.IngredientID, u.Name, from, u.To)
	}
	verb := "updated"
	if *dryRun {
		verb = "would update"
	}
	fmt.Fprintf(os.Stdout, "%s %d ingredients\n", verb, len(updates))
}

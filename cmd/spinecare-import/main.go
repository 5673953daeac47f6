package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/claude/spinecare/internal/config"
	"github.com/claude/spinecare/internal/content"
	"github.com/claude/spinecare/internal/storage"
	"github.com/claude/spinecare/internal/upload"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	file := flag.String("file", "", "catalog YAML to import (defaults to the built-in catalog)")
	dryRun := flag.Bool("dry-run", false, "validate and report counts without writing to the database")
	serverURL := flag.String("server", "", "send the catalog to a running server instead of the database (e.g. https://spinecare.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("SPINECARE_AUTH_API_KEY"), "API key for -server mode")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	catalog, err := content.Load(*file)
	if err != nil {
		log.Error("failed to load catalog", "file", *file, "error", err)
		os.Exit(1)
	}
	log.Info("catalog loaded", "exercises", len(catalog.Exercises), "sets", len(catalog.Sets))

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
		res, err := content.NewImporter(nil, log, true).Import(ctx, catalog)
		if err != nil {
			log.Error("import failed", "error", err)
			os.Exit(1)
		}
		printResult(log, res)
		return
	}

	if *serverURL != "" {
		res, err := upload.NewClient(*serverURL, *apiKey).SendCatalog(ctx, catalog)
		if err != nil {
			log.Error("upload failed", "server", *serverURL, "error", err)
			os.Exit(1)
		}
		log.Info("import stats",
			"exercises_received", res.ExercisesReceived,
			"exercises_upserted", res.ExercisesUpserted,
			"sets_received", res.SetsReceived,
			"sets_upserted", res.SetsUpserted,
		)
		log.Info("upload complete", "server", *serverURL)
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	if err := storage.RunMigrations(cfg.Database.MigrateURL()); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	// Connect database
	db, err := storage.New(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	res, err := content.NewImporter(db, log, false).Import(ctx, catalog)
	if err != nil {
		log.Error("import failed", "error", err)
		if res != nil {
			printResult(log, res)
		}
		os.Exit(1)
	}

	printResult(log, res)
	log.Info("import complete")
}

func printResult(log *slog.Logger, res *content.Result) {
	log.Info("import stats",
		"exercises_received", res.ExercisesReceived,
		"exercises_upserted", res.ExercisesUpserted,
		"sets_received", res.SetsReceived,
		"sets_upserted", res.SetsUpserted,
		"dry_run", res.DryRun,
	)
}

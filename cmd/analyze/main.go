package main

// Analyze pending meal pages:
//   go run ./cmd/analyze [--page=<id>] [--limit=<n>]

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"mealsnap-backend/internal/analyses"
	"mealsnap-backend/internal/extract"
	"mealsnap-backend/internal/images"
	"mealsnap-backend/internal/reconcile"
	"mealsnap-backend/internal/records/notion"
	"mealsnap-backend/internal/shared/config"
	"mealsnap-backend/internal/shared/storage/db"
	"mealsnap-backend/internal/shared/telemetry"
	"mealsnap-backend/internal/vision"
	visionopenai "mealsnap-backend/internal/vision/openai"
	"mealsnap-backend/internal/writeback"
)

func main() {
	pageID := flag.String("page", "", "analyze one specific page, bypassing the pending filter")
	limit := flag.Int("limit", reconcile.DefaultLimit, "max pending pages to fetch when no --page is given")
	flag.Parse()

	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	if err := cfg.ValidateRequired(); err != nil {
		log.Printf("startup: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()

	notionClient, err := notion.NewClient(cfg.NotionAPIKey)
	if err != nil {
		log.Printf("startup: %v", err)
		os.Exit(1)
	}
	visionClient, err := visionopenai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		log.Printf("startup: %v", err)
		os.Exit(1)
	}

	repo, closeRepo, err := buildRepo(ctx, cfg)
	if err != nil {
		log.Printf("startup: %v", err)
		os.Exit(1)
	}
	defer closeRepo()

	reconciler := &reconcile.Reconciler{
		Records:   notionClient,
		Extractor: extract.NewExtractor(notionClient, images.NewHTTPFetcher()),
		Requestor: vision.NewRequestor(visionClient),
		Repo:      repo,
		Updater:   writeback.NewUpdater(notionClient),
	}

	results, err := reconciler.Run(ctx, cfg.NotionDatabaseID, *pageID, *limit)
	if err != nil {
		log.Printf("run: %v", err)
		os.Exit(1)
	}

	printReport(os.Stdout, results)
}

// buildRepo picks Postgres when DATABASE_URL is set, else the in-memory
// placeholder store.
func buildRepo(ctx context.Context, cfg config.Config) (analyses.Repo, func(), error) {
	if cfg.DatabaseURL == "" {
		telemetry.Info("store.memory", map[string]any{})
		return analyses.NewMemoryRepo(), func() {}, nil
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return &analyses.PGRepo{DB: sqlDB}, func() { sqlDB.Close() }, nil
}

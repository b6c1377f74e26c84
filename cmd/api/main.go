package main

// Serve the read-only analyses API:
//   go run ./cmd/api

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealsnap-backend/internal/analyses"
	"mealsnap-backend/internal/server"
	"mealsnap-backend/internal/shared/config"
	"mealsnap-backend/internal/shared/storage/db"
	"mealsnap-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)

	ctx := context.Background()

	var repo analyses.Repo
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("connect database: %v", err)
			os.Exit(1)
		}
		defer sqlDB.Close()
		repo = &analyses.PGRepo{DB: sqlDB}
	} else {
		// Without a database the API serves an empty in-memory store; useful
		// for smoke-testing the surface only.
		telemetry.Warn("store.memory", map[string]any{"hint": "set DATABASE_URL to serve persisted analyses"})
		repo = analyses.NewMemoryRepo()
	}

	engine := server.NewEngine(cfg, repo)
	srv := &http.Server{
		Addr:         server.Addr(cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		telemetry.Info("server.listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	telemetry.Info("server.shutdown", map[string]any{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

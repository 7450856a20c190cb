package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"menu-planner/internal/api"
	"menu-planner/internal/auth"
	"menu-planner/internal/backend"
	"menu-planner/internal/config"
	"menu-planner/internal/database"
	"menu-planner/internal/docs"
	"menu-planner/internal/llm"
	"menu-planner/internal/menu"
	"menu-planner/internal/metrics"
	"menu-planner/internal/notify"
	"menu-planner/internal/recipe"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	health := backend.NewHealthMonitor()
	httpClient := backend.NewHTTPClient(health)

	cache, err := backend.NewFileStore(cfg.CacheDir)
	if err != nil {
		log.Fatalf("Failed to initialize cache store: %v", err)
	}

	textGen, err := newTextGenerator(ctx, cfg, httpClient)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	if closer, ok := textGen.(llm.Closer); ok {
		defer closer.Close()
	}

	metricsStore := metrics.NewStore(db.SQL)
	go pruneOldMetrics(metricsStore)

	notifier, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramAdminID)
	if err != nil {
		log.Fatalf("Failed to initialize telegram notifier: %v", err)
	}

	authRepo := auth.NewRepository(db.SQL)
	authService := auth.NewService(authRepo, cfg.JWTSecret, cfg.TokenTTL, cache)
	defer authService.StopRenewals()

	menuRepo := menu.NewRepository(db.SQL)
	generator := recipe.NewGenerator(textGen, metricsStore, notifier)
	docGenerator := docs.NewGenerator(textGen, menuRepo, metricsStore)
	importer := recipe.NewImporter(textGen, httpClient, cache)

	server := api.NewServer(
		authService,
		menuRepo,
		generator,
		docGenerator,
		importer,
		health,
		metricsStore,
		notifier,
		cfg.CacheDir,
	)

	log.Printf("menu-planner listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, server.Routes()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// metricsRetentionDays bounds how long raw generation metrics are kept.
const metricsRetentionDays = 90

// pruneOldMetrics deletes generation metrics past the retention window once
// a day.
func pruneOldMetrics(store *metrics.Store) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		deleted, err := store.Cleanup(metricsRetentionDays)
		if err != nil {
			log.Printf("metrics cleanup failed: %v", err)
			continue
		}
		if deleted > 0 {
			log.Printf("metrics cleanup removed %d rows", deleted)
		}
	}
}

// newTextGenerator prefers Gemini when its key is configured and falls back
// to Groq otherwise. Config validation guarantees at least one key is set.
func newTextGenerator(ctx context.Context, cfg *config.Config, httpClient *http.Client) (llm.TextGenerator, error) {
	if cfg.GeminiAPIKey != "" {
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	}
	return llm.NewGroqClient(cfg.GroqAPIKey, httpClient), nil
}

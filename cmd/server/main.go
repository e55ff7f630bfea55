package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"balanced-bowl/internal/api"
	"balanced-bowl/internal/app"
	"balanced-bowl/internal/assistant"
	"balanced-bowl/internal/auth"
	"balanced-bowl/internal/config"
	"balanced-bowl/internal/database"
	"balanced-bowl/internal/llm"
	"balanced-bowl/internal/logging"
	"balanced-bowl/internal/metrics"
	"balanced-bowl/internal/planner"
	"balanced-bowl/internal/rating"
	"balanced-bowl/internal/recipe"
	"balanced-bowl/internal/spoonacular"
	"balanced-bowl/internal/telegram"

	"github.com/go-chi/chi/v5"
)

const janitorInterval = 6 * time.Hour

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recipeRepo := recipe.NewRepository(db.SQL)
	stateRepo := planner.NewStateRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)
	collectors := metrics.NewCollectors(nil)

	// 3. Providers
	recipes := spoonacular.NewCachingClient(spoonacular.NewClient(cfg), recipeRepo, cfg.RecipeCacheTTL)

	geminiClient, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create Gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	helper := assistant.New(geminiClient, llm.NewSpeechClient(cfg),
		assistant.WithUsageRecorder(metricsStore),
		assistant.WithCollectors(collectors),
	)

	// 4. Services
	sessions := app.NewSessions(stateRepo, collectors)
	bowl := app.NewApp(recipes, rating.NewAggregator(db.SQL), sessions, helper, metricsStore)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	server := api.NewServer(bowl, jwtManager, collectors, cfg.DatabasePath)

	router := chi.NewRouter()
	router.Mount("/", server.Routes())

	// 5. Telegram, over a webhook when one is configured
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, bowl)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
			os.Exit(1)
		}
		if cfg.TelegramWebhookURL != "" {
			router.Post("/telegram/webhook", bot.WebhookHandler())
		} else {
			go bot.Poll(ctx)
		}
	}

	go runJanitor(ctx, sessions, stateRepo, recipeRepo, metricsStore, cfg)

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Listen failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Flushes the last state of every session before the database closes.
	sessions.Close()
	slog.Info("Server exiting")
}

// runJanitor evicts and prunes abandoned sessions, expired recipe cache
// entries and old assistant usage rows.
func runJanitor(ctx context.Context, sessions *app.Sessions, states *planner.StateRepository, recipes *recipe.Repository, usage *metrics.Store, cfg *config.Config) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now()
		// Evict first so an idle session is not saved back after its rows are pruned.
		if n := sessions.EvictIdle(now.Add(-cfg.SessionTTL)); n > 0 {
			slog.Info("Evicted idle sessions", "count", n)
		}
		if n, err := states.DeleteStale(ctx, now.Add(-cfg.SessionTTL)); err != nil {
			slog.Warn("Failed to prune sessions", "error", err)
		} else if n > 0 {
			slog.Info("Pruned stale sessions", "count", n)
		}
		if cfg.RecipeCacheTTL > 0 {
			if n, err := recipes.Purge(ctx, now.Add(-cfg.RecipeCacheTTL)); err != nil {
				slog.Warn("Failed to purge recipe cache", "error", err)
			} else if n > 0 {
				slog.Info("Purged cached recipes", "count", n)
			}
		}
		if _, err := usage.Cleanup(ctx, 30); err != nil {
			slog.Warn("Failed to clean up metrics", "error", err)
		}
	}
}

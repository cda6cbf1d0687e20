package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/askme/backend/internal/config"
	"github.com/askme/backend/internal/handlers"
	"github.com/askme/backend/internal/provider"
	"github.com/askme/backend/internal/services"
	"github.com/askme/backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.Load()

	// One provider client and one store per process, shared by all requests.
	var auth provider.Authenticator
	var profileStore store.ProfileStore
	var questionStore store.QuestionStore

	if cfg.ProviderURL == "" {
		logger.Warn("PROVIDER_URL not set, using in-memory auth and storage (dev mode)")
		auth = provider.NewLocal(cfg.LocalAuthSecret)
		mem := store.NewMemory()
		profileStore, questionStore = mem, mem
	} else {
		auth = provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey)
		rest := store.NewREST(store.Config{BaseURL: cfg.ProviderURL, APIKey: cfg.ProviderAPIKey})
		profileStore, questionStore = rest, rest
	}

	profiles := services.NewProfileService(profileStore)
	questions := services.NewQuestionService(questionStore, profileStore)

	r := handlers.NewRouter(logger, auth, profiles, questions)

	logger.Info("AskMe API server starting", slog.String("addr", cfg.ServerAddress))
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

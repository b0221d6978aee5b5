package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"campaignforge/internal/domain"
	"campaignforge/internal/infra"
	"campaignforge/internal/orchestrator"
	"campaignforge/internal/storage"
)

// App is the handler container: configuration plus the orchestrator and its
// collaborators, injected once at startup.
type App struct {
	Config     *infra.Config
	Logger     zerolog.Logger
	Orch       *orchestrator.Orchestrator
	Store      domain.PostStore
	Cache      *storage.FileStore
	HTTPClient *http.Client

	validate *validator.Validate
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, orch *orchestrator.Orchestrator, store domain.PostStore, cache *storage.FileStore) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Orch:     orch,
		Store:    store,
		Cache:    cache,
		validate: validator.New(),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"code": code, "message": message})
}

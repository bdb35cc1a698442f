// Package cli provides the stockcheck command-line interface.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"stockcheckertool/pkg/api"
	apiConfig "stockcheckertool/pkg/api/config"
	apiMarket "stockcheckertool/pkg/api/market"
	apiValuation "stockcheckertool/pkg/api/valuation"
	"stockcheckertool/pkg/core/assumption"
	"stockcheckertool/pkg/core/config"
	"stockcheckertool/pkg/core/market"
	"stockcheckertool/pkg/core/pipeline"
	"stockcheckertool/pkg/core/store"
)

// App holds the application dependencies shared by the CLI and the API
// server.
type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	Market   *market.Client
	Book     *assumption.ScenarioBook
	Cache    *store.SnapshotCache
	Repo     *store.ValuationRepo
	Pipeline *pipeline.Orchestrator
}

// NewApp builds every collaborator from cfg. Postgres is used when a
// database URL is configured and reachable; otherwise the file store under
// cfg.CacheDir.
func NewApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	book, err := assumption.LoadOrDefault(cfg.ScenarioFile)
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Market: market.NewClient(cfg.Market, cfg.Defaults, logger.With().Str("component", "market").Logger()),
		Book:   book,
	}

	if cfg.Database.URL != "" {
		if err := store.InitDB(ctx, cfg.Database.URL); err != nil {
			logger.Warn().Err(err).Msg("database unavailable, using file store")
		} else {
			logger.Debug().Msg("postgres store initialized")
		}
	}
	pool := store.GetPool()
	app.Cache = store.NewSnapshotCache(pool, cfg.CacheDir)
	app.Repo = store.NewValuationRepo(pool, filepath.Join(filepath.Dir(cfg.CacheDir), "valuations"))

	app.Pipeline = pipeline.NewOrchestrator(app.Market, book, logger.With().Str("component", "pipeline").Logger())
	app.Pipeline.SetCache(app.Cache)
	app.Pipeline.SetRepository(app.Repo)
	app.Pipeline.SetFallbackDiscountRate(cfg.Defaults.FallbackDiscountRate)
	return app, nil
}

// Router returns the HTTP API backed by this app.
func (a *App) Router() http.Handler {
	return api.NewRouter(api.Handlers{
		Valuation: apiValuation.NewHandler(a.Pipeline, a.Repo),
		Market:    apiMarket.NewHandler(a.Market),
		Config:    apiConfig.NewHandler(a.Book, a.Config.Defaults),
	}, a.Logger.With().Str("component", "api").Logger())
}

// Close releases the database pool.
func (a *App) Close() {
	store.Close()
}

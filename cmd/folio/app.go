package main

import (
	"context"
	"log/slog"
	"time"

	"folio/internal/artifacts"
	"folio/internal/blueprint"
	"folio/internal/config"
	"folio/internal/export"
	"folio/internal/identity"
	"folio/internal/lifecycle"
	"folio/internal/logging"
	"folio/internal/quality"
	"folio/internal/render"
	"folio/internal/research"
	"folio/internal/store"
	"folio/internal/telemetry"
)

// app wires the services one CLI invocation needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	tokens    *identity.Tokens
	lifecycle *lifecycle.Service
	expander  *blueprint.Expander
	quality   *quality.Aggregator
	exports   *export.Pipeline
	shutdown  telemetry.ShutdownFunc
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.RequireIdentity(); err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	tokens, err := identity.New(cfg.Identity)
	if err != nil {
		return nil, err
	}
	publisher, err := artifacts.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	lc := lifecycle.NewService(st, lifecycle.PolicyFromConfig(cfg.Lifecycle), logger)
	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		tokens:    tokens,
		lifecycle: lc,
		expander:  blueprint.NewExpander(st, lc, logger),
		quality:   quality.NewAggregator(st, quality.LocalProviders(cfg.Quality), cfg.Quality, logger),
		exports:   export.NewPipeline(st, render.NewRegistryFromConfig(cfg.Export, logger), publisher, cfg.Export, logger),
		shutdown:  shutdown,
	}, nil
}

// resolver builds a research resolver backed by a catalog file. An empty
// path yields a resolver that can only list and caption.
func (a *app) resolver(catalogPath string) (*research.Resolver, error) {
	if catalogPath == "" {
		return research.NewResolver(a.store, nil, nil, a.cfg.Research, a.logger), nil
	}
	catalog, err := research.LoadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}
	return research.NewResolver(a.store, catalog, catalog, a.cfg.Research, a.logger), nil
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("trace flush failed", logging.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store failed", logging.Error(err))
	}
}

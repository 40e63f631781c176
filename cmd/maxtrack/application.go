package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"maxtrack/internal/cache"
	"maxtrack/internal/catalog"
	"maxtrack/internal/config"
	"maxtrack/internal/enrichment"
	"maxtrack/internal/events"
	"maxtrack/internal/handlers"
	"maxtrack/internal/models"
	"maxtrack/internal/repositories"
	"maxtrack/internal/resolver"
	"maxtrack/internal/services"
)

// application owns every long-lived component. One is built per command.
type application struct {
	cfg *config.Config

	responses cache.Cache
	database  *models.Database
	store     repositories.CatalogRepository

	tidal     *services.TidalService
	requester *services.JSONRequester
	metadata  *services.MusicBrainzService
	bus       *events.Bus

	entities    *catalog.EntityCache
	enrichments *enrichment.Registry
	resolver    *resolver.Resolver

	closers []func(ctx context.Context) error
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg}
	if err := app.init(ctx); err != nil {
		app.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return app, nil
}

func (a *application) init(ctx context.Context) error {
	if err := a.initResponseCache(); err != nil {
		return err
	}
	if err := a.initStore(ctx); err != nil {
		return err
	}
	if err := a.initServices(); err != nil {
		return err
	}

	a.bus = events.NewBus()
	events.RegisterLyricsHandler(a.bus, a.tidal)

	a.entities = catalog.NewEntityCache(a.store, a.tidal)
	a.enrichments = enrichment.NewRegistry(a.entities, a.metadata, a.bus, a.cfg.Matching)
	a.resolver = resolver.New(a.enrichments, a.entities, a.tidal)
	return nil
}

// initResponseCache keeps external responses in memory, or in valkey behind
// an in-memory front when VALKEY_URL is set
func (a *application) initResponseCache() error {
	if a.cfg.ValkeyURL == "" {
		a.responses = cache.NewMemoryCache(a.cfg.ResponseCacheMaxItems)
		a.closers = append(a.closers, func(context.Context) error { return a.responses.Close() })
		return nil
	}

	l2, err := cache.NewValkeyCache(a.cfg.ValkeyURL, "maxtrack:")
	if err != nil {
		return fmt.Errorf("failed to initialize response cache: %w", err)
	}
	a.responses = cache.NewMultiLevelCache(l2, a.cfg.ResponseCacheMaxItems, a.cfg.ResponseCacheTTL)
	a.closers = append(a.closers, func(context.Context) error { return a.responses.Close() })
	slog.Info("Using valkey response cache")
	return nil
}

// initStore holds the host catalog in MongoDB, read through the response
// cache, when MONGODB_URL is set and in process memory otherwise
func (a *application) initStore(ctx context.Context) error {
	if a.cfg.MongodbURL == "" {
		a.store = repositories.NewMemoryCatalogRepository()
		return nil
	}

	db, err := models.NewDatabase(ctx, a.cfg.MongodbURL, a.cfg.MongodbDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.database = db
	a.closers = append(a.closers, db.Close)

	if err := db.CreateIndexes(ctx); err != nil {
		slog.Warn("Failed to create catalog indexes", "error", err)
	}
	a.store = repositories.NewCachedCatalogRepository(repositories.NewMongoCatalogRepository(db), a.responses)
	slog.Info("Using MongoDB catalog store", "database", a.cfg.MongodbDatabase)
	return nil
}

func (a *application) initServices() error {
	tidalCfg, ok := a.cfg.GetPlatformConfig("tidal")
	if !ok || !tidalCfg.Enabled {
		return fmt.Errorf("tidal is not configured: set TIDAL_CLIENT_ID and TIDAL_CLIENT_SECRET")
	}
	tidal, err := services.NewTidalService(tidalCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize tidal: %w", err)
	}
	if a.cfg.Matching != nil {
		tidal.SetMaxSearchPages(a.cfg.Matching.MaxSearchPages)
	}
	a.tidal = tidal

	mbCfg, ok := a.cfg.GetPlatformConfig("musicbrainz")
	if !ok {
		return fmt.Errorf("musicbrainz is not configured")
	}
	a.requester = services.NewJSONRequester(mbCfg.Name, mbCfg.UserAgent, mbCfg.RateLimit, a.responses, a.cfg.ResponseCacheTTL)
	metadata, err := services.NewMusicBrainzService(mbCfg, a.requester)
	if err != nil {
		return fmt.Errorf("failed to initialize musicbrainz: %w", err)
	}
	a.metadata = metadata
	return nil
}

// router builds the HTTP API over the application's components
func (a *application) router() *gin.Engine {
	tracks := handlers.NewTrackHandler(a.entities, a.enrichments, a.resolver, a.cfg.UseRealMax)
	admin := handlers.NewAdminHandler(a.store, a.database, a.requester.Requests, a.entities, a.enrichments, a.resolver)
	health := handlers.NewHealthHandler(a.healthChecks())
	return handlers.NewRouter(tracks, admin, health, a.cfg.JWTSecret)
}

func (a *application) healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"tidal":          a.tidal.Health,
		"response_cache": a.responses.Health,
	}
	if a.database != nil {
		checks["mongodb"] = func(ctx context.Context) error {
			return a.database.Client.Ping(ctx, nil)
		}
	}
	return checks
}

// Close releases connections in reverse order of acquisition
func (a *application) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

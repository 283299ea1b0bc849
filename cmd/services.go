package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/school-reports/internal/config"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/database/postgres"
	"github.com/kozaktomas/school-reports/internal/document"
	"github.com/kozaktomas/school-reports/internal/export"
	"github.com/kozaktomas/school-reports/internal/imageinfo"
	"github.com/kozaktomas/school-reports/internal/render"
	"github.com/rs/zerolog/log"
)

// services is the report pipeline shared by the serve and export commands.
type services struct {
	pool     *postgres.Pool
	fetcher  *imageinfo.Fetcher
	pipeline *document.Pipeline
	renderer *render.Renderer
	exporter *export.Exporter
	closers  []func() error
}

// Close releases browsers, cache connections and the database pool.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to release resource")
		}
	}
}

// connectDatabase opens PostgreSQL, applies migrations and registers the
// repositories with the database provider.
func connectDatabase(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Open(context.Background(), &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	postgres.RegisterRepositories(pool)
	return pool, nil
}

// classificationCache returns the in-process LRU, fronting Redis when REDIS_URL is set.
func classificationCache(cfg *config.Config) (imageinfo.Cache, func() error) {
	lru := imageinfo.NewLRU(cfg.Images.CacheSize)
	if cfg.Redis.URL == "" {
		return lru, nil
	}

	client, err := imageinfo.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.Warn().Err(err).Msg("redis disabled, using in-process image cache only")
		return lru, nil
	}
	log.Info().Str("addr", client.Options().Addr).Msg("shared image cache enabled")
	return imageinfo.NewTiered(lru, imageinfo.NewRedisCache(client, cfg.Images.CacheTTL)), client.Close
}

// buildServices wires the classifier, template resolver, renderer and export
// engines. The database must already be registered.
func buildServices(cfg *config.Config, pool *postgres.Pool, engineOverride string) (*services, error) {
	s := &services{pool: pool}
	if pool != nil {
		s.closers = append(s.closers, pool.Close)
	}

	templates, err := database.GetTemplateReader(context.Background())
	if err != nil {
		return nil, fmt.Errorf("template storage: %w", err)
	}

	cache, closeCache := classificationCache(cfg)
	if closeCache != nil {
		s.closers = append(s.closers, closeCache)
	}

	policy, err := imageinfo.NewAddressPolicy(cfg.Images.AllowedNetworks)
	if err != nil {
		return nil, err
	}
	s.fetcher = imageinfo.NewFetcher(imageinfo.NewHTTPClient(policy), cfg.Images.FetchTimeout, cfg.Images.MaxBytes)
	classifier := imageinfo.NewClassifier(s.fetcher, cache)
	classifier.SetConcurrency(cfg.Images.Concurrency)
	s.pipeline = document.NewPipeline(document.NewTemplateResolver(templates), classifier)

	s.renderer, err = render.New()
	if err != nil {
		return nil, fmt.Errorf("load document templates: %w", err)
	}

	chromium := export.NewChromiumEngine(s.renderer, cfg.Export.ChromePath, policy)
	s.closers = append(s.closers, chromium.Close)

	settings := export.Settings{Scale: cfg.Export.Scale, Quality: cfg.Export.Quality}.Normalized()
	s.exporter = export.NewExporter(settings, cfg.Export.Timeout, export.NewNativeEngine(s.fetcher), chromium)

	engine := cfg.Export.Engine
	if engineOverride != "" {
		engine = engineOverride
	}
	if err := s.exporter.SetDefaultEngine(engine); err != nil {
		if engineOverride != "" {
			return nil, err
		}
		log.Warn().Err(err).Str("engine", engine).Msg("falling back to the native export engine")
	}
	return s, nil
}

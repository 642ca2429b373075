package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bitharbor/internal/ann"
	"bitharbor/internal/cas"
	"bitharbor/internal/catalog"
	"bitharbor/internal/config"
	"bitharbor/internal/ingest"
	"bitharbor/internal/logging"
	"bitharbor/internal/search"
	"bitharbor/internal/services/embedder"
	"bitharbor/internal/services/internetarchive"
	"bitharbor/internal/services/tmdb"
	"bitharbor/internal/store"
	"bitharbor/internal/vector"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// environment bundles the wired services a command needs. Opening it
// acquires the index lock and runs startup reconciliation, so commands
// that only read configuration should not open one.
type environment struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *store.Store
	index        *ann.Service
	orchestrator *ingest.Orchestrator
	search       *search.Service
	catalog      *catalog.Service
}

func (c *commandContext) openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := ingest.Reconcile(ctx, st, logger); err != nil {
		st.Close()
		return nil, err
	}

	index, err := ann.Open(ctx, cfg, st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	embed := embedder.NewClient(
		cfg.Embedding.Endpoint,
		cfg.Embedding.Dimension,
		embedder.WithTimeout(time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second),
	)

	var enricher ingest.Enricher
	if cfg.TMDB.APIKey != "" {
		enricher = ingest.NewTMDBEnricher(tmdb.NewClient(
			cfg.TMDB.APIKey,
			tmdb.WithBaseURL(cfg.TMDB.BaseURL),
			tmdb.WithLanguage(cfg.TMDB.Language),
			tmdb.WithTimeout(time.Duration(cfg.TMDB.TimeoutSeconds)*time.Second),
		))
	}

	canon := vector.NewCanonicalizer(cfg.Embedding.Dimension)
	pool := cas.New(cfg.Paths.PoolDir)
	orchestrator := ingest.NewOrchestrator(cfg, st, pool, canon, index, embed, enricher, logger)

	archive := internetarchive.NewClient(internetarchive.WithBaseURL(cfg.Catalog.BaseURL))
	cache := catalog.NewMatchCache(time.Duration(cfg.Catalog.MatchTTLSeconds) * time.Second)
	catalogSvc := catalog.NewService(archive, cache, cfg.Catalog.SearchRows, cfg.Ingest.VideoExtensions, cfg.Ingest.ImageExtensions, cfg.Catalog.DownloadDir, logger)

	return &environment{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		index:        index,
		orchestrator: orchestrator,
		search:       search.NewService(index, st, embed, logger),
		catalog:      catalogSvc,
	}, nil
}

func (e *environment) close() error {
	indexErr := e.index.Close()
	storeErr := e.store.Close()
	if indexErr != nil {
		return indexErr
	}
	return storeErr
}

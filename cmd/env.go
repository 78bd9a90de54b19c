package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/cache"
	"github.com/volcanica/petro-cli/internal/catalog"
	"github.com/volcanica/petro-cli/internal/match"
	"github.com/volcanica/petro-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "petro.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initMigratedStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("catalog loaded",
		zap.String("path", path),
		zap.Int("volcanoes", cat.Len()),
	)
	return cat, nil
}

func newMatcher(cat *catalog.Catalog) *match.Matcher {
	return match.NewMatcher(cat,
		match.WithRadii(cfg.Match.InitialRadiusKM, cfg.Match.FloorRadiusKM, cfg.Match.StepKM),
		match.WithConcurrency(cfg.Match.Concurrency),
	)
}

func newAggregateCache() *cache.FileAggregateCache {
	return cache.NewFileAggregateCache(filepath.Join(cfg.Cache.Dir, "aggregated.csv"))
}

func newProfileCache() *cache.FileProfileCache {
	return cache.NewFileProfileCache(cfg.Cache.Dir)
}

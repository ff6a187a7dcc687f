// Package app wires configuration into the ingest, search and health services.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qaindex/internal/config"
	"github.com/kailas-cloud/qaindex/internal/db"
	dbRedis "github.com/kailas-cloud/qaindex/internal/db/redis"
	dbValkey "github.com/kailas-cloud/qaindex/internal/db/valkey"
	"github.com/kailas-cloud/qaindex/internal/domain"
	domcol "github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
	"github.com/kailas-cloud/qaindex/internal/domain/report"
	"github.com/kailas-cloud/qaindex/internal/domain/search/filter"
	"github.com/kailas-cloud/qaindex/internal/domain/search/result"
	"github.com/kailas-cloud/qaindex/internal/metrics"
	collectionrepo "github.com/kailas-cloud/qaindex/internal/repository/collection"
	"github.com/kailas-cloud/qaindex/internal/repository/embcache"
	qdrantrepo "github.com/kailas-cloud/qaindex/internal/repository/qdrant"
	openaiEmb "github.com/kailas-cloud/qaindex/internal/transport/openai"
	healthuc "github.com/kailas-cloud/qaindex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/qaindex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/qaindex/internal/usecase/search"
)

// backend is the vector collection capability every driver provides.
type backend interface {
	EnsureCollection(ctx context.Context, col domcol.Collection) (domcol.Collection, error)
	DeleteAll(ctx context.Context, col domcol.Collection) (domcol.ClearOutcome, error)
	Upsert(ctx context.Context, col domcol.Collection, points []qa.Point) error
	Count(ctx context.Context, col domcol.Collection) (int, error)
	Query(ctx context.Context, col domcol.Collection, vector []float32, k int, f filter.Expression) ([]result.Match, error)
	Sample(ctx context.Context, col domcol.Collection, limit int) ([]qa.Metadata, error)
	Ping(ctx context.Context) error
}

// App holds the services of one process.
type App struct {
	Collection domcol.Collection
	Database   report.Database
	Ingest     *ingestuc.Service
	Search     *searchuc.Service
	Health     *healthuc.Service

	close func()
}

// New connects to the configured backend, ensures the collection exists and
// builds the services. Connection failures carry domain.KindUnavailable.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	repo, kv, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, domain.WithKind(domain.KindUnavailable, err)
	}

	want, err := collectionFromConfig(cfg)
	if err != nil {
		closeFn()
		return nil, domain.WithKind(domain.KindInput, err)
	}
	col, err := repo.EnsureCollection(ctx, want)
	if err != nil {
		closeFn()
		return nil, domain.WithKind(domain.KindUnavailable, fmt.Errorf("ensure collection %s: %w", want.Name(), err))
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	var embedder domain.Embedder = base
	if kv != nil && cfg.Embedding.CacheEnabled {
		embedder = embcache.New(base, kv, metrics.EmbeddingCacheTotal, logger,
			embcache.WithModel(cfg.Embedding.Model),
			embcache.WithTTL(time.Duration(cfg.Embedding.CacheTTLSec)*time.Second))
	}

	database := report.Database{Driver: cfg.Database.Driver, Addresses: cfg.Database.Addrs}

	logger.Info("Collection ready",
		zap.String("collection", col.Name()),
		zap.Int("vector_dim", col.VectorDim()),
		zap.String("db_driver", database.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	return &App{
		Collection: col,
		Database:   database,
		Ingest: ingestuc.New(repo, withInstruction(embedder, cfg.Embedding.DocumentInstruction),
			col, database, logger, ingestuc.WithBatchSize(cfg.Index.MaxBatchSize)),
		Search: searchuc.New(repo, withInstruction(embedder, cfg.Embedding.QueryInstruction),
			col, database, cfg.Search.StatsSampleSize, logger),
		Health: healthuc.New(repo, base),
		close:  closeFn,
	}, nil
}

// Close releases the backend connection.
func (a *App) Close() {
	if a.close != nil {
		a.close()
	}
}

func openBackend(ctx context.Context, cfg config.Config) (backend, db.KVStore, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverQdrant:
		repo, err := qdrantrepo.New(cfg.Database.Addrs[0])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect qdrant: %w", err)
		}
		closeFn := func() { _ = repo.Close() }
		if err := waitForPing(ctx, repo, readiness(cfg)); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		return repo, nil, closeFn, nil

	case config.DriverValkey, config.DriverRedis:
		store, err := openStore(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.WaitForReady(ctx, readiness(cfg)); err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		idx, err := indexConfig(cfg.Index)
		if err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		return storeBackend{Repo: collectionrepo.New(store).WithIndex(idx), Pinger: store}, store, store.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openStore(cfg config.Config) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	if cfg.Database.Driver == config.DriverRedis {
		store, err = dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Database.Addrs, Password: cfg.Database.Password})
	} else {
		store, err = dbValkey.NewStore(dbValkey.Config{Addrs: cfg.Database.Addrs, Password: cfg.Database.Password})
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Database.Driver, err)
	}
	return store, nil
}

// storeBackend pairs the hash/FT repository with its store's ping.
type storeBackend struct {
	*collectionrepo.Repo
	db.Pinger
}

func readiness(cfg config.Config) time.Duration {
	return time.Duration(cfg.Database.ReadinessTimeout) * time.Second
}

// waitForPing polls p until it answers or timeout elapses.
func waitForPing(ctx context.Context, p db.Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		case <-ticker.C:
		}
	}
}

func indexConfig(c config.IndexConfig) (collectionrepo.IndexConfig, error) {
	var algo db.VectorAlgorithm
	switch c.Algorithm {
	case "hnsw":
		algo = db.VectorHNSW
	case "flat":
		algo = db.VectorFlat
	default:
		return collectionrepo.IndexConfig{}, fmt.Errorf("unknown index algorithm %q", c.Algorithm)
	}
	return collectionrepo.IndexConfig{Algorithm: algo, M: c.HNSWM, EFConstruct: c.HNSWEFConstruct}, nil
}

func collectionFromConfig(cfg config.Config) (domcol.Collection, error) {
	col, err := domcol.New(cfg.Collection.Name, cfg.Embedding.Dimensions,
		domcol.WithDescription(cfg.Collection.Description),
		domcol.WithVersion(cfg.Collection.Version),
		domcol.WithAssetClass(cfg.Collection.AssetClass),
	)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("collection config: %w", err)
	}
	return col, nil
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

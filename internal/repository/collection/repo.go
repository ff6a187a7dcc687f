// Package collection stores Q&A collections in Redis-compatible hashes
// behind an FT vector index.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/qaindex/internal/db"
	"github.com/kailas-cloud/qaindex/internal/domain"
	domcol "github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
	"github.com/kailas-cloud/qaindex/internal/domain/search/filter"
	"github.com/kailas-cloud/qaindex/internal/domain/search/result"
)

// store is the consumer interface for collections (ISP).
//
//nolint:interfacebloat // collection repo needs hash, index and search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the collection capability over a Redis-compatible store.
type Repo struct {
	store store
	index IndexConfig
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s, index: IndexConfig{Algorithm: db.VectorHNSW, M: 16, EFConstruct: 200}}
}

// WithIndex configures the vector index algorithm and parameters.
func (r *Repo) WithIndex(cfg IndexConfig) *Repo {
	if cfg.Algorithm != "" {
		r.index.Algorithm = cfg.Algorithm
	}
	if cfg.M > 0 {
		r.index.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.index.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureCollection returns the stored collection, creating its index and
// metadata hash when absent. A stored collection with a different vector
// dimension is an error.
func (r *Repo) EnsureCollection(ctx context.Context, col domcol.Collection) (domcol.Collection, error) {
	name := col.Name()

	m, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection %s: %w", name, err)
	}

	if len(m) > 0 {
		existing, err := collectionFromHash(m)
		if err != nil {
			return domcol.Collection{}, fmt.Errorf("parse collection %s: %w", name, err)
		}
		if existing.VectorDim() != col.VectorDim() {
			return domcol.Collection{}, fmt.Errorf("collection %s has dimension %d, want %d: %w",
				name, existing.VectorDim(), col.VectorDim(), domain.ErrVectorDimMismatch)
		}
		if err := r.ensureIndex(ctx, existing); err != nil {
			return domcol.Collection{}, err
		}
		return existing, nil
	}

	if err := r.ensureIndex(ctx, col); err != nil {
		return domcol.Collection{}, err
	}
	if err := r.store.HSet(ctx, metaKey(name), collectionToHash(col)); err != nil {
		// Rollback: drop the index we just created
		_ = r.store.DropIndex(ctx, indexName(name))
		return domcol.Collection{}, fmt.Errorf("store collection %s: %w", name, err)
	}
	return col, nil
}

func (r *Repo) ensureIndex(ctx context.Context, col domcol.Collection) error {
	exists, err := r.store.IndexExists(ctx, indexName(col.Name()))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(col.Name(), col.VectorDim(), r.index)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// DeleteAll removes every document of the collection. The collection itself
// and its index survive.
func (r *Repo) DeleteAll(ctx context.Context, col domcol.Collection) (domcol.ClearOutcome, error) {
	keys, err := r.store.Scan(ctx, collectionPrefix(col.Name())+"*")
	if err != nil {
		return "", fmt.Errorf("scan documents: %w", err)
	}
	if len(keys) == 0 {
		return domcol.NotFound, nil
	}
	if _, err := r.store.DelMulti(ctx, keys); err != nil {
		return "", fmt.Errorf("delete documents: %w", err)
	}
	return domcol.Cleared, nil
}

// Upsert writes points in one pipeline. Every vector must match the
// collection dimension; nothing is written otherwise.
func (r *Repo) Upsert(ctx context.Context, col domcol.Collection, points []qa.Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != col.VectorDim() {
			return fmt.Errorf("point %s has dimension %d, want %d: %w",
				p.ID, len(p.Vector), col.VectorDim(), domain.ErrVectorDimMismatch)
		}
		items = append(items, db.HashSetItem{Key: docKey(col.Name(), p.ID), Fields: pointToHash(p)})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context, col domcol.Collection) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(col.Name()), "*")
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Query returns up to k nearest documents ordered by ascending distance.
func (r *Repo) Query(
	ctx context.Context, col domcol.Collection, vector []float32, k int, f filter.Expression,
) ([]result.Match, error) {
	if len(vector) != col.VectorDim() {
		return nil, fmt.Errorf("query vector has dimension %d, want %d: %w",
			len(vector), col.VectorDim(), domain.ErrVectorDimMismatch)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(col.Name()),
		Filters:      f,
		Vector:       vector,
		K:            k,
		ReturnFields: append([]string{fieldContent}, metadataFields...),
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	prefix := collectionPrefix(col.Name())
	matches := make([]result.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		meta, err := metadataFromHash(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("corrupt document %s: %w", e.Key, err)
		}
		matches = append(matches, result.Match{
			ID:       strings.TrimPrefix(e.Key, prefix),
			Document: e.Fields[fieldContent],
			Metadata: meta,
			Distance: e.Score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	return matches, nil
}

// Sample returns metadata of up to limit documents in unspecified order.
func (r *Repo) Sample(ctx context.Context, col domcol.Collection, limit int) ([]qa.Metadata, error) {
	res, err := r.store.SearchList(ctx, indexName(col.Name()), "*", 0, limit, metadataFields)
	if err != nil {
		return nil, fmt.Errorf("sample documents: %w", err)
	}

	out := make([]qa.Metadata, 0, len(res.Entries))
	for _, e := range res.Entries {
		meta, err := metadataFromHash(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("corrupt document %s: %w", e.Key, err)
		}
		out = append(out, meta)
	}
	return out, nil
}

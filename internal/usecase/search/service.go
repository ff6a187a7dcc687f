// Package search answers query requests and collection stats.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qaindex/internal/domain"
	domcol "github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/report"
	"github.com/kailas-cloud/qaindex/internal/domain/search/request"
	"github.com/kailas-cloud/qaindex/internal/domain/search/result"
	"github.com/kailas-cloud/qaindex/internal/metrics"
)

// DefaultSampleSize bounds the records Stats reads for distinct values.
const DefaultSampleSize = 100

// Service runs the query and stats pipelines against one collection.
type Service struct {
	repo       Collection
	embed      Embedder
	col        domcol.Collection
	database   report.Database
	sampleSize int
	logger     *zap.Logger
}

// New creates a search service bound to col. sampleSize <= 0 selects DefaultSampleSize.
func New(
	repo Collection, embed Embedder, col domcol.Collection, database report.Database,
	sampleSize int, logger *zap.Logger,
) *Service {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Service{
		repo:       repo,
		embed:      embed,
		col:        col,
		database:   database,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

// Handle parses a raw request and dispatches it. The returned value is a
// []result.Result for searches and a report.Stats for stats.
func (s *Service) Handle(ctx context.Context, raw []byte) (any, error) {
	req, err := request.Parse(raw)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid", "error").Inc()
		return nil, domain.WithKind(domain.KindValidation, err)
	}
	if req.Action() == request.ActionStats {
		return s.Stats(ctx)
	}
	return s.Search(ctx, req)
}

// Search embeds the query, runs one similarity query and drops matches below
// the relevance threshold. Backend order is preserved.
func (s *Service) Search(ctx context.Context, req request.Request) ([]result.Result, error) {
	results, err := s.search(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(request.ActionSearch), status).Inc()
	return results, err
}

func (s *Service) search(ctx context.Context, req request.Request) ([]result.Result, error) {
	f, err := req.Filter()
	if err != nil {
		return nil, domain.WithKind(domain.KindValidation, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, domain.WithKind(domain.KindQuery, fmt.Errorf("embed query: %w", err))
	}

	matches, err := s.repo.Query(ctx, s.col, emb.Embedding, req.NResults(), f)
	if err != nil {
		return nil, domain.WithKind(domain.KindQuery, fmt.Errorf("query collection: %w", err))
	}

	results := result.Filter(matches, req.MinRelevance())
	if dropped := len(matches) - len(results); dropped > 0 {
		metrics.ResultsDroppedTotal.Add(float64(dropped))
	}

	s.logger.Debug("Search completed",
		zap.String("filter", f.String()),
		zap.Int("n_results", req.NResults()),
		zap.Int("matches", len(matches)),
		zap.Int("results", len(results)))
	return results, nil
}

// Stats returns the exact document count and the distinct categories and
// confidence levels seen in a bounded sample.
func (s *Service) Stats(ctx context.Context) (report.Stats, error) {
	stats, err := s.stats(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(request.ActionStats), status).Inc()
	return stats, err
}

func (s *Service) stats(ctx context.Context) (report.Stats, error) {
	count, err := s.repo.Count(ctx, s.col)
	if err != nil {
		return report.Stats{}, domain.WithKind(domain.KindQuery, fmt.Errorf("count documents: %w", err))
	}

	metas, err := s.repo.Sample(ctx, s.col, min(count, s.sampleSize))
	if err != nil {
		return report.Stats{}, domain.WithKind(domain.KindQuery, fmt.Errorf("sample documents: %w", err))
	}
	categories, confidences := report.Distinct(metas)

	return report.Stats{
		TotalDocuments:   count,
		Categories:       categories,
		ConfidenceLevels: confidences,
		Collection:       s.col.Name(),
		Database:         s.database,
	}, nil
}

// Package ingest loads a Q&A dataset into a vector collection.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/qaindex/internal/domain"
	domcol "github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/dataset"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
	"github.com/kailas-cloud/qaindex/internal/domain/report"
	"github.com/kailas-cloud/qaindex/internal/metrics"
)

// DefaultBatchSize bounds texts per embedding call.
const DefaultBatchSize = 100

// Service runs the projection pipeline against one collection.
type Service struct {
	repo      Collection
	embed     Embedder
	col       domcol.Collection
	database  report.Database
	batchSize int
	newID     func() string
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithIDGenerator replaces the fallback identifier generator.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// New creates an ingest service bound to col.
func New(
	repo Collection, embed Embedder, col domcol.Collection, database report.Database,
	logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		embed:     embed,
		col:       col,
		database:  database,
		batchSize: DefaultBatchSize,
		newID:     uuid.NewString,
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the collection contents with the dataset at path.
// Dataset and projection failures abort before any mutation.
func (s *Service) Load(ctx context.Context, path string) (report.Load, error) {
	start := time.Now()
	summary, err := s.load(ctx, path)
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		return report.Load{}, err
	}
	metrics.IngestRunsTotal.WithLabelValues("success").Inc()
	metrics.DocumentsIngestedTotal.Add(float64(summary.TotalDocuments))
	return summary, nil
}

func (s *Service) load(ctx context.Context, path string) (report.Load, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return report.Load{}, domain.WithKind(domain.KindInput, err)
	}

	docs, err := qa.ProjectAll(dataset.Flatten(ds), s.newID)
	if err != nil {
		return report.Load{}, domain.WithKind(domain.KindInput, fmt.Errorf("project dataset: %w", err))
	}
	s.logger.Info("Dataset projected",
		zap.String("path", path),
		zap.Int("categories", len(ds.Categories)),
		zap.Int("documents", len(docs)))

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	emb, err := domain.EmbedAll(ctx, s.embed, texts, s.batchSize)
	if err != nil {
		return report.Load{}, domain.WithKind(domain.KindUnavailable, fmt.Errorf("embed documents: %w", err))
	}
	s.logger.Debug("Documents embedded", zap.Int("tokens", emb.TotalTokens))

	outcome, err := s.repo.DeleteAll(ctx, s.col)
	if err != nil {
		s.logger.Warn("Failed to clear collection before load",
			zap.String("collection", s.col.Name()), zap.Error(err))
		outcome = domcol.NotFound
	}

	points := make([]qa.Point, len(docs))
	for i, d := range docs {
		points[i] = qa.Point{Document: d, Vector: emb.Embeddings[i]}
	}
	if err := s.repo.Upsert(ctx, s.col, points); err != nil {
		return report.Load{}, domain.WithKind(domain.KindMutation, fmt.Errorf("upsert documents: %w", err))
	}

	count, err := s.repo.Count(ctx, s.col)
	if err != nil {
		return report.Load{}, domain.WithKind(domain.KindMutation, fmt.Errorf("count documents: %w", err))
	}
	if count != len(docs) {
		return report.Load{}, domain.WithKind(domain.KindMutation,
			fmt.Errorf("collection holds %d documents after loading %d: %w", count, len(docs), domain.ErrCountMismatch))
	}

	metas := make([]qa.Metadata, len(docs))
	for i, d := range docs {
		metas[i] = d.Metadata
	}
	categories, confidences := report.Distinct(metas)

	s.logger.Info("Dataset loaded",
		zap.String("collection", s.col.Name()),
		zap.String("clear", string(outcome)),
		zap.Int("documents", count))

	return report.Load{
		Status:           report.StatusSuccess,
		TotalDocuments:   len(docs),
		CollectionCount:  count,
		Categories:       categories,
		ConfidenceLevels: confidences,
		Collection:       s.col.Name(),
		Clear:            outcome,
		Database:         s.database,
	}, nil
}

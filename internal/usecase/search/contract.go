package search

import (
	"context"

	"github.com/kailas-cloud/qaindex/internal/domain"
	domcol "github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
	"github.com/kailas-cloud/qaindex/internal/domain/search/filter"
	"github.com/kailas-cloud/qaindex/internal/domain/search/result"
)

// Collection is the storage contract for queries and stats.
type Collection interface {
	Query(ctx context.Context, col domcol.Collection, vector []float32, k int, f filter.Expression) ([]result.Match, error)
	Count(ctx context.Context, col domcol.Collection) (int, error)
	Sample(ctx context.Context, col domcol.Collection, limit int) ([]qa.Metadata, error)
}

// Embedder vectorizes query text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

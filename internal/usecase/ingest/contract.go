package ingest

import (
	"context"

	"github.com/kailas-cloud/qaindex/internal/domain"
	domcol "github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
)

// Collection is the storage contract a load needs.
type Collection interface {
	DeleteAll(ctx context.Context, col domcol.Collection) (domcol.ClearOutcome, error)
	Upsert(ctx context.Context, col domcol.Collection, points []qa.Point) error
	Count(ctx context.Context, col domcol.Collection) (int, error)
}

// Embedder vectorizes document texts.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

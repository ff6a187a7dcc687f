package collection

import (
	"fmt"

	"github.com/kailas-cloud/qaindex/internal/db"
	"github.com/kailas-cloud/qaindex/internal/domain"
)

// IndexConfig selects the vector index algorithm and its parameters.
type IndexConfig struct {
	Algorithm   db.VectorAlgorithm
	M           int
	EFConstruct int
}

// buildIndex creates the FT index over one collection's document hashes.
func buildIndex(name string, vectorDim int, cfg IndexConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(indexName(name)).
		Prefix(collectionPrefix(name)).
		Tag(tagFields...).
		Numeric(numericFields...)

	switch cfg.Algorithm {
	case db.VectorFlat:
		b = b.VectorFlat(fieldVector, vectorDim, db.DistanceCosine)
	case db.VectorHNSW, "":
		b = b.VectorHNSW(fieldVector, vectorDim, db.DistanceCosine, cfg.M, cfg.EFConstruct)
	default:
		return nil, fmt.Errorf("unknown vector algorithm %q", cfg.Algorithm)
	}

	return b.As("vector").Build()
}

// Key patterns: qaindex:collection:{name}, qaindex:{name}:idx, qaindex:{name}:{id}

func metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", domain.KeyPrefix, name)
}

func indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, name)
}

func collectionPrefix(name string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, name)
}

func docKey(name, id string) string {
	return collectionPrefix(name) + id
}

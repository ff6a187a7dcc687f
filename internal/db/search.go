package db

import "github.com/kailas-cloud/qaindex/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // query-side field name, "vector" when empty
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// For KNN queries Score is the raw __vector_score distance; lower is closer.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// VectorScoreField is the pseudo-field FT.SEARCH KNN results carry the distance in.
const VectorScoreField = "__vector_score"

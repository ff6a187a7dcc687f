package result

import "github.com/kailas-cloud/qaindex/internal/domain/qa"

// Match is one raw hit from a collection similarity query.
type Match struct {
	ID       string
	Document string
	Metadata qa.Metadata
	Distance float64
}

// Result is a scored hit returned to callers.
type Result struct {
	Document       string      `json:"document"`
	Metadata       qa.Metadata `json:"metadata"`
	Distance       float64     `json:"distance"`
	RelevanceScore float64     `json:"relevance_score"`
}

// Relevance maps a distance to max(0, 1 - distance).
func Relevance(distance float64) float64 {
	return max(0, 1-distance)
}

// Filter scores matches and drops those below minRelevance, keeping the
// collection's order. It never returns nil.
func Filter(matches []Match, minRelevance float64) []Result {
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		rel := Relevance(m.Distance)
		if rel < minRelevance {
			continue
		}
		out = append(out, Result{
			Document:       m.Document,
			Metadata:       m.Metadata,
			Distance:       m.Distance,
			RelevanceScore: rel,
		})
	}
	return out
}

// Package report defines the summaries returned by the ingest and stats pipelines.
package report

import (
	"github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
)

// StatusSuccess marks a completed load.
const StatusSuccess = "success"

// Database describes the backend a collection lives in.
type Database struct {
	Driver    string   `json:"driver"`
	Addresses []string `json:"addresses"`
}

// Load summarizes one ingest run.
type Load struct {
	Status           string                  `json:"status"`
	TotalDocuments   int                     `json:"total_documents"`
	CollectionCount  int                     `json:"collection_count"`
	Categories       []string                `json:"categories"`
	ConfidenceLevels []string                `json:"confidence_levels"`
	Collection       string                  `json:"collection"`
	Clear            collection.ClearOutcome `json:"clear"`
	Database         Database                `json:"database"`
}

// Stats summarizes collection contents. Categories and ConfidenceLevels come
// from a bounded sample and may be incomplete on large collections.
type Stats struct {
	TotalDocuments   int      `json:"total_documents"`
	Categories       []string `json:"categories"`
	ConfidenceLevels []string `json:"confidence_levels"`
	Collection       string   `json:"collection"`
	Database         Database `json:"database"`
}

// Distinct collects distinct category and confidence values in first-seen order.
// Both slices are non-nil.
func Distinct(metas []qa.Metadata) (categories, confidences []string) {
	categories, confidences = []string{}, []string{}
	seenCat := make(map[string]bool)
	seenConf := make(map[string]bool)
	for _, m := range metas {
		if !seenCat[m.Category] {
			seenCat[m.Category] = true
			categories = append(categories, m.Category)
		}
		if !seenConf[m.Confidence] {
			seenConf[m.Confidence] = true
			confidences = append(confidences, m.Confidence)
		}
	}
	return categories, confidences
}

package collection

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/qaindex/internal/db/redis"
	"github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
)

// Reserved hash fields next to the metadata fields.
const (
	fieldContent = "__content"
	fieldVector  = "__vector"
)

// Metadata hash fields by index type. Booleans are "true"/"false" TAG values.
var (
	tagFields = []string{
		"question_id", "confidence", "category", "asset_class", "dataset_version",
		qa.FlagRiskManagement, qa.FlagRegulatoryCompliance, qa.FlagCreditRisk,
		qa.FlagCapitalAllocation, qa.FlagLoanOrigination, qa.FlagStrategicPlanning,
	}
	numericFields  = []string{"sources_count", "followup_count"}
	storedOnly     = []string{"question", "category_description", "last_updated"}
	metadataFields = concat(tagFields, numericFields, storedOnly)
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// collectionToHash converts a domain Collection to a map for HSET.
func collectionToHash(col collection.Collection) map[string]string {
	return map[string]string{
		"name":        col.Name(),
		"description": col.Description(),
		"version":     col.Version(),
		"asset_class": col.AssetClass(),
		"vector_dim":  strconv.Itoa(col.VectorDim()),
		"created_at":  strconv.FormatInt(col.CreatedAt(), 10),
	}
}

// collectionFromHash hydrates a domain Collection from an HGETALL result map.
func collectionFromHash(m map[string]string) (collection.Collection, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
	}
	vectorDim, err := strconv.Atoi(m["vector_dim"])
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid vector_dim: %w", err)
	}
	return collection.Reconstruct(m["name"], m["description"], m["version"], m["asset_class"], vectorDim, createdAt), nil
}

// pointToHash flattens a point into HSET fields.
func pointToHash(p qa.Point) map[string]string {
	m := p.Metadata
	h := map[string]string{
		fieldContent:           p.Text,
		fieldVector:            redis.VectorToBytes(p.Vector),
		"question_id":          m.QuestionID,
		"question":             m.Question,
		"confidence":           m.Confidence,
		"category":             m.Category,
		"category_description": m.CategoryDescription,
		"asset_class":          m.AssetClass,
		"dataset_version":      m.DatasetVersion,
		"last_updated":         m.LastUpdated,
		"sources_count":        strconv.Itoa(m.SourcesCount),
		"followup_count":       strconv.Itoa(m.FollowupCount),
	}
	for k, v := range m.Flags() {
		h[k] = strconv.FormatBool(v)
	}
	return h
}

// metadataFromHash rebuilds metadata from hash fields. Absent fields stay zero;
// present but unparsable numbers or booleans are an error.
func metadataFromHash(h map[string]string) (qa.Metadata, error) {
	m := qa.Metadata{
		QuestionID:          h["question_id"],
		Question:            h["question"],
		Confidence:          h["confidence"],
		Category:            h["category"],
		CategoryDescription: h["category_description"],
		AssetClass:          h["asset_class"],
		DatasetVersion:      h["dataset_version"],
		LastUpdated:         h["last_updated"],
	}

	var err error
	if m.SourcesCount, err = atoiField(h, "sources_count"); err != nil {
		return qa.Metadata{}, err
	}
	if m.FollowupCount, err = atoiField(h, "followup_count"); err != nil {
		return qa.Metadata{}, err
	}
	for _, k := range qa.FlagKeys {
		v, ok := h[k]
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return qa.Metadata{}, fmt.Errorf("field %s: %w", k, err)
		}
		m.SetFlag(k, b)
	}
	return m, nil
}

func atoiField(h map[string]string, key string) (int, error) {
	v, ok := h[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return n, nil
}

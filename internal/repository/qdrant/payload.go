package qdrant

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/qaindex/internal/domain/qa"
	"github.com/kailas-cloud/qaindex/internal/domain/search/filter"
)

// Payload keys next to the metadata fields.
const (
	payloadID       = "id"
	payloadDocument = "document"
)

// filterableFields get keyword payload indexes; flags get bool indexes.
var filterableFields = []string{"question_id", "category", "confidence", "asset_class", "dataset_version"}

func str(s string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}} }
func num(n int) *pb.Value { return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}} }
func boolean(b bool) *pb.Value { return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: b}} }

func toPayload(d qa.Document) map[string]*pb.Value {
	m := d.Metadata
	p := map[string]*pb.Value{
		payloadID:              str(d.ID),
		payloadDocument:        str(d.Text),
		"question_id":          str(m.QuestionID),
		"question":             str(m.Question),
		"confidence":           str(m.Confidence),
		"category":             str(m.Category),
		"category_description": str(m.CategoryDescription),
		"asset_class":          str(m.AssetClass),
		"dataset_version":      str(m.DatasetVersion),
		"last_updated":         str(m.LastUpdated),
		"sources_count":        num(m.SourcesCount),
		"followup_count":       num(m.FollowupCount),
	}
	for k, v := range m.Flags() {
		p[k] = boolean(v)
	}
	return p
}

func fromPayload(p map[string]*pb.Value) qa.Document {
	m := qa.Metadata{
		QuestionID:          p["question_id"].GetStringValue(),
		Question:            p["question"].GetStringValue(),
		Confidence:          p["confidence"].GetStringValue(),
		Category:            p["category"].GetStringValue(),
		CategoryDescription: p["category_description"].GetStringValue(),
		AssetClass:          p["asset_class"].GetStringValue(),
		DatasetVersion:      p["dataset_version"].GetStringValue(),
		LastUpdated:         p["last_updated"].GetStringValue(),
		SourcesCount:        int(p["sources_count"].GetIntegerValue()),
		FollowupCount:       int(p["followup_count"].GetIntegerValue()),
	}
	for _, k := range qa.FlagKeys {
		m.SetFlag(k, p[k].GetBoolValue())
	}
	return qa.Document{
		ID:       p[payloadID].GetStringValue(),
		Text:     p[payloadDocument].GetStringValue(),
		Metadata: m,
	}
}

// toFilter returns nil for an empty expression so the search is unfiltered.
func toFilter(e filter.Expression) *pb.Filter {
	if e.IsEmpty() {
		return nil
	}
	must := make([]*pb.Condition, 0, len(e.Must()))
	for _, c := range e.Must() {
		must = append(must, fieldMatch(c))
	}
	return &pb.Filter{Must: must}
}

func fieldMatch(c filter.Condition) *pb.Condition {
	match := &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: c.Match()}}
	if c.IsBool() {
		match = &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: c.Bool()}}
	}
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   c.Key(),
				Match: match,
			},
		},
	}
}

// Package dataset parses the nested Q&A dataset document and flattens it
// into qa.Records.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/kailas-cloud/qaindex/internal/domain"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
)

// Metadata is the dataset-level metadata block.
type Metadata struct {
	Version     Scalar `json:"version"`
	AssetClass  Scalar `json:"assetClass"`
	LastUpdated Scalar `json:"lastUpdated"`
}

// Question is one source question record.
type Question struct {
	ID             Scalar          `json:"id"`
	Question       string          `json:"question"`
	Answer         string          `json:"answer"`
	Confidence     *string         `json:"confidence"`
	Sources        []string        `json:"sources"`
	FollowUp       []string        `json:"followUp"`
	BankingContext map[string]bool `json:"bankingContext"`
}

// Category groups questions under one category key.
type Category struct {
	Key         string     `json:"-"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Dataset is the parsed document. Categories keep their document order.
type Dataset struct {
	Metadata   Metadata
	Categories []Category
}

// Scalar accepts a JSON string, number or boolean and keeps its text.
// null decodes to "".
type Scalar string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = Scalar(t)
	case bool:
		*s = Scalar(strconv.FormatBool(t))
	case float64:
		*s = Scalar(string(bytes.TrimSpace(data)))
	default:
		return fmt.Errorf("expected scalar, got %s", bytes.TrimSpace(data))
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving category key order.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var raw struct {
		Metadata   Metadata        `json:"metadata"`
		Categories json.RawMessage `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cats, err := decodeCategories(raw.Categories)
	if err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	d.Metadata = raw.Metadata
	d.Categories = cats
	return nil
}

func decodeCategories(data json.RawMessage) ([]Category, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var cats []Category
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		var c Category
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("category %q: %w", key, err)
		}
		c.Key = key

		// A repeated key keeps its first position and its last value.
		if i, ok := index[key]; ok {
			cats[i] = c
			continue
		}
		index[key] = len(cats)
		cats = append(cats, c)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return cats, nil
}

// Parse decodes a dataset document.
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset: %w: %w", domain.ErrDatasetInvalid, err)
	}
	return ds, nil
}

// Load reads and parses the dataset file at path.
func Load(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w: %w", domain.ErrDatasetInvalid, err)
	}
	return Parse(data)
}

// Flatten pairs every question with its category and the dataset metadata,
// categories in document order then questions in stored order.
func Flatten(ds Dataset) []qa.Record {
	var out []qa.Record
	for _, c := range ds.Categories {
		for _, q := range c.Questions {
			confidence := qa.DefaultConfidence
			if q.Confidence != nil {
				confidence = *q.Confidence
			}
			out = append(out, qa.Record{
				ID:                  string(q.ID),
				Question:            q.Question,
				Answer:              q.Answer,
				Confidence:          confidence,
				Sources:             q.Sources,
				FollowUp:            q.FollowUp,
				Banking:             qa.BankingContextFromMap(q.BankingContext),
				Category:            c.Key,
				CategoryDescription: c.Description,
				DatasetVersion:      string(ds.Metadata.Version),
				AssetClass:          string(ds.Metadata.AssetClass),
				LastUpdated:         string(ds.Metadata.LastUpdated),
			})
		}
	}
	return out
}

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kailas-cloud/qaindex/internal/domain"
	"github.com/kailas-cloud/qaindex/internal/domain/qa"
	"github.com/kailas-cloud/qaindex/internal/domain/search/filter"
)

// Request limits and defaults.
const (
	DefaultNResults     = 5
	MaxNResults         = 100
	DefaultMinRelevance = 0.3
)

// Action selects the pipeline a request runs.
type Action string

const (
	// ActionSearch runs a similarity query.
	ActionSearch Action = "search"
	// ActionStats summarizes the collection.
	ActionStats Action = "stats"
)

const schemaJSON = `{
  "type": "object",
  "properties": {
    "action": {"type": "string", "enum": ["search", "stats"]},
    "query": {"type": "string"},
    "n_results": {"type": "integer", "minimum": 1, "maximum": 100},
    "min_relevance": {"type": "number", "minimum": 0, "maximum": 1},
    "category_filter": {"type": ["string", "null"]},
    "confidence_filter": {"type": ["string", "null"]},
    "banking_context_filter": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var schema = mustSchema(schemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("request schema: %v", err))
	}
	return sch
}

// Params is the wire form of a query request. Nil fields take defaults.
type Params struct {
	Action               Action   `json:"action,omitempty"`
	Query                *string  `json:"query,omitempty"`
	NResults             *int     `json:"n_results,omitempty"`
	MinRelevance         *float64 `json:"min_relevance,omitempty"`
	CategoryFilter       *string  `json:"category_filter,omitempty"`
	ConfidenceFilter     *string  `json:"confidence_filter,omitempty"`
	BankingContextFilter []string `json:"banking_context_filter,omitempty"`
}

// Request is a validated query request.
type Request struct {
	action       Action
	query        string
	nResults     int
	minRelevance float64
	category     string
	confidence   string
	banking      []string
}

// Parse validates raw JSON against the request schema, then decodes it.
// Every failure wraps domain.ErrInvalidRequest.
func Parse(raw []byte) (Request, error) {
	raw = bytes.TrimSpace(raw)
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Request{}, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(msgs, "; "))
	}

	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return New(p)
}

// New validates params and applies defaults: action=search, n_results=5,
// min_relevance=0.3. Search requests must carry a query, which may be empty.
func New(p Params) (Request, error) {
	r := Request{
		action:       p.Action,
		nResults:     DefaultNResults,
		minRelevance: DefaultMinRelevance,
	}
	if r.action == "" {
		r.action = ActionSearch
	}
	switch r.action {
	case ActionSearch, ActionStats:
	default:
		return Request{}, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, p.Action)
	}
	if r.action == ActionStats {
		return r, nil
	}

	if p.Query == nil {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	r.query = *p.Query

	if p.NResults != nil {
		if *p.NResults < 1 || *p.NResults > MaxNResults {
			return Request{}, fmt.Errorf("%w: n_results must be between 1 and %d", domain.ErrInvalidRequest, MaxNResults)
		}
		r.nResults = *p.NResults
	}
	if p.MinRelevance != nil {
		if *p.MinRelevance < 0 || *p.MinRelevance > 1 {
			return Request{}, fmt.Errorf("%w: min_relevance must be between 0 and 1", domain.ErrInvalidRequest)
		}
		r.minRelevance = *p.MinRelevance
	}
	if p.CategoryFilter != nil {
		r.category = *p.CategoryFilter
	}
	if p.ConfidenceFilter != nil {
		r.confidence = *p.ConfidenceFilter
	}
	r.banking = p.BankingContextFilter
	return r, nil
}

// Action returns the requested pipeline.
func (r Request) Action() Action { return r.action }

// Query returns the query text.
func (r Request) Query() string { return r.query }

// NResults returns the number of matches to request.
func (r Request) NResults() int { return r.nResults }

// MinRelevance returns the relevance threshold.
func (r Request) MinRelevance() float64 { return r.minRelevance }

// Filter builds the conjunction of the request's filters. Empty filter
// values are treated as unset.
func (r Request) Filter() (filter.Expression, error) {
	var conds []filter.Condition
	if r.category != "" {
		c, err := filter.NewMatch("category", r.category)
		if err != nil {
			return filter.Expression{}, err
		}
		conds = append(conds, c)
	}
	if r.confidence != "" {
		c, err := filter.NewMatch("confidence", r.confidence)
		if err != nil {
			return filter.Expression{}, err
		}
		conds = append(conds, c)
	}
	for _, name := range r.banking {
		c, err := filter.NewBool(qa.FlagKey(name), true)
		if err != nil {
			return filter.Expression{}, err
		}
		conds = append(conds, c)
	}
	expr, err := filter.And(conds...)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return expr, nil
}

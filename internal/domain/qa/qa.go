// Package qa holds the flattened Q&A record and its projection into an
// indexed document.
package qa

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/qaindex/internal/domain"
)

// MaxQuestionRunes bounds the question text stored in metadata.
const MaxQuestionRunes = 500

// DefaultConfidence is used when a source question carries no confidence.
const DefaultConfidence = "medium"

// Banking context flag keys as stored in metadata.
const (
	FlagRiskManagement       = "has_risk_management"
	FlagRegulatoryCompliance = "has_regulatory_compliance"
	FlagCreditRisk           = "has_credit_risk"
	FlagCapitalAllocation    = "has_capital_allocation"
	FlagLoanOrigination      = "has_loan_origination"
	FlagStrategicPlanning    = "has_strategic_planning"
)

// FlagKeys lists every banking context flag key in metadata order.
var FlagKeys = []string{
	FlagRiskManagement,
	FlagRegulatoryCompliance,
	FlagCreditRisk,
	FlagCapitalAllocation,
	FlagLoanOrigination,
	FlagStrategicPlanning,
}

// FlagKey derives the metadata key for a banking context name:
// "Credit Risk" -> "has_credit_risk".
func FlagKey(name string) string {
	return "has_" + strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// BankingContext is the set of named banking flags on a question.
type BankingContext struct {
	RiskManagement       bool
	RegulatoryCompliance bool
	CreditRisk           bool
	CapitalAllocation    bool
	LoanOrigination      bool
	StrategicPlanning    bool
}

// BankingContextFromMap reads the source camelCase keys; absent keys are false.
func BankingContextFromMap(m map[string]bool) BankingContext {
	return BankingContext{
		RiskManagement:       m["riskManagement"],
		RegulatoryCompliance: m["regulatoryCompliance"],
		CreditRisk:           m["creditRisk"],
		CapitalAllocation:    m["capitalAllocation"],
		LoanOrigination:      m["loanOrigination"],
		StrategicPlanning:    m["strategicPlanning"],
	}
}

// Record is one source question denormalized with its category and dataset metadata.
type Record struct {
	ID                  string
	Question            string
	Answer              string
	Confidence          string
	Sources             []string
	FollowUp            []string
	Banking             BankingContext
	Category            string
	CategoryDescription string
	DatasetVersion      string
	AssetClass          string
	LastUpdated         string
}

// Metadata is the flat metadata stored next to every indexed document.
// Every field is a string, integer or boolean.
type Metadata struct {
	QuestionID              string `json:"question_id"`
	Question                string `json:"question"`
	Confidence              string `json:"confidence"`
	Category                string `json:"category"`
	CategoryDescription     string `json:"category_description"`
	AssetClass              string `json:"asset_class"`
	DatasetVersion          string `json:"dataset_version"`
	LastUpdated             string `json:"last_updated"`
	SourcesCount            int    `json:"sources_count"`
	FollowupCount           int    `json:"followup_count"`
	HasRiskManagement       bool   `json:"has_risk_management"`
	HasRegulatoryCompliance bool   `json:"has_regulatory_compliance"`
	HasCreditRisk           bool   `json:"has_credit_risk"`
	HasCapitalAllocation    bool   `json:"has_capital_allocation"`
	HasLoanOrigination      bool   `json:"has_loan_origination"`
	HasStrategicPlanning    bool   `json:"has_strategic_planning"`
}

// Flags returns the banking flags keyed by metadata key.
func (m Metadata) Flags() map[string]bool {
	return map[string]bool{
		FlagRiskManagement:       m.HasRiskManagement,
		FlagRegulatoryCompliance: m.HasRegulatoryCompliance,
		FlagCreditRisk:           m.HasCreditRisk,
		FlagCapitalAllocation:    m.HasCapitalAllocation,
		FlagLoanOrigination:      m.HasLoanOrigination,
		FlagStrategicPlanning:    m.HasStrategicPlanning,
	}
}

// SetFlag sets a banking flag by metadata key. Unknown keys are ignored.
func (m *Metadata) SetFlag(key string, v bool) {
	switch key {
	case FlagRiskManagement:
		m.HasRiskManagement = v
	case FlagRegulatoryCompliance:
		m.HasRegulatoryCompliance = v
	case FlagCreditRisk:
		m.HasCreditRisk = v
	case FlagCapitalAllocation:
		m.HasCapitalAllocation = v
	case FlagLoanOrigination:
		m.HasLoanOrigination = v
	case FlagStrategicPlanning:
		m.HasStrategicPlanning = v
	}
}

// Document is an indexed document: searchable text, metadata and identifier.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Point is a document with its embedding, the unit of upsert.
type Point struct {
	Document
	Vector []float32
}

// Project builds the indexed document for r under identifier id.
func Project(r Record, id string) Document {
	text := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nCategory: %s\n\nSources: %s\n\nFollow-up Questions: %s",
		r.Question,
		r.Answer,
		r.CategoryDescription,
		strings.Join(r.Sources, ", "),
		strings.Join(r.FollowUp, ", "),
	)

	return Document{
		ID:   id,
		Text: strings.TrimSpace(text),
		Metadata: Metadata{
			QuestionID:              id,
			Question:                truncateRunes(r.Question, MaxQuestionRunes),
			Confidence:              r.Confidence,
			Category:                r.Category,
			CategoryDescription:     r.CategoryDescription,
			AssetClass:              r.AssetClass,
			DatasetVersion:          r.DatasetVersion,
			LastUpdated:             r.LastUpdated,
			SourcesCount:            len(r.Sources),
			FollowupCount:           len(r.FollowUp),
			HasRiskManagement:       r.Banking.RiskManagement,
			HasRegulatoryCompliance: r.Banking.RegulatoryCompliance,
			HasCreditRisk:           r.Banking.CreditRisk,
			HasCapitalAllocation:    r.Banking.CapitalAllocation,
			HasLoanOrigination:      r.Banking.LoanOrigination,
			HasStrategicPlanning:    r.Banking.StrategicPlanning,
		},
	}
}

// ProjectAll projects every record, giving records without an id one from newID.
// Any identifier shared by two records fails the whole batch.
func ProjectAll(records []Record, newID func() string) ([]Document, error) {
	docs := make([]Document, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, r := range records {
		id := r.ID
		if id == "" {
			id = newID()
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("record %d and %d share id %q: %w", prev, i, id, domain.ErrDuplicateID)
		}
		seen[id] = i
		docs = append(docs, Project(r, id))
	}
	return docs, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

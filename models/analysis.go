package models

import (
	"database/sql/driver"
	"encoding/json"
)

// NotFoundMarker is the literal value used when a requested data point is
// absent from the document.
const NotFoundMarker = "not found"

// ContractAnalysis is the normalized result of analyzing one contract.
// ExtractedData and DataSources are nil when no data points were requested;
// a requested but empty mapping marshals as {}.
type ContractAnalysis struct {
	ContractType               string            `json:"contractType"`
	EffectiveDate              string            `json:"effectiveDate"`
	RenewalDate                string            `json:"renewalDate"`
	NoticePeriodDays           int               `json:"noticePeriodDays"`
	TerminationClauseReference string            `json:"terminationClauseReference"`
	Summary                    string            `json:"summary,omitempty"`
	Parties                    []string          `json:"parties"`
	Alerts                     []string          `json:"alerts"`
	RiskScore                  int               `json:"riskScore"`
	AbusiveClauses             []string          `json:"abusiveClauses"`
	CustomAnswer               *string           `json:"customAnswer,omitempty"`
	ExtractedData              map[string]string `json:"extractedData,omitzero"`
	DataSources                map[string]string `json:"dataSources,omitzero"`
}

// Value implements driver.Valuer for JSONB
func (a ContractAnalysis) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB
func (a *ContractAnalysis) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// TaskPriority ranks a suggested task.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// TaskCategory identifies the rule that produced a task.
type TaskCategory string

const (
	CategoryHighRisk        TaskCategory = "high_risk_review"
	CategoryEvaluateTerms   TaskCategory = "evaluate_terms"
	CategoryAbusiveClauses  TaskCategory = "legal_review"
	CategoryUrgentRenewal   TaskCategory = "urgent_renewal"
	CategoryPrepareRenewal  TaskCategory = "prepare_renewal"
	CategoryReviewAlerts    TaskCategory = "review_alerts"
	CategoryTerminationTerm TaskCategory = "termination_review"
)

// SuggestedTask is a follow-up action derived from a ContractAnalysis.
type SuggestedTask struct {
	ID               string       `json:"id"`
	Category         TaskCategory `json:"category"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Priority         TaskPriority `json:"priority"`
	SuggestedDueDate string       `json:"suggestedDueDate"`
}

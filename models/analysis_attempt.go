package models

import (
	"database/sql/driver"
	"encoding/json"
)

// AttemptOutcome is the result of one model call inside the fallback chain.
type AttemptOutcome string

const (
	AttemptSucceeded  AttemptOutcome = "succeeded"
	AttemptRetryable  AttemptOutcome = "retryable_error"
	AttemptFatal      AttemptOutcome = "fatal_error"
	AttemptTimedOut   AttemptOutcome = "timed_out"
	AttemptParseError AttemptOutcome = "parse_error"
)

// AnalysisAttempt records one model call made while analyzing a contract.
type AnalysisAttempt struct {
	Model      string         `json:"model"`
	Outcome    AttemptOutcome `json:"outcome"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	BackoffMS  int64          `json:"backoff_ms,omitempty"`
}

// AnalysisAttempts is the ordered attempt log of one analysis
type AnalysisAttempts []AnalysisAttempt

// Value implements driver.Valuer for JSONB
func (a AnalysisAttempts) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]AnalysisAttempt{})
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB
func (a *AnalysisAttempts) Scan(value interface{}) error {
	if value == nil {
		*a = make(AnalysisAttempts, 0)
		return nil
	}

	// pgx may hand back JSONB as bytes or text
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*a = make(AnalysisAttempts, 0)
		return nil
	}

	if len(bytes) == 0 {
		*a = make(AnalysisAttempts, 0)
		return nil
	}

	return json.Unmarshal(bytes, a)
}

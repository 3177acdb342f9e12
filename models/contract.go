package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractStatus represents the review status of a contract
type ContractStatus string

const (
	ContractStatusAnalyzed ContractStatus = "analyzed"
	ContractStatusReviewed ContractStatus = "reviewed"
	ContractStatusArchived ContractStatus = "archived"
)

// Contract is a persisted analysis of one or more uploaded documents.
type Contract struct {
	ID        uuid.UUID      `json:"id"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	Status    ContractStatus `json:"status"`
	FileName  string         `json:"file_name"`
	Sector    string         `json:"sector,omitempty"`
	PageCount int            `json:"page_count"`

	// Which provider and model produced the analysis
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	Analysis ContractAnalysis `json:"analysis"`
	Attempts AnalysisAttempts `json:"attempts"`

	// Denormalized from Analysis for the renewal scan
	RiskScore   int        `json:"risk_score"`
	RenewalDate *time.Time `json:"renewal_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

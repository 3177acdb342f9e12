package models

import (
	"time"

	"github.com/google/uuid"
)

// File is an original uploaded document kept alongside a contract
type File struct {
	ID          uuid.UUID      `json:"id"`
	ContractID  uuid.UUID      `json:"contract_id"`
	UserID      *uuid.UUID     `json:"user_id,omitempty"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	Format      DetectedFormat `json:"format"`
	Size        int64          `json:"size"`
	StoragePath string         `json:"storage_path"`
	CreatedAt   time.Time      `json:"created_at"`
}

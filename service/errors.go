package service

import (
	"errors"
	"fmt"
	"strings"

	"helios-backend/models"
)

var (
	ErrNoModels           = errors.New("no models configured")
	ErrModelTimeout       = errors.New("model call timeout")
	ErrUnparseable        = errors.New("model response is not valid JSON")
	ErrGeneratorNotSet    = errors.New("ai generator not set")
	ErrExtractorNotSet    = errors.New("text extractor not set")
	ErrEngineNotSet       = errors.New("analysis engine not set")
	ErrContractNotFound   = errors.New("contract not found")
	ErrNoDocuments        = errors.New("at least one document is required")
	ErrFileTooLarge       = errors.New("file exceeds maximum size")
	ErrRepositoryNotSet   = errors.New("contract repository not set")
	ErrStorageUnavailable = errors.New("file storage not set")
)

// AnalysisError is returned when the fallback chain ends without a usable
// response. Attempts lists every model call that was made.
type AnalysisError struct {
	Attempts []models.AnalysisAttempt
	Err      error
}

func (e *AnalysisError) Error() string {
	tried := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		tried = append(tried, a.Model)
	}
	return fmt.Sprintf("analysis failed after %d attempt(s) [%s]: %v",
		len(e.Attempts), strings.Join(tried, ", "), e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

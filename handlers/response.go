package handlers

import (
	"context"
	"errors"
	"net/http"

	"helios-backend/extractor"
	"helios-backend/fileformat"
	"helios-backend/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// statusFor maps service errors to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var mismatch *fileformat.FormatMismatchError
	var extraction *extractor.ExtractionError
	var analysis *service.AnalysisError

	switch {
	case errors.As(err, &mismatch):
		return http.StatusBadRequest, "FORMAT_MISMATCH"
	case errors.Is(err, fileformat.ErrUnsupportedExtension):
		return http.StatusBadRequest, "INVALID_FILE_TYPE"
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusBadRequest, "FILE_TOO_LARGE"
	case errors.Is(err, service.ErrNoDocuments):
		return http.StatusBadRequest, "MISSING_FILE"
	case errors.Is(err, extractor.ErrInsufficientText):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_TEXT"
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity, "EXTRACTION_FAILED"
	case errors.Is(err, service.ErrContractNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &analysis):
		if errors.Is(err, context.Canceled) {
			return 499, "REQUEST_CANCELLED"
		}
		return http.StatusBadGateway, "ANALYSIS_FAILED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondServiceError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	_ = c.Error(err)
	respondError(c, status, code, message)
}

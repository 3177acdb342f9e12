package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"helios-backend/models"
	"helios-backend/repository"
	"helios-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FileLookup reads stored file records.
type FileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	ListByContractID(ctx context.Context, contractID uuid.UUID) ([]*models.File, error)
}

// FileHandler serves the stored originals of analyzed contracts
type FileHandler struct {
	files   FileLookup
	storage storage.Storage
}

// NewFileHandler creates a new file handler
func NewFileHandler(files FileLookup, storage storage.Storage) *FileHandler {
	return &FileHandler{
		files:   files,
		storage: storage,
	}
}

// ListContractFiles handles GET /api/contracts/:id/files
func (h *FileHandler) ListContractFiles(c *gin.Context) {
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid contract ID format")
		return
	}

	files, err := h.files.ListByContractID(c.Request.Context(), contractID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list files")
		return
	}
	if files == nil {
		files = []*models.File{}
	}
	respondOK(c, http.StatusOK, files)
}

// GetFile handles GET /api/files/:id
func (h *FileHandler) GetFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid file ID format")
		return
	}

	file, err := h.files.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "File not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load file record")
		return
	}

	// Download from storage
	reader, err := h.storage.Download(c.Request.Context(), file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Stored file is missing")
			return
		}
		respondError(c, http.StatusInternalServerError, "DOWNLOAD_FAILED",
			fmt.Sprintf("Failed to download file: %v", err))
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, nil)
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"helios-backend/fileformat"
	"helios-backend/models"
	"helios-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContractAnalyzer is the part of the contract service the handler calls.
type ContractAnalyzer interface {
	AnalyzeDocuments(ctx context.Context, req service.AnalyzeDocumentsRequest) (*service.AnalyzeDocumentsResult, error)
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListContracts(ctx context.Context, userID uuid.UUID) ([]*models.Contract, error)
	SuggestTasks(ctx context.Context, id uuid.UUID, locale string) ([]models.SuggestedTask, error)
}

// UserLookup resolves the plan and locale of a known user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ContractHandler handles HTTP requests for contract analysis
type ContractHandler struct {
	contracts   ContractAnalyzer
	users       UserLookup
	maxFileSize int64
	maxFiles    int
	log         *zap.Logger
}

// ContractHandlerOption is a functional option for ContractHandler
type ContractHandlerOption func(*ContractHandler)

// WithUserLookup enables plan and locale resolution for userId
func WithUserLookup(users UserLookup) ContractHandlerOption {
	return func(h *ContractHandler) {
		h.users = users
	}
}

// WithUploadLimits sets the per-file size limit and the number of files per request
func WithUploadLimits(maxFileSize int64, maxFiles int) ContractHandlerOption {
	return func(h *ContractHandler) {
		h.maxFileSize = maxFileSize
		h.maxFiles = maxFiles
	}
}

// WithHandlerLogger sets the logger
func WithHandlerLogger(log *zap.Logger) ContractHandlerOption {
	return func(h *ContractHandler) {
		h.log = log
	}
}

// NewContractHandler creates a new contract handler
func NewContractHandler(contracts ContractAnalyzer, opts ...ContractHandlerOption) *ContractHandler {
	h := &ContractHandler{
		contracts:   contracts,
		maxFileSize: 10 * 1024 * 1024, // 10MB
		maxFiles:    10,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AnalyzeResponse is the payload of a successful analysis.
type AnalyzeResponse struct {
	ID uuid.UUID `json:"id"`
	models.ContractAnalysis
	FileName  string                 `json:"fileName"`
	PageCount int                    `json:"pageCount"`
	Provider  string                 `json:"provider"`
	ModelUsed string                 `json:"modelUsed"`
	Tasks     []models.SuggestedTask `json:"suggestedTasks"`
	Truncated bool                   `json:"truncated"`
	Cached    bool                   `json:"cached"`
	Persisted bool                   `json:"persisted"`
}

// AnalyzeContract handles POST /api/contracts/analyze
func (h *ContractHandler) AnalyzeContract(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart form upload")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "At least one file is required")
		return
	}
	if h.maxFiles > 0 && len(headers) > h.maxFiles {
		respondError(c, http.StatusBadRequest, "TOO_MANY_FILES",
			fmt.Sprintf("At most %d files can be analyzed together", h.maxFiles))
		return
	}

	// Cheap checks on every file before reading any of them.
	for _, fh := range headers {
		if _, ok := fileformat.AllowedExtension(fh.Filename); !ok {
			respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE",
				fmt.Sprintf("File type not allowed for %q. Allowed types: %s",
					fh.Filename, strings.ToUpper(strings.Join(fileformat.AllowedExtensions(), ", "))))
			return
		}
		if fh.Size > h.maxFileSize {
			respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
				fmt.Sprintf("File %q exceeds maximum of %d bytes", fh.Filename, h.maxFileSize))
			return
		}
	}

	docs := make([]models.RawDocument, 0, len(headers))
	for _, fh := range headers {
		doc, err := h.readUpload(fh)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
			return
		}
		docs = append(docs, doc)
	}

	dataPoints, err := parseDataPoints(c.PostForm("dataPoints"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATA_POINTS", err.Error())
		return
	}

	req := service.AnalyzeDocumentsRequest{
		Documents:      docs,
		CustomQuestion: strings.TrimSpace(c.PostForm("customQuestion")),
		DataPoints:     dataPoints,
		Sector:         strings.TrimSpace(c.PostForm("sector")),
		Locale:         c.PostForm("locale"),
	}

	if userIDStr := c.PostForm("userId"); userIDStr != "" {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_USER_ID", "Invalid userId format")
			return
		}
		req.UserID = &userID
		h.applyUser(c.Request.Context(), &req)
	}

	result, err := h.contracts.AnalyzeDocuments(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("http.analyze.failed", zap.Int("files", len(docs)), zap.Error(err))
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, AnalyzeResponse{
		ID:               result.ContractID,
		ContractAnalysis: result.Analysis,
		FileName:         result.FileName,
		PageCount:        result.PageCount,
		Provider:         result.Provider,
		ModelUsed:        result.Model,
		Tasks:            result.Tasks,
		Truncated:        result.Truncated,
		Cached:           result.Cached,
		Persisted:        result.Persisted,
	})
}

func (h *ContractHandler) readUpload(fh *multipart.FileHeader) (models.RawDocument, error) {
	f, err := fh.Open()
	if err != nil {
		return models.RawDocument{}, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		return models.RawDocument{}, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	return models.RawDocument{
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// applyUser fills plan and, when the form has none, locale from the user
// record. Lookup failures leave the request on the standard tier.
func (h *ContractHandler) applyUser(ctx context.Context, req *service.AnalyzeDocumentsRequest) {
	if h.users == nil || req.UserID == nil {
		return
	}
	user, err := h.users.GetByID(ctx, *req.UserID)
	if err != nil {
		h.log.Warn("http.analyze.user_lookup_failed",
			zap.String("user_id", req.UserID.String()),
			zap.Error(err),
		)
		return
	}
	req.Plan = user.Plan
	if req.Locale == "" {
		req.Locale = user.Locale
	}
}

// parseDataPoints accepts a JSON array or a comma separated list.
func parseDataPoints(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var items []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("dataPoints must be a JSON array of strings: %w", err)
		}
	} else {
		items = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out, nil
}

// GetContract handles GET /api/contracts/:id
func (h *ContractHandler) GetContract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid contract ID format")
		return
	}

	contract, err := h.contracts.GetContract(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, contract)
}

// GetContractTasks handles GET /api/contracts/:id/tasks
func (h *ContractHandler) GetContractTasks(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid contract ID format")
		return
	}

	tasks, err := h.contracts.SuggestTasks(c.Request.Context(), id, c.DefaultQuery("locale", "en"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tasks)
}

// ListUserContracts handles GET /api/users/:id/contracts
func (h *ContractHandler) ListUserContracts(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID format")
		return
	}

	contracts, err := h.contracts.ListContracts(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if contracts == nil {
		contracts = []*models.Contract{}
	}
	respondOK(c, http.StatusOK, contracts)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"helios-backend/cache"
	"helios-backend/extractor"
	"helios-backend/fileformat"
	"helios-backend/metrics"
	"helios-backend/models"
	"helios-backend/repository"
	"helios-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentExtractor converts a verified document to text.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractedText, error)
}

// Analyzer runs an analysis request through the model chain.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*AnalysisOutcome, error)
}

// ContractStore persists analyzed contracts.
type ContractStore interface {
	Upsert(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Contract, error)
}

// FileStore records stored originals.
type FileStore interface {
	Create(ctx context.Context, file *models.File) error
}

// AnalysisCacher caches raw model responses.
type AnalysisCacher interface {
	Get(ctx context.Context, key string) (*cache.Entry, bool, error)
	Set(ctx context.Context, key string, e cache.Entry) error
	Delete(ctx context.Context, key string) error
}

// ContractService turns uploaded documents into analyzed contracts
type ContractService struct {
	extractor   DocumentExtractor
	analyzer    Analyzer
	resolver    *ModelResolver
	contracts   ContractStore
	files       FileStore
	storage     storage.Storage
	cache       AnalysisCacher
	maxFileSize int64
	maxChars    int
	minChars    int
	now         func() time.Time
	log         *zap.Logger
}

// ContractServiceOption is a functional option for ContractService
type ContractServiceOption func(*ContractService)

// WithExtractor sets the text extractor
func WithExtractor(e DocumentExtractor) ContractServiceOption {
	return func(s *ContractService) {
		s.extractor = e
	}
}

// WithAnalyzer sets the analysis engine
func WithAnalyzer(a Analyzer) ContractServiceOption {
	return func(s *ContractService) {
		s.analyzer = a
	}
}

// WithModelResolver sets the model resolver
func WithModelResolver(r *ModelResolver) ContractServiceOption {
	return func(s *ContractService) {
		s.resolver = r
	}
}

// WithContractRepository sets the contract repository
func WithContractRepository(repo ContractStore) ContractServiceOption {
	return func(s *ContractService) {
		s.contracts = repo
	}
}

// WithFileRepository sets the file repository
func WithFileRepository(repo FileStore) ContractServiceOption {
	return func(s *ContractService) {
		s.files = repo
	}
}

// WithStorage sets the storage for original documents
func WithStorage(st storage.Storage) ContractServiceOption {
	return func(s *ContractService) {
		s.storage = st
	}
}

// WithCache sets the analysis cache
func WithCache(c AnalysisCacher) ContractServiceOption {
	return func(s *ContractService) {
		s.cache = c
	}
}

// WithLimits sets the per-file size limit and the combined text bounds
func WithLimits(maxFileSize int64, maxChars, minChars int) ContractServiceOption {
	return func(s *ContractService) {
		s.maxFileSize = maxFileSize
		s.maxChars = maxChars
		s.minChars = minChars
	}
}

// WithClock sets the time source used for date defaults and due dates
func WithClock(now func() time.Time) ContractServiceOption {
	return func(s *ContractService) {
		s.now = now
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(log *zap.Logger) ContractServiceOption {
	return func(s *ContractService) {
		s.log = log
	}
}

// NewContractService creates a new contract service
func NewContractService(opts ...ContractServiceOption) *ContractService {
	s := &ContractService{
		maxFileSize: 10 << 20,
		maxChars:    extractor.MaxCombinedChars,
		minChars:    extractor.MinCombinedChars,
		now:         time.Now,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeDocumentsRequest represents one analysis submission
type AnalyzeDocumentsRequest struct {
	Documents      []models.RawDocument
	CustomQuestion string
	DataPoints     []string
	Sector         string
	Locale         string
	UserID         *uuid.UUID
	// Plan is resolved by the caller; the service never looks users up.
	Plan models.PlanTier
	// ModelOverride bypasses the resolver when set.
	ModelOverride string
}

// AnalyzeDocumentsResult represents the outcome of an analysis submission
type AnalyzeDocumentsResult struct {
	ContractID uuid.UUID
	Analysis   models.ContractAnalysis
	Tasks      []models.SuggestedTask
	FileName   string
	PageCount  int
	Provider   string
	Model      string
	Attempts   []models.AnalysisAttempt
	Truncated  bool
	Cached     bool
	Persisted  bool
}

// AnalyzeDocuments verifies, extracts and analyzes the submitted documents.
// Format and extraction problems are reported before any model is called.
func (s *ContractService) AnalyzeDocuments(ctx context.Context, req AnalyzeDocumentsRequest) (*AnalyzeDocumentsResult, error) {
	if s.extractor == nil {
		return nil, ErrExtractorNotSet
	}
	if s.analyzer == nil {
		return nil, ErrEngineNotSet
	}
	if len(req.Documents) == 0 {
		return nil, ErrNoDocuments
	}

	docs, totalSize, err := s.verify(req.Documents)
	if err != nil {
		metrics.AnalysisRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}

	texts := make([]models.ExtractedText, 0, len(docs))
	for _, doc := range docs {
		start := time.Now()
		text, err := s.extractor.Extract(ctx, doc)
		metrics.ExtractionDuration.WithLabelValues(string(doc.Format)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.AnalysisRequests.WithLabelValues("extraction_failed").Inc()
			return nil, err
		}
		texts = append(texts, *text)
	}

	combined, err := extractor.Combine(texts, s.maxChars, s.minChars)
	if err != nil {
		metrics.AnalysisRequests.WithLabelValues("insufficient_text").Inc()
		return nil, err
	}
	if combined.Truncated {
		s.log.Warn("analysis.text.truncated",
			zap.String("file", combined.FileName),
			zap.Int("original_chars", combined.OriginalChars),
			zap.Int("kept_chars", s.maxChars),
		)
	}

	modelID := req.ModelOverride
	if modelID == "" && s.resolver != nil {
		modelID = s.resolver.ForPlan(req.Plan, totalSize)
	}

	analysisReq := models.NewAnalysisRequest(combined.Text, req.CustomQuestion, req.DataPoints, modelID, req.Sector)
	outcome, cached, err := s.runAnalysis(ctx, analysisReq)
	if err != nil {
		metrics.AnalysisRequests.WithLabelValues("analysis_failed").Inc()
		return nil, err
	}

	now := s.now()
	analysis := Normalize(outcome.Raw, analysisReq, now)
	result := &AnalyzeDocumentsResult{
		ContractID: uuid.New(),
		Analysis:   analysis,
		Tasks:      GenerateTasks(analysis, req.Locale, now),
		FileName:   combined.FileName,
		PageCount:  combined.PageCount,
		Provider:   outcome.Provider,
		Model:      outcome.Model,
		Attempts:   outcome.Attempts,
		Truncated:  combined.Truncated,
		Cached:     cached,
	}

	result.Persisted = s.persist(ctx, req, docs, result)
	metrics.AnalysisRequests.WithLabelValues("succeeded").Inc()

	s.log.Info("analysis.completed",
		zap.String("contract_id", result.ContractID.String()),
		zap.String("model", result.Model),
		zap.String("provider", result.Provider),
		zap.Int("attempts", len(result.Attempts)),
		zap.Int("risk_score", analysis.RiskScore),
		zap.Bool("cached", cached),
		zap.Bool("persisted", result.Persisted),
	)
	return result, nil
}

// verify checks every file before any of them is extracted.
func (s *ContractService) verify(in []models.RawDocument) ([]models.RawDocument, int64, error) {
	docs := make([]models.RawDocument, 0, len(in))
	var total int64
	for _, doc := range in {
		if s.maxFileSize > 0 && doc.Size() > s.maxFileSize {
			return nil, 0, fmt.Errorf("%w: %q is %d bytes, limit %d", ErrFileTooLarge, doc.Filename, doc.Size(), s.maxFileSize)
		}
		format, err := fileformat.Verify(doc.Filename, doc.Data)
		if err != nil {
			s.log.Warn("analysis.file.rejected", zap.String("file", doc.Filename), zap.Error(err))
			return nil, 0, err
		}
		doc.Format = format
		if doc.MimeType == "" || doc.MimeType == "application/octet-stream" {
			doc.MimeType = fileformat.MimeType(format)
		}
		docs = append(docs, doc)
		total += doc.Size()
	}
	return docs, total, nil
}

func (s *ContractService) runAnalysis(ctx context.Context, req models.AnalysisRequest) (*AnalysisOutcome, bool, error) {
	if s.cache == nil {
		outcome, err := s.analyzer.Analyze(ctx, req)
		return outcome, false, err
	}

	key := cache.Key(req.Text, req.ModelID, req.CustomQuestion, req.Sector, req.DataPoints)
	entry, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("analysis.cache.get_failed", zap.Error(err))
		if errors.Is(err, cache.ErrCorruptEntry) {
			s.evict(ctx, key)
		}
	case ok && len(entry.Raw) == 0:
		// written without a model answer
		metrics.CacheLookups.WithLabelValues("stale").Inc()
		s.evict(ctx, key)
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &AnalysisOutcome{Raw: entry.Raw, Model: entry.Model, Provider: entry.Provider}, true, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	outcome, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, key, cache.Entry{Raw: outcome.Raw, Model: outcome.Model, Provider: outcome.Provider}); err != nil {
		s.log.Warn("analysis.cache.set_failed", zap.Error(err))
	}
	return outcome, false, nil
}

func (s *ContractService) evict(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("analysis.cache.evict_failed", zap.Error(err))
		return
	}
	s.log.Info("analysis.cache.evicted", zap.String("key", key))
}

// persist stores the contract and its originals. Failures are logged and
// reported through the return value; the analysis itself stands.
func (s *ContractService) persist(ctx context.Context, req AnalyzeDocumentsRequest, docs []models.RawDocument, res *AnalyzeDocumentsResult) bool {
	if s.contracts == nil {
		return false
	}

	contract := &models.Contract{
		ID:        res.ContractID,
		UserID:    req.UserID,
		Status:    models.ContractStatusAnalyzed,
		FileName:  res.FileName,
		Sector:    req.Sector,
		PageCount: res.PageCount,
		Provider:  res.Provider,
		ModelUsed: res.Model,
		Analysis:  res.Analysis,
		Attempts:  res.Attempts,
		RiskScore: res.Analysis.RiskScore,
	}
	if renewal, err := time.Parse(dateLayout, res.Analysis.RenewalDate); err == nil {
		contract.RenewalDate = &renewal
	}

	if err := s.contracts.Upsert(ctx, contract); err != nil {
		s.log.Error("analysis.persist.contract_failed",
			zap.String("contract_id", contract.ID.String()),
			zap.Error(err),
		)
		return false
	}

	if s.storage == nil || s.files == nil {
		return true
	}
	for _, doc := range docs {
		fileID := uuid.New()
		path, err := s.storage.Upload(ctx, contract.ID, fileID, doc.Filename, bytes.NewReader(doc.Data))
		if err != nil {
			s.log.Error("analysis.persist.upload_failed", zap.String("file", doc.Filename), zap.Error(err))
			continue
		}
		err = s.files.Create(ctx, &models.File{
			ID:          fileID,
			ContractID:  contract.ID,
			UserID:      req.UserID,
			Filename:    doc.Filename,
			MimeType:    doc.MimeType,
			Format:      doc.Format,
			Size:        doc.Size(),
			StoragePath: path,
		})
		if err != nil {
			s.log.Error("analysis.persist.file_record_failed", zap.String("file", doc.Filename), zap.Error(err))
			// Try to clean up uploaded file
			_ = s.storage.Delete(ctx, path)
		}
	}
	return true
}

// GetContract retrieves a stored contract
func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	if s.contracts == nil {
		return nil, ErrRepositoryNotSet
	}
	c, err := s.contracts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrContractNotFound
	}
	return c, err
}

// ListContracts retrieves the contracts of a user
func (s *ContractService) ListContracts(ctx context.Context, userID uuid.UUID) ([]*models.Contract, error) {
	if s.contracts == nil {
		return nil, ErrRepositoryNotSet
	}
	return s.contracts.ListByUserID(ctx, userID)
}

// SuggestTasks regenerates the follow-up tasks of a stored contract
func (s *ContractService) SuggestTasks(ctx context.Context, id uuid.UUID, locale string) ([]models.SuggestedTask, error) {
	c, err := s.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	return GenerateTasks(c.Analysis, locale, s.now()), nil
}

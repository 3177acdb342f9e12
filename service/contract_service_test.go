package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"helios-backend/cache"
	"helios-backend/extractor"
	"helios-backend/fileformat"
	"helios-backend/models"
	"helios-backend/repository"
	"helios-backend/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, doc models.RawDocument) (*models.ExtractedText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &models.ExtractedText{Filename: doc.Filename, Text: f.text, PageCount: 1}, nil
}

type memoryContracts struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*models.Contract
	err       error
}

func newMemoryContracts() *memoryContracts {
	return &memoryContracts{contracts: map[uuid.UUID]*models.Contract{}}
}

func (m *memoryContracts) Upsert(_ context.Context, c *models.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.contracts[c.ID] = c
	return nil
}

func (m *memoryContracts) GetByID(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (m *memoryContracts) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Contract
	for _, c := range m.contracts {
		if c.UserID != nil && *c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memoryFiles struct {
	mu    sync.Mutex
	files []*models.File
}

func (m *memoryFiles) Create(_ context.Context, f *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, f)
	return nil
}

var pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

const scenarioEndToEndJSON = `{
  "contractType": "Supply Agreement",
  "effectiveDate": "2026-02-01",
  "riskScore": 8,
  "abusiveClauses": ["clause X"],
  "extractedData": {"EffectiveDate": "2026-02-01"},
  "dataSources": {"EffectiveDate": "This agreement is effective as of 1 February 2026."}
}`

func newTestService(t *testing.T, gen *scriptedGenerator, ext *fakeExtractor, opts ...ContractServiceOption) *ContractService {
	t.Helper()
	engine := NewAnalysisEngine(gen,
		EngineWithConfig(testConfig("fallback")),
		EngineWithSleeper((&recordingSleeper{}).Sleep),
	)
	base := []ContractServiceOption{
		WithExtractor(ext),
		WithAnalyzer(engine),
		WithModelResolver(NewModelResolver("primary", "fast", 0, nil)),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewContractService(append(base, opts...)...)
}

func TestAnalyzeDocumentsEndToEnd(t *testing.T) {
	gen := newScriptedGenerator(map[string]scriptedReply{"primary": {text: scenarioEndToEndJSON}})
	ext := &fakeExtractor{text: strings.Repeat("a", 200)}

	contracts := newMemoryContracts()
	files := &memoryFiles{}
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := newTestService(t, gen, ext,
		WithContractRepository(contracts),
		WithFileRepository(files),
		WithStorage(local),
	)

	userID := uuid.New()
	res, err := svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{
		Documents:  []models.RawDocument{{Filename: "contract.pdf", Data: pdfBytes}},
		DataPoints: []string{"EffectiveDate"},
		UserID:     &userID,
		Plan:       models.PlanPro,
		Locale:     "en",
	})
	require.NoError(t, err)

	assert.Equal(t, 8, res.Analysis.RiskScore)
	assert.Equal(t, "2027-03-15", res.Analysis.RenewalDate)
	assert.Equal(t, "2026-02-01", res.Analysis.ExtractedData["EffectiveDate"])
	assert.Equal(t, "primary", res.Model)
	assert.Equal(t, "contract.pdf", res.FileName)
	assert.False(t, res.Cached)
	assert.True(t, res.Persisted)

	cats := categories(res.Tasks)
	assert.GreaterOrEqual(t, len(cats), 2)
	assert.Contains(t, cats, models.CategoryHighRisk)
	assert.Contains(t, cats, models.CategoryAbusiveClauses)

	stored, err := svc.GetContract(context.Background(), res.ContractID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusAnalyzed, stored.Status)
	require.NotNil(t, stored.RenewalDate)
	assert.Equal(t, "2027-03-15", stored.RenewalDate.Format("2006-01-02"))

	require.Len(t, files.files, 1)
	assert.Equal(t, models.FormatPDF, files.files[0].Format)
	assert.Equal(t, "application/pdf", files.files[0].MimeType)
	rc, err := local.Download(context.Background(), files.files[0].StoragePath)
	require.NoError(t, err)
	rc.Close()

	listed, err := svc.ListContracts(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	tasks, err := svc.SuggestTasks(context.Background(), res.ContractID, "en")
	require.NoError(t, err)
	assert.Equal(t, res.Tasks, tasks)
}

func TestAnalyzeDocumentsRejectsSignatureMismatch(t *testing.T) {
	gen := newScriptedGenerator(map[string]scriptedReply{"primary": {text: scenarioEndToEndJSON}})
	ext := &fakeExtractor{text: strings.Repeat("a", 200)}
	svc := newTestService(t, gen, ext)

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	_, err := svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{
		Documents: []models.RawDocument{
			{Filename: "ok.pdf", Data: pdfBytes},
			{Filename: "contract.pdf", Data: jpeg},
		},
	})

	var mismatch *fileformat.FormatMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, models.FormatUnknown, mismatch.Detected)
	assert.Empty(t, gen.Calls())
	assert.Zero(t, ext.calls)
}

func TestAnalyzeDocumentsRejectsInsufficientText(t *testing.T) {
	gen := newScriptedGenerator(map[string]scriptedReply{"primary": {text: scenarioEndToEndJSON}})
	ext := &fakeExtractor{text: "Too short to analyze."}
	svc := newTestService(t, gen, ext)

	_, err := svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{
		Documents: []models.RawDocument{{Filename: "contract.pdf", Data: pdfBytes}},
	})
	assert.ErrorIs(t, err, extractor.ErrInsufficientText)
	assert.Empty(t, gen.Calls())
}

func TestAnalyzeDocumentsValidation(t *testing.T) {
	gen := newScriptedGenerator(nil)
	ext := &fakeExtractor{text: strings.Repeat("a", 200)}

	svc := newTestService(t, gen, ext)
	_, err := svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{})
	assert.ErrorIs(t, err, ErrNoDocuments)

	svc = newTestService(t, gen, ext, WithLimits(16, extractor.MaxCombinedChars, extractor.MinCombinedChars))
	_, err = svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{
		Documents: []models.RawDocument{{Filename: "contract.pdf", Data: pdfBytes}},
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = NewContractService().AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{})
	assert.ErrorIs(t, err, ErrExtractorNotSet)
	assert.Empty(t, gen.Calls())
}

func TestAnalyzeDocumentsFreePlanUsesFastModel(t *testing.T) {
	gen := newScriptedGenerator(map[string]scriptedReply{
		"primary": {text: scenarioEndToEndJSON},
		"fast":    {text: scenarioEndToEndJSON},
	})
	svc := newTestService(t, gen, &fakeExtractor{text: strings.Repeat("a", 200)})

	res, err := svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{
		Documents: []models.RawDocument{{Filename: "contract.pdf", Data: pdfBytes}},
		Plan:      models.PlanFree,
	})
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Model)
	assert.False(t, res.Persisted)
}

func TestAnalyzeDocumentsUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	gen := newScriptedGenerator(map[string]scriptedReply{"primary": {text: scenarioEndToEndJSON}})
	svc := newTestService(t, gen, &fakeExtractor{text: strings.Repeat("a", 200)},
		WithCache(cache.NewAnalysisCache(client, time.Hour)),
	)

	req := AnalyzeDocumentsRequest{
		Documents: []models.RawDocument{{Filename: "contract.pdf", Data: pdfBytes}},
		Plan:      models.PlanPro,
	}
	first, err := svc.AnalyzeDocuments(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.AnalyzeDocuments(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Analysis, second.Analysis)
	assert.Equal(t, []string{"primary"}, gen.Calls())
}

func TestAnalyzeDocumentsEvictsUnusableCacheEntries(t *testing.T) {
	text := strings.Repeat("a", 200)
	key := cache.Key(text, "primary", "", "", nil)

	for name, stored := range map[string]string{
		"corrupt": "{not json",
		"empty":   `{"raw":null,"model":"primary","provider":"default"}`,
	} {
		t.Run(name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			require.NoError(t, mr.Set(key, stored))

			gen := newScriptedGenerator(map[string]scriptedReply{"primary": {text: scenarioEndToEndJSON}})
			svc := newTestService(t, gen, &fakeExtractor{text: text},
				WithCache(cache.NewAnalysisCache(client, time.Hour)),
			)

			res, err := svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{
				Documents: []models.RawDocument{{Filename: "contract.pdf", Data: pdfBytes}},
			})
			require.NoError(t, err)
			assert.False(t, res.Cached)
			assert.Equal(t, 8, res.Analysis.RiskScore)
			assert.Equal(t, []string{"primary"}, gen.Calls())

			replaced, err := mr.Get(key)
			require.NoError(t, err)
			assert.NotEqual(t, stored, replaced)
			assert.Contains(t, replaced, `"riskScore"`)
		})
	}
}

func TestAnalyzeDocumentsPersistFailureKeepsResult(t *testing.T) {
	gen := newScriptedGenerator(map[string]scriptedReply{"primary": {text: scenarioEndToEndJSON}})
	contracts := newMemoryContracts()
	contracts.err = errors.New("connection refused")

	svc := newTestService(t, gen, &fakeExtractor{text: strings.Repeat("a", 200)},
		WithContractRepository(contracts),
	)
	res, err := svc.AnalyzeDocuments(context.Background(), AnalyzeDocumentsRequest{
		Documents: []models.RawDocument{{Filename: "contract.pdf", Data: pdfBytes}},
	})
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Equal(t, 8, res.Analysis.RiskScore)
}

func TestGetContractNotFound(t *testing.T) {
	svc := NewContractService(WithContractRepository(newMemoryContracts()))
	_, err := svc.GetContract(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrContractNotFound)

	_, err = NewContractService().GetContract(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRepositoryNotSet)
}

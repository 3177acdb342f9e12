package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"helios-backend/extractor"
	"helios-backend/fileformat"
	"helios-backend/models"
	"helios-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	lastReq   service.AnalyzeDocumentsRequest
	calls     int
	result    *service.AnalyzeDocumentsResult
	err       error
	contracts map[uuid.UUID]*models.Contract
}

func (f *fakeAnalyzer) AnalyzeDocuments(_ context.Context, req service.AnalyzeDocumentsRequest) (*service.AnalyzeDocumentsResult, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeAnalyzer) GetContract(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, service.ErrContractNotFound
	}
	return c, nil
}

func (f *fakeAnalyzer) ListContracts(_ context.Context, _ uuid.UUID) ([]*models.Contract, error) {
	return nil, nil
}

func (f *fakeAnalyzer) SuggestTasks(_ context.Context, id uuid.UUID, locale string) ([]models.SuggestedTask, error) {
	if _, ok := f.contracts[id]; !ok {
		return nil, service.ErrContractNotFound
	}
	return []models.SuggestedTask{{ID: "high_risk-" + locale, Category: models.CategoryHighRisk}}, nil
}

type fakeUsers struct {
	user *models.User
}

func (f *fakeUsers) GetByID(_ context.Context, _ uuid.UUID) (*models.User, error) {
	if f.user == nil {
		return nil, errors.New("no rows")
	}
	return f.user, nil
}

type upload struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/contracts/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func serve(t *testing.T, h *ContractHandler, req *http.Request) (int, envelope) {
	t.Helper()
	r := NewRouter(zaptest.NewLogger(t), h, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

var pdfData = []byte("%PDF-1.4\nfake body")

func TestAnalyzeContractSuccess(t *testing.T) {
	contractID := uuid.New()
	fake := &fakeAnalyzer{result: &service.AnalyzeDocumentsResult{
		ContractID: contractID,
		Analysis:   models.ContractAnalysis{ContractType: "Lease", RiskScore: 8},
		FileName:   "a.pdf + b.pdf",
		PageCount:  3,
		Provider:   "gemini",
		Model:      "gemini-2.5-pro",
		Tasks:      []models.SuggestedTask{{ID: "high_risk-1", Category: models.CategoryHighRisk}},
		Persisted:  true,
	}}
	userID := uuid.New()
	h := NewContractHandler(fake, WithUserLookup(&fakeUsers{user: &models.User{Plan: models.PlanFree, Locale: "es"}}))

	req := multipartRequest(t,
		[]upload{{"a.pdf", pdfData}, {"b.pdf", pdfData}},
		map[string]string{
			"customQuestion": " Who pays? ",
			"dataPoints":     `["Monthly fee", "Deposit", "Monthly fee"]`,
			"sector":         "real estate",
			"userId":         userID.String(),
		},
	)
	status, env := serve(t, h, req)

	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, contractID.String(), data["id"])
	assert.Equal(t, "Lease", data["contractType"])
	assert.Equal(t, float64(8), data["riskScore"])
	assert.Equal(t, "a.pdf + b.pdf", data["fileName"])
	assert.Equal(t, "gemini-2.5-pro", data["modelUsed"])
	assert.Len(t, data["suggestedTasks"], 1)

	require.Equal(t, 1, fake.calls)
	assert.Len(t, fake.lastReq.Documents, 2)
	assert.Equal(t, "Who pays?", fake.lastReq.CustomQuestion)
	assert.Equal(t, []string{"Monthly fee", "Deposit"}, fake.lastReq.DataPoints)
	assert.Equal(t, "real estate", fake.lastReq.Sector)
	assert.Equal(t, models.PlanFree, fake.lastReq.Plan)
	assert.Equal(t, "es", fake.lastReq.Locale)
	require.NotNil(t, fake.lastReq.UserID)
	assert.Equal(t, userID, *fake.lastReq.UserID)
}

func TestAnalyzeContractRejectsBeforeService(t *testing.T) {
	tests := []struct {
		name   string
		files  []upload
		fields map[string]string
		code   string
	}{
		{"no files", nil, map[string]string{"sector": "x"}, "MISSING_FILE"},
		{"bad extension", []upload{{"notes.txt", []byte("hello")}}, nil, "INVALID_FILE_TYPE"},
		{"too large", []upload{{"big.pdf", bytes.Repeat([]byte("a"), 64)}}, nil, "FILE_TOO_LARGE"},
		{"bad user id", []upload{{"a.pdf", pdfData}}, map[string]string{"userId": "nope"}, "INVALID_USER_ID"},
		{"bad data points", []upload{{"a.pdf", pdfData}}, map[string]string{"dataPoints": "[1,"}, "INVALID_DATA_POINTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAnalyzer{}
			h := NewContractHandler(fake, WithUploadLimits(32, 5))

			status, env := serve(t, h, multipartRequest(t, tt.files, tt.fields))
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Error)
			assert.Zero(t, fake.calls)
		})
	}
}

func TestAnalyzeContractMapsServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&fileformat.FormatMismatchError{Filename: "a.pdf", Extension: "pdf", Detected: models.FormatUnknown}, http.StatusBadRequest, "FORMAT_MISMATCH"},
		{fmt.Errorf("%w: need at least 50 characters", extractor.ErrInsufficientText), http.StatusUnprocessableEntity, "INSUFFICIENT_TEXT"},
		{&extractor.ExtractionError{Filename: "a.pdf", Format: models.FormatPDF, Err: extractor.ErrNoText}, http.StatusUnprocessableEntity, "EXTRACTION_FAILED"},
		{&service.AnalysisError{Err: errors.New("503 overloaded")}, http.StatusBadGateway, "ANALYSIS_FAILED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewContractHandler(&fakeAnalyzer{err: tt.err})
			status, env := serve(t, h, multipartRequest(t, []upload{{"a.pdf", pdfData}}, nil))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, env.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestAnalyzeContractSignatureMismatchMessage(t *testing.T) {
	err := &fileformat.FormatMismatchError{Filename: "a.pdf", Extension: "pdf", Detected: models.FormatUnknown}
	h := NewContractHandler(&fakeAnalyzer{err: err})

	_, env := serve(t, h, multipartRequest(t, []upload{{"a.pdf", pdfData}}, nil))
	assert.Contains(t, env.Error, "security error: signature mismatch")
}

func TestGetContractAndTasks(t *testing.T) {
	id := uuid.New()
	fake := &fakeAnalyzer{contracts: map[uuid.UUID]*models.Contract{
		id: {ID: id, Status: models.ContractStatusAnalyzed},
	}}
	h := NewContractHandler(fake)

	status, env := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/contracts/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = serve(t, h, httptest.NewRequest(http.MethodGet, "/api/contracts/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	status, env = serve(t, h, httptest.NewRequest(http.MethodGet, "/api/contracts/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ID", env.Code)

	status, env = serve(t, h, httptest.NewRequest(http.MethodGet, "/api/contracts/"+id.String()+"/tasks?locale=es", nil))
	require.Equal(t, http.StatusOK, status)
	var tasks []models.SuggestedTask
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "high_risk-es", tasks[0].ID)

	status, env = serve(t, h, httptest.NewRequest(http.MethodGet, "/api/users/"+uuid.NewString()+"/contracts", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestParseDataPoints(t *testing.T) {
	got, err := parseDataPoints("Monthly fee, Deposit ,, Monthly fee")
	require.NoError(t, err)
	assert.Equal(t, []string{"Monthly fee", "Deposit"}, got)

	got, err = parseDataPoints("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseDataPoints(`["a", 1]`)
	assert.Error(t, err)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zaptest.NewLogger(t)))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

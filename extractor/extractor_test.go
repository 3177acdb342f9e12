package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"helios-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCXExtractor(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>SERVICE AGREEMENT</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">Party A </w:t></w:r><w:r><w:tab/><w:t>Party B</w:t></w:r></w:p>`)

	got, err := NewDOCXExtractor().Extract(context.Background(), models.RawDocument{Filename: "a.docx", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "SERVICE AGREEMENT\nParty A \tParty B\n", got.Text)
	assert.Equal(t, 1, got.PageCount)
	assert.Equal(t, "a.docx", got.Filename)
}

func TestDOCXExtractorEmptyBody(t *testing.T) {
	data := buildDocx(t, `<w:p></w:p>`)
	_, err := NewDOCXExtractor().Extract(context.Background(), models.RawDocument{Filename: "a.docx", Data: data})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestDOCXExtractorNotZip(t *testing.T) {
	_, err := NewDOCXExtractor().Extract(context.Background(), models.RawDocument{Filename: "a.docx", Data: []byte("PK not really")})
	assert.Error(t, err)
}

func TestCleanPDFText(t *testing.T) {
	in := "  Clause   1:\t\tPayment  \r\n\n\n\n  Clause 2:  Term \n"
	assert.Equal(t, "Clause 1: Payment\n\nClause 2: Term", CleanPDFText(in))
	assert.Equal(t, "", CleanPDFText(" \n\t\n "))
}

type fakeVision struct {
	text     string
	err      error
	mimeType string
}

func (f *fakeVision) Transcribe(ctx context.Context, image []byte, mimeType, modelID string) (string, error) {
	f.mimeType = mimeType
	return f.text, f.err
}

func TestImageExtractor(t *testing.T) {
	v := &fakeVision{text: "  scanned lease text  "}
	got, err := NewImageExtractor(v, "gemini-2.5-flash").Extract(context.Background(),
		models.RawDocument{Filename: "scan.png", Format: models.FormatPNG, MimeType: "application/octet-stream"})
	require.NoError(t, err)
	assert.Equal(t, "scanned lease text", got.Text)
	assert.Equal(t, "image/png", v.mimeType)

	v = &fakeVision{err: errors.New("503 service unavailable")}
	_, err = NewImageExtractor(v, "m").Extract(context.Background(), models.RawDocument{Filename: "scan.jpg", Format: models.FormatJPEG})
	assert.EqualError(t, err, "503 service unavailable")
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractedText, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ExtractedText{Filename: doc.Filename, Text: s.text, PageCount: 2}, nil
}

func TestRegistryWrapsErrors(t *testing.T) {
	r := NewRegistry(WithPDF(stubExtractor{err: ErrNoText}), WithLogger(zaptest.NewLogger(t)))

	_, err := r.Extract(context.Background(), models.RawDocument{Filename: "empty.pdf", Format: models.FormatPDF})
	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "empty.pdf", extractionErr.Filename)
	assert.ErrorIs(t, err, ErrNoText)
	assert.Contains(t, err.Error(), "empty.pdf")
}

func TestRegistryRejectsUnroutableFormats(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), models.RawDocument{Filename: "x.png", Format: models.FormatPNG})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.Extract(context.Background(), models.RawDocument{Filename: "x.doc", Format: models.FormatLegacyDOC})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCombine(t *testing.T) {
	long := strings.Repeat("a", 60)

	t.Run("single file has no header", func(t *testing.T) {
		c, err := Combine([]models.ExtractedText{{Filename: "a.pdf", Text: long, PageCount: 3}}, MaxCombinedChars, MinCombinedChars)
		require.NoError(t, err)
		assert.Equal(t, long, c.Text)
		assert.Equal(t, "a.pdf", c.FileName)
		assert.Equal(t, 3, c.PageCount)
		assert.False(t, c.Truncated)
	})

	t.Run("multiple files keep order", func(t *testing.T) {
		c, err := Combine([]models.ExtractedText{
			{Filename: "first.pdf", Text: "one " + long, PageCount: 1},
			{Filename: "second.docx", Text: "two", PageCount: 1},
		}, MaxCombinedChars, MinCombinedChars)
		require.NoError(t, err)
		first := strings.Index(c.Text, FileHeader("first.pdf"))
		second := strings.Index(c.Text, FileHeader("second.docx"))
		assert.Equal(t, 0, first)
		assert.Greater(t, second, first)
		assert.Equal(t, "first.pdf + second.docx", c.FileName)
		assert.Equal(t, 2, c.PageCount)
	})

	t.Run("truncates on rune boundary", func(t *testing.T) {
		c, err := Combine([]models.ExtractedText{{Filename: "a.pdf", Text: strings.Repeat("é", 80)}}, 60, 10)
		require.NoError(t, err)
		assert.True(t, c.Truncated)
		assert.Equal(t, 80, c.OriginalChars)
		assert.Equal(t, strings.Repeat("é", 60), c.Text)
	})

	t.Run("insufficient text", func(t *testing.T) {
		_, err := Combine([]models.ExtractedText{{Filename: "a.pdf", Text: "   too short   "}}, MaxCombinedChars, MinCombinedChars)
		assert.ErrorIs(t, err, ErrInsufficientText)

		_, err = Combine(nil, MaxCombinedChars, MinCombinedChars)
		assert.ErrorIs(t, err, ErrInsufficientText)
	})

	t.Run("file headers do not count toward the minimum", func(t *testing.T) {
		_, err := Combine([]models.ExtractedText{
			{Filename: "first-long-contract-name.pdf", Text: "aaaaa"},
			{Filename: "second-long-contract-name.pdf", Text: "bbbbb"},
		}, MaxCombinedChars, MinCombinedChars)
		assert.ErrorIs(t, err, ErrInsufficientText)

		c, err := Combine([]models.ExtractedText{
			{Filename: "first.pdf", Text: strings.Repeat("a", 25)},
			{Filename: "second.pdf", Text: strings.Repeat("b", 25)},
		}, MaxCombinedChars, MinCombinedChars)
		require.NoError(t, err)
		assert.Contains(t, c.Text, FileHeader("second.pdf"))
	})
}

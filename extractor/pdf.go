package extractor

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"helios-backend/models"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document/parser"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\r]+`)
	paragraphBreaks = regexp.MustCompile(`\n{3,}`)
)

// PDFExtractor reads text layers of PDF documents page by page.
type PDFExtractor struct {
	parser parser.Parser
}

// NewPDFExtractor creates a PDF extractor backed by the eino PDF parser.
func NewPDFExtractor(ctx context.Context) (*PDFExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return nil, err
	}
	return &PDFExtractor{parser: p}, nil
}

// Extract implements Extractor.
func (e *PDFExtractor) Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractedText, error) {
	docs, err := e.parser.Parse(ctx, bytes.NewReader(doc.Data), parser.WithURI(doc.Filename))
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		pages = append(pages, d.Content)
	}

	text := CleanPDFText(strings.Join(pages, "\n\n"))
	if text == "" {
		return nil, ErrNoText
	}

	pageCount := len(pages)
	if pageCount == 0 {
		pageCount = 1
	}
	return &models.ExtractedText{
		Filename:  doc.Filename,
		Text:      text,
		PageCount: pageCount,
	}, nil
}

// CleanPDFText collapses runs of horizontal whitespace, trims every line and
// reduces three or more consecutive newlines to a single paragraph break.
func CleanPDFText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = paragraphBreaks.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

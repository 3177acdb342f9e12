// Package extractor turns uploaded documents into plain text.
package extractor

import (
	"context"
	"errors"
	"fmt"

	"helios-backend/models"

	"go.uber.org/zap"
)

var (
	ErrNoText            = errors.New("no usable text")
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// ExtractionError names the file whose text could not be recovered.
type ExtractionError struct {
	Filename string
	Format   models.DetectedFormat
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %q (%s): %v", e.Filename, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor converts one document to text.
type Extractor interface {
	Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractedText, error)
}

// Registry dispatches documents to the extractor for their detected format.
type Registry struct {
	pdf   Extractor
	docx  Extractor
	image Extractor
	log   *zap.Logger
}

// RegistryOption is a functional option for Registry
type RegistryOption func(*Registry)

// WithPDF sets the PDF extractor
func WithPDF(e Extractor) RegistryOption {
	return func(r *Registry) {
		r.pdf = e
	}
}

// WithDOCX sets the DOCX extractor
func WithDOCX(e Extractor) RegistryOption {
	return func(r *Registry) {
		r.docx = e
	}
}

// WithImage sets the image OCR extractor
func WithImage(e Extractor) RegistryOption {
	return func(r *Registry) {
		r.image = e
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry creates a registry. DOCX extraction is always available.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		docx: NewDOCXExtractor(),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extract routes doc by its already-verified format. Every failure is an
// *ExtractionError naming the file.
func (r *Registry) Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractedText, error) {
	var e Extractor
	switch {
	case doc.Format == models.FormatPDF:
		e = r.pdf
	case doc.Format == models.FormatDOCX:
		e = r.docx
	case doc.Format.IsImage():
		e = r.image
	}
	if e == nil {
		return nil, &ExtractionError{Filename: doc.Filename, Format: doc.Format, Err: ErrUnsupportedFormat}
	}

	text, err := e.Extract(ctx, doc)
	if err != nil {
		var extractionErr *ExtractionError
		if errors.As(err, &extractionErr) {
			return nil, err
		}
		return nil, &ExtractionError{Filename: doc.Filename, Format: doc.Format, Err: err}
	}

	r.log.Debug("extract.done",
		zap.String("file", doc.Filename),
		zap.String("format", string(doc.Format)),
		zap.Int("chars", len(text.Text)),
		zap.Int("pages", text.PageCount),
	)
	return text, nil
}

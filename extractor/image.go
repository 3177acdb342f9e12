package extractor

import (
	"context"
	"strings"

	"helios-backend/ai"
	"helios-backend/fileformat"
	"helios-backend/models"
)

// ImageExtractor transcribes scanned pages through a vision model.
type ImageExtractor struct {
	vision  ai.VisionGenerator
	modelID string
}

// NewImageExtractor creates an OCR extractor using modelID.
func NewImageExtractor(vision ai.VisionGenerator, modelID string) *ImageExtractor {
	return &ImageExtractor{vision: vision, modelID: modelID}
}

// Extract implements Extractor. Provider errors are returned unchanged.
func (e *ImageExtractor) Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractedText, error) {
	if e.vision == nil {
		return nil, ai.ErrClientNotSet
	}

	mimeType := doc.MimeType
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = fileformat.MimeType(doc.Format)
	}

	text, err := e.vision.Transcribe(ctx, doc.Data, mimeType, e.modelID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}

	return &models.ExtractedText{
		Filename:  doc.Filename,
		Text:      text,
		PageCount: 1,
	}, nil
}

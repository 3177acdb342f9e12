package models

// DetectedFormat is the format a document's leading bytes identify it as.
type DetectedFormat string

const (
	FormatPDF       DetectedFormat = "PDF"
	FormatDOCX      DetectedFormat = "DOCX"
	FormatLegacyDOC DetectedFormat = "LEGACY_DOC"
	FormatJPEG      DetectedFormat = "JPEG"
	FormatPNG       DetectedFormat = "PNG"
	FormatWEBP      DetectedFormat = "WEBP"
	FormatUnknown   DetectedFormat = "UNKNOWN"
)

// IsImage reports whether the format is routed to vision OCR.
func (f DetectedFormat) IsImage() bool {
	return f == FormatJPEG || f == FormatPNG || f == FormatWEBP
}

// RawDocument is one uploaded file held in memory for the duration of a request.
type RawDocument struct {
	Filename string
	MimeType string
	Data     []byte
	Format   DetectedFormat
}

// Size returns the document size in bytes.
func (d RawDocument) Size() int64 {
	return int64(len(d.Data))
}

// ExtractedText is the plain text recovered from one RawDocument.
type ExtractedText struct {
	Filename  string
	Text      string
	PageCount int
}

// AnalysisRequest is the immutable input of one AI analysis.
type AnalysisRequest struct {
	Text           string
	CustomQuestion string
	DataPoints     []string
	ModelID        string
	Sector         string
}

// NewAnalysisRequest builds a request, copying the data point list so later
// changes by the caller do not leak into an in-flight analysis.
func NewAnalysisRequest(text, customQuestion string, dataPoints []string, modelID, sector string) AnalysisRequest {
	points := make([]string, 0, len(dataPoints))
	points = append(points, dataPoints...)
	return AnalysisRequest{
		Text:           text,
		CustomQuestion: customQuestion,
		DataPoints:     points,
		ModelID:        modelID,
		Sector:         sector,
	}
}

// HasCustomQuestion reports whether the caller asked a free-text question.
func (r AnalysisRequest) HasCustomQuestion() bool {
	return r.CustomQuestion != ""
}

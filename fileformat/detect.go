// Package fileformat identifies uploaded documents by their leading bytes and
// rejects files whose content disagrees with their declared extension.
package fileformat

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"helios-backend/models"
)

var (
	pdfSignature     = []byte("%PDF-")
	zipLocalHeader   = []byte{'P', 'K', 0x03, 0x04}
	zipEndOfDir      = []byte{'P', 'K', 0x05, 0x06}
	zipSpanned       = []byte{'P', 'K', 0x07, 0x08}
	zipLenient       = []byte{'P', 'K'}
	oleSignature     = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	jpegSignature    = []byte{0xFF, 0xD8, 0xFF}
	pngSignature     = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	riffSignature    = []byte("RIFF")
	webpFormatMarker = []byte("WEBP")
)

// minSignatureLen is the shortest buffer that can be classified.
const minSignatureLen = 4

var (
	// ErrUnsupportedExtension is returned for files outside the upload allow-list.
	ErrUnsupportedExtension = errors.New("unsupported file extension")
)

// FormatMismatchError reports a file whose bytes contradict its extension.
type FormatMismatchError struct {
	Filename  string
	Extension string
	Detected  models.DetectedFormat
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("security error: signature mismatch for %q (extension %s, detected %s)",
		e.Filename, e.Extension, e.Detected)
}

// allowed maps each accepted extension to the formats its bytes may sniff as.
var allowed = map[string]models.DetectedFormat{
	"pdf":  models.FormatPDF,
	"docx": models.FormatDOCX,
	"jpg":  models.FormatJPEG,
	"jpeg": models.FormatJPEG,
	"png":  models.FormatPNG,
	"webp": models.FormatWEBP,
}

// DetectFormat classifies a document by its magic number as PDF, DOCX,
// LEGACY_DOC or UNKNOWN. It never fails; unrecognised or short buffers,
// images included, are FormatUnknown.
func DetectFormat(b []byte) models.DetectedFormat {
	if len(b) < minSignatureLen {
		return models.FormatUnknown
	}

	switch {
	case bytes.HasPrefix(b, pdfSignature):
		return models.FormatPDF
	case bytes.HasPrefix(b, zipLocalHeader),
		bytes.HasPrefix(b, zipEndOfDir),
		bytes.HasPrefix(b, zipSpanned),
		bytes.HasPrefix(b, zipLenient):
		return models.FormatDOCX
	case bytes.HasPrefix(b, oleSignature):
		return models.FormatLegacyDOC
	}
	return models.FormatUnknown
}

// detectImage recognises the image containers accepted for OCR. It is only
// consulted for image extensions.
func detectImage(b []byte) models.DetectedFormat {
	switch {
	case bytes.HasPrefix(b, jpegSignature):
		return models.FormatJPEG
	case bytes.HasPrefix(b, pngSignature):
		return models.FormatPNG
	case len(b) >= 12 && bytes.HasPrefix(b, riffSignature) && bytes.Equal(b[8:12], webpFormatMarker):
		return models.FormatWEBP
	}
	return models.FormatUnknown
}

// Extension returns the lower-case extension of filename without the dot.
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// AllowedExtension reports whether filename carries an accepted extension.
func AllowedExtension(filename string) (string, bool) {
	ext := Extension(filename)
	_, ok := allowed[ext]
	return ext, ok
}

// AllowedExtensions lists the accepted extensions in a stable order.
func AllowedExtensions() []string {
	return []string{"pdf", "docx", "jpg", "jpeg", "png", "webp"}
}

// Verify sniffs b and checks it against the extension of filename.
func Verify(filename string, b []byte) (models.DetectedFormat, error) {
	ext, ok := AllowedExtension(filename)
	if !ok {
		return models.FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedExtension, filename)
	}

	want := allowed[ext]
	var detected models.DetectedFormat
	if want.IsImage() {
		detected = detectImage(b)
	} else {
		detected = DetectFormat(b)
	}
	if detected != want {
		return detected, &FormatMismatchError{
			Filename:  filename,
			Extension: ext,
			Detected:  detected,
		}
	}
	return detected, nil
}

// MimeType returns the canonical content type for a detected format.
func MimeType(f models.DetectedFormat) string {
	switch f {
	case models.FormatPDF:
		return "application/pdf"
	case models.FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case models.FormatLegacyDOC:
		return "application/msword"
	case models.FormatJPEG:
		return "image/jpeg"
	case models.FormatPNG:
		return "image/png"
	case models.FormatWEBP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

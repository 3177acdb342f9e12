package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"helios-backend/models"
)

const docxBodyPart = "word/document.xml"

// maxDocxBodySize bounds the decompressed document body.
const maxDocxBodySize = 64 << 20

// DOCXExtractor reads the main document part of an Office Open XML file.
type DOCXExtractor struct{}

// NewDOCXExtractor creates a DOCX extractor.
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

// Extract implements Extractor. The text is returned as found, one line per
// paragraph.
func (e *DOCXExtractor) Extract(ctx context.Context, doc models.RawDocument) (*models.ExtractedText, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("missing %s", docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	text, err := docxText(io.LimitReader(rc, maxDocxBodySize))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}

	return &models.ExtractedText{
		Filename:  doc.Filename,
		Text:      text,
		PageCount: docxPageCount(text),
	}, nil
}

// docxText walks WordprocessingML tokens collecting run text.
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

// docxPageCount estimates pages since DOCX carries no fixed layout.
func docxPageCount(text string) int {
	const charsPerPage = 3000
	n := (len(text) + charsPerPage - 1) / charsPerPage
	if n < 1 {
		return 1
	}
	return n
}

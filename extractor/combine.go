package extractor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"helios-backend/models"
)

const (
	// MaxCombinedChars bounds the text handed to the model. Anything past
	// this many runes is dropped.
	MaxCombinedChars = 50000

	// MinCombinedChars is the least trimmed text worth analyzing.
	MinCombinedChars = 50
)

var ErrInsufficientText = errors.New("insufficient text")

// Combined is the concatenated text of every file in a submission.
type Combined struct {
	Text      string
	FileName  string
	PageCount int
	Truncated bool
	// OriginalChars is the rune count before truncation.
	OriginalChars int
}

// FileHeader is the separator line placed before each file's text.
func FileHeader(filename string) string {
	return fmt.Sprintf("=== FILE: %s ===", filename)
}

// Combine joins texts in input order, truncates to maxChars runes and rejects
// submissions whose extracted text is shorter than minChars runes. File
// headers do not count toward the minimum.
func Combine(texts []models.ExtractedText, maxChars, minChars int) (*Combined, error) {
	if len(texts) == 0 {
		return nil, ErrInsufficientText
	}

	var (
		b     strings.Builder
		names = make([]string, 0, len(texts))
		pages int
		chars int
	)
	for i, t := range texts {
		if len(texts) > 1 {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(FileHeader(t.Filename))
			b.WriteString("\n")
		}
		b.WriteString(t.Text)
		chars += utf8.RuneCountInString(strings.TrimSpace(t.Text))
		names = append(names, t.Filename)
		pages += t.PageCount
	}

	if chars < minChars {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrInsufficientText, minChars)
	}

	c := &Combined{
		Text:      b.String(),
		FileName:  strings.Join(names, " + "),
		PageCount: pages,
	}
	c.OriginalChars = utf8.RuneCountInString(c.Text)
	if maxChars > 0 && c.OriginalChars > maxChars {
		c.Text = truncateRunes(c.Text, maxChars)
		c.Truncated = true
	}
	return c, nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

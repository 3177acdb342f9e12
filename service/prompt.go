package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"helios-backend/models"
)

const analystInstruction = `You are an expert legal analyst specialised in commercial contracts.
Read the contract below and extract structured information about it.`

const outputSchema = `Respond with a JSON object with exactly these fields:
{
  "contractType": string,              // e.g. "Service Agreement", "Lease"
  "effectiveDate": "YYYY-MM-DD",
  "renewalDate": "YYYY-MM-DD",
  "noticePeriodDays": number,
  "terminationClauseReference": string, // clause number or short quote
  "summary": string,                    // two or three sentences
  "parties": [string],
  "alerts": [string],                   // deadlines, penalties, unusual obligations
  "riskScore": number,                  // 1 (low) to 10 (high)
  "abusiveClauses": [string]            // clauses that are unfair to our client
}
Write every text value in the same language as the contract.`

// BuildPrompt assembles the analysis prompt for req.
func BuildPrompt(req models.AnalysisRequest) string {
	var b strings.Builder
	b.WriteString(analystInstruction)
	b.WriteString("\n\n")
	b.WriteString(outputSchema)
	b.WriteString("\n")

	if req.Sector != "" {
		fmt.Fprintf(&b, "\nThe contract belongs to the %q sector; weigh risks accordingly.\n", req.Sector)
	}

	if len(req.DataPoints) > 0 {
		b.WriteString("\nAlso include these two objects:\n")
		b.WriteString(`"extractedData": { "<data point>": "<value found in the contract>" },` + "\n")
		b.WriteString(`"dataSources": { "<data point>": "<verbatim quote from the contract supporting the value>" }` + "\n")
		fmt.Fprintf(&b, "Use %q as both value and quote when a data point is not in the contract.\n", models.NotFoundMarker)
		b.WriteString("Data points:\n")
		for _, dp := range req.DataPoints {
			fmt.Fprintf(&b, "- %s\n", dp)
		}
	}

	if req.HasCustomQuestion() {
		b.WriteString("\nAnswer this question about the contract in a field named \"customAnswer\":\n")
		b.WriteString(req.CustomQuestion)
		b.WriteString("\n")
	}

	b.WriteString("\nCONTRACT:\n\"\"\"\n")
	b.WriteString(req.Text)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("Return ONLY the JSON object. No prose, no markdown.")
	return b.String()
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ParseModelJSON decodes a model response into a JSON object, falling back to
// the first fenced code block when the whole text is not JSON.
func ParseModelJSON(text string) (map[string]any, error) {
	var out map[string]any
	err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out)
	if err == nil && out != nil {
		return out, nil
	}

	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		if err == nil {
			err = errors.New("response is not a JSON object")
		}
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	out = nil
	if err := json.Unmarshal([]byte(m[1]), &out); err != nil || out == nil {
		if err == nil {
			err = errors.New("fenced block is not a JSON object")
		}
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return out, nil
}

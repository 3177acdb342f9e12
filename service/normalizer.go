package service

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"helios-backend/models"
)

const (
	dateLayout = "2006-01-02"

	DefaultContractType      = "Unknown"
	DefaultTerminationClause = "Standard Termination Clause"
	DefaultNoticePeriodDays  = 30
	DefaultRiskScore         = 5
	DefaultCustomAnswer      = "No answer could be determined from the document."

	minRiskScore = 1
	maxRiskScore = 10
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Normalize converts an untyped model response into a ContractAnalysis.
// It never fails: every missing or malformed field gets a default.
func Normalize(raw map[string]any, req models.AnalysisRequest, now time.Time) models.ContractAnalysis {
	a := models.ContractAnalysis{
		ContractType:               stringOr(raw["contractType"], DefaultContractType),
		EffectiveDate:              dateOr(raw["effectiveDate"], now),
		RenewalDate:                dateOr(raw["renewalDate"], now.AddDate(1, 0, 0)),
		NoticePeriodDays:           noticePeriod(raw["noticePeriodDays"]),
		TerminationClauseReference: stringOr(raw["terminationClauseReference"], DefaultTerminationClause),
		Summary:                    stringOr(raw["summary"], ""),
		Parties:                    stringList(raw["parties"]),
		Alerts:                     stringList(raw["alerts"]),
		RiskScore:                  riskScore(raw["riskScore"]),
		AbusiveClauses:             stringList(raw["abusiveClauses"]),
		ExtractedData:              stringMap(raw["extractedData"]),
		DataSources:                stringMap(raw["dataSources"]),
	}

	if req.HasCustomQuestion() {
		answer := stringOr(raw["customAnswer"], DefaultCustomAnswer)
		a.CustomAnswer = &answer
	}
	return a
}

func stringOr(v any, def string) string {
	s, ok := v.(string)
	if !ok {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// dateOr accepts only strict YYYY-MM-DD strings naming a real calendar day.
func dateOr(v any, def time.Time) string {
	s, ok := v.(string)
	if ok {
		s = strings.TrimSpace(s)
		if isoDate.MatchString(s) {
			if _, err := time.Parse(dateLayout, s); err == nil {
				return s
			}
		}
	}
	return def.Format(dateLayout)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func noticePeriod(v any) int {
	n, ok := number(v)
	if !ok || n < 0 {
		return DefaultNoticePeriodDays
	}
	return int(math.Round(n))
}

func riskScore(v any) int {
	n, ok := number(v)
	if !ok {
		return DefaultRiskScore
	}
	score := int(math.Round(n))
	if score < minRiskScore {
		return minRiskScore
	}
	if score > maxRiskScore {
		return maxRiskScore
	}
	return score
}

// stringList keeps the non-empty string elements of an array. Anything that
// is not an array yields an empty list.
func stringList(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// stringMap passes an object through as string values. Absent or non-object
// input returns nil so the field is omitted.
func stringMap(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		switch x := val.(type) {
		case string:
			out[k] = x
		case nil:
			out[k] = models.NotFoundMarker
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}

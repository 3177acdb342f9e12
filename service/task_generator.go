package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"helios-backend/models"
)

type taskText struct {
	highRiskTitle, highRiskDesc             string
	evaluateTitle, evaluateDesc             string
	abusiveTitle, abusiveDesc               string
	urgentRenewalTitle, urgentRenewalDesc   string
	prepareRenewalTitle, prepareRenewalDesc string
	alertsTitle, alertsDesc                 string
	terminationTitle, terminationDesc       string
}

var taskTexts = map[string]taskText{
	"en": {
		highRiskTitle:       "Review high-risk contract",
		highRiskDesc:        "Risk score %d/10. Have legal counsel review this contract before signing or renewing.",
		evaluateTitle:       "Evaluate contract terms",
		evaluateDesc:        "Risk score %d/10. Evaluate the terms that may need renegotiation.",
		abusiveTitle:        "Urgent legal review",
		abusiveDesc:         "%d potentially abusive clause(s) detected. Request an urgent legal review.",
		urgentRenewalTitle:  "Urgent contract renewal",
		urgentRenewalDesc:   "The contract renews on %s, in %d day(s). Decide now whether to renew or terminate.",
		prepareRenewalTitle: "Prepare contract renewal",
		prepareRenewalDesc:  "The contract renews on %s, in %d day(s). Start preparing the renewal.",
		alertsTitle:         "Review contract alerts",
		alertsDesc:          "The analysis raised %d alerts that need attention.",
		terminationTitle:    "Review termination conditions",
		terminationDesc:     "Termination clause: %s. Notice period: %d day(s).",
	},
	"es": {
		highRiskTitle:       "Revisar contrato de alto riesgo",
		highRiskDesc:        "Puntuación de riesgo %d/10. Un abogado debe revisar este contrato antes de firmarlo o renovarlo.",
		evaluateTitle:       "Evaluar términos del contrato",
		evaluateDesc:        "Puntuación de riesgo %d/10. Evalúe los términos que podrían renegociarse.",
		abusiveTitle:        "Revisión legal urgente",
		abusiveDesc:         "Se detectaron %d cláusula(s) potencialmente abusiva(s). Solicite una revisión legal urgente.",
		urgentRenewalTitle:  "Renovación urgente del contrato",
		urgentRenewalDesc:   "El contrato se renueva el %s, en %d día(s). Decida ahora si renovar o rescindir.",
		prepareRenewalTitle: "Preparar renovación del contrato",
		prepareRenewalDesc:  "El contrato se renueva el %s, en %d día(s). Empiece a preparar la renovación.",
		alertsTitle:         "Revisar alertas del contrato",
		alertsDesc:          "El análisis generó %d alertas que requieren atención.",
		terminationTitle:    "Revisar condiciones de rescisión",
		terminationDesc:     "Cláusula de rescisión: %s. Plazo de preaviso: %d día(s).",
	},
}

// textsFor resolves a locale such as "es-MX" to its message set, defaulting
// to English.
func textsFor(locale string) taskText {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if t, ok := taskTexts[lang]; ok {
		return t
	}
	return taskTexts["en"]
}

// GenerateTasks derives follow-up tasks from an analysis. Rules are applied
// in a fixed order and the output depends only on its arguments, so the same
// analysis on the same day always yields the same list.
func GenerateTasks(a models.ContractAnalysis, locale string, now time.Time) []models.SuggestedTask {
	t := textsFor(locale)
	today := truncateDay(now)
	key := analysisKey(a)
	tasks := make([]models.SuggestedTask, 0, 4)

	add := func(cat models.TaskCategory, prio models.TaskPriority, dueInDays int, title, desc string) {
		tasks = append(tasks, models.SuggestedTask{
			ID:               fmt.Sprintf("%s-%s", cat, key),
			Category:         cat,
			Title:            title,
			Description:      desc,
			Priority:         prio,
			SuggestedDueDate: today.AddDate(0, 0, dueInDays).Format(dateLayout),
		})
	}

	switch {
	case a.RiskScore >= 7:
		add(models.CategoryHighRisk, models.PriorityHigh, 3, t.highRiskTitle, fmt.Sprintf(t.highRiskDesc, a.RiskScore))
	case a.RiskScore >= 4:
		add(models.CategoryEvaluateTerms, models.PriorityMedium, 7, t.evaluateTitle, fmt.Sprintf(t.evaluateDesc, a.RiskScore))
	}

	if n := len(a.AbusiveClauses); n > 0 {
		add(models.CategoryAbusiveClauses, models.PriorityHigh, 2, t.abusiveTitle, fmt.Sprintf(t.abusiveDesc, n))
	}

	if renewal, err := time.ParseInLocation(dateLayout, a.RenewalDate, today.Location()); err == nil {
		days := daysBetween(today, renewal)
		switch {
		case days > 0 && days <= 30:
			add(models.CategoryUrgentRenewal, models.PriorityHigh, 1, t.urgentRenewalTitle,
				fmt.Sprintf(t.urgentRenewalDesc, a.RenewalDate, days))
		case days > 30 && days <= 60:
			add(models.CategoryPrepareRenewal, models.PriorityMedium, 7, t.prepareRenewalTitle,
				fmt.Sprintf(t.prepareRenewalDesc, a.RenewalDate, days))
		}
	}

	if n := len(a.Alerts); n >= 2 {
		add(models.CategoryReviewAlerts, models.PriorityMedium, 5, t.alertsTitle, fmt.Sprintf(t.alertsDesc, n))
	}

	if a.TerminationClauseReference != "" {
		add(models.CategoryTerminationTerm, models.PriorityLow, 14, t.terminationTitle,
			fmt.Sprintf(t.terminationDesc, a.TerminationClauseReference, a.NoticePeriodDays))
	}

	return tasks
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, both at midnight.
func daysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Round(time.Hour).Hours() / 24)
}

// analysisKey is a short stable fingerprint used in task IDs.
func analysisKey(a models.ContractAnalysis) string {
	b, _ := json.Marshal(a)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:4])
}

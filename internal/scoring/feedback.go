package scoring

import (
	"fmt"

	"keytrace-go/internal/models"
)

// Feedback is the pedagogical layer generated after scoring. It depends only
// on finished scoring outputs, never the other way around, so scores stay
// auditable and reproducible.
type Feedback struct {
	Narrative        string   `json:"narrative"`
	StruggleConcepts []string `json:"struggleConcepts"`
	Recommendations  []string `json:"recommendations"`
}

// GenerateFeedback writes the instructor-facing narrative for one scored
// session.
func GenerateFeedback(score models.ProcessScore, risk RiskAssessment, friction []models.FrictionPoint) Feedback {
	fb := Feedback{}

	switch {
	case score.OverallScore >= 75:
		fb.Narrative = fmt.Sprintf(
			"The session shows a healthy working process (overall %.0f). Typing evidence points to iterative, self-corrected work.",
			score.OverallScore)
	case score.OverallScore >= 50:
		fb.Narrative = fmt.Sprintf(
			"The session shows a mixed working process (overall %.0f). Some indicators are weak; review the component scores before drawing conclusions.",
			score.OverallScore)
	default:
		fb.Narrative = fmt.Sprintf(
			"The session shows a weak working process (overall %.0f). The typing evidence does not support sustained independent work.",
			score.OverallScore)
	}

	if len(risk.CriticalAnomalies) > 0 {
		fb.Narrative += fmt.Sprintf(" %d critical anomaly finding(s) require instructor review.", len(risk.CriticalAnomalies))
	}

	for _, point := range friction {
		if point.Severity == models.SeverityHigh || point.Severity == models.SeverityMedium {
			fb.StruggleConcepts = append(fb.StruggleConcepts, fmt.Sprintf(
				"Sustained rework between %.0fs and %.0fs (deletion rate %.0f%%)",
				point.StartOffset/1000, point.EndOffset/1000, point.DeletionRate*100))
		}
	}

	if score.ActiveProblemSolvingScore < 40 {
		fb.Recommendations = append(fb.Recommendations,
			"Encourage incremental drafting: the session shows little visible iteration.")
	}
	if score.LearningDepthScore < 40 {
		fb.Recommendations = append(fb.Recommendations,
			"Suggest planning pauses before writing; the session shows rushed, shallow progress.")
	}
	if score.EngagementScore < 40 {
		fb.Recommendations = append(fb.Recommendations,
			"Check exercise fit: output volume and session length are both low.")
	}
	if len(friction) > 0 {
		fb.Recommendations = append(fb.Recommendations,
			"Review the flagged rework intervals with the student to identify the concepts involved.")
	}

	return fb
}

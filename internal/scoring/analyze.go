package scoring

import (
	"keytrace-go/internal/metrics"
	"keytrace-go/internal/models"
)

// SessionAnalysis bundles everything derived from one session's keystroke
// corpus: metrics, risk, process score, and the feedback generated last.
type SessionAnalysis struct {
	Metrics        models.SessionMetrics  `json:"metrics"`
	Risk           RiskAssessment         `json:"risk"`
	FrictionPoints []models.FrictionPoint `json:"frictionPoints"`
	ProcessScore   models.ProcessScore    `json:"processScore"`
	Feedback       Feedback               `json:"feedback"`
}

// AnalyzeSession runs the full scoring pipeline in its fixed order: metrics,
// risk, process score, then feedback. Feedback consumes finished scores only.
func AnalyzeSession(events []models.KeystrokeEvent, counters metrics.EditorCounters, ind models.AuthenticityIndicators) SessionAnalysis {
	m := metrics.ComputeSessionMetrics(events, counters)

	analysis := SessionAnalysis{
		Metrics:        m,
		Risk:           ComputeRisk(m, ind),
		FrictionPoints: DetectFrictionPoints(events),
		ProcessScore:   ComputeProcessScore(m, ind),
	}
	analysis.Feedback = GenerateFeedback(analysis.ProcessScore, analysis.Risk, analysis.FrictionPoints)

	return analysis
}

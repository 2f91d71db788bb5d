package scoring

import (
	"math"

	"keytrace-go/internal/models"
)

// ComputeProcessScore derives the deterministic composite snapshot for one
// completed session. Same metrics in, same score out; the pedagogical
// feedback layer reads this result but can never change it.
func ComputeProcessScore(m models.SessionMetrics, ind models.AuthenticityIndicators) models.ProcessScore {
	score := models.ProcessScore{
		ActiveProblemSolvingScore: activeProblemSolving(m),
		LearningDepthScore:        learningDepth(m),
		EngagementScore:           engagement(m),
		AuthenticityScore:         authenticity(ind),
	}

	score.OverallScore = clampScore(
		0.25*score.ActiveProblemSolvingScore +
			0.20*score.LearningDepthScore +
			0.20*score.EngagementScore +
			0.35*score.AuthenticityScore)

	// Confidence in the snapshot grows with the amount of typing evidence.
	switch {
	case m.TotalKeystrokes >= 500:
		score.ConfidenceLevel = models.ConfidenceHigh
	case m.TotalKeystrokes >= 200:
		score.ConfidenceLevel = models.ConfidenceMedium
	default:
		score.ConfidenceLevel = models.ConfidenceLow
	}

	return score
}

// activeProblemSolving rewards visible iteration: some correction and pause
// activity, rather than none (dictation) or constant churn (flailing).
func activeProblemSolving(m models.SessionMetrics) float64 {
	correction := peaked(m.DeletionRate, 0.12, 0.12)
	pausing := peaked(m.PauseRate, 0.10, 0.10)
	return clampScore(100 * (0.6*correction + 0.4*pausing))
}

// learningDepth tracks deliberate work: deep-thinking pauses and a natural,
// unhurried rhythm.
func learningDepth(m models.SessionMetrics) float64 {
	deepPauses := peaked(m.DeepPauseRate, 0.04, 0.05)
	naturalRhythm := 1.0 - math.Abs(m.RhythmConsistency-0.6)/0.6
	if naturalRhythm < 0 {
		naturalRhythm = 0
	}
	return clampScore(100 * (0.6*deepPauses + 0.4*naturalRhythm))
}

// engagement reflects sustained output over the session.
func engagement(m models.SessionMetrics) float64 {
	if m.DurationSeconds <= 0 {
		return 0
	}
	output := math.Min(m.TypingSpeed/3.0, 1.0)
	sustained := math.Min(m.DurationSeconds/600.0, 1.0)
	return clampScore(100 * (0.5*output + 0.5*sustained))
}

// authenticity folds the indicator scores into one 0-100 number.
func authenticity(ind models.AuthenticityIndicators) float64 {
	score := ind.HumanSignatureScore -
		0.5*ind.SyntheticSignatureScore -
		30.0*ind.ExternalAssistanceProbability -
		20.0*ind.MultipleContributorProbability
	return clampScore(score)
}

// peaked scores 1.0 at the center value, decaying linearly to 0 at a width
// away on either side.
func peaked(value, center, width float64) float64 {
	d := math.Abs(value-center) / width
	if d >= 1 {
		return 0
	}
	return 1 - d
}

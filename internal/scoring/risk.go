package scoring

import (
	"fmt"

	"keytrace-go/internal/models"
)

// RiskAssessment is the scored outcome of one session analysis.
type RiskAssessment struct {
	RiskLevel         models.RiskLevel `json:"riskLevel"`
	CriticalAnomalies []string         `json:"criticalAnomalies"`
}

// ComputeRisk combines authenticity and process signals into a single 0-100
// risk score (higher = more suspicious) plus the critical-anomaly
// narratives. The presence of any critical anomaly escalates the level to at
// least high, regardless of the raw score.
func ComputeRisk(m models.SessionMetrics, ind models.AuthenticityIndicators) RiskAssessment {
	// Authenticity signals. Signature scores are 0-100; the contributor and
	// assistance estimates are probabilities.
	score := 0.40*ind.SyntheticSignatureScore +
		30.0*ind.ExternalAssistanceProbability +
		20.0*ind.MultipleContributorProbability -
		0.20*ind.HumanSignatureScore

	// Process signals.
	if m.DeletionRate > 0.4 {
		score += 10
	}
	if m.LargestPasteChars > 200 {
		score += 10
	}
	if m.PasteCount > 5 {
		score += 5
	}
	if m.BurstTypingIntervals > 0 {
		score += 10
	}
	if m.RhythmConsistency > 0.92 && m.TotalKeystrokes >= 100 {
		// Near-perfect rhythm over a long stretch reads as mechanical.
		score += 10
	}

	assessment := RiskAssessment{
		CriticalAnomalies: criticalAnomalies(m, ind),
	}

	assessment.RiskLevel.Score = clampScore(score)
	assessment.RiskLevel.Level = RiskBucket(assessment.RiskLevel.Score)

	if len(assessment.CriticalAnomalies) > 0 &&
		severityRank(assessment.RiskLevel.Level) < severityRank(models.SeverityHigh) {
		assessment.RiskLevel.Level = models.SeverityHigh
	}

	return assessment
}

// criticalAnomalies evaluates the narrative rule combinations. Each rule
// describes a pattern that individually justifies instructor review.
func criticalAnomalies(m models.SessionMetrics, ind models.AuthenticityIndicators) []string {
	var anomalies []string

	if m.DeletionRate > 0.4 && m.DwellVariance < 100 && m.LargestPasteChars > 200 {
		anomalies = append(anomalies,
			"Sustained heavy correction combined with machine-steady key timing and large paste events suggests transcription of externally produced content.")
	}

	if m.BurstTypingIntervals > 0 && m.RhythmConsistency > 0.9 {
		anomalies = append(anomalies,
			fmt.Sprintf("Detected %d sustained sub-40ms keystroke bursts with near-uniform rhythm, inconsistent with human motor control.", m.BurstTypingIntervals))
	}

	if ind.SyntheticSignatureScore >= 80 {
		anomalies = append(anomalies,
			"The session's typing signature is dominated by synthetic-input characteristics.")
	}

	if m.LargestPasteChars > 500 && m.TypingSpeed < 1.0 {
		anomalies = append(anomalies,
			fmt.Sprintf("A %d-character paste dwarfs the typed output for this session; most content did not originate in the editor.", m.LargestPasteChars))
	}

	if ind.MultipleContributorProbability > 0.7 {
		anomalies = append(anomalies,
			"Keystroke dynamics shift materially mid-session, indicating more than one contributor.")
	}

	// Incoming flags already marked critical carry their own narratives.
	for _, flag := range ind.AnomalyFlags {
		if flag.Severity == models.SeverityCritical {
			anomalies = append(anomalies, flag.Description)
		}
	}

	return anomalies
}

// DetectFrictionPoints finds intervals where the deletion rate stays above
// threshold for a sustained duration. Each point carries its own severity,
// independent of the session-level risk.
func DetectFrictionPoints(events []models.KeystrokeEvent) []models.FrictionPoint {
	const (
		windowMs      = 30000.0
		rateThreshold = 0.5
		minWindowKeys = 15
	)

	if len(events) < minWindowKeys {
		return nil
	}

	var points []models.FrictionPoint
	start := 0
	sessionStart := events[0].Timestamp

	for end := 0; end < len(events); end++ {
		for events[end].Timestamp-events[start].Timestamp > windowMs {
			start++
		}
		windowLen := end - start + 1
		if windowLen < minWindowKeys {
			continue
		}

		deletions := 0
		for i := start; i <= end; i++ {
			if events[i].Key == "Backspace" || events[i].Key == "Delete" {
				deletions++
			}
		}

		rate := float64(deletions) / float64(windowLen)
		if rate < rateThreshold {
			continue
		}

		point := models.FrictionPoint{
			StartOffset:  events[start].Timestamp - sessionStart,
			EndOffset:    events[end].Timestamp - sessionStart,
			DeletionRate: rate,
			Severity:     frictionSeverity(rate),
		}

		// Merge with the previous point when the windows overlap.
		if n := len(points); n > 0 && points[n-1].EndOffset >= point.StartOffset {
			if point.DeletionRate > points[n-1].DeletionRate {
				points[n-1].DeletionRate = point.DeletionRate
				points[n-1].Severity = point.Severity
			}
			points[n-1].EndOffset = point.EndOffset
		} else {
			points = append(points, point)
		}
	}

	return points
}

func frictionSeverity(rate float64) models.Severity {
	switch {
	case rate >= 0.8:
		return models.SeverityHigh
	case rate >= 0.65:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

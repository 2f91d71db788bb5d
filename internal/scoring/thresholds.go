package scoring

import "keytrace-go/internal/models"

// Risk bucket thresholds, defined once. Display, alerting, and export logic
// all bucket through RiskBucket; no call site carries its own literals.
const (
	RiskMediumThreshold   = 40.0
	RiskHighThreshold     = 60.0
	RiskCriticalThreshold = 85.0
)

// RiskBucket discretizes a 0-100 risk score into the shared 4-tier scale.
func RiskBucket(score float64) models.Severity {
	switch {
	case score >= RiskCriticalThreshold:
		return models.SeverityCritical
	case score >= RiskHighThreshold:
		return models.SeverityHigh
	case score >= RiskMediumThreshold:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// severityRank orders severities for escalation comparisons.
func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return 3
	case models.SeverityHigh:
		return 2
	case models.SeverityMedium:
		return 1
	default:
		return 0
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

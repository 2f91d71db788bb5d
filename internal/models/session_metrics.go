package models

// SessionMetrics is the aggregate typing profile of one completed (or
// in-flight) coding session, computed from its keystroke corpus plus
// editor-level counters reported by the capture client.
type SessionMetrics struct {
	TypingSpeed          float64 `json:"typingSpeed"` // content keys per second
	DeletionRate         float64 `json:"deletionRate"`
	PauseRate            float64 `json:"pauseRate"`
	DeepPauseRate        float64 `json:"deepPauseRate"`
	PasteCount           int     `json:"pasteCount"`
	LargestPasteChars    int     `json:"largestPasteChars"`
	MeanDwell            float64 `json:"meanDwell"`
	DwellVariance        float64 `json:"dwellVariance"`
	MeanFlight           float64 `json:"meanFlight"`
	FlightVariance       float64 `json:"flightVariance"`
	RhythmConsistency    float64 `json:"rhythmConsistency"` // 0..1, higher = steadier
	TotalKeystrokes      int     `json:"totalKeystrokes"`
	DurationSeconds      float64 `json:"durationSeconds"`
	BurstTypingIntervals int     `json:"burstTypingIntervals"`
}

// AuthenticityIndicators is attached to one analysis run of a session.
type AuthenticityIndicators struct {
	HumanSignatureScore            float64       `json:"humanSignatureScore"`
	SyntheticSignatureScore        float64       `json:"syntheticSignatureScore"`
	ExternalAssistanceProbability  float64       `json:"externalAssistanceProbability"`
	MultipleContributorProbability float64       `json:"multipleContributorProbability"`
	AnomalyFlags                   []AnomalyFlag `json:"anomalyFlags"`
}

// AnomalyFlag marks one detected irregularity. Multiple flags may coexist on
// a session; a flag never retroactively mutates past events.
type AnomalyFlag struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Severity buckets shared by anomaly flags, friction points and the session
// risk level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskLevel combines the continuous risk score with its discretized bucket.
type RiskLevel struct {
	Score float64  `json:"score"`
	Level Severity `json:"level"`
}

// ProcessScore is the deterministic composite snapshot derived from one
// session's metrics.
type ProcessScore struct {
	OverallScore              float64         `json:"overallScore"`
	ActiveProblemSolvingScore float64         `json:"activeProblemSolvingScore"`
	LearningDepthScore        float64         `json:"learningDepthScore"`
	EngagementScore           float64         `json:"engagementScore"`
	AuthenticityScore         float64         `json:"authenticityScore"`
	ConfidenceLevel           ConfidenceLevel `json:"confidenceLevel"`
}

// FrictionPoint is a sustained high-deletion interval inside a session. Its
// severity is independent of the session-level risk level.
type FrictionPoint struct {
	StartOffset  float64  `json:"startOffset"` // ms from session start
	EndOffset    float64  `json:"endOffset"`
	DeletionRate float64  `json:"deletionRate"`
	Severity     Severity `json:"severity"`
}

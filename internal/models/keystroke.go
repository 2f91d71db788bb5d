package models

// KeystrokeEvent is the wire shape shared with the capture client and the
// matching backend. One event is produced per physical key release.
// Timestamps are milliseconds, monotonic within a session.
type KeystrokeEvent struct {
	UserID     string  `json:"userId"`
	SessionID  string  `json:"sessionId"`
	Timestamp  float64 `json:"timestamp"`
	Key        string  `json:"key"`
	KeyCode    int     `json:"keyCode"`
	DwellTime  float64 `json:"dwellTime"`
	FlightTime float64 `json:"flightTime"`
}

// Batch is an ordered slice of events belonging to one session, flushed as a
// unit. Events are never re-ordered across flushes.
type Batch struct {
	SessionID string           `json:"sessionId"`
	Events    []KeystrokeEvent `json:"events"`
	Seq       int              `json:"seq"`
}

// ConfidenceLevel is the discretized tier derived from a continuous
// confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// IdentificationCandidate is one ranked entry in an identification result.
// Confidence is computed independently against that candidate's template, so
// candidate confidences do not sum to 100.
type IdentificationCandidate struct {
	UserID     string  `json:"userId"`
	Confidence float64 `json:"confidence"`
	Rank       int     `json:"rank"`
}

// IdentificationResult is transient and never persisted; one per request.
// ConfidenceLevel is driven by the top candidate only.
type IdentificationResult struct {
	Candidates      []IdentificationCandidate `json:"candidates"`
	ConfidenceLevel ConfidenceLevel           `json:"confidence_level"`
}

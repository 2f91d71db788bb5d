package models

import "time"

// MonitoringEvent is one per-sample authentication outcome reported by a
// proctored coding session. Rows are append-only; flags and scores never
// mutate past events.
type MonitoringEvent struct {
	ID            int       `gorm:"primaryKey"`
	StudentID     string    `gorm:"index;not null" json:"studentId"`
	Confidence    float64   `json:"confidence"`
	RiskScore     float64   `json:"riskScore"`
	SampleSize    int       `json:"sampleSize"`
	Authenticated bool      `json:"authenticated"`
	Timestamp     time.Time `json:"timestamp"`
	CreatedAt     time.Time `json:"-"`
}

// ActiveSession is the live per-student aggregate kept by the session
// monitor. Averages are incremental means over every event seen inside the
// monitoring window.
type ActiveSession struct {
	StudentID         string          `json:"studentId"`
	EventCount        int             `json:"eventCount"`
	AverageConfidence float64         `json:"averageConfidence"`
	AverageRisk       float64         `json:"averageRisk"`
	LastUpdate        time.Time       `json:"lastUpdate"`
	LatestEvent       MonitoringEvent `json:"latestEvent"`
}

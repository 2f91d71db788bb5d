// internal/repository/monitoring.go
package repository

import (
	"time"

	"keytrace-go/internal/database"
	"keytrace-go/internal/models"
)

func SaveMonitoringEvent(event *models.MonitoringEvent) error {
	return database.DB.Create(event).Error
}

// GetMonitoringEventsSince returns events inside the trailing window, oldest
// first, so the aggregator can fold them in arrival order.
func GetMonitoringEventsSince(since time.Time) ([]models.MonitoringEvent, error) {
	var events []models.MonitoringEvent
	err := database.DB.
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
		Find(&events).Error
	return events, err
}

// GetSuspiciousEvents returns events at or above the risk threshold, newest
// first. Feeds the CSV export.
func GetSuspiciousEvents(minRiskScore float64, since time.Time) ([]models.MonitoringEvent, error) {
	var events []models.MonitoringEvent
	err := database.DB.
		Where("risk_score >= ? AND timestamp >= ?", minRiskScore, since).
		Order("timestamp DESC").
		Find(&events).Error
	return events, err
}

// TimelineDataPoint is one point of a per-student monitoring chart.
type TimelineDataPoint struct {
	Date       time.Time `json:"date"`
	Confidence float64   `json:"confidence"`
	RiskScore  float64   `json:"riskScore"`
}

// GetStudentTimeline returns the chronological confidence/risk series for
// one student.
func GetStudentTimeline(studentID string, since time.Time) ([]TimelineDataPoint, error) {
	var data []TimelineDataPoint
	err := database.DB.
		Model(&models.MonitoringEvent{}).
		Select("timestamp as date, confidence, risk_score").
		Where("student_id = ? AND timestamp >= ?", studentID, since).
		Order("timestamp ASC").
		Scan(&data).Error
	return data, err
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"

	"keytrace-go/internal/models"
	"keytrace-go/internal/monitor"
	"keytrace-go/internal/repository"
	"keytrace-go/internal/telemetry"
)

// EventStore is the monitoring-event persistence surface. The repository
// package provides the production implementation; tests provide stubs.
type EventStore interface {
	Save(event *models.MonitoringEvent) error
	Suspicious(minRiskScore float64, since time.Time) ([]models.MonitoringEvent, error)
	Timeline(studentID string, since time.Time) ([]repository.TimelineDataPoint, error)
}

// RepositoryEventStore adapts the repository package to EventStore.
type RepositoryEventStore struct{}

func (RepositoryEventStore) Save(event *models.MonitoringEvent) error {
	return repository.SaveMonitoringEvent(event)
}

func (RepositoryEventStore) Suspicious(minRiskScore float64, since time.Time) ([]models.MonitoringEvent, error) {
	return repository.GetSuspiciousEvents(minRiskScore, since)
}

func (RepositoryEventStore) Timeline(studentID string, since time.Time) ([]repository.TimelineDataPoint, error) {
	return repository.GetStudentTimeline(studentID, since)
}

type MonitorHandler struct {
	log            *zap.Logger
	agg            *monitor.Aggregator
	poller         *monitor.Poller
	hub            *monitor.Hub
	events         EventStore
	suspiciousRisk float64
}

func NewMonitorHandler(log *zap.Logger, agg *monitor.Aggregator, poller *monitor.Poller, hub *monitor.Hub, events EventStore, suspiciousRisk float64) *MonitorHandler {
	return &MonitorHandler{
		log:            log,
		agg:            agg,
		poller:         poller,
		hub:            hub,
		events:         events,
		suspiciousRisk: suspiciousRisk,
	}
}

// IngestEvent folds one authentication event into the live aggregate and
// persists it. Persistence failures are logged and absorbed; the live view
// must keep moving.
func (h *MonitorHandler) IngestEvent(c *gin.Context) {
	var event models.MonitoringEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "Invalid request body"})
		return
	}
	if event.StudentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "studentId is required"})
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.agg.Record(event)
	telemetry.ActiveSessions.Set(float64(h.agg.Len()))

	if err := h.events.Save(&event); err != nil {
		h.log.Error("Failed to persist monitoring event", zap.String("studentID", event.StudentID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ActiveSessions serves the frozen snapshot from the poll loop; this is the
// compatibility shim for clients that do not subscribe over websocket.
func (h *MonitorHandler) ActiveSessions(c *gin.Context) {
	var sessions []models.ActiveSession
	if h.poller != nil {
		sessions = h.poller.Last()
	} else {
		sessions = h.agg.Snapshot(time.Now())
	}
	if sessions == nil {
		sessions = []models.ActiveSession{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(sessions), "sessions": sessions})
}

// ServeWS upgrades to the push feed of session snapshots.
func (h *MonitorHandler) ServeWS(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// Export streams the suspicious-event CSV. Window defaults to 24h.
func (h *MonitorHandler) Export(c *gin.Context) {
	hours := 24
	if raw, ok := c.GetQuery("hours"); ok {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	events, err := h.events.Suspicious(h.suspiciousRisk, since)
	if err != nil {
		h.log.Error("Failed to load suspicious events for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="suspicious-events.csv"`)
	if err := monitor.ExportCSV(c.Writer, events); err != nil {
		h.log.Error("Failed to write CSV export", zap.Error(err))
	}
}

// StudentChart renders the per-student confidence/risk timeline.
func (h *MonitorHandler) StudentChart(c *gin.Context) {
	studentID := c.Param("studentId")
	since := time.Now().Add(-24 * time.Hour)

	data, err := h.events.Timeline(studentID, since)
	if err != nil {
		h.log.Error("Failed to load student timeline", zap.String("studentID", studentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Session Authenticity Timeline",
			Subtitle: studentID,
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	confidenceItems := make([]opts.LineData, 0, len(data))
	riskItems := make([]opts.LineData, 0, len(data))
	for _, point := range data {
		confidenceItems = append(confidenceItems, opts.LineData{Value: []interface{}{point.Date, point.Confidence}})
		riskItems = append(riskItems, opts.LineData{Value: []interface{}{point.Date, point.RiskScore}})
	}

	line.AddSeries("Confidence", confidenceItems).
		AddSeries("Risk Score", riskItems).
		SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))

	if err := line.Render(c.Writer); err != nil {
		h.log.Error("Failed to render timeline chart", zap.Error(err))
	}
}

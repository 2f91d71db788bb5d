package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keytrace-go/internal/metrics"
	"keytrace-go/internal/models"
	"keytrace-go/internal/scoring"
)

// AnalysisHandler exposes the session scoring pipeline.
type AnalysisHandler struct {
	log *zap.Logger
}

func NewAnalysisHandler(log *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{log: log}
}

type analyzeRequest struct {
	KeystrokeEvents []models.KeystrokeEvent       `json:"keystrokeEvents"`
	Counters        metrics.EditorCounters        `json:"counters"`
	Indicators      models.AuthenticityIndicators `json:"indicators"`
}

// Analyze scores a completed session: metrics, risk level, critical
// anomalies, friction points, process score and the feedback generated from
// them.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "Invalid request body"})
		return
	}
	if len(req.KeystrokeEvents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   ErrCodeInsufficientData,
			"message": "No keystroke events to analyze.",
		})
		return
	}

	analysis := scoring.AnalyzeSession(req.KeystrokeEvents, req.Counters, req.Indicators)

	if analysis.Risk.RiskLevel.Level == models.SeverityCritical || len(analysis.Risk.CriticalAnomalies) > 0 {
		h.log.Warn("Session analysis raised critical findings",
			zap.Float64("riskScore", analysis.Risk.RiskLevel.Score),
			zap.Int("criticalAnomalies", len(analysis.Risk.CriticalAnomalies)),
		)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}

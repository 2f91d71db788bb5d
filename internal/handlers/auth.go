package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"keytrace-go/internal/enrollment"
	"keytrace-go/internal/matcher"
	"keytrace-go/internal/models"
	"keytrace-go/internal/telemetry"
)

// TemplateStore is the template persistence surface the auth handlers need.
type TemplateStore interface {
	Save(tpl *models.EnrollmentTemplate) error
	Exists(userID string) (bool, error)
	Users() ([]string, error)
}

type AuthHandler struct {
	log       *zap.Logger
	store     TemplateStore
	matcher   *matcher.Matcher
	minEnroll int
	topK      int
}

func NewAuthHandler(log *zap.Logger, store TemplateStore, m *matcher.Matcher, minEnroll, topK int) *AuthHandler {
	if minEnroll <= 0 {
		minEnroll = 200
	}
	if topK <= 0 {
		topK = 3
	}
	return &AuthHandler{log: log, store: store, matcher: m, minEnroll: minEnroll, topK: topK}
}

type enrollRequest struct {
	UserID           string                  `json:"userId"`
	KeystrokeEvents  []models.KeystrokeEvent `json:"keystrokeEvents"`
	ConfirmOverwrite bool                    `json:"confirmOverwrite"`
}

// Enroll builds and persists a template from a full keystroke corpus.
func (h *AuthHandler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "Invalid request body"})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "userId is required"})
		return
	}

	if len(req.KeystrokeEvents) < h.minEnroll {
		telemetry.Enrollments.WithLabelValues(ErrCodeInsufficientData).Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   ErrCodeInsufficientData,
			"message": "Not enough keystrokes recorded for enrollment. Keep typing and try again.",
		})
		return
	}

	exists, err := h.store.Exists(req.UserID)
	if err != nil {
		h.log.Error("Failed to check existing enrollment", zap.String("userID", req.UserID), zap.Error(err))
		telemetry.Enrollments.WithLabelValues(ErrCodeServerError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
		return
	}
	if exists && !req.ConfirmOverwrite {
		telemetry.Enrollments.WithLabelValues(ErrCodeDuplicateEnrollment).Inc()
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   ErrCodeDuplicateEnrollment,
			"message": "This user is already enrolled. Confirm the overwrite to re-enroll.",
		})
		return
	}

	tpl, err := enrollment.BuildTemplate(req.UserID, req.KeystrokeEvents, h.minEnroll)
	if err != nil {
		h.log.Error("Failed to build enrollment template", zap.String("userID", req.UserID), zap.Error(err))
		telemetry.Enrollments.WithLabelValues(ErrCodeServerError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
		return
	}

	if err := h.store.Save(tpl); err != nil {
		h.log.Error("Failed to persist enrollment template", zap.String("userID", req.UserID), zap.Error(err))
		telemetry.Enrollments.WithLabelValues(ErrCodeServerError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
		return
	}

	telemetry.Enrollments.WithLabelValues("success").Inc()
	h.log.Info("User enrolled",
		zap.String("userID", req.UserID),
		zap.String("modelID", tpl.ModelID),
		zap.Int("keystrokes", tpl.TotalKeystrokes),
	)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Enrollment complete",
		"userId":  tpl.UserID,
		"modelId": tpl.ModelID,
	})
}

type identifyRequest struct {
	KeystrokeEvents []models.KeystrokeEvent `json:"keystrokeEvents"`
	TopK            int                     `json:"topK"`
}

// Identify matches a sample against every enrolled template.
func (h *AuthHandler) Identify(c *gin.Context) {
	var req identifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "Invalid request body"})
		return
	}
	if req.TopK <= 0 {
		req.TopK = h.topK
	}

	start := time.Now()
	result, err := h.matcher.Identify(req.KeystrokeEvents, req.TopK)
	telemetry.MatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		h.respondMatchError(c, err, telemetry.Identifications)
		return
	}

	telemetry.Identifications.WithLabelValues("success").Inc()
	resp := gin.H{
		"success":          true,
		"candidates":       result.Candidates,
		"confidence_level": result.ConfidenceLevel,
	}
	if result.ConfidenceLevel == models.ConfidenceLow {
		// A warned outcome, not an error: the caller shows low-confidence
		// messaging distinct from a hard failure.
		resp["message"] = "Low-confidence match. Treat the ranking as indicative only."
	}
	c.JSON(http.StatusOK, resp)
}

type verifyRequest struct {
	UserID          string                  `json:"userId"`
	KeystrokeEvents []models.KeystrokeEvent `json:"keystrokeEvents"`
}

// Verify checks a sample against one claimed identity.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "Invalid request body"})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "userId is required"})
		return
	}

	start := time.Now()
	result, err := h.matcher.Verify(req.UserID, req.KeystrokeEvents)
	telemetry.MatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		h.respondMatchError(c, err, telemetry.Verifications)
		return
	}

	telemetry.Verifications.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"userId":           result.UserID,
		"authenticated":    result.Authenticated,
		"confidence":       result.Confidence,
		"confidence_level": result.Level,
	})
}

// Users lists enrolled user ids.
func (h *AuthHandler) Users(c *gin.Context) {
	users, err := h.store.Users()
	if err != nil {
		h.log.Error("Failed to list enrolled users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// respondMatchError maps matcher failures onto the wire taxonomy.
func (h *AuthHandler) respondMatchError(c *gin.Context, err error, counter *prometheus.CounterVec) {
	switch {
	case errors.Is(err, matcher.ErrInsufficientSample):
		counter.WithLabelValues(ErrCodeInsufficientData).Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   ErrCodeInsufficientData,
			"message": "The keystroke sample is too small. Type more before retrying.",
		})
	case errors.Is(err, matcher.ErrNoTemplates), errors.Is(err, matcher.ErrUserNotEnrolled):
		counter.WithLabelValues(ErrCodeNoEnrolledUsers).Inc()
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   ErrCodeNoEnrolledUsers,
			"message": "No enrolled templates to match against.",
		})
	default:
		h.log.Error("Matching failed", zap.Error(err))
		counter.WithLabelValues(ErrCodeServerError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
	}
}

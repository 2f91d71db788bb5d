package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keytrace-go/internal/batch"
	"keytrace-go/internal/enrollment"
	"keytrace-go/internal/models"
)

// EnrollmentHandler drives the server-side enrollment wizard: an explicit
// state machine over the ordered exercise sequence. Incoming keystrokes pass
// through a per-session batcher so the session banks them in batches, at the
// configured size/interval thresholds, instead of once per request.
type EnrollmentHandler struct {
	log           *zap.Logger
	manager       *enrollment.Manager
	store         TemplateStore
	batchSize     int
	flushInterval time.Duration

	mu       sync.Mutex
	batchers map[string]*batch.Batcher
}

func NewEnrollmentHandler(log *zap.Logger, manager *enrollment.Manager, store TemplateStore, batchSize int, flushInterval time.Duration) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:           log,
		manager:       manager,
		store:         store,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		batchers:      make(map[string]*batch.Batcher),
	}
}

// appendFlushed banks one flushed batch into its wizard session. Called from
// both the size-threshold path and the interval timer.
func (h *EnrollmentHandler) appendFlushed(b models.Batch) error {
	s, err := h.manager.Get(b.SessionID)
	if err != nil {
		return err
	}
	return s.Append(b.Events)
}

// batcher returns the session's batcher, creating it on first use.
func (h *EnrollmentHandler) batcher(sessionID string) *batch.Batcher {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.batchers[sessionID]
	if !ok {
		b = batch.NewBatcher(sessionID, h.batchSize, h.flushInterval, h.appendFlushed, h.log)
		h.batchers[sessionID] = b
	}
	return b
}

// dropBatcher closes and forgets the session's batcher once the wizard is
// done with it.
func (h *EnrollmentHandler) dropBatcher(sessionID string) {
	h.mu.Lock()
	b, ok := h.batchers[sessionID]
	delete(h.batchers, sessionID)
	h.mu.Unlock()

	if ok {
		b.Close()
	}
}

// sessionStatus is the wizard view returned by every endpoint.
func sessionStatus(s *enrollment.Session) gin.H {
	exercise, index := s.CurrentExercise()
	return gin.H{
		"sessionId":     s.ID,
		"state":         s.State().String(),
		"exercise":      exercise,
		"exerciseIndex": index,
		"currentCount":  s.CurrentCount(),
		"totalCount":    s.TotalCount(),
		"gateMet":       s.CurrentCount() >= exercise.MinKeystrokes,
		"failReason":    s.FailReason(),
	}
}

type startSessionRequest struct {
	UserID string `json:"userId"`
}

// Start opens a wizard session at the first exercise.
func (h *EnrollmentHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "userId is required"})
		return
	}

	s := h.manager.Start(req.UserID)
	h.batcher(s.ID)
	h.log.Info("Enrollment session started", zap.String("userID", req.UserID), zap.String("sessionID", s.ID))
	c.JSON(http.StatusOK, sessionStatus(s))
}

type appendEventsRequest struct {
	Events []models.KeystrokeEvent `json:"events"`
}

// AppendEvents feeds captured events into the session's batcher. The batcher
// banks them into the current exercise at the size threshold or when the
// flush interval elapses; counts in the response reflect flushed events only.
func (h *EnrollmentHandler) AppendEvents(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req appendEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "Invalid request body"})
		return
	}

	if s.State() != enrollment.StateInExercise {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": ErrCodeServerError, "message": enrollment.ErrInvalidState.Error()})
		return
	}

	b := h.batcher(s.ID)
	for _, event := range req.Events {
		b.Add(event)
	}
	c.JSON(http.StatusOK, sessionStatus(s))
}

// Next advances to the following exercise; rejected while the current gate
// is unmet.
func (h *EnrollmentHandler) Next(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	// Drain the buffer so the gate check sees every captured keystroke.
	h.batcher(s.ID).Flush()

	if err := s.Next(); err != nil {
		status := http.StatusConflict
		code := ErrCodeServerError
		if errors.Is(err, enrollment.ErrGateNotMet) {
			status = http.StatusBadRequest
			code = ErrCodeInsufficientData
		}
		c.JSON(status, gin.H{"success": false, "error": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionStatus(s))
}

type submitSessionRequest struct {
	ConfirmOverwrite bool `json:"confirmOverwrite"`
}

// Submit fires the enrollment submission for the final exercise. Duplicate
// enrollment needs an explicit confirmation and does not fail the session;
// it is a prompt, not a rejection.
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req submitSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrCodeServerError, "message": "Invalid request body"})
		return
	}

	h.batcher(s.ID).Flush()

	exists, err := h.store.Exists(s.UserID)
	if err != nil {
		h.log.Error("Failed to check existing enrollment", zap.String("userID", s.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrCodeServerError})
		return
	}
	if exists && !req.ConfirmOverwrite {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   ErrCodeDuplicateEnrollment,
			"message": "This user is already enrolled. Confirm the overwrite to re-enroll.",
		})
		return
	}

	tpl, err := s.Submit(func(userID string, corpus []models.KeystrokeEvent) (*models.EnrollmentTemplate, error) {
		built, buildErr := enrollment.BuildTemplate(userID, corpus, 0)
		if buildErr != nil {
			return nil, buildErr
		}
		if saveErr := h.store.Save(built); saveErr != nil {
			return nil, saveErr
		}
		return built, nil
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := ErrCodeServerError
		switch {
		case errors.Is(err, enrollment.ErrInsufficientData), errors.Is(err, enrollment.ErrGateNotMet):
			status = http.StatusBadRequest
			code = ErrCodeInsufficientData
		case errors.Is(err, enrollment.ErrInvalidState):
			status = http.StatusConflict
		}
		resp := sessionStatus(s)
		resp["success"] = false
		resp["error"] = code
		c.JSON(status, resp)
		return
	}

	h.dropBatcher(s.ID)
	h.log.Info("Enrollment session completed",
		zap.String("userID", s.UserID),
		zap.String("modelID", tpl.ModelID),
		zap.Int("keystrokes", tpl.TotalKeystrokes),
	)
	resp := sessionStatus(s)
	resp["success"] = true
	resp["modelId"] = tpl.ModelID
	c.JSON(http.StatusOK, resp)
}

// Retry returns a failed session to the final exercise, keeping banked
// keystrokes.
func (h *EnrollmentHandler) Retry(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Retry(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": ErrCodeServerError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionStatus(s))
}

func (h *EnrollmentHandler) session(c *gin.Context) (*enrollment.Session, bool) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": ErrCodeServerError, "message": "Unknown enrollment session"})
		return nil, false
	}
	return s, true
}

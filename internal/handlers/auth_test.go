package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"keytrace-go/internal/matcher"
	"keytrace-go/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubStore is an in-memory template store implementing both the handler's
// persistence surface and the matcher's template source.
type stubStore struct {
	templates map[string]models.EnrollmentTemplate
	saveErr   error
}

func newStubStore() *stubStore {
	return &stubStore{templates: map[string]models.EnrollmentTemplate{}}
}

func (s *stubStore) Save(tpl *models.EnrollmentTemplate) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.templates[tpl.UserID] = *tpl
	return nil
}

func (s *stubStore) Exists(userID string) (bool, error) {
	_, ok := s.templates[userID]
	return ok, nil
}

func (s *stubStore) Users() ([]string, error) {
	users := make([]string, 0, len(s.templates))
	for userID := range s.templates {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}

func (s *stubStore) All() ([]models.EnrollmentTemplate, error) {
	templates := make([]models.EnrollmentTemplate, 0, len(s.templates))
	for _, tpl := range s.templates {
		templates = append(templates, tpl)
	}
	return templates, nil
}

func (s *stubStore) Get(userID string) (*models.EnrollmentTemplate, error) {
	tpl, ok := s.templates[userID]
	if !ok {
		return nil, nil
	}
	return &tpl, nil
}

// sampleEvents generates a deterministic keystroke stream with plausible
// timing so template building succeeds.
func sampleEvents(n int, userID string) []models.KeystrokeEvent {
	events := make([]models.KeystrokeEvent, n)
	ts := 0.0
	for i := range events {
		key := string(rune('a' + i%12))
		flight := 0.0
		if i > 0 {
			flight = 110 + float64(i%6)*8
			ts += flight
		}
		events[i] = models.KeystrokeEvent{
			UserID:     userID,
			SessionID:  "s1",
			Timestamp:  ts,
			Key:        key,
			KeyCode:    int(key[0]),
			DwellTime:  82 + float64(i%4)*4,
			FlightTime: flight,
		}
	}
	return events
}

func newAuthRouter(store *stubStore) *gin.Engine {
	m := matcher.New(store, matcher.Config{MinSampleKeystrokes: 100, HighConfidence: 80, MediumConfidence: 60})
	h := NewAuthHandler(zap.NewNop(), store, m, 200, 3)

	r := gin.New()
	r.POST("/api/auth/enroll", h.Enroll)
	r.POST("/api/auth/identify", h.Identify)
	r.POST("/api/auth/verify", h.Verify)
	r.GET("/api/auth/users", h.Users)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestEnrollSuccess(t *testing.T) {
	store := newStubStore()
	r := newAuthRouter(store)

	w := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(250, "alice"),
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["modelId"])

	tpl, ok := store.templates["alice"]
	require.True(t, ok, "template not persisted")
	assert.Equal(t, 250, tpl.TotalKeystrokes)
}

func TestEnrollRejectsShortCorpus(t *testing.T) {
	store := newStubStore()
	r := newAuthRouter(store)

	w := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(150, "alice"),
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, ErrCodeInsufficientData, body["error"])
	assert.Empty(t, store.templates)
}

func TestEnrollDuplicateNeedsConfirmation(t *testing.T) {
	store := newStubStore()
	r := newAuthRouter(store)

	first := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(250, "alice"),
	})
	require.Equal(t, http.StatusOK, first.Code)

	dup := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(250, "alice"),
	})
	require.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, ErrCodeDuplicateEnrollment, decodeBody(t, dup)["error"])

	confirmed := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":           "alice",
		"keystrokeEvents":  sampleEvents(250, "alice"),
		"confirmOverwrite": true,
	})
	assert.Equal(t, http.StatusOK, confirmed.Code)
}

func TestEnrollRequiresUserID(t *testing.T) {
	r := newAuthRouter(newStubStore())

	w := postJSON(t, r, "/api/auth/enroll", gin.H{
		"keystrokeEvents": sampleEvents(250, ""),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdentifyWithNoEnrolledUsers(t *testing.T) {
	r := newAuthRouter(newStubStore())

	w := postJSON(t, r, "/api/auth/identify", gin.H{
		"keystrokeEvents": sampleEvents(150, "alice"),
	})

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrCodeNoEnrolledUsers, decodeBody(t, w)["error"])
}

func TestIdentifyRejectsShortSample(t *testing.T) {
	store := newStubStore()
	r := newAuthRouter(store)

	enrolled := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(250, "alice"),
	})
	require.Equal(t, http.StatusOK, enrolled.Code)

	w := postJSON(t, r, "/api/auth/identify", gin.H{
		"keystrokeEvents": sampleEvents(50, "alice"),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeInsufficientData, decodeBody(t, w)["error"])
}

func TestIdentifyReturnsRankedCandidates(t *testing.T) {
	store := newStubStore()
	r := newAuthRouter(store)

	enrolled := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(250, "alice"),
	})
	require.Equal(t, http.StatusOK, enrolled.Code)

	w := postJSON(t, r, "/api/auth/identify", gin.H{
		"keystrokeEvents": sampleEvents(120, "alice"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	candidates, ok := body["candidates"].([]interface{})
	require.True(t, ok)
	require.Len(t, candidates, 1)

	top := candidates[0].(map[string]interface{})
	assert.Equal(t, "alice", top["userId"])
	assert.Equal(t, float64(1), top["rank"])
}

func TestVerifyUnknownUser(t *testing.T) {
	r := newAuthRouter(newStubStore())

	w := postJSON(t, r, "/api/auth/verify", gin.H{
		"userId":          "mallory",
		"keystrokeEvents": sampleEvents(150, "mallory"),
	})

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrCodeNoEnrolledUsers, decodeBody(t, w)["error"])
}

func TestVerifyOwnerSample(t *testing.T) {
	store := newStubStore()
	r := newAuthRouter(store)

	enrolled := postJSON(t, r, "/api/auth/enroll", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(250, "alice"),
	})
	require.Equal(t, http.StatusOK, enrolled.Code)

	w := postJSON(t, r, "/api/auth/verify", gin.H{
		"userId":          "alice",
		"keystrokeEvents": sampleEvents(150, "alice"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "alice", body["userId"])
}

func TestUsersListsEnrolled(t *testing.T) {
	store := newStubStore()
	r := newAuthRouter(store)

	for _, userID := range []string{"bob", "alice"} {
		w := postJSON(t, r, "/api/auth/enroll", gin.H{
			"userId":          userID,
			"keystrokeEvents": sampleEvents(250, userID),
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []interface{}{"alice", "bob"}, body["users"])
}

package monitor

import (
	"sort"
	"sync"
	"time"

	"keytrace-go/internal/models"
)

// Aggregator keeps a live per-student aggregate of authentication events.
// Folds are commutative incremental means, so per-student updates are
// order-insensitive for any multiset of values; lastUpdate and latestEvent
// are last-writer-wins. The mutex serializes refreshes per instance.
type Aggregator struct {
	window time.Duration

	mu       sync.Mutex
	sessions map[string]*models.ActiveSession
}

// NewAggregator creates an aggregator with the given monitoring window.
func NewAggregator(window time.Duration) *Aggregator {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &Aggregator{
		window:   window,
		sessions: make(map[string]*models.ActiveSession),
	}
}

// Record folds one authentication event into the student's running session,
// creating it on the first event.
func (a *Aggregator) Record(event models.MonitoringEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	session, ok := a.sessions[event.StudentID]
	if !ok {
		session = &models.ActiveSession{StudentID: event.StudentID}
		a.sessions[event.StudentID] = session
	}

	n := float64(session.EventCount)
	session.AverageConfidence = (session.AverageConfidence*n + event.Confidence) / (n + 1)
	session.AverageRisk = (session.AverageRisk*n + event.RiskScore) / (n + 1)
	session.EventCount++
	session.LastUpdate = event.Timestamp
	session.LatestEvent = event
}

// Snapshot returns the active sessions relative to now, most recently active
// first. Sessions whose last event fell out of the trailing window are
// evicted here, lazily, rather than by a timer.
func (a *Aggregator) Snapshot(now time.Time) []models.ActiveSession {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := now.Add(-a.window)
	out := make([]models.ActiveSession, 0, len(a.sessions))
	for studentID, session := range a.sessions {
		if session.LastUpdate.Before(cutoff) {
			delete(a.sessions, studentID)
			continue
		}
		out = append(out, *session)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdate.After(out[j].LastUpdate)
	})
	return out
}

// Len reports the number of tracked sessions, evicted or not.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

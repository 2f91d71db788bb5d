package enrollment

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"keytrace-go/internal/models"
)

// ErrSessionNotFound is returned for unknown wizard session ids.
var ErrSessionNotFound = errors.New("enrollment: session not found")

// Manager tracks in-flight wizard sessions. Completed and failed sessions
// stay addressable so the client can read the outcome or retry.
type Manager struct {
	set      *models.ExerciseSet
	minTotal int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager over one exercise set.
func NewManager(set *models.ExerciseSet, minTotal int) *Manager {
	return &Manager{
		set:      set,
		minTotal: minTotal,
		sessions: make(map[string]*Session),
	}
}

// Start creates a new wizard session for a user.
func (m *Manager) Start(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := NewSession(uuid.NewString(), userID, m.set, m.minTotal)
	m.sessions[s.ID] = s
	return s
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Drop removes a session, e.g. after completion or abandonment.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

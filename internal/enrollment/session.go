package enrollment

import (
	"fmt"
	"sync"

	"keytrace-go/internal/models"
)

// State is the tagged enrollment wizard state. Progression is linear and
// guarded; there are no boolean flags to fall out of sync.
type State int

const (
	// StateInExercise means the session is collecting keystrokes for the
	// exercise at the current index.
	StateInExercise State = iota
	// StateCompleted means the template was built and persisted.
	StateCompleted
	// StateFailed means the last submission was rejected; the session keeps
	// its banked keystrokes and may retry.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInExercise:
		return "in_exercise"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SubmitFunc persists the full keystroke corpus as a template. It is handed
// in by the caller so the state machine stays free of storage concerns.
type SubmitFunc func(userID string, events []models.KeystrokeEvent) (*models.EnrollmentTemplate, error)

// Session drives one user through the ordered enrollment exercise sequence.
// Keystrokes for finished exercises stay banked across retries; only a
// successful submission ends the session. The same session is reachable from
// concurrent requests and from timer-driven batch flushes, so every method
// serializes on the session mutex; a transition arriving while another is in
// flight waits for it, it never interleaves.
type Session struct {
	ID     string
	UserID string

	set      *models.ExerciseSet
	minTotal int

	mu         sync.Mutex
	state      State
	index      int
	banked     []models.KeystrokeEvent // corpus from completed exercises
	current    []models.KeystrokeEvent
	failReason string
}

// NewSession starts a session at the first exercise. minTotal overrides the
// exercise set's global minimum when positive.
func NewSession(id, userID string, set *models.ExerciseSet, minTotal int) *Session {
	if minTotal <= 0 {
		minTotal = set.MinTotalKeys
	}
	return &Session{
		ID:       id,
		UserID:   userID,
		set:      set,
		minTotal: minTotal,
	}
}

// State reports the current wizard state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FailReason is the user-facing reason for the last failed submission.
func (s *Session) FailReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failReason
}

// CurrentExercise returns the exercise being collected and its index.
func (s *Session) CurrentExercise() (models.Exercise, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Exercises[s.index], s.index
}

// CurrentCount is the keystroke count accumulated for the current exercise.
func (s *Session) CurrentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.current)
}

// TotalCount is the keystroke count across banked and current exercises.
func (s *Session) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked()
}

// totalLocked reports the corpus size. Callers hold s.mu.
func (s *Session) totalLocked() int { return len(s.banked) + len(s.current) }

// gateMet reports whether the current exercise's keystroke gate is satisfied.
func (s *Session) gateMet() bool {
	return len(s.current) >= s.set.Exercises[s.index].MinKeystrokes
}

// Append adds captured events to the current exercise.
func (s *Session) Append(events []models.KeystrokeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInExercise {
		return ErrInvalidState
	}
	s.current = append(s.current, events...)
	return nil
}

// Next advances to the following exercise. The transition is user-triggered
// and only allowed once the current gate is met; the final exercise has no
// Next, it ends with Submit.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInExercise {
		return ErrInvalidState
	}
	if !s.gateMet() {
		return ErrGateNotMet
	}
	if s.index == len(s.set.Exercises)-1 {
		return fmt.Errorf("%w: final exercise is completed by submitting", ErrInvalidState)
	}

	s.banked = append(s.banked, s.current...)
	s.current = nil
	s.index++
	return nil
}

// Submit fires the enrollment submission. It requires the final exercise's
// gate AND the global minimum to be met, and sends the full keystroke corpus.
// On failure the session moves to StateFailed keeping every banked event.
func (s *Session) Submit(submit SubmitFunc) (*models.EnrollmentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInExercise {
		return nil, ErrInvalidState
	}
	if s.index != len(s.set.Exercises)-1 {
		return nil, fmt.Errorf("%w: %d exercises remain", ErrInvalidState, len(s.set.Exercises)-1-s.index)
	}
	if !s.gateMet() {
		return nil, ErrGateNotMet
	}

	corpus := make([]models.KeystrokeEvent, 0, s.totalLocked())
	corpus = append(corpus, s.banked...)
	corpus = append(corpus, s.current...)

	if len(corpus) < s.minTotal {
		s.state = StateFailed
		s.failReason = fmt.Sprintf("collected %d keystrokes, need at least %d", len(corpus), s.minTotal)
		return nil, ErrInsufficientData
	}

	tpl, err := submit(s.UserID, corpus)
	if err != nil {
		s.state = StateFailed
		s.failReason = err.Error()
		return nil, err
	}

	s.state = StateCompleted
	s.failReason = ""
	return tpl, nil
}

// Retry returns a failed session to the final exercise without losing the
// banked keystrokes from completed exercises.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFailed {
		return ErrInvalidState
	}
	s.state = StateInExercise
	s.failReason = ""
	return nil
}

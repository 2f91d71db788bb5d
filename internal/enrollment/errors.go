package enrollment

import "errors"

var (
	// ErrGateNotMet is returned when an exercise transition is requested
	// before the current exercise's keystroke gate is satisfied.
	ErrGateNotMet = errors.New("enrollment: current exercise keystroke gate not met")

	// ErrInsufficientData is returned when the total corpus is below the
	// configured global minimum. Checked before any persistence.
	ErrInsufficientData = errors.New("enrollment: insufficient keystroke data")

	// ErrInvalidState is returned for operations not permitted in the
	// session's current state.
	ErrInvalidState = errors.New("enrollment: operation not valid in current state")
)

package matcher

import "errors"

var (
	// ErrInsufficientSample is returned when the input sample carries fewer
	// keystrokes than the matching minimum. Checked before any matching.
	ErrInsufficientSample = errors.New("matcher: keystroke sample below minimum size")

	// ErrNoTemplates is returned when identification is attempted with zero
	// enrolled templates. Callers must branch on this distinctly from a
	// low-confidence match.
	ErrNoTemplates = errors.New("matcher: no enrolled templates")

	// ErrUserNotEnrolled is returned by verification when the claimed user
	// has no template.
	ErrUserNotEnrolled = errors.New("matcher: user not enrolled")
)

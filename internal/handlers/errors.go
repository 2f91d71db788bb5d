package handlers

// Wire error codes. Each drives a different recovery path in the client, so
// they are never collapsed into a generic failure.
const (
	ErrCodeInsufficientData    = "insufficient-data"
	ErrCodeNoEnrolledUsers     = "no-enrolled-users"
	ErrCodeDuplicateEnrollment = "duplicate-enrollment"
	ErrCodeServerError         = "server-error"
)

package internal

import "errors"

// Outcomes the service layer distinguishes for callers. Conflicts and
// no-op closes are expected results, not failures; storage errors pass
// through wrapped.
var (
	// ErrSessionAlreadyOpen: a start arrived while a session of the
	// same kind is still open. The caller must close it first.
	ErrSessionAlreadyOpen = errors.New("session already open")

	// ErrNoOpenSession: an end arrived with nothing to close.
	ErrNoOpenSession = errors.New("no open session")

	// ErrInvalidInput covers bad caller input, e.g. an end timestamp
	// before the open start. Nothing is written.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound: the referenced subject or record does not exist.
	ErrNotFound = errors.New("not found")
)

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

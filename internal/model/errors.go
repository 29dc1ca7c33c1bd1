package model

import "errors"

// ValidationError is returned when caller input is rejected before any
// remote request is issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var (
	// ErrStale marks a response that arrived for a superseded request.
	ErrStale = errors.New("stale response discarded")
	// ErrNotAuthorized is returned for media and search intents issued
	// while the session is not authorized.
	ErrNotAuthorized = errors.New("not authorized")
)

// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// ValidationError carries a message that is safe to show to clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a client-safe validation error.
func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is a validation error and, if so,
// returns its client-safe message.
func IsValidation(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Msg, true
	}
	return "", false
}

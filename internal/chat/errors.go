package chat

import (
	"errors"
	"strings"
)

var (
	ErrConflict      = errors.New("participant already exists")
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("not the message owner")
	ErrUnknownSender = errors.New("sender is not a participant")
)

// ValidationError carries one human-readable message per failed rule.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

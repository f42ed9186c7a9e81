package tickets

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing ticket or section. Available lists what
// does exist, when that helps the caller recover.
type NotFoundError struct {
	What      string
	Available []string
}

func (e *NotFoundError) Error() string {
	msg := e.What + " not found"
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError is a caller mistake: a bad enum value, a blank title or
// a forbidden attribute.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func ticketNotFound(key string) error {
	return &NotFoundError{What: fmt.Sprintf("ticket %s", key)}
}

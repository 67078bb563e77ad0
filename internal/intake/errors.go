package intake

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an intake, comment or share does not exist
var ErrNotFound = errors.New("not found")

// NotFoundError names what was missing and matches ErrNotFound
type NotFoundError struct {
	What string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a request field the service rejected
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

package domain

import (
	"errors"
	"fmt"

	"github.com/tutordesk/backend/internal/models"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrForbidden     = errors.New("permission denied")
	ErrStateConflict = errors.New("state conflict")
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type PermissionError struct {
	Role   models.Role
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q may not %s", e.Role, e.Action)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

type StateConflictError struct {
	Action string
	Status models.SessionStatus
	Reason string
}

func (e *StateConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("cannot %s a session in status %s", e.Action, e.Status)
}

func (e *StateConflictError) Is(target error) bool {
	return target == ErrStateConflict
}

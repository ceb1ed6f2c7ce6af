package service

import (
	"errors"
	"fmt"

	"github.com/detodo/marketplace-backend/internal/authz"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrForbidden is the authorization failure returned by the guard.
	ErrForbidden  = authz.ErrForbidden
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports malformed or missing input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

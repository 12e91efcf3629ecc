package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services. Handlers map them to HTTP
// statuses; callers compare with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNotEligible        = errors.New("not eligible")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRoleAlreadySet     = errors.New("role already selected")
	ErrAlreadyReviewed    = errors.New("booking already reviewed")
	ErrNoSession          = errors.New("session expired or signed out")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

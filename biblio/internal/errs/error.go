package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrBookNotFound     = fmt.Errorf("book %w", ErrNotFound)
	ErrRequestNotFound  = fmt.Errorf("request %w", ErrNotFound)
	ErrLoanNotFound     = fmt.Errorf("loan %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrMembershipAbsent = fmt.Errorf("membership %w", ErrNotFound)

	ErrPermissionDenied = errors.New("permission denied")
	ErrNoSchool         = errors.New("no school selected")

	ErrValidation    = errors.New("validation failed")
	ErrBatchTooLarge = errors.New("too many ids in one batch")

	// transaction preconditions
	ErrAlreadyProcessed  = errors.New("request already processed")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrAlreadyReturned   = errors.New("loan already returned")
	ErrDuplicateRequest  = errors.New("a pending request for this book already exists")
)

// ValidationError describes a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

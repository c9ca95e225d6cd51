package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrActiveLoanExists = errors.New("member already has an active loan for this book")

	ErrLoanLimitReached = errors.New("member has reached the active loan limit")

	ErrInsufficientStock = errors.New("no copies available")

	ErrInvalidStateTransition = errors.New("invalid loan state transition")

	ErrInventoryInvariant = errors.New("inventory invariant violated")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	ErrConflict = errors.New("resource conflict")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// StateTransitionError carries the loan's current status and the status
// the caller tried to move it to, for diagnostics and client responses.
type StateTransitionError struct {
	Current   string
	Attempted string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition loan from '%s' to '%s'", e.Current, e.Attempted)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

func NewStateTransitionError(current, attempted string) error {
	return &StateTransitionError{Current: current, Attempted: attempted}
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

// CodeOf maps an error to its stable machine-readable code. Transient
// infrastructure failures map to RETRYABLE so clients know the whole
// operation can be retried from scratch.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrActiveLoanExists):
		return "ACTIVE_LOAN_EXISTS"
	case errors.Is(err, ErrLoanLimitReached):
		return "LOAN_LIMIT_REACHED"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrInvalidStateTransition):
		return "INVALID_STATE_TRANSITION"
	case errors.Is(err, ErrInventoryInvariant):
		return "INVENTORY_INVARIANT_VIOLATION"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrDatabase):
		return "RETRYABLE"
	default:
		return "INTERNAL"
	}
}

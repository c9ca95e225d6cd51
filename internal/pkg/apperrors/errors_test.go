package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "With Code",
			appError: &AppError{
				Code:    "TEST_CODE",
				Message: "This is a test error",
			},
			expected: "[TEST_CODE] This is a test error",
		},
		{
			name: "Without Code",
			appError: &AppError{
				Message: "This is a test error without code",
			},
			expected: "This is a test error without code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Error()
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestStateTransitionError(t *testing.T) {
	err := NewStateTransitionError("REJECTED", "APPROVED")

	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("expected error to wrap ErrInvalidStateTransition, got %v", err)
	}

	var stErr *StateTransitionError
	if !errors.As(err, &stErr) {
		t.Fatalf("expected *StateTransitionError, got %T", err)
	}
	if stErr.Current != "REJECTED" || stErr.Attempted != "APPROVED" {
		t.Errorf("unexpected states: current=%q attempted=%q", stErr.Current, stErr.Attempted)
	}

	expected := "cannot transition loan from 'REJECTED' to 'APPROVED'"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ActiveLoanExists", ErrActiveLoanExists, "ACTIVE_LOAN_EXISTS"},
		{"LoanLimitReached", fmt.Errorf("%w: limit 5", ErrLoanLimitReached), "LOAN_LIMIT_REACHED"},
		{"InsufficientStock", ErrInsufficientStock, "INSUFFICIENT_STOCK"},
		{"StateTransition", NewStateTransitionError("RETURNED", "RETURNED"), "INVALID_STATE_TRANSITION"},
		{"InventoryInvariant", ErrInventoryInvariant, "INVENTORY_INVARIANT_VIOLATION"},
		{"NotFound", fmt.Errorf("%w: loan", ErrNotFound), "NOT_FOUND"},
		{"Database", WrapDatabaseError(errors.New("conn refused"), "query failed"), "RETRYABLE"},
		{"Unknown", errors.New("boom"), "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

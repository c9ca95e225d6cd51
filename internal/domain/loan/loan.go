package loan

import (
	"time"

	"github.com/google/uuid"
)

type LoanStatus string

const (
	StatusPending  LoanStatus = "PENDING"
	StatusApproved LoanStatus = "APPROVED"
	StatusRejected LoanStatus = "REJECTED"
	StatusReturned LoanStatus = "RETURNED"
)

// Loan is a single lending record. It is created PENDING, moves to
// APPROVED or REJECTED by a librarian decision, and an approved loan
// moves to RETURNED when the copy comes back. Terminal records are kept
// for audit and never deleted.
type Loan struct {
	ID          uuid.UUID
	MemberID    int64
	BookID      int64
	ApproverID  *int64
	RequestedAt time.Time
	ApprovedAt  *time.Time
	DueDate     *time.Time
	ReturnedAt  *time.Time
	Status      LoanStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewLoan(memberID, bookID int64, requestedAt time.Time) *Loan {
	return &Loan{
		ID:          uuid.New(),
		MemberID:    memberID,
		BookID:      bookID,
		RequestedAt: requestedAt,
		Status:      StatusPending,
	}
}

// CanTransition reports whether moving a loan from current to target is
// legal. PENDING may become APPROVED or REJECTED; APPROVED may become
// RETURNED. REJECTED and RETURNED are terminal.
func CanTransition(current, target LoanStatus) bool {
	switch current {
	case StatusPending:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved:
		return target == StatusReturned
	default:
		return false
	}
}

func (s LoanStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusReturned
}

// IsActive reports whether a loan in this status holds a reserved copy.
func (s LoanStatus) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

func (s LoanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusReturned:
		return true
	}
	return false
}

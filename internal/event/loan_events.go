package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	routingKeyLoanRequested = "loan.requested"
	routingKeyLoanApproved  = "loan.approved"
	routingKeyLoanRejected  = "loan.rejected"
	routingKeyLoanReturned  = "loan.returned"
	routingKeyLoanOverdue   = "loan.overdue"
)

type LoanEventPayload struct {
	LoanID      uuid.UUID  `json:"loanId"`
	MemberID    int64      `json:"memberId"`
	BookID      int64      `json:"bookId"`
	ApproverID  *int64     `json:"approverId,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`
}

type LoanEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type Publisher interface {
	PublishLoanRequested(ctx context.Context, event LoanEvent) error
	PublishLoanApproved(ctx context.Context, event LoanEvent) error
	PublishLoanRejected(ctx context.Context, event LoanEvent) error
	PublishLoanReturned(ctx context.Context, event LoanEvent) error
	PublishLoanOverdue(ctx context.Context, event LoanEvent) error
}

// NoopPublisher satisfies Publisher when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishLoanRequested(context.Context, LoanEvent) error { return nil }
func (NoopPublisher) PublishLoanApproved(context.Context, LoanEvent) error  { return nil }
func (NoopPublisher) PublishLoanRejected(context.Context, LoanEvent) error  { return nil }
func (NoopPublisher) PublishLoanReturned(context.Context, LoanEvent) error  { return nil }
func (NoopPublisher) PublishLoanOverdue(context.Context, LoanEvent) error   { return nil }

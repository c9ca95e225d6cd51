package loan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	InsertLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// GetLoanByIDForUpdate locks the loan row so concurrent lifecycle
	// operations on the same loan serialize on the store.
	GetLoanByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Loan, error)

	// FindActiveLoanInTx returns the member's PENDING or APPROVED loan
	// for the given book, or apperrors.ErrNotFound when there is none.
	FindActiveLoanInTx(ctx context.Context, tx pgx.Tx, memberID, bookID int64) (*Loan, error)

	CountActiveLoansInTx(ctx context.Context, tx pgx.Tx, memberID int64) (int, error)

	UpdateLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error

	ListLoansByMember(ctx context.Context, memberID int64) ([]*Loan, error)

	ListLoans(ctx context.Context, status *LoanStatus) ([]*Loan, error)

	ListOverdueLoans(ctx context.Context, asOf time.Time) ([]*Loan, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

// InventoryRepository is the ledger for book copies. Both operations are
// single conditional statements so the availability check and the write
// cannot see different states under concurrent transactions.
type InventoryRepository interface {
	// ReserveCopyInTx decrements available copies, failing with
	// apperrors.ErrInsufficientStock when none are free.
	ReserveCopyInTx(ctx context.Context, tx pgx.Tx, bookID int64) error

	// ReleaseCopyInTx increments available copies, failing with
	// apperrors.ErrInventoryInvariant when the count is already at total.
	ReleaseCopyInTx(ctx context.Context, tx pgx.Tx, bookID int64) error
}

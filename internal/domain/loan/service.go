package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lending-engine/internal/domain/member"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LendingService interface {
	// RequestLoan creates a PENDING loan for the member and reserves one
	// copy of the book, both inside a single transaction.
	RequestLoan(ctx context.Context, memberID, bookID int64) (*Loan, error)

	// ApproveLoan moves a PENDING loan to APPROVED and stamps the due
	// date. The copy reserved at request time stays reserved.
	ApproveLoan(ctx context.Context, loanID uuid.UUID, approverID int64) (*Loan, error)

	// RejectLoan moves a PENDING loan to REJECTED and returns the
	// reserved copy to the pool.
	RejectLoan(ctx context.Context, loanID uuid.UUID, approverID int64) (*Loan, error)

	// ReturnLoan moves an APPROVED loan to RETURNED and returns the
	// borrowed copy to the pool.
	ReturnLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	ListLoansByMember(ctx context.Context, memberID int64) ([]*Loan, error)

	ListLoans(ctx context.Context, status *LoanStatus) ([]*Loan, error)
}

type Config struct {
	// LoanPeriod is added to the approval timestamp to compute the due date.
	LoanPeriod time.Duration
	// MaxActivePerMember caps pending+approved loans per member. Zero disables the check.
	MaxActivePerMember int
}

type lendingServiceImpl struct {
	repo          Repository
	inventory     InventoryRepository
	memberService member.MemberService
	publisher     event.Publisher
	cfg           Config
	logger        *slog.Logger
	now           func() time.Time
}

func NewLendingService(r Repository, inv InventoryRepository, ms member.MemberService, pub event.Publisher, cfg Config, logger *slog.Logger) LendingService {
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	if cfg.LoanPeriod <= 0 {
		cfg.LoanPeriod = 14 * 24 * time.Hour
	}
	return &lendingServiceImpl{
		repo:          r,
		inventory:     inv,
		memberService: ms,
		publisher:     pub,
		cfg:           cfg,
		logger:        logger.With("component", "LendingService"),
		now:           time.Now,
	}
}

func (s *lendingServiceImpl) RequestLoan(ctx context.Context, memberID, bookID int64) (l *Loan, err error) {
	s.logger.InfoContext(ctx, "Requesting loan", "memberID", memberID, "bookID", bookID)

	if _, err = s.memberService.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Member not found", "memberID", memberID)
			return nil, err
		}
		return nil, fmt.Errorf("failed to verify member %d: %w", memberID, err)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrDatabase, err)
	}
	defer s.finishOperation(ctx, "request", tx, &err)

	if _, err = s.repo.FindActiveLoanInTx(ctx, tx, memberID, bookID); err == nil {
		s.logger.WarnContext(ctx, "Member already has an active loan for this book", "memberID", memberID, "bookID", bookID)
		return nil, fmt.Errorf("%w: member %d, book %d", apperrors.ErrActiveLoanExists, memberID, bookID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for active loan: %w", err)
	}
	err = nil

	if s.cfg.MaxActivePerMember > 0 {
		var active int
		active, err = s.repo.CountActiveLoansInTx(ctx, tx, memberID)
		if err != nil {
			return nil, fmt.Errorf("failed to count active loans: %w", err)
		}
		if active >= s.cfg.MaxActivePerMember {
			s.logger.WarnContext(ctx, "Member is at the active loan ceiling", "memberID", memberID, "active", active, "limit", s.cfg.MaxActivePerMember)
			err = fmt.Errorf("%w: limit %d", apperrors.ErrLoanLimitReached, s.cfg.MaxActivePerMember)
			return nil, err
		}
	}

	if err = s.inventory.ReserveCopyInTx(ctx, tx, bookID); err != nil {
		if errors.Is(err, apperrors.ErrInsufficientStock) {
			s.logger.WarnContext(ctx, "No copies available", "bookID", bookID)
		}
		return nil, err
	}

	newLoan := NewLoan(memberID, bookID, s.now())
	created, err := s.repo.InsertLoanInTx(ctx, tx, newLoan)
	if err != nil {
		// The partial unique index on active (member, book) pairs
		// backstops the check above under concurrent requests.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			err = fmt.Errorf("%w: member %d, book %d", apperrors.ErrActiveLoanExists, memberID, bookID)
		}
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrDatabase, err)
	}

	s.publishLoanEvent(ctx, created, s.publisher.PublishLoanRequested)
	s.logger.InfoContext(ctx, "Loan requested", "loanID", created.ID, "memberID", memberID, "bookID", bookID)
	return created, nil
}

func (s *lendingServiceImpl) ApproveLoan(ctx context.Context, loanID uuid.UUID, approverID int64) (l *Loan, err error) {
	s.logger.InfoContext(ctx, "Approving loan", "loanID", loanID, "approverID", approverID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrDatabase, err)
	}
	defer s.finishOperation(ctx, "approve", tx, &err)

	current, err := s.loadForTransition(ctx, tx, loanID, StatusApproved)
	if err != nil {
		return nil, err
	}

	approvedAt := s.now()
	dueDate := approvedAt.Add(s.cfg.LoanPeriod)
	current.Status = StatusApproved
	current.ApproverID = &approverID
	current.ApprovedAt = &approvedAt
	current.DueDate = &dueDate

	// Approval does not touch the inventory ledger: the copy was
	// reserved when the loan was requested.
	if err = s.repo.UpdateLoanInTx(ctx, tx, current); err != nil {
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrDatabase, err)
	}

	s.publishLoanEvent(ctx, current, s.publisher.PublishLoanApproved)
	s.logger.InfoContext(ctx, "Loan approved", "loanID", loanID, "dueDate", dueDate)
	return current, nil
}

func (s *lendingServiceImpl) RejectLoan(ctx context.Context, loanID uuid.UUID, approverID int64) (l *Loan, err error) {
	s.logger.InfoContext(ctx, "Rejecting loan", "loanID", loanID, "approverID", approverID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrDatabase, err)
	}
	defer s.finishOperation(ctx, "reject", tx, &err)

	current, err := s.loadForTransition(ctx, tx, loanID, StatusRejected)
	if err != nil {
		return nil, err
	}

	if err = s.inventory.ReleaseCopyInTx(ctx, tx, current.BookID); err != nil {
		return nil, err
	}

	current.Status = StatusRejected
	current.ApproverID = &approverID

	if err = s.repo.UpdateLoanInTx(ctx, tx, current); err != nil {
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrDatabase, err)
	}

	s.publishLoanEvent(ctx, current, s.publisher.PublishLoanRejected)
	s.logger.InfoContext(ctx, "Loan rejected", "loanID", loanID)
	return current, nil
}

func (s *lendingServiceImpl) ReturnLoan(ctx context.Context, loanID uuid.UUID) (l *Loan, err error) {
	s.logger.InfoContext(ctx, "Returning loan", "loanID", loanID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrDatabase, err)
	}
	defer s.finishOperation(ctx, "return", tx, &err)

	current, err := s.loadForTransition(ctx, tx, loanID, StatusReturned)
	if err != nil {
		return nil, err
	}

	if err = s.inventory.ReleaseCopyInTx(ctx, tx, current.BookID); err != nil {
		return nil, err
	}

	returnedAt := s.now()
	current.Status = StatusReturned
	current.ReturnedAt = &returnedAt

	if err = s.repo.UpdateLoanInTx(ctx, tx, current); err != nil {
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrDatabase, err)
	}

	s.publishLoanEvent(ctx, current, s.publisher.PublishLoanReturned)
	s.logger.InfoContext(ctx, "Loan returned", "loanID", loanID)
	return current, nil
}

func (s *lendingServiceImpl) GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to get loan %s: %w", loanID, err)
	}
	return l, nil
}

func (s *lendingServiceImpl) ListLoansByMember(ctx context.Context, memberID int64) ([]*Loan, error) {
	loans, err := s.repo.ListLoansByMember(ctx, memberID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans by member", "memberID", memberID, "error", err)
		return nil, fmt.Errorf("failed to list loans for member %d: %w", memberID, err)
	}
	return loans, nil
}

func (s *lendingServiceImpl) ListLoans(ctx context.Context, status *LoanStatus) ([]*Loan, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown loan status %q", *status))
	}
	loans, err := s.repo.ListLoans(ctx, status)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

// loadForTransition locks the loan row and validates the requested
// status change, so a stale client view surfaces as a state conflict
// instead of a duplicate side effect.
func (s *lendingServiceImpl) loadForTransition(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, target LoanStatus) (*Loan, error) {
	current, err := s.repo.GetLoanByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to load loan %s: %w", loanID, err)
	}

	if !CanTransition(current.Status, target) {
		s.logger.WarnContext(ctx, "Illegal loan state transition attempted",
			"loanID", loanID, "current", current.Status, "target", target)
		return nil, apperrors.NewStateTransitionError(string(current.Status), string(target))
	}

	return current, nil
}

func (s *lendingServiceImpl) finishOperation(ctx context.Context, operation string, tx pgx.Tx, errp *error) {
	// recover runs before the metric so a panicking operation cannot be
	// counted as a success; *errp is still the zero value at that point.
	if p := recover(); p != nil {
		s.logger.ErrorContext(ctx, "Panic occurred during loan operation", "operation", operation, "error", p)
		monitoring.RecordLoanOperation(operation, "failure_internal")
		_ = s.repo.RollbackTx(ctx, tx)
		panic(p)
	}

	err := *errp
	status := "success"
	switch {
	case errors.Is(err, apperrors.ErrActiveLoanExists):
		status = "failure_active_loan"
	case errors.Is(err, apperrors.ErrLoanLimitReached):
		status = "failure_limit"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		status = "failure_stock"
	case errors.Is(err, apperrors.ErrInvalidStateTransition):
		status = "failure_state"
	case errors.Is(err, apperrors.ErrNotFound):
		status = "failure_not_found"
	case err != nil:
		status = "failure_internal"
	}
	monitoring.RecordLoanOperation(operation, status)

	if err != nil {
		_ = s.repo.RollbackTx(ctx, tx)
	}
}

func (s *lendingServiceImpl) publishLoanEvent(ctx context.Context, l *Loan, publish func(context.Context, event.LoanEvent) error) {
	evt := event.LoanEvent{
		Timestamp: s.now(),
		Payload: event.LoanEventPayload{
			LoanID:      l.ID,
			MemberID:    l.MemberID,
			BookID:      l.BookID,
			ApproverID:  l.ApproverID,
			Status:      string(l.Status),
			RequestedAt: l.RequestedAt,
			DueDate:     l.DueDate,
			ReturnedAt:  l.ReturnedAt,
		},
	}
	// Events are best effort: the transaction has already committed.
	if err := publish(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan event", "loanID", l.ID, "error", err)
	}
}

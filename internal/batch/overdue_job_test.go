package batch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"lending-engine/internal/batch"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/event"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) InsertLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) (*loan.Loan, error) {
	args := m.Called(ctx, tx, l)
	if created, ok := args.Get(0).(*loan.Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetLoanByID(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetLoanByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, tx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) FindActiveLoanInTx(ctx context.Context, tx pgx.Tx, memberID, bookID int64) (*loan.Loan, error) {
	args := m.Called(ctx, tx, memberID, bookID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) CountActiveLoansInTx(ctx context.Context, tx pgx.Tx, memberID int64) (int, error) {
	args := m.Called(ctx, tx, memberID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	args := m.Called(ctx, tx, l)
	return args.Error(0)
}

func (m *MockLoanRepository) ListLoansByMember(ctx context.Context, memberID int64) ([]*loan.Loan, error) {
	args := m.Called(ctx, memberID)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) ListLoans(ctx context.Context, status *loan.LoanStatus) ([]*loan.Loan, error) {
	args := m.Called(ctx, status)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) ListOverdueLoans(ctx context.Context, asOf time.Time) ([]*loan.Loan, error) {
	args := m.Called(ctx, asOf)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLoanRequested(ctx context.Context, evt event.LoanEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockPublisher) PublishLoanApproved(ctx context.Context, evt event.LoanEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockPublisher) PublishLoanRejected(ctx context.Context, evt event.LoanEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockPublisher) PublishLoanReturned(ctx context.Context, evt event.LoanEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockPublisher) PublishLoanOverdue(ctx context.Context, evt event.LoanEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func overdueLoan(id string, memberID int64) *loan.Loan {
	approverID := int64(99)
	requestedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	approvedAt := requestedAt.Add(time.Hour)
	dueDate := approvedAt.AddDate(0, 0, 14)
	return &loan.Loan{
		ID:          uuid.MustParse(id),
		MemberID:    memberID,
		BookID:      42,
		Status:      loan.StatusApproved,
		RequestedAt: requestedAt,
		ApproverID:  &approverID,
		ApprovedAt:  &approvedAt,
		DueDate:     &dueDate,
	}
}

func newSweepJob(logger *slog.Logger) (*MockLoanRepository, *MockPublisher, *batch.OverdueSweepJob) {
	mockRepo := new(MockLoanRepository)
	mockPublisher := new(MockPublisher)
	job := batch.NewOverdueSweepJob(mockRepo, mockPublisher, logger)
	return mockRepo, mockPublisher, job
}

func TestOverdueSweepJobRun(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("publishes one event per overdue loan", func(t *testing.T) {
		first := overdueLoan("0b7b8a3e-9c55-4a0f-8e6a-1f2d3c4b5a69", 7)
		second := overdueLoan("7f1c2d3e-4b5a-4c6d-8e9f-0a1b2c3d4e5f", 8)
		mockRepo, mockPublisher, job := newSweepJob(logger)
		mockRepo.On("ListOverdueLoans", ctx, mock.AnythingOfType("time.Time")).Return([]*loan.Loan{first, second}, nil)

		mockPublisher.On("PublishLoanOverdue", ctx, mock.MatchedBy(func(evt event.LoanEvent) bool {
			return evt.Payload.LoanID == first.ID && evt.Payload.MemberID == 7 && evt.Payload.Status == string(loan.StatusApproved)
		})).Return(nil)
		mockPublisher.On("PublishLoanOverdue", ctx, mock.MatchedBy(func(evt event.LoanEvent) bool {
			return evt.Payload.LoanID == second.ID && evt.Payload.MemberID == 8
		})).Return(nil)

		err := job.Run(ctx)
		assert.NoError(t, err)

		mockRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("handles repository error", func(t *testing.T) {
		mockRepo, mockPublisher, job := newSweepJob(logger)
		mockRepo.On("ListOverdueLoans", ctx, mock.AnythingOfType("time.Time")).Return(nil, errors.New("connection refused"))

		err := job.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list overdue loans")

		mockRepo.AssertExpectations(t)
		mockPublisher.AssertNotCalled(t, "PublishLoanOverdue", mock.Anything, mock.Anything)
	})

	t.Run("counts publish failures", func(t *testing.T) {
		overdue := overdueLoan("0b7b8a3e-9c55-4a0f-8e6a-1f2d3c4b5a69", 7)
		mockRepo, mockPublisher, job := newSweepJob(logger)
		mockRepo.On("ListOverdueLoans", ctx, mock.AnythingOfType("time.Time")).Return([]*loan.Loan{overdue}, nil)
		mockPublisher.On("PublishLoanOverdue", ctx, mock.Anything).Return(errors.New("broker unavailable"))

		err := job.Run(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "1 errors")

		mockRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("handles no overdue loans", func(t *testing.T) {
		mockRepo, mockPublisher, job := newSweepJob(logger)
		mockRepo.On("ListOverdueLoans", ctx, mock.AnythingOfType("time.Time")).Return([]*loan.Loan{}, nil)

		err := job.Run(ctx)
		assert.NoError(t, err)

		mockRepo.AssertExpectations(t)
		mockPublisher.AssertNotCalled(t, "PublishLoanOverdue", mock.Anything, mock.Anything)
	})

	t.Run("never mutates loans it reports", func(t *testing.T) {
		overdue := overdueLoan("0b7b8a3e-9c55-4a0f-8e6a-1f2d3c4b5a69", 7)
		mockRepo, mockPublisher, job := newSweepJob(logger)
		mockRepo.On("ListOverdueLoans", ctx, mock.AnythingOfType("time.Time")).Return([]*loan.Loan{overdue}, nil)
		mockPublisher.On("PublishLoanOverdue", ctx, mock.Anything).Return(nil)

		err := job.Run(ctx)
		assert.NoError(t, err)
		assert.Equal(t, loan.StatusApproved, overdue.Status)

		mockRepo.AssertNotCalled(t, "UpdateLoanInTx", mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
	})
}

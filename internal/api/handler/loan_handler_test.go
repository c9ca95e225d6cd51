package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLendingService struct {
	mock.Mock
}

func (m *MockLendingService) RequestLoan(ctx context.Context, memberID, bookID int64) (*loan.Loan, error) {
	args := m.Called(ctx, memberID, bookID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLendingService) ApproveLoan(ctx context.Context, loanID uuid.UUID, approverID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID, approverID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLendingService) RejectLoan(ctx context.Context, loanID uuid.UUID, approverID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID, approverID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLendingService) ReturnLoan(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLendingService) GetLoan(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLendingService) ListLoansByMember(ctx context.Context, memberID int64) ([]*loan.Loan, error) {
	args := m.Called(ctx, memberID)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLendingService) ListLoans(ctx context.Context, status *loan.LoanStatus) ([]*loan.Loan, error) {
	args := m.Called(ctx, status)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

var testLoanID = uuid.MustParse("5b5d9b5e-0c1f-4b2a-9d38-7a1e2f3c4d5e")

func withLoanIDParam(req *http.Request, loanID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{"loanID"}, Values: []string{loanID}},
	}))
}

func TestLoanHandlerRequestLoan(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("successfully requests a loan", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		created := &loan.Loan{
			ID:          testLoanID,
			MemberID:    7,
			BookID:      42,
			Status:      loan.StatusPending,
			RequestedAt: time.Now(),
		}
		mockService.On("RequestLoan", mock.Anything, int64(7), int64(42)).Return(created, nil)

		body := strings.NewReader(`{"memberId":7,"bookId":42}`)
		req := httptest.NewRequest(http.MethodPost, "/loans", body)
		rec := httptest.NewRecorder()

		handler.RequestLoan(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, testLoanID.String(), resp.ID)
		assert.Equal(t, "PENDING", resp.Status)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		body := strings.NewReader(`{"memberId":0,"bookId":42}`)
		req := httptest.NewRequest(http.MethodPost, "/loans", body)
		rec := httptest.NewRecorder()

		handler.RequestLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RequestLoan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns conflict when member already borrows the book", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		mockService.On("RequestLoan", mock.Anything, int64(7), int64(42)).
			Return(nil, apperrors.ErrActiveLoanExists)

		body := strings.NewReader(`{"memberId":7,"bookId":42}`)
		req := httptest.NewRequest(http.MethodPost, "/loans", body)
		rec := httptest.NewRecorder()

		handler.RequestLoan(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ACTIVE_LOAN_EXISTS", resp.Error.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("returns conflict when no copies are available", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		mockService.On("RequestLoan", mock.Anything, int64(7), int64(42)).
			Return(nil, apperrors.ErrInsufficientStock)

		body := strings.NewReader(`{"memberId":7,"bookId":42}`)
		req := httptest.NewRequest(http.MethodPost, "/loans", body)
		rec := httptest.NewRecorder()

		handler.RequestLoan(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandlerApproveLoan(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("successfully approves a loan", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		approver := int64(99)
		dueDate := time.Now().Add(14 * 24 * time.Hour)
		approved := &loan.Loan{
			ID:         testLoanID,
			MemberID:   7,
			BookID:     42,
			ApproverID: &approver,
			Status:     loan.StatusApproved,
			DueDate:    &dueDate,
		}
		mockService.On("ApproveLoan", mock.Anything, testLoanID, approver).Return(approved, nil)

		body := strings.NewReader(`{"approverId":99}`)
		req := withLoanIDParam(httptest.NewRequest(http.MethodPost, "/loans/"+testLoanID.String()+"/approve", body), testLoanID.String())
		rec := httptest.NewRecorder()

		handler.ApproveLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "APPROVED", resp.Status)
		assert.NotNil(t, resp.DueDate)
		mockService.AssertExpectations(t)
	})

	t.Run("returns conflict when loan is not pending", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		mockService.On("ApproveLoan", mock.Anything, testLoanID, int64(99)).
			Return(nil, apperrors.NewStateTransitionError("RETURNED", "APPROVED"))

		body := strings.NewReader(`{"approverId":99}`)
		req := withLoanIDParam(httptest.NewRequest(http.MethodPost, "/loans/"+testLoanID.String()+"/approve", body), testLoanID.String())
		rec := httptest.NewRecorder()

		handler.ApproveLoan(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "INVALID_STATE_TRANSITION", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "RETURNED")
		mockService.AssertExpectations(t)
	})

	t.Run("returns error for invalid loan ID", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		body := strings.NewReader(`{"approverId":99}`)
		req := withLoanIDParam(httptest.NewRequest(http.MethodPost, "/loans/invalid/approve", body), "invalid")
		rec := httptest.NewRecorder()

		handler.ApproveLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "ApproveLoan", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoanHandlerReturnLoan(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("successfully returns a loan", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		returnedAt := time.Now()
		returned := &loan.Loan{
			ID:         testLoanID,
			Status:     loan.StatusReturned,
			ReturnedAt: &returnedAt,
		}
		mockService.On("ReturnLoan", mock.Anything, testLoanID).Return(returned, nil)

		req := withLoanIDParam(httptest.NewRequest(http.MethodPost, "/loans/"+testLoanID.String()+"/return", nil), testLoanID.String())
		rec := httptest.NewRecorder()

		handler.ReturnLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "RETURNED", resp.Status)
		mockService.AssertExpectations(t)
	})

	t.Run("returns conflict when the ledger refuses the release", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		mockService.On("ReturnLoan", mock.Anything, testLoanID).
			Return(nil, fmt.Errorf("%w: release would exceed total copies for book 42", apperrors.ErrInventoryInvariant))

		req := withLoanIDParam(httptest.NewRequest(http.MethodPost, "/loans/"+testLoanID.String()+"/return", nil), testLoanID.String())
		rec := httptest.NewRecorder()

		handler.ReturnLoan(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "INVENTORY_INVARIANT_VIOLATION", resp.Error.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("returns not found for unknown loan", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		mockService.On("ReturnLoan", mock.Anything, testLoanID).Return(nil, apperrors.ErrNotFound)

		req := withLoanIDParam(httptest.NewRequest(http.MethodPost, "/loans/"+testLoanID.String()+"/return", nil), testLoanID.String())
		rec := httptest.NewRecorder()

		handler.ReturnLoan(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandlerGetLoan(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("successfully retrieves loan details", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		mockLoan := &loan.Loan{ID: testLoanID, Status: loan.StatusPending}
		mockService.On("GetLoan", mock.Anything, testLoanID).Return(mockLoan, nil)

		req := withLoanIDParam(httptest.NewRequest(http.MethodGet, "/loans/"+testLoanID.String(), nil), testLoanID.String())
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, testLoanID.String(), resp.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("returns internal server error for unexpected errors", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		mockService.On("GetLoan", mock.Anything, testLoanID).Return(nil, errors.New("unexpected error"))

		req := withLoanIDParam(httptest.NewRequest(http.MethodGet, "/loans/"+testLoanID.String(), nil), testLoanID.String())
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "An unexpected error occurred.", resp.Error.Message)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandlerListLoans(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("lists loans filtered by status", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		pending := loan.StatusPending
		loans := []*loan.Loan{{ID: testLoanID, Status: pending}}
		mockService.On("ListLoans", mock.Anything, &pending).Return(loans, nil)

		req := httptest.NewRequest(http.MethodGet, "/loans?status=PENDING", nil)
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanListResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp.Loans, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		mockService := new(MockLendingService)
		handler := NewLoanHandler(mockService, logger)

		bad := loan.LoanStatus("OVERDUE")
		mockService.On("ListLoans", mock.Anything, &bad).
			Return(nil, apperrors.NewValidationError("status", `unknown loan status "OVERDUE"`))

		req := httptest.NewRequest(http.MethodGet, "/loans?status=OVERDUE", nil)
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertExpectations(t)
	})
}

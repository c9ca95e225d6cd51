package dto

import (
	"fmt"
	"time"

	"lending-engine/internal/domain/loan"
)

type CreateLoanRequest struct {
	MemberID int64 `json:"memberId"`
	BookID   int64 `json:"bookId"`
}

func (r *CreateLoanRequest) Validate() error {
	if r.MemberID <= 0 {
		return fmt.Errorf("memberId must be positive")
	}
	if r.BookID <= 0 {
		return fmt.Errorf("bookId must be positive")
	}
	return nil
}

// DecisionRequest carries the librarian acting on a pending loan.
type DecisionRequest struct {
	ApproverID int64 `json:"approverId"`
}

func (r *DecisionRequest) Validate() error {
	if r.ApproverID <= 0 {
		return fmt.Errorf("approverId must be positive")
	}
	return nil
}

type LoanResponse struct {
	ID          string     `json:"id"`
	MemberID    int64      `json:"memberId"`
	BookID      int64      `json:"bookId"`
	ApproverID  *int64     `json:"approverId,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type LoanListResponse struct {
	Loans []LoanResponse `json:"loans"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func NewLoanResponse(domainLoan *loan.Loan) LoanResponse {
	return LoanResponse{
		ID:          domainLoan.ID.String(),
		MemberID:    domainLoan.MemberID,
		BookID:      domainLoan.BookID,
		ApproverID:  domainLoan.ApproverID,
		Status:      string(domainLoan.Status),
		RequestedAt: domainLoan.RequestedAt,
		ApprovedAt:  domainLoan.ApprovedAt,
		DueDate:     domainLoan.DueDate,
		ReturnedAt:  domainLoan.ReturnedAt,
		CreatedAt:   domainLoan.CreatedAt,
		UpdatedAt:   domainLoan.UpdatedAt,
	}
}

func NewLoanListResponse(loans []*loan.Loan) LoanListResponse {
	resp := LoanListResponse{Loans: make([]LoanResponse, len(loans))}
	for i, l := range loans {
		resp.Loans[i] = NewLoanResponse(l)
	}
	return resp
}

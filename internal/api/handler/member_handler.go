package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/member"
	"lending-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type MemberHandler struct {
	service        member.MemberService
	lendingService loan.LendingService
	logger         *slog.Logger
}

func NewMemberHandler(s member.MemberService, ls loan.LendingService, l *slog.Logger) *MemberHandler {
	return &MemberHandler{
		service:        s,
		lendingService: ls,
		logger:         l.With("component", "MemberHandler"),
	}
}

func getMemberIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "memberID")
	if idStr == "" {
		return 0, fmt.Errorf("memberID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// RegisterMember registers a new member.
//
// @Summary Register a member
// @Description Registers a new library member.
// @Tags Members
// @Accept json
// @Produce json
// @Param request body dto.RegisterMemberRequest true "Member payload"
// @Success 201 {object} dto.MemberResponse "Member successfully registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members [post]
// @Security BearerAuth
func (h *MemberHandler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.RegisterMember(r.Context(), req.Name, req.Email, req.Phone, req.Address)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewMemberResponse(created))
}

// GetMember retrieves a member by ID.
//
// @Summary Retrieve member details
// @Description Retrieves a member by ID.
// @Tags Members
// @Produce json
// @Param memberID path int true "Member ID"
// @Success 200 {object} dto.MemberResponse "Member successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID} [get]
// @Security BearerAuth
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	m, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewMemberResponse(m))
}

// ListMembers lists all members.
//
// @Summary List members
// @Description Lists all registered members.
// @Tags Members
// @Produce json
// @Success 200 {object} dto.MemberListResponse "Members successfully retrieved"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members [get]
// @Security BearerAuth
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewMemberListResponse(members))
}

// ListMemberLoans lists the loan history of one member.
//
// @Summary List a member's loans
// @Description Lists every loan a member has requested, newest first.
// @Tags Members
// @Produce json
// @Param memberID path int true "Member ID"
// @Success 200 {object} dto.LoanListResponse "Loans successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID}/loans [get]
// @Security BearerAuth
func (h *MemberHandler) ListMemberLoans(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	loans, err := h.lendingService.ListLoansByMember(r.Context(), memberID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(loans))
}

// UpdateMemberContact updates a member's contact details.
//
// @Summary Update member contact details
// @Description Replaces the member's email, phone, and address.
// @Tags Members
// @Accept json
// @Produce json
// @Param memberID path int true "Member ID"
// @Param request body dto.UpdateContactRequest true "Contact payload"
// @Success 200 {object} map[string]string "Contact details successfully updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID}/contact [put]
// @Security BearerAuth
func (h *MemberHandler) UpdateMemberContact(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.UpdateContactRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.UpdateMemberContact(r.Context(), memberID, req.Email, req.Phone, req.Address); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Contact details updated"})
}

// RemoveMember removes a member.
//
// @Summary Remove a member
// @Description Removes a member from the registry.
// @Tags Members
// @Produce json
// @Param memberID path int true "Member ID"
// @Success 204 "Member successfully removed"
// @Failure 400 {object} dto.ErrorResponse "Invalid member ID"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /members/{memberID} [delete]
// @Security BearerAuth
func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := getMemberIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.RemoveMember(r.Context(), memberID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package dto

import (
	"fmt"
	"strings"
	"time"

	"lending-engine/internal/domain/member"
)

type RegisterMemberRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

func (r *RegisterMemberRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

type UpdateContactRequest struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type MemberResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type MemberListResponse struct {
	Members []MemberResponse `json:"members"`
}

func NewMemberResponse(m *member.Member) MemberResponse {
	return MemberResponse{
		ID:           m.MemberID,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		Address:      m.Address,
		RegisteredAt: m.RegisteredAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func NewMemberListResponse(members []*member.Member) MemberListResponse {
	resp := MemberListResponse{Members: make([]MemberResponse, len(members))}
	for i, m := range members {
		resp.Members[i] = NewMemberResponse(m)
	}
	return resp
}

package member

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lending-engine/internal/pkg/apperrors"
)

type MemberService interface {
	RegisterMember(ctx context.Context, name, email, phone, address string) (*Member, error)
	GetMember(ctx context.Context, memberID int64) (*Member, error)
	ListMembers(ctx context.Context) ([]*Member, error)
	UpdateMemberContact(ctx context.Context, memberID int64, email, phone, address string) error
	RemoveMember(ctx context.Context, memberID int64) error
}

var _ MemberService = (*memberService)(nil)

type memberService struct {
	repo   MemberRepository
	logger *slog.Logger
}

func NewMemberService(repo MemberRepository, logger *slog.Logger) MemberService {
	if repo == nil {
		panic("member repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewMemberService, using default stderr handler")
	}

	return &memberService{
		repo:   repo,
		logger: logger.With(slog.String("component", "memberService")),
	}
}

func (s *memberService) RegisterMember(ctx context.Context, name, email, phone, address string) (*Member, error) {
	s.logger.InfoContext(ctx, "Attempting to register new member")

	name = strings.TrimSpace(name)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, apperrors.NewValidationError("name", "member name cannot be empty")
	}

	member := &Member{
		Name:    name,
		Email:   strings.TrimSpace(email),
		Phone:   strings.TrimSpace(phone),
		Address: strings.TrimSpace(address),
	}

	if err := s.repo.Save(ctx, member); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new member", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new member: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully registered new member", slog.Int64("memberID", member.MemberID))
	return member, nil
}

func (s *memberService) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Member not found by repository", slog.Int64("memberID", memberID))
			return nil, fmt.Errorf("%w: member %d not found", apperrors.ErrNotFound, memberID)
		}
		s.logger.ErrorContext(ctx, "Repository error finding member", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get member %d: %w", memberID, err)
	}
	return member, nil
}

func (s *memberService) ListMembers(ctx context.Context) ([]*Member, error) {
	members, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing members", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved members", slog.Int("count", len(members)))
	return members, nil
}

func (s *memberService) UpdateMemberContact(ctx context.Context, memberID int64, email, phone, address string) error {
	s.logger.InfoContext(ctx, "Attempting to update member contact details", slog.Int64("memberID", memberID))

	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: member %d not found", apperrors.ErrNotFound, memberID)
		}
		return fmt.Errorf("cannot find member %d to update: %w", memberID, err)
	}

	member.Email = strings.TrimSpace(email)
	member.Phone = strings.TrimSpace(phone)
	member.Address = strings.TrimSpace(address)

	if err := s.repo.Save(ctx, member); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save updated member", slog.Any("error", err))
		return fmt.Errorf("failed to update member %d: %w", memberID, err)
	}

	s.logger.InfoContext(ctx, "Successfully updated member contact details", slog.Int64("memberID", memberID))
	return nil
}

func (s *memberService) RemoveMember(ctx context.Context, memberID int64) error {
	s.logger.InfoContext(ctx, "Attempting to remove member", slog.Int64("memberID", memberID))

	if err := s.repo.Delete(ctx, memberID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: member %d not found", apperrors.ErrNotFound, memberID)
		}
		s.logger.ErrorContext(ctx, "Repository failed to delete member", slog.Any("error", err))
		return fmt.Errorf("failed to remove member %d: %w", memberID, err)
	}

	s.logger.InfoContext(ctx, "Successfully removed member", slog.Int64("memberID", memberID))
	return nil
}

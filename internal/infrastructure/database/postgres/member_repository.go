package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lending-engine/internal/domain/member"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type MemberRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ member.MemberRepository = (*MemberRepository)(nil)

func NewMemberRepository(db DBPool, logger *slog.Logger) *MemberRepository {
	if db == nil {
		panic("DBPool cannot be nil for MemberRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewMemberRepository, using default stderr handler")
	}
	return &MemberRepository{
		db:     db,
		logger: logger.With("component", "MemberRepository"),
	}
}

func (r *MemberRepository) Save(ctx context.Context, m *member.Member) error {
	if m == nil {
		return fmt.Errorf("%w: member cannot be nil", apperrors.ErrInvalidArgument)
	}

	if m.MemberID == 0 {
		return r.createMember(ctx, m)
	}
	return r.updateMember(ctx, m)
}

func (r *MemberRepository) createMember(ctx context.Context, m *member.Member) error {
	r.logger.InfoContext(ctx, "Attempting to insert new member", slog.String("name", m.Name))

	query := `
        INSERT INTO members (name, email, phone, address, registered_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, registered_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.Name,
		m.Email,
		m.Phone,
		m.Address,
	).Scan(
		&m.MemberID,
		&m.RegisteredAt,
		&m.UpdatedAt,
	)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert member", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert member: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Member inserted successfully", slog.Int64("memberID", m.MemberID))
	return nil
}

func (r *MemberRepository) updateMember(ctx context.Context, m *member.Member) error {
	r.logger.InfoContext(ctx, "Attempting to update member", slog.Int64("memberID", m.MemberID))

	query := `
        UPDATE members
        SET name = $1,
            email = $2,
            phone = $3,
            address = $4,
            updated_at = NOW()
        WHERE id = $5`

	cmdTag, err := r.db.Exec(ctx, query,
		m.Name,
		m.Email,
		m.Phone,
		m.Address,
		m.MemberID,
	)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update member", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update member: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, member likely not found")

		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Member updated successfully")
	return nil
}

func (r *MemberRepository) FindByID(ctx context.Context, memberID int64) (*member.Member, error) {
	query := `
        SELECT id, name, email, phone, address, registered_at, updated_at
        FROM members
        WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var m member.Member
	err := r.db.QueryRow(ctx, query, memberID).Scan(
		&m.MemberID, &m.Name, &m.Email, &m.Phone, &m.Address,
		&m.RegisteredAt, &m.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetMemberByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Member not found", "member_id", memberID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get member by ID", "member_id", memberID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &m, nil
}

func (r *MemberRepository) FindAll(ctx context.Context) ([]*member.Member, error) {
	query := `
        SELECT id, name, email, phone, address, registered_at, updated_at
        FROM members
        ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query members", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		var m member.Member
		err := rows.Scan(
			&m.MemberID, &m.Name, &m.Email, &m.Phone, &m.Address,
			&m.RegisteredAt, &m.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan member row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		members = append(members, &m)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating member rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return members, nil
}

func (r *MemberRepository) Delete(ctx context.Context, memberID int64) error {
	r.logger.InfoContext(ctx, "Attempting to delete member", slog.Int64("memberID", memberID))

	cmdTag, err := r.db.Exec(ctx, `DELETE FROM members WHERE id = $1`, memberID)
	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		r.logger.ErrorContext(ctx, "Failed to delete member", slog.Any("error", err))
		return translatedErr
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Member deleted successfully", slog.Int64("memberID", memberID))
	return nil
}

package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"lending-engine/internal/domain/member"
	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var memberTest = &member.Member{
	MemberID: 7,
	Name:     "Jane Doe",
	Email:    "jane@example.com",
	Phone:    "555-0142",
	Address:  "123 Main St",
}

func setupMemberRepo(t *testing.T) (context.Context, *MemberRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewMemberRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func TestCreateMemberWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	m := &member.Member{Name: memberTest.Name, Email: memberTest.Email, Phone: memberTest.Phone, Address: memberTest.Address}
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	query := `
        INSERT INTO members (name, email, phone, address, registered_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, registered_at, updated_at`

	mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(
		m.Name, m.Email, m.Phone, m.Address,
	).WillReturnRows(pgxmock.NewRows([]string{"id", "registered_at", "updated_at"}).
		AddRow(int64(7), now, now))

	err := repo.Save(ctx, m)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), m.MemberID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUpdateMemberWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta(`UPDATE members`)).WithArgs(
		memberTest.Name, memberTest.Email, memberTest.Phone, memberTest.Address, memberTest.MemberID,
	).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Save(ctx, memberTest)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindMemberByIDWhenNotFound(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM members`)).
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindMemberByIDWhenFound(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "name", "email", "phone", "address", "registered_at", "updated_at"}).
		AddRow(memberTest.MemberID, memberTest.Name, memberTest.Email, memberTest.Phone, memberTest.Address, now, now)

	mockPool.ExpectQuery(regexp.QuoteMeta(`FROM members`)).
		WithArgs(memberTest.MemberID).
		WillReturnRows(rows)

	got, err := repo.FindByID(ctx, memberTest.MemberID)
	assert.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, memberTest.Name, got.Name)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestDeleteMemberWhenNotFound(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM members WHERE id = $1`)).
		WithArgs(int64(404)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

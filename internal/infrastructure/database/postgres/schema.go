package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitializeSchema creates the tables and constraints the repositories
// rely on. The CHECK constraints and the partial unique index are
// correctness backstops, not just schema documentation: the ledger's
// conditional updates and the active-loan check both assume them.
func InitializeSchema(ctx context.Context, db *pgxpool.Pool, logger *slog.Logger) error {
	logger.Info("Checking database schema...")

	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		phone VARCHAR(20),
		address TEXT,
		registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS books (
		id BIGSERIAL PRIMARY KEY,
		isbn VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		synopsis TEXT,
		author VARCHAR(255),
		publisher VARCHAR(255),
		year INT NOT NULL DEFAULT 0,
		total_copies INT NOT NULL DEFAULT 0,
		available_copies INT NOT NULL DEFAULT 0,
		category_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_books_copies CHECK (available_copies >= 0 AND available_copies <= total_copies)
	);

	CREATE TABLE IF NOT EXISTS loans (
		id UUID PRIMARY KEY,
		member_id BIGINT NOT NULL REFERENCES members(id),
		book_id BIGINT NOT NULL REFERENCES books(id),
		approver_id BIGINT,
		status VARCHAR(16) NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL,
		approved_at TIMESTAMPTZ,
		due_date TIMESTAMPTZ,
		returned_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_loans_status CHECK (status IN ('PENDING','APPROVED','REJECTED','RETURNED'))
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_loans_active_member_book
		ON loans (member_id, book_id)
		WHERE status IN ('PENDING','APPROVED');

	CREATE INDEX IF NOT EXISTS idx_loans_member ON loans (member_id);
	CREATE INDEX IF NOT EXISTS idx_loans_status_due ON loans (status, due_date);
	`

	if _, err := db.Exec(ctx, schema); err != nil {
		logger.Error("Failed to initialize database schema", "error", err)
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Database schema is up to date.")
	return nil
}

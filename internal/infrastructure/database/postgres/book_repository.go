package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lending-engine/internal/domain/book"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// BookRepository is both the catalog store and the inventory ledger.
// available_copies is only ever written through ReserveCopyInTx,
// ReleaseCopyInTx, and the conditional update behind Save that folds a
// total_copies change into it; nothing else in the codebase assigns it.
type BookRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ book.BookRepository = (*BookRepository)(nil)

var _ loan.InventoryRepository = (*BookRepository)(nil)

func NewBookRepository(db DBPool, logger *slog.Logger) *BookRepository {
	if db == nil {
		panic("DBPool cannot be nil for BookRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBookRepository, using default stderr handler")
	}
	return &BookRepository{
		db:     db,
		logger: logger.With("component", "BookRepository"),
	}
}

// ReserveCopyInTx holds one copy for a loan. The availability check and
// the decrement are a single statement, so two concurrent reservations
// can never both pass a stale check.
func (r *BookRepository) ReserveCopyInTx(ctx context.Context, tx pgx.Tx, bookID int64) error {
	sql := `
        UPDATE books
        SET available_copies = available_copies - 1, updated_at = NOW()
        WHERE id = $1 AND available_copies > 0`

	status := "success"
	startTime := time.Now()
	cmdTag, err := tx.Exec(ctx, sql, bookID)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("ReserveCopy", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to reserve copy", "book_id", bookID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		exists, err := r.bookExists(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			r.logger.WarnContext(ctx, "Book not found for reservation", "book_id", bookID)
			return fmt.Errorf("%w: book %d not found", apperrors.ErrNotFound, bookID)
		}
		r.logger.WarnContext(ctx, "No copies available to reserve", "book_id", bookID)
		return fmt.Errorf("%w: book %d", apperrors.ErrInsufficientStock, bookID)
	}

	return nil
}

// ReleaseCopyInTx returns one copy to the pool. Releasing past
// total_copies means a reserve/release pairing bug somewhere upstream,
// so it fails loudly instead of clamping.
func (r *BookRepository) ReleaseCopyInTx(ctx context.Context, tx pgx.Tx, bookID int64) error {
	sql := `
        UPDATE books
        SET available_copies = available_copies + 1, updated_at = NOW()
        WHERE id = $1 AND available_copies < total_copies`

	status := "success"
	startTime := time.Now()
	cmdTag, err := tx.Exec(ctx, sql, bookID)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("ReleaseCopy", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to release copy", "book_id", bookID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		exists, err := r.bookExists(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			r.logger.WarnContext(ctx, "Book not found for release", "book_id", bookID)
			return fmt.Errorf("%w: book %d not found", apperrors.ErrNotFound, bookID)
		}
		r.logger.ErrorContext(ctx, "Release would exceed total copies, refusing", "book_id", bookID)
		return fmt.Errorf("%w: release would exceed total copies for book %d", apperrors.ErrInventoryInvariant, bookID)
	}

	return nil
}

// rowQuerier is the slice of DBPool and pgx.Tx the existence check needs,
// so it runs against whichever of the two the caller is holding.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *BookRepository) bookExists(ctx context.Context, q rowQuerier, bookID int64) (bool, error) {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM books WHERE id = $1`, bookID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.ErrorContext(ctx, "Failed to check book existence", "book_id", bookID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return true, nil
}

func (r *BookRepository) Save(ctx context.Context, b *book.Book) error {
	if b == nil {
		return fmt.Errorf("%w: book cannot be nil", apperrors.ErrInvalidArgument)
	}

	if b.BookID == 0 {
		return r.createBook(ctx, b)
	}
	return r.updateBook(ctx, b)
}

func (r *BookRepository) createBook(ctx context.Context, b *book.Book) error {
	r.logger.InfoContext(ctx, "Attempting to insert new book", slog.String("title", b.Title))

	query := `
        INSERT INTO books (isbn, title, synopsis, author, publisher, year, total_copies, available_copies, category_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		b.ISBN,
		b.Title,
		b.Synopsis,
		b.Author,
		b.Publisher,
		b.Year,
		b.TotalCopies,
		b.AvailableCopies,
		b.CategoryID,
	).Scan(
		&b.BookID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert book", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert book: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Book inserted successfully", slog.Int64("bookID", b.BookID))
	return nil
}

// updateBook folds any total_copies change into available_copies in the
// same statement, with the shrink guard in the WHERE clause. Postgres
// evaluates the SET expressions against the old row, so a concurrent
// reservation cannot slip between a read of the ledger and this write.
func (r *BookRepository) updateBook(ctx context.Context, b *book.Book) error {
	r.logger.InfoContext(ctx, "Attempting to update book", slog.Int64("bookID", b.BookID))

	query := `
        UPDATE books
        SET isbn = $1,
            title = $2,
            synopsis = $3,
            author = $4,
            publisher = $5,
            year = $6,
            available_copies = available_copies + ($7 - total_copies),
            total_copies = $7,
            category_id = $8,
            updated_at = NOW()
        WHERE id = $9 AND available_copies + ($7 - total_copies) >= 0
        RETURNING available_copies, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		b.ISBN,
		b.Title,
		b.Synopsis,
		b.Author,
		b.Publisher,
		b.Year,
		b.TotalCopies,
		b.CategoryID,
		b.BookID,
	).Scan(
		&b.AvailableCopies,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := r.bookExists(ctx, r.db, b.BookID)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				r.logger.WarnContext(ctx, "Update matched no rows, book not found", slog.Int64("bookID", b.BookID))
				return apperrors.ErrNotFound
			}
			r.logger.WarnContext(ctx, "Refusing to shrink total copies below copies on loan", slog.Int64("bookID", b.BookID))
			return fmt.Errorf("%w: cannot shrink total copies below the number currently on loan for book %d",
				apperrors.ErrInventoryInvariant, b.BookID)
		}
		r.logger.ErrorContext(ctx, "Failed to update book", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update book: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Book updated successfully")
	return nil
}

func (r *BookRepository) FindByID(ctx context.Context, bookID int64) (*book.Book, error) {
	query := `
        SELECT id, isbn, title, synopsis, author, publisher, year, total_copies, available_copies, category_id, created_at, updated_at
        FROM books
        WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var b book.Book
	err := r.db.QueryRow(ctx, query, bookID).Scan(
		&b.BookID, &b.ISBN, &b.Title, &b.Synopsis, &b.Author, &b.Publisher,
		&b.Year, &b.TotalCopies, &b.AvailableCopies, &b.CategoryID,
		&b.CreatedAt, &b.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetBookByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Book not found", "book_id", bookID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get book by ID", "book_id", bookID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &b, nil
}

func (r *BookRepository) FindAll(ctx context.Context) ([]*book.Book, error) {
	query := `
        SELECT id, isbn, title, synopsis, author, publisher, year, total_copies, available_copies, category_id, created_at, updated_at
        FROM books
        ORDER BY title ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query books", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	books := make([]*book.Book, 0)
	for rows.Next() {
		var b book.Book
		err := rows.Scan(
			&b.BookID, &b.ISBN, &b.Title, &b.Synopsis, &b.Author, &b.Publisher,
			&b.Year, &b.TotalCopies, &b.AvailableCopies, &b.CategoryID,
			&b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan book row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		books = append(books, &b)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating book rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return books, nil
}

func (r *BookRepository) Delete(ctx context.Context, bookID int64) error {
	r.logger.InfoContext(ctx, "Attempting to delete book", slog.Int64("bookID", bookID))

	cmdTag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		r.logger.ErrorContext(ctx, "Failed to delete book", slog.Any("error", err))
		return translatedErr
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Book deleted successfully", slog.Int64("bookID", bookID))
	return nil
}

package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lending-engine/internal/pkg/apperrors"

	lru "github.com/hashicorp/golang-lru/v2"
)

type CatalogService interface {
	AddBook(ctx context.Context, book *Book) (*Book, error)
	GetBook(ctx context.Context, bookID int64) (*Book, error)
	ListBooks(ctx context.Context) ([]*Book, error)
	UpdateBook(ctx context.Context, book *Book) error
	RemoveBook(ctx context.Context, bookID int64) error
}

var _ CatalogService = (*catalogService)(nil)

type catalogService struct {
	repo   BookRepository
	cache  *lru.Cache[int64, *Book]
	logger *slog.Logger
}

// NewCatalogService serves catalog reads through an in-process LRU
// cache. Lifecycle operations never go through this service; the cached
// AvailableCopies is a point-in-time snapshot, not the ledger.
func NewCatalogService(repo BookRepository, cacheSize int, logger *slog.Logger) (CatalogService, error) {
	if repo == nil {
		panic("book repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}

	cache, err := lru.New[int64, *Book](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create book catalog cache: %w", err)
	}

	return &catalogService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(slog.String("component", "catalogService")),
	}, nil
}

func (s *catalogService) AddBook(ctx context.Context, book *Book) (*Book, error) {
	s.logger.InfoContext(ctx, "Attempting to add book to catalog")

	if err := validateBook(book); err != nil {
		s.logger.WarnContext(ctx, "Book validation failed", slog.Any("error", err))
		return nil, err
	}
	book.AvailableCopies = book.TotalCopies

	if err := s.repo.Save(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new book", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new book: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully added book", slog.Int64("bookID", book.BookID))
	return book, nil
}

func (s *catalogService) GetBook(ctx context.Context, bookID int64) (*Book, error) {
	if cached, ok := s.cache.Get(bookID); ok {
		s.logger.DebugContext(ctx, "Book catalog cache hit", slog.Int64("bookID", bookID))
		return cached, nil
	}

	book, err := s.repo.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Book not found by repository", slog.Int64("bookID", bookID))
			return nil, fmt.Errorf("%w: book %d not found", apperrors.ErrNotFound, bookID)
		}
		s.logger.ErrorContext(ctx, "Repository error finding book", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get book %d: %w", bookID, err)
	}

	s.cache.Add(bookID, book)
	return book, nil
}

func (s *catalogService) ListBooks(ctx context.Context) ([]*Book, error) {
	books, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing books", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved books", slog.Int("count", len(books)))
	return books, nil
}

func (s *catalogService) UpdateBook(ctx context.Context, book *Book) error {
	s.logger.InfoContext(ctx, "Attempting to update book", slog.Int64("bookID", book.BookID))

	if err := validateBook(book); err != nil {
		s.logger.WarnContext(ctx, "Book validation failed", slog.Any("error", err))
		return err
	}

	// The repository folds a total_copies change into available_copies
	// atomically; copies on loan stay accounted for. Shrinking below the
	// number currently on loan surfaces as ErrInventoryInvariant.
	if err := s.repo.Save(ctx, book); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: book %d not found", apperrors.ErrNotFound, book.BookID)
		}
		if errors.Is(err, apperrors.ErrInventoryInvariant) {
			s.logger.WarnContext(ctx, "Refused total copies shrink", slog.Int64("bookID", book.BookID))
			return err
		}
		s.logger.ErrorContext(ctx, "Repository failed to save updated book", slog.Any("error", err))
		return fmt.Errorf("failed to update book %d: %w", book.BookID, err)
	}

	s.cache.Remove(book.BookID)
	s.logger.InfoContext(ctx, "Successfully updated book", slog.Int64("bookID", book.BookID))
	return nil
}

func (s *catalogService) RemoveBook(ctx context.Context, bookID int64) error {
	s.logger.InfoContext(ctx, "Attempting to remove book", slog.Int64("bookID", bookID))

	if err := s.repo.Delete(ctx, bookID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: book %d not found", apperrors.ErrNotFound, bookID)
		}
		s.logger.ErrorContext(ctx, "Repository failed to delete book", slog.Any("error", err))
		return fmt.Errorf("failed to remove book %d: %w", bookID, err)
	}

	s.cache.Remove(bookID)
	s.logger.InfoContext(ctx, "Successfully removed book", slog.Int64("bookID", bookID))
	return nil
}

func validateBook(book *Book) error {
	if book == nil {
		return apperrors.NewValidationError("", "book cannot be nil")
	}
	if strings.TrimSpace(book.Title) == "" {
		return apperrors.NewValidationError("title", "book title cannot be empty")
	}
	if strings.TrimSpace(book.ISBN) == "" {
		return apperrors.NewValidationError("isbn", "book ISBN cannot be empty")
	}
	if book.TotalCopies < 0 {
		return apperrors.NewValidationError("totalCopies", "total copies cannot be negative")
	}
	return nil
}

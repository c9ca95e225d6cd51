package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/book"
	"lending-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type BookHandler struct {
	service book.CatalogService
	logger  *slog.Logger
}

func NewBookHandler(s book.CatalogService, l *slog.Logger) *BookHandler {
	return &BookHandler{
		service: s,
		logger:  l.With("component", "BookHandler"),
	}
}

func getBookIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "bookID")
	if idStr == "" {
		return 0, fmt.Errorf("bookID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// AddBook adds a new book to the catalog.
//
// @Summary Add a book
// @Description Adds a new book to the catalog. All copies start available.
// @Tags Books
// @Accept json
// @Produce json
// @Param request body dto.SaveBookRequest true "Book payload"
// @Success 201 {object} dto.BookResponse "Book successfully added"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /books [post]
// @Security BearerAuth
func (h *BookHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveBookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.AddBook(r.Context(), req.ToDomain(0))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewBookResponse(created))
}

// GetBook retrieves a book by ID.
//
// @Summary Retrieve book details
// @Description Retrieves a catalog entry, including total and available copy counts.
// @Tags Books
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} dto.BookResponse "Book successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid book ID"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /books/{bookID} [get]
// @Security BearerAuth
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := getBookIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	b, err := h.service.GetBook(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBookResponse(b))
}

// ListBooks lists the catalog.
//
// @Summary List books
// @Description Lists all books in the catalog.
// @Tags Books
// @Produce json
// @Success 200 {object} dto.BookListResponse "Books successfully retrieved"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /books [get]
// @Security BearerAuth
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBookListResponse(books))
}

// UpdateBook updates a catalog entry.
//
// @Summary Update a book
// @Description Updates catalog data for a book. Changing totalCopies adjusts availability by the same delta; shrinking below the number of copies currently on loan is refused.
// @Tags Books
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID"
// @Param request body dto.SaveBookRequest true "Book payload"
// @Success 200 {object} dto.BookResponse "Book successfully updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Failure 409 {object} dto.ErrorResponse "Shrinking below the number of copies on loan"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /books/{bookID} [put]
// @Security BearerAuth
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := getBookIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.SaveBookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	updated := req.ToDomain(bookID)
	if err := h.service.UpdateBook(r.Context(), updated); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBookResponse(updated))
}

// RemoveBook removes a book from the catalog.
//
// @Summary Remove a book
// @Description Removes a book from the catalog.
// @Tags Books
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 204 "Book successfully removed"
// @Failure 400 {object} dto.ErrorResponse "Invalid book ID"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /books/{bookID} [delete]
// @Security BearerAuth
func (h *BookHandler) RemoveBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := getBookIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.RemoveBook(r.Context(), bookID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

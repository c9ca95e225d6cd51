package dto

import (
	"fmt"
	"strings"
	"time"

	"lending-engine/internal/domain/book"
)

type SaveBookRequest struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Synopsis    string `json:"synopsis,omitempty"`
	Author      string `json:"author,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Year        int    `json:"year,omitempty"`
	TotalCopies int    `json:"totalCopies"`
	CategoryID  *int64 `json:"categoryId,omitempty"`
}

func (r *SaveBookRequest) Validate() error {
	if strings.TrimSpace(r.ISBN) == "" {
		return fmt.Errorf("isbn is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if r.TotalCopies < 0 {
		return fmt.Errorf("totalCopies cannot be negative")
	}
	return nil
}

func (r *SaveBookRequest) ToDomain(bookID int64) *book.Book {
	return &book.Book{
		BookID:      bookID,
		ISBN:        strings.TrimSpace(r.ISBN),
		Title:       strings.TrimSpace(r.Title),
		Synopsis:    r.Synopsis,
		Author:      r.Author,
		Publisher:   r.Publisher,
		Year:        r.Year,
		TotalCopies: r.TotalCopies,
		CategoryID:  r.CategoryID,
	}
}

type BookResponse struct {
	ID              int64     `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Synopsis        string    `json:"synopsis,omitempty"`
	Author          string    `json:"author,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	Year            int       `json:"year,omitempty"`
	TotalCopies     int       `json:"totalCopies"`
	AvailableCopies int       `json:"availableCopies"`
	OnLoan          int       `json:"onLoan"`
	CategoryID      *int64    `json:"categoryId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type BookListResponse struct {
	Books []BookResponse `json:"books"`
}

func NewBookResponse(b *book.Book) BookResponse {
	return BookResponse{
		ID:              b.BookID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Synopsis:        b.Synopsis,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Year:            b.Year,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		OnLoan:          b.OnLoan(),
		CategoryID:      b.CategoryID,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func NewBookListResponse(books []*book.Book) BookListResponse {
	resp := BookListResponse{Books: make([]BookResponse, len(books))}
	for i, b := range books {
		resp.Books[i] = NewBookResponse(b)
	}
	return resp
}

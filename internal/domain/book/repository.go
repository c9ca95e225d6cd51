package book

import "context"

type BookRepository interface {
	Save(ctx context.Context, book *Book) error

	FindByID(ctx context.Context, bookID int64) (*Book, error)

	FindAll(ctx context.Context) ([]*Book, error)

	Delete(ctx context.Context, bookID int64) error
}

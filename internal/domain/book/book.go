package book

import (
	"time"
)

// Book is a lendable catalog entry. AvailableCopies is mutated only by
// the inventory ledger's reserve/release statements; catalog updates may
// change TotalCopies but never write AvailableCopies directly.
type Book struct {
	BookID          int64
	ISBN            string
	Title           string
	Synopsis        string
	Author          string
	Publisher       string
	Year            int
	TotalCopies     int
	AvailableCopies int
	CategoryID      *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OnLoan is the number of copies currently reserved by active loans.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

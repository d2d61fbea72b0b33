// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"circulation/internal/model"
)

// BookRepository provides CRUD access to the book catalog and its copy counters.
// Counter mutations during circulation go through BorrowingRepository; direct
// Update calls must keep available_quantity within [0, total_quantity].
type BookRepository interface {
	// Create inserts a new book and fills its generated ID and timestamps.
	Create(ctx context.Context, b *model.Book) error
	// GetByID loads a book by ID.
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	// GetByISBN loads a book by its ISBN.
	GetByISBN(ctx context.Context, isbn string) (*model.Book, error)
	// Update rewrites title, author, ISBN and quantities of an existing book.
	Update(ctx context.Context, b *model.Book) error
	// Delete removes a book; fails while active borrowings reference it.
	Delete(ctx context.Context, id int64) error
	// FindLowAvailability returns books with 0 < available <= threshold,
	// scarcest first.
	FindLowAvailability(ctx context.Context, threshold int) ([]model.Book, error)
	// ISBNTaken reports whether another book (id != excludeID) already uses isbn.
	ISBNTaken(ctx context.Context, isbn string, excludeID int64) (bool, error)
}

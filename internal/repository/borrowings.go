package repository

import (
	"context"
	"time"

	"circulation/internal/model"
)

// BorrowingRepository is the ledger of loans. The three state-changing
// operations each run as a single transaction with row locks, so that
// concurrent calls against the same book or borrowing serialize and the
// availability counter never diverges from the set of active loans.
type BorrowingRepository interface {
	// Checkout decrements the book's available count and inserts an active
	// borrowing, atomically. Preconditions checked inside the transaction:
	// book and borrower exist, copies are available, and the borrower holds
	// no active loan for the same book.
	Checkout(ctx context.Context, bookID, borrowerID int64, checkoutDate, dueDate time.Time) (*model.BorrowingDetails, error)

	// Return closes an active borrowing and increments the book's available
	// count, atomically. A second return of the same borrowing fails.
	Return(ctx context.Context, borrowingID int64, returnDate time.Time) (*model.BorrowingDetails, error)

	// Extend moves the due date of an active borrowing forward, increments
	// its extension count and replaces the stored reason.
	Extend(ctx context.Context, borrowingID int64, newDueDate time.Time, reason *string) (*model.BorrowingDetails, error)

	// GetDetails loads one borrowing with its book/borrower summaries.
	GetDetails(ctx context.Context, id int64) (*model.BorrowingDetails, error)

	// List returns one page of borrowings matching the filter; now anchors
	// the overdue status filter.
	List(ctx context.Context, f model.BorrowingFilter, now time.Time) (*model.BorrowingPage, error)

	// HasActiveBorrowing reports whether the borrower currently holds an
	// active loan for the book.
	HasActiveBorrowing(ctx context.Context, borrowerID, bookID int64) (bool, error)

	// Stats aggregates borrowings checked out within [from, to]; now anchors
	// the overdue count.
	Stats(ctx context.Context, from, to, now time.Time) (*model.BorrowingStats, error)
}

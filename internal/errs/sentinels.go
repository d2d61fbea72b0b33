// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested book, borrower or borrowing does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates a checkout against a book with no copies left.
	ErrUnavailable = errors.New("no copies available")

	// ErrAlreadyReturned indicates a return attempt on a borrowing that is already closed.
	ErrAlreadyReturned = errors.New("already returned")

	// ErrDuplicateLoan indicates the borrower already holds an active loan for this book.
	ErrDuplicateLoan = errors.New("already checked out")

	// ErrHasActiveBorrowings indicates a delete blocked by active borrowings referencing the row.
	ErrHasActiveBorrowings = errors.New("active borrowings exist")

	// ErrAlreadyExists indicates a unique constraint violation (ISBN or email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates a malformed or past-dated value rejected before any write.
	ErrInvalidInput = errors.New("invalid input")
)

// IsConflict reports whether err belongs to the conflict group: duplicate
// active loan, double return, guarded delete, or a uniqueness collision.
// Callers map these to a single 409-style outcome.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateLoan) ||
		errors.Is(err, ErrAlreadyReturned) ||
		errors.Is(err, ErrHasActiveBorrowings) ||
		errors.Is(err, ErrAlreadyExists)
}

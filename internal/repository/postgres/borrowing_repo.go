package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"circulation/internal/errs"
	"circulation/internal/model"
)

// BorrowingRepo implements BorrowingRepository using PostgreSQL.
//
// Checkout, Return and Extend each run as one transaction. The book row is
// locked with SELECT ... FOR UPDATE before its counter moves, and the
// borrowing row before its state changes, so concurrent calls against the
// same book or loan serialize: two checkouts racing for the last copy end up
// with exactly one success, and a double return loses on the lock rather
// than incrementing the counter twice. Lock order is borrowing row first,
// book row second, everywhere.
type BorrowingRepo struct{ db *DB }

// NewBorrowingRepo constructs a borrowing repository.
func NewBorrowingRepo(db *DB) *BorrowingRepo { return &BorrowingRepo{db: db} }

const (
	lockBookForCheckout = `
SELECT title, author, isbn, available_quantity FROM books WHERE id=$1 FOR UPDATE`

	selBorrowerSummary = `SELECT name, email FROM borrowers WHERE id=$1`

	selHasActive = `
SELECT EXISTS (SELECT 1 FROM borrowings WHERE borrower_id=$1 AND book_id=$2 AND return_date IS NULL)`

	insBorrowing = `
INSERT INTO borrowings (book_id, borrower_id, checkout_date, due_date)
VALUES ($1, $2, $3, $4)
RETURNING id, extension_count`

	selBorrowingForUpdate = `
SELECT book_id, borrower_id, checkout_date, due_date, return_date, extension_count, extension_reason
FROM borrowings WHERE id=$1 FOR UPDATE`

	lockBookForReturn = `SELECT title, author, isbn FROM books WHERE id=$1 FOR UPDATE`

	updReturn = `UPDATE borrowings SET return_date=$2 WHERE id=$1`

	updExtend = `
UPDATE borrowings
SET due_date=$2, extension_count=extension_count+1, extension_reason=$3
WHERE id=$1`

	selBookSummary = `SELECT title, author, isbn FROM books WHERE id=$1`
)

// Checkout validates the preconditions under the book's row lock and then
// moves the counter and inserts the loan as one atomic unit.
func (r *BorrowingRepo) Checkout(
	ctx context.Context, bookID, borrowerID int64, checkoutDate, dueDate time.Time,
) (*model.BorrowingDetails, error) {
	var d model.BorrowingDetails
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		var available int
		err := tx.QueryRow(ctx, lockBookForCheckout, bookID).
			Scan(&d.Book.Title, &d.Book.Author, &d.Book.ISBN, &available)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("book %d: %w", bookID, errs.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if available <= 0 {
			return fmt.Errorf("book %d: %w", bookID, errs.ErrUnavailable)
		}

		err = tx.QueryRow(ctx, selBorrowerSummary, borrowerID).
			Scan(&d.Borrower.Name, &d.Borrower.Email)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("borrower %d: %w", borrowerID, errs.ErrNotFound)
		}
		if err != nil {
			return err
		}

		// The book row lock serializes checkouts of this book, so the
		// duplicate guard cannot race with itself.
		var dup bool
		if err = tx.QueryRow(ctx, selHasActive, borrowerID, bookID).Scan(&dup); err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("borrower %d, book %d: %w", borrowerID, bookID, errs.ErrDuplicateLoan)
		}

		if err = adjustAvailability(ctx, tx, bookID, -1); err != nil {
			return err
		}

		if err = tx.QueryRow(ctx, insBorrowing, bookID, borrowerID, checkoutDate, dueDate).
			Scan(&d.ID, &d.ExtensionCount); err != nil {
			return err
		}
		d.BookID = bookID
		d.BorrowerID = borrowerID
		d.CheckoutDate = checkoutDate
		d.DueDate = dueDate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Return closes the loan and gives the copy back to the book's counter.
func (r *BorrowingRepo) Return(
	ctx context.Context, borrowingID int64, returnDate time.Time,
) (*model.BorrowingDetails, error) {
	var d model.BorrowingDetails
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		if err := r.lockBorrowing(ctx, tx, borrowingID, &d.Borrowing); err != nil {
			return err
		}
		if d.ReturnDate != nil {
			return fmt.Errorf("borrowing %d: %w", borrowingID, errs.ErrAlreadyReturned)
		}

		err := tx.QueryRow(ctx, lockBookForReturn, d.BookID).
			Scan(&d.Book.Title, &d.Book.Author, &d.Book.ISBN)
		if err != nil {
			return err
		}

		if err = adjustAvailability(ctx, tx, d.BookID, +1); err != nil {
			return err
		}

		if _, err = tx.Exec(ctx, updReturn, borrowingID, returnDate); err != nil {
			return err
		}
		d.ReturnDate = &returnDate

		return tx.QueryRow(ctx, selBorrowerSummary, d.BorrowerID).
			Scan(&d.Borrower.Name, &d.Borrower.Email)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Extend advances the due date of an active loan, bumping the extension
// counter and replacing the stored reason.
func (r *BorrowingRepo) Extend(
	ctx context.Context, borrowingID int64, newDueDate time.Time, reason *string,
) (*model.BorrowingDetails, error) {
	var d model.BorrowingDetails
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		if err := r.lockBorrowing(ctx, tx, borrowingID, &d.Borrowing); err != nil {
			return err
		}
		if d.ReturnDate != nil {
			// The extension contract only matches active loans.
			return fmt.Errorf("active borrowing %d: %w", borrowingID, errs.ErrNotFound)
		}

		if _, err := tx.Exec(ctx, updExtend, borrowingID, newDueDate, reason); err != nil {
			return err
		}
		d.DueDate = newDueDate
		d.ExtensionCount++
		d.ExtensionReason = reason

		if err := tx.QueryRow(ctx, selBookSummary, d.BookID).
			Scan(&d.Book.Title, &d.Book.Author, &d.Book.ISBN); err != nil {
			return err
		}
		return tx.QueryRow(ctx, selBorrowerSummary, d.BorrowerID).
			Scan(&d.Borrower.Name, &d.Borrower.Email)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// lockBorrowing loads a borrowing row under FOR UPDATE into b.
func (r *BorrowingRepo) lockBorrowing(ctx context.Context, tx pgx.Tx, id int64, b *model.Borrowing) error {
	err := tx.QueryRow(ctx, selBorrowingForUpdate, id).
		Scan(&b.BookID, &b.BorrowerID, &b.CheckoutDate, &b.DueDate,
			&b.ReturnDate, &b.ExtensionCount, &b.ExtensionReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("borrowing %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// GetDetails loads one borrowing joined with its book and borrower.
func (r *BorrowingRepo) GetDetails(ctx context.Context, id int64) (*model.BorrowingDetails, error) {
	const q = `
SELECT b.id, b.book_id, b.borrower_id, b.checkout_date, b.due_date, b.return_date,
       b.extension_count, b.extension_reason,
       bk.title, bk.author, bk.isbn, br.name, br.email
FROM borrowings b
JOIN books bk ON bk.id = b.book_id
JOIN borrowers br ON br.id = b.borrower_id
WHERE b.id=$1`
	var d model.BorrowingDetails
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.BookID, &d.BorrowerID, &d.CheckoutDate, &d.DueDate, &d.ReturnDate,
		&d.ExtensionCount, &d.ExtensionReason,
		&d.Book.Title, &d.Book.Author, &d.Book.ISBN, &d.Borrower.Name, &d.Borrower.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("borrowing %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HasActiveBorrowing reports whether the borrower currently holds the book.
func (r *BorrowingRepo) HasActiveBorrowing(ctx context.Context, borrowerID, bookID int64) (bool, error) {
	var has bool
	if err := r.db.Pool.QueryRow(ctx, selHasActive, borrowerID, bookID).Scan(&has); err != nil {
		return false, err
	}
	return has, nil
}

// List returns one page of borrowings matching the filter.
func (r *BorrowingRepo) List(
	ctx context.Context, f model.BorrowingFilter, now time.Time,
) (*model.BorrowingPage, error) {
	countSQL, pageSQL, err := buildListQueries(f, now)
	if err != nil {
		return nil, err
	}

	var total int
	if err = r.db.Pool.QueryRow(ctx, countSQL).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, pageSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BorrowingDetails, 0, f.Limit)
	for rows.Next() {
		var d model.BorrowingDetails
		if err = rows.Scan(
			&d.ID, &d.BookID, &d.BorrowerID, &d.CheckoutDate, &d.DueDate, &d.ReturnDate,
			&d.ExtensionCount, &d.ExtensionReason,
			&d.Book.Title, &d.Book.Author, &d.Book.ISBN, &d.Borrower.Name, &d.Borrower.Email,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	totalPages := 0
	if f.Limit > 0 {
		totalPages = (total + f.Limit - 1) / f.Limit
	}
	return &model.BorrowingPage{
		Borrowings: out,
		Pagination: model.PageInfo{Page: f.Page, Limit: f.Limit, Total: total, TotalPages: totalPages},
	}, nil
}

// Stats aggregates borrowings checked out within [from, to].
func (r *BorrowingRepo) Stats(ctx context.Context, from, to, now time.Time) (*model.BorrowingStats, error) {
	statsSQL, err := buildStatsQuery(from, to, now)
	if err != nil {
		return nil, err
	}
	s := model.BorrowingStats{From: from, To: to}
	if err = r.db.Pool.QueryRow(ctx, statsSQL).
		Scan(&s.Total, &s.Returned, &s.Active, &s.Overdue); err != nil {
		return nil, err
	}
	return &s, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"circulation/internal/errs"
	"circulation/internal/model"
)

// BookRepo implements BookRepository using PostgreSQL.
type BookRepo struct{ db *DB }

// NewBookRepo constructs a book repository.
func NewBookRepo(db *DB) *BookRepo { return &BookRepo{db: db} }

// Create inserts a new book row and fills the generated fields.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	const q = `
INSERT INTO books (title, author, isbn, available_quantity, total_quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, b.Title, b.Author, b.ISBN, b.AvailableQuantity, b.TotalQuantity).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("isbn %s: %w", b.ISBN, errs.ErrAlreadyExists)
	}
	if isCheckViolation(err) {
		return fmt.Errorf("book quantities: %w", errs.ErrInvalidInput)
	}
	return err
}

// GetByID selects a book by ID.
func (r *BookRepo) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
SELECT id, title, author, isbn, available_quantity, total_quantity, created_at, updated_at
FROM books WHERE id=$1`
	return r.scanBook(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByISBN selects a book by ISBN.
func (r *BookRepo) GetByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	const q = `
SELECT id, title, author, isbn, available_quantity, total_quantity, created_at, updated_at
FROM books WHERE isbn=$1`
	return r.scanBook(r.db.Pool.QueryRow(ctx, q, isbn))
}

func (r *BookRepo) scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN,
		&b.AvailableQuantity, &b.TotalQuantity, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Update rewrites the mutable columns of a book. Direct quantity edits are
// re-validated by the CHECK constraint on the row.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	const q = `
UPDATE books
SET title=$2, author=$3, isbn=$4, available_quantity=$5, total_quantity=$6, updated_at=now()
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, b.ID, b.Title, b.Author, b.ISBN, b.AvailableQuantity, b.TotalQuantity)
	if isUniqueViolation(err) {
		return fmt.Errorf("isbn %s: %w", b.ISBN, errs.ErrAlreadyExists)
	}
	if isCheckViolation(err) {
		return fmt.Errorf("book quantities: %w", errs.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a book unless active borrowings still reference it. The row
// is locked first so a concurrent checkout cannot slip in between the guard
// and the delete.
func (r *BookRepo) Delete(ctx context.Context, id int64) error {
	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		const sel = `SELECT id FROM books WHERE id=$1 FOR UPDATE`
		var got int64
		if err := tx.QueryRow(ctx, sel, id).Scan(&got); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}

		const cnt = `SELECT COUNT(*) FROM borrowings WHERE book_id=$1 AND return_date IS NULL`
		var active int
		if err := tx.QueryRow(ctx, cnt, id).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("book %d has %d active borrowings: %w", id, active, errs.ErrHasActiveBorrowings)
		}

		_, err := tx.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
		return err
	})
}

// FindLowAvailability returns books running low on copies, scarcest first.
// Books with zero availability are excluded: they are out, not low.
func (r *BookRepo) FindLowAvailability(ctx context.Context, threshold int) ([]model.Book, error) {
	const q = `
SELECT id, title, author, isbn, available_quantity, total_quantity, created_at, updated_at
FROM books
WHERE available_quantity > 0 AND available_quantity <= $1
ORDER BY available_quantity ASC, title ASC`
	rows, err := r.db.Pool.Query(ctx, q, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err = rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN,
			&b.AvailableQuantity, &b.TotalQuantity, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ISBNTaken reports whether a different book already uses the ISBN.
func (r *BookRepo) ISBNTaken(ctx context.Context, isbn string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM books WHERE isbn=$1 AND id<>$2)`
	var taken bool
	if err := r.db.Pool.QueryRow(ctx, q, isbn, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// adjustAvailability moves a book's available count by delta inside an open
// transaction. The WHERE clause refuses any move that would leave the count
// negative or above total_quantity; zero rows affected means the guard
// tripped. This is the last line of defense for the counter invariant, so
// callers must already hold the book's row lock.
func adjustAvailability(ctx context.Context, tx pgx.Tx, bookID int64, delta int) error {
	const q = `
UPDATE books
SET available_quantity = available_quantity + $2, updated_at = now()
WHERE id=$1 AND available_quantity + $2 >= 0 AND available_quantity + $2 <= total_quantity`
	tag, err := tx.Exec(ctx, q, bookID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjust availability of book %d by %+d: out of range", bookID, delta)
	}
	return nil
}

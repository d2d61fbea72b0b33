package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"circulation/internal/errs"
	"circulation/internal/model"
)

// BorrowerRepo implements BorrowerRepository using PostgreSQL.
type BorrowerRepo struct{ db *DB }

// NewBorrowerRepo constructs a borrower repository.
func NewBorrowerRepo(db *DB) *BorrowerRepo { return &BorrowerRepo{db: db} }

// Create inserts a new borrower row and fills the generated fields.
func (r *BorrowerRepo) Create(ctx context.Context, b *model.Borrower) error {
	const q = `
INSERT INTO borrowers (name, email)
VALUES ($1, $2)
RETURNING id, registered_at`
	err := r.db.Pool.QueryRow(ctx, q, b.Name, b.Email).Scan(&b.ID, &b.RegisteredAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", b.Email, errs.ErrAlreadyExists)
	}
	return err
}

// GetByID selects a borrower by ID.
func (r *BorrowerRepo) GetByID(ctx context.Context, id int64) (*model.Borrower, error) {
	const q = `SELECT id, name, email, registered_at FROM borrowers WHERE id=$1`
	return r.scanBorrower(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a borrower by email.
func (r *BorrowerRepo) GetByEmail(ctx context.Context, email string) (*model.Borrower, error) {
	const q = `SELECT id, name, email, registered_at FROM borrowers WHERE email=$1`
	return r.scanBorrower(r.db.Pool.QueryRow(ctx, q, email))
}

func (r *BorrowerRepo) scanBorrower(row pgx.Row) (*model.Borrower, error) {
	var b model.Borrower
	err := row.Scan(&b.ID, &b.Name, &b.Email, &b.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Update rewrites name and email of a borrower.
func (r *BorrowerRepo) Update(ctx context.Context, b *model.Borrower) error {
	const q = `UPDATE borrowers SET name=$2, email=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, b.ID, b.Name, b.Email)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", b.Email, errs.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a borrower unless active borrowings still reference them.
func (r *BorrowerRepo) Delete(ctx context.Context, id int64) error {
	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		const sel = `SELECT id FROM borrowers WHERE id=$1 FOR UPDATE`
		var got int64
		if err := tx.QueryRow(ctx, sel, id).Scan(&got); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}

		const cnt = `SELECT COUNT(*) FROM borrowings WHERE borrower_id=$1 AND return_date IS NULL`
		var active int
		if err := tx.QueryRow(ctx, cnt, id).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("borrower %d has %d active borrowings: %w", id, active, errs.ErrHasActiveBorrowings)
		}

		_, err := tx.Exec(ctx, `DELETE FROM borrowers WHERE id=$1`, id)
		return err
	})
}

// EmailTaken reports whether a different borrower already uses the email.
func (r *BorrowerRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM borrowers WHERE email=$1 AND id<>$2)`
	var taken bool
	if err := r.db.Pool.QueryRow(ctx, q, email, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

package repository

import (
	"context"

	"circulation/internal/model"
)

// BorrowerRepository provides CRUD access for registered borrowers.
type BorrowerRepository interface {
	// Create inserts a new borrower and fills its generated ID and
	// registration date.
	Create(ctx context.Context, b *model.Borrower) error
	// GetByID loads a borrower by ID.
	GetByID(ctx context.Context, id int64) (*model.Borrower, error)
	// GetByEmail loads a borrower by email.
	GetByEmail(ctx context.Context, email string) (*model.Borrower, error)
	// Update rewrites name and email of an existing borrower.
	Update(ctx context.Context, b *model.Borrower) error
	// Delete removes a borrower; fails while active borrowings reference them.
	Delete(ctx context.Context, id int64) error
	// EmailTaken reports whether another borrower (id != excludeID) already
	// uses email.
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
}

package service

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"circulation/internal/errs"
	"circulation/internal/model"
	"circulation/internal/repository"
)

// The storage contract requires 10 or 13 digits, not a verified check digit.
var isbnPattern = regexp.MustCompile(`^(\d{10}|\d{13})$`)

// BookService manages the catalog and its copy counters. Counter moves
// caused by circulation bypass this service entirely; direct edits here
// re-validate the available<=total invariant before touching the store.
type BookService interface {
	// Create adds a catalog entry and fills the generated fields.
	Create(ctx context.Context, b *model.Book) error
	// Get loads a book by ID.
	Get(ctx context.Context, id int64) (*model.Book, error)
	// GetByISBN loads a book by ISBN.
	GetByISBN(ctx context.Context, isbn string) (*model.Book, error)
	// Update rewrites a book after re-validating the invariants.
	Update(ctx context.Context, b *model.Book) error
	// Delete removes a book; blocked while active borrowings reference it.
	Delete(ctx context.Context, id int64) error
	// LowAvailability lists books with 0 < available <= threshold.
	LowAvailability(ctx context.Context, threshold int) ([]model.Book, error)
}

type BookServiceImpl struct {
	books  repository.BookRepository
	logger *zap.Logger
}

// NewBookService constructs BookService.
func NewBookService(books repository.BookRepository, logger *zap.Logger) *BookServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookServiceImpl{books: books, logger: logger}
}

func validateBook(b *model.Book) error {
	if b == nil || b.Title == "" || b.Author == "" {
		return fmt.Errorf("title/author required: %w", errs.ErrInvalidInput)
	}
	if !isbnPattern.MatchString(b.ISBN) {
		return fmt.Errorf("isbn %q must be 10 or 13 digits: %w", b.ISBN, errs.ErrInvalidInput)
	}
	if b.AvailableQuantity < 0 || b.TotalQuantity < 0 {
		return fmt.Errorf("negative quantity: %w", errs.ErrInvalidInput)
	}
	if b.AvailableQuantity > b.TotalQuantity {
		return fmt.Errorf("available %d exceeds total %d: %w",
			b.AvailableQuantity, b.TotalQuantity, errs.ErrInvalidInput)
	}
	return nil
}

// Create validates the entry and inserts it.
func (s *BookServiceImpl) Create(ctx context.Context, b *model.Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	if err := s.books.Create(ctx, b); err != nil {
		return err
	}
	s.logger.Info("book created", zap.Int64("book_id", b.ID), zap.String("isbn", b.ISBN))
	return nil
}

// Get loads a book by ID.
func (s *BookServiceImpl) Get(ctx context.Context, id int64) (*model.Book, error) {
	if id <= 0 {
		return nil, fmt.Errorf("book id: %w", errs.ErrInvalidInput)
	}
	return s.books.GetByID(ctx, id)
}

// GetByISBN loads a book by ISBN.
func (s *BookServiceImpl) GetByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	if !isbnPattern.MatchString(isbn) {
		return nil, fmt.Errorf("isbn %q must be 10 or 13 digits: %w", isbn, errs.ErrInvalidInput)
	}
	return s.books.GetByISBN(ctx, isbn)
}

// Update re-validates the invariants, probes for an ISBN collision with
// another book, then rewrites the row.
func (s *BookServiceImpl) Update(ctx context.Context, b *model.Book) error {
	if b == nil || b.ID <= 0 {
		return fmt.Errorf("book id: %w", errs.ErrInvalidInput)
	}
	if err := validateBook(b); err != nil {
		return err
	}
	taken, err := s.books.ISBNTaken(ctx, b.ISBN, b.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("isbn %s: %w", b.ISBN, errs.ErrAlreadyExists)
	}
	return s.books.Update(ctx, b)
}

// Delete removes a book; the store refuses while active borrowings exist.
func (s *BookServiceImpl) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("book id: %w", errs.ErrInvalidInput)
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("book deleted", zap.Int64("book_id", id))
	return nil
}

// LowAvailability lists books running low on copies, scarcest first.
func (s *BookServiceImpl) LowAvailability(ctx context.Context, threshold int) ([]model.Book, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("threshold %d: %w", threshold, errs.ErrInvalidInput)
	}
	return s.books.FindLowAvailability(ctx, threshold)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"circulation/internal/errs"
	"circulation/internal/model"
	"circulation/internal/repository"
)

// BorrowerService manages registered borrowers and their loan history.
type BorrowerService interface {
	// Create registers a borrower and fills the generated fields.
	Create(ctx context.Context, b *model.Borrower) error
	// Get loads a borrower by ID.
	Get(ctx context.Context, id int64) (*model.Borrower, error)
	// GetByEmail loads a borrower by email.
	GetByEmail(ctx context.Context, email string) (*model.Borrower, error)
	// Update rewrites name and email after validation.
	Update(ctx context.Context, b *model.Borrower) error
	// Delete removes a borrower; blocked while they hold active loans.
	Delete(ctx context.Context, id int64) error
	// CurrentLoans returns the borrower's active borrowings.
	CurrentLoans(ctx context.Context, borrowerID int64) (*model.BorrowingPage, error)
	// History returns the borrower's loan history, paginated and filterable
	// by status.
	History(ctx context.Context, borrowerID int64, f model.BorrowingFilter) (*model.BorrowingPage, error)
}

type BorrowerServiceImpl struct {
	borrowers  repository.BorrowerRepository
	borrowings repository.BorrowingRepository
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewBorrowerService constructs BorrowerService.
func NewBorrowerService(
	borrowers repository.BorrowerRepository,
	borrowings repository.BorrowingRepository,
	logger *zap.Logger,
) *BorrowerServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BorrowerServiceImpl{
		borrowers:  borrowers,
		borrowings: borrowings,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *BorrowerServiceImpl) validateBorrower(b *model.Borrower) error {
	if b == nil || b.Name == "" {
		return fmt.Errorf("name required: %w", errs.ErrInvalidInput)
	}
	if err := s.validate.Var(b.Email, "required,email"); err != nil {
		return fmt.Errorf("email %q: %w", b.Email, errs.ErrInvalidInput)
	}
	return nil
}

// Create validates and registers a borrower.
func (s *BorrowerServiceImpl) Create(ctx context.Context, b *model.Borrower) error {
	if err := s.validateBorrower(b); err != nil {
		return err
	}
	if err := s.borrowers.Create(ctx, b); err != nil {
		return err
	}
	s.logger.Info("borrower registered", zap.Int64("borrower_id", b.ID))
	return nil
}

// Get loads a borrower by ID.
func (s *BorrowerServiceImpl) Get(ctx context.Context, id int64) (*model.Borrower, error) {
	if id <= 0 {
		return nil, fmt.Errorf("borrower id: %w", errs.ErrInvalidInput)
	}
	return s.borrowers.GetByID(ctx, id)
}

// GetByEmail loads a borrower by email.
func (s *BorrowerServiceImpl) GetByEmail(ctx context.Context, email string) (*model.Borrower, error) {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("email %q: %w", email, errs.ErrInvalidInput)
	}
	return s.borrowers.GetByEmail(ctx, email)
}

// Update re-validates the borrower, probes for an email collision with
// another borrower, then rewrites the row.
func (s *BorrowerServiceImpl) Update(ctx context.Context, b *model.Borrower) error {
	if b == nil || b.ID <= 0 {
		return fmt.Errorf("borrower id: %w", errs.ErrInvalidInput)
	}
	if err := s.validateBorrower(b); err != nil {
		return err
	}
	taken, err := s.borrowers.EmailTaken(ctx, b.Email, b.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("email %s: %w", b.Email, errs.ErrAlreadyExists)
	}
	return s.borrowers.Update(ctx, b)
}

// Delete removes a borrower; the store refuses while they hold active loans.
func (s *BorrowerServiceImpl) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("borrower id: %w", errs.ErrInvalidInput)
	}
	if err := s.borrowers.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("borrower deleted", zap.Int64("borrower_id", id))
	return nil
}

// CurrentLoans returns the borrower's active borrowings.
func (s *BorrowerServiceImpl) CurrentLoans(ctx context.Context, borrowerID int64) (*model.BorrowingPage, error) {
	return s.History(ctx, borrowerID, model.BorrowingFilter{Status: model.StatusActive})
}

// History returns the borrower's loans, paginated and filterable by status.
func (s *BorrowerServiceImpl) History(
	ctx context.Context, borrowerID int64, f model.BorrowingFilter,
) (*model.BorrowingPage, error) {
	if borrowerID <= 0 {
		return nil, fmt.Errorf("borrower id: %w", errs.ErrInvalidInput)
	}
	f.BorrowerID = &borrowerID
	nf, err := NormalizeFilter(f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	page, err := s.borrowings.List(ctx, nf, now)
	if err != nil {
		return nil, err
	}
	for i := range page.Borrowings {
		page.Borrowings[i].Enrich(now)
	}
	return page, nil
}

// Package service contains application services for circulation, books and borrowers.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"circulation/internal/errs"
	"circulation/internal/model"
	"circulation/internal/repository"
)

// defaultLoanDays is the loan period applied when no due date is supplied.
const defaultLoanDays = 14

// CirculationService coordinates checkouts, returns and extensions. All
// state transitions are delegated to the ledger as single transactions; the
// service validates inputs, applies defaults and enriches results.
type CirculationService interface {
	// Checkout lends a copy of the book to the borrower. A nil dueDate
	// defaults to the checkout date plus the configured loan period.
	Checkout(ctx context.Context, bookID, borrowerID int64, dueDate *time.Time) (*model.BorrowingDetails, error)
	// Return closes an active borrowing. A nil returnDate defaults to today.
	Return(ctx context.Context, borrowingID int64, returnDate *time.Time) (*model.BorrowingDetails, error)
	// ExtendDueDate moves an active borrowing's due date to newDueDate.
	ExtendDueDate(ctx context.Context, borrowingID int64, newDueDate time.Time, reason string) (*model.BorrowingDetails, error)
	// Get loads one enriched borrowing.
	Get(ctx context.Context, borrowingID int64) (*model.BorrowingDetails, error)
	// List returns one page of borrowings matching the filter.
	List(ctx context.Context, f model.BorrowingFilter) (*model.BorrowingPage, error)
	// Stats aggregates borrowings checked out within [from, to].
	Stats(ctx context.Context, from, to time.Time) (*model.BorrowingStats, error)
}

// ExtensionPolicy can veto an extension before it is applied, e.g. to cap
// the extension count or total extended duration. The core itself imposes no
// cap; a non-nil error aborts the extension and is returned verbatim.
type ExtensionPolicy func(b *model.Borrowing, newDueDate time.Time) error

// CirculationOption configures optional service behavior.
type CirculationOption func(*CirculationServiceImpl)

// WithLoanPeriod overrides the default loan period in days.
func WithLoanPeriod(days int) CirculationOption {
	return func(s *CirculationServiceImpl) {
		if days > 0 {
			s.loanDays = days
		}
	}
}

// WithExtensionPolicy installs a caller-layer extension cap.
func WithExtensionPolicy(p ExtensionPolicy) CirculationOption {
	return func(s *CirculationServiceImpl) { s.policy = p }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) CirculationOption {
	return func(s *CirculationServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

type CirculationServiceImpl struct {
	borrowings repository.BorrowingRepository
	loanDays   int
	policy     ExtensionPolicy
	logger     *zap.Logger
	now        func() time.Time
}

// NewCirculationService constructs the coordinator with its ledger.
func NewCirculationService(
	borrowings repository.BorrowingRepository, logger *zap.Logger, opts ...CirculationOption,
) *CirculationServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CirculationServiceImpl{
		borrowings: borrowings,
		loanDays:   defaultLoanDays,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout validates identifiers and the due date, then delegates the atomic
// counter-decrement-plus-insert to the ledger.
func (s *CirculationServiceImpl) Checkout(
	ctx context.Context, bookID, borrowerID int64, dueDate *time.Time,
) (*model.BorrowingDetails, error) {
	if bookID <= 0 || borrowerID <= 0 {
		return nil, fmt.Errorf("book/borrower id: %w", errs.ErrInvalidInput)
	}
	now := s.now()
	checkoutDate := model.DateOf(now)

	due := checkoutDate.AddDate(0, 0, s.loanDays)
	if dueDate != nil {
		if !dueDate.After(now) {
			return nil, fmt.Errorf("due date %s not in the future: %w",
				dueDate.Format(time.DateOnly), errs.ErrInvalidInput)
		}
		due = model.DateOf(*dueDate)
	}

	d, err := s.borrowings.Checkout(ctx, bookID, borrowerID, checkoutDate, due)
	if err != nil {
		return nil, err
	}
	d.Enrich(now)
	s.logger.Info("checkout",
		zap.Int64("borrowing_id", d.ID),
		zap.Int64("book_id", bookID),
		zap.Int64("borrower_id", borrowerID),
		zap.Time("due_date", due),
	)
	return d, nil
}

// Return closes the borrowing and hands the copy back to the inventory.
func (s *CirculationServiceImpl) Return(
	ctx context.Context, borrowingID int64, returnDate *time.Time,
) (*model.BorrowingDetails, error) {
	if borrowingID <= 0 {
		return nil, fmt.Errorf("borrowing id: %w", errs.ErrInvalidInput)
	}
	now := s.now()
	ret := model.DateOf(now)
	if returnDate != nil {
		ret = model.DateOf(*returnDate)
	}

	d, err := s.borrowings.Return(ctx, borrowingID, ret)
	if err != nil {
		return nil, err
	}
	d.Enrich(now)
	s.logger.Info("return",
		zap.Int64("borrowing_id", d.ID),
		zap.Int64("book_id", d.BookID),
		zap.Time("return_date", ret),
	)
	return d, nil
}

// ExtendDueDate moves the due date forward on an active borrowing. The
// extension policy, when installed, sees the current borrowing state and may
// veto before anything is written.
func (s *CirculationServiceImpl) ExtendDueDate(
	ctx context.Context, borrowingID int64, newDueDate time.Time, reason string,
) (*model.BorrowingDetails, error) {
	if borrowingID <= 0 {
		return nil, fmt.Errorf("borrowing id: %w", errs.ErrInvalidInput)
	}
	now := s.now()
	if newDueDate.IsZero() || !newDueDate.After(now) {
		return nil, fmt.Errorf("new due date %s not in the future: %w",
			newDueDate.Format(time.DateOnly), errs.ErrInvalidInput)
	}

	if s.policy != nil {
		cur, err := s.borrowings.GetDetails(ctx, borrowingID)
		if err != nil {
			return nil, err
		}
		if err := s.policy(&cur.Borrowing, newDueDate); err != nil {
			return nil, err
		}
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	d, err := s.borrowings.Extend(ctx, borrowingID, model.DateOf(newDueDate), reasonPtr)
	if err != nil {
		return nil, err
	}
	d.Enrich(now)
	s.logger.Info("extend",
		zap.Int64("borrowing_id", d.ID),
		zap.Time("due_date", d.DueDate),
		zap.Int("extension_count", d.ExtensionCount),
	)
	return d, nil
}

// Get loads one enriched borrowing.
func (s *CirculationServiceImpl) Get(ctx context.Context, borrowingID int64) (*model.BorrowingDetails, error) {
	if borrowingID <= 0 {
		return nil, fmt.Errorf("borrowing id: %w", errs.ErrInvalidInput)
	}
	d, err := s.borrowings.GetDetails(ctx, borrowingID)
	if err != nil {
		return nil, err
	}
	d.Enrich(s.now())
	return d, nil
}

// List normalizes the filter, delegates, and enriches each row.
func (s *CirculationServiceImpl) List(ctx context.Context, f model.BorrowingFilter) (*model.BorrowingPage, error) {
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

// Stats aggregates borrowings checked out within the range.
func (s *CirculationServiceImpl) Stats(ctx context.Context, from, to time.Time) (*model.BorrowingStats, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("date range: %w", errs.ErrInvalidInput)
	}
	return s.borrowings.Stats(ctx, from, to, s.now())
}

// Listing defaults and bounds.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// NormalizeFilter fills defaults and rejects unknown enum values. Shared by
// the coordinator and the borrower history listing.
func NormalizeFilter(f model.BorrowingFilter) (model.BorrowingFilter, error) {
	if f.Status == "" {
		f.Status = model.StatusAll
	}
	if !f.Status.Valid() {
		return f, fmt.Errorf("status %q: %w", f.Status, errs.ErrInvalidInput)
	}
	if f.SortBy == "" {
		f.SortBy = model.SortCheckoutDate
	}
	if !f.SortBy.Valid() {
		return f, fmt.Errorf("sort field %q: %w", f.SortBy, errs.ErrInvalidInput)
	}
	if f.SortOrder == "" {
		f.SortOrder = model.SortDesc
	}
	if !f.SortOrder.Valid() {
		return f, fmt.Errorf("sort order %q: %w", f.SortOrder, errs.ErrInvalidInput)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	return f, nil
}

// ParseDate parses a YYYY-MM-DD value, mapping failures to ErrInvalidInput.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, errs.ErrInvalidInput)
	}
	return t, nil
}

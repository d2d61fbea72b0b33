package service

import (
	"context"
	"errors"
	"testing"

	"circulation/internal/errs"
	"circulation/internal/model"
	"circulation/internal/repository"
)

type fakeBookRepo struct {
	createErr error
	createIn  *model.Book

	getOut *model.Book
	getErr error

	updateCalled bool
	updateErr    error

	deleteCalled bool
	deleteErr    error

	lowInThreshold int
	lowOut         []model.Book
	lowErr         error

	takenOut bool
	takenErr error
}

var _ repository.BookRepository = (*fakeBookRepo)(nil)

func (f *fakeBookRepo) Create(_ context.Context, b *model.Book) error {
	f.createIn = b
	if f.createErr == nil {
		b.ID = 1
	}
	return f.createErr
}
func (f *fakeBookRepo) GetByID(_ context.Context, _ int64) (*model.Book, error) {
	return f.getOut, f.getErr
}
func (f *fakeBookRepo) GetByISBN(_ context.Context, _ string) (*model.Book, error) {
	return f.getOut, f.getErr
}
func (f *fakeBookRepo) Update(_ context.Context, _ *model.Book) error {
	f.updateCalled = true
	return f.updateErr
}
func (f *fakeBookRepo) Delete(_ context.Context, _ int64) error {
	f.deleteCalled = true
	return f.deleteErr
}
func (f *fakeBookRepo) FindLowAvailability(_ context.Context, threshold int) ([]model.Book, error) {
	f.lowInThreshold = threshold
	return f.lowOut, f.lowErr
}
func (f *fakeBookRepo) ISBNTaken(_ context.Context, _ string, _ int64) (bool, error) {
	return f.takenOut, f.takenErr
}

func validBook() *model.Book {
	return &model.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", AvailableQuantity: 3, TotalQuantity: 3}
}

func TestBookService_Create_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeBookRepo{}
	s := NewBookService(repo, nil)

	b := validBook()
	b.Title = ""
	if err := s.Create(ctx, b); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on empty title, got %v", err)
	}

	b = validBook()
	b.ISBN = "12345"
	if err := s.Create(ctx, b); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on short isbn, got %v", err)
	}

	b = validBook()
	b.ISBN = "978044101359X"
	if err := s.Create(ctx, b); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on non-digit isbn, got %v", err)
	}

	b = validBook()
	b.AvailableQuantity = 4
	if err := s.Create(ctx, b); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput when available exceeds total, got %v", err)
	}

	b = validBook()
	b.TotalQuantity = -1
	b.AvailableQuantity = -1
	if err := s.Create(ctx, b); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on negative quantities, got %v", err)
	}

	if repo.createIn != nil {
		t.Fatalf("repo must not be called on invalid input")
	}
}

func TestBookService_Create_AcceptsBothISBNLengths(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, isbn := range []string{"0441013597", "9780441013593"} {
		repo := &fakeBookRepo{}
		s := NewBookService(repo, nil)
		b := validBook()
		b.ISBN = isbn
		if err := s.Create(ctx, b); err != nil {
			t.Fatalf("isbn %s: %v", isbn, err)
		}
		if b.ID == 0 {
			t.Fatalf("generated id not filled")
		}
	}
}

func TestBookService_Update_ISBNCollision(t *testing.T) {
	t.Parallel()
	repo := &fakeBookRepo{takenOut: true}
	s := NewBookService(repo, nil)

	b := validBook()
	b.ID = 7
	if err := s.Update(context.Background(), b); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
	if repo.updateCalled {
		t.Fatalf("repo update must not run after collision probe")
	}
}

func TestBookService_Delete_PropagatesGuard(t *testing.T) {
	t.Parallel()
	repo := &fakeBookRepo{deleteErr: errs.ErrHasActiveBorrowings}
	s := NewBookService(repo, nil)

	if err := s.Delete(context.Background(), 7); !errors.Is(err, errs.ErrHasActiveBorrowings) {
		t.Fatalf("want ErrHasActiveBorrowings, got %v", err)
	}
}

func TestBookService_LowAvailability(t *testing.T) {
	t.Parallel()
	repo := &fakeBookRepo{lowOut: []model.Book{{ID: 1, AvailableQuantity: 1}}}
	s := NewBookService(repo, nil)

	if _, err := s.LowAvailability(context.Background(), 0); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on zero threshold, got %v", err)
	}

	out, err := s.LowAvailability(context.Background(), 3)
	if err != nil || len(out) != 1 {
		t.Fatalf("LowAvailability: out=%v err=%v", out, err)
	}
	if repo.lowInThreshold != 3 {
		t.Fatalf("threshold not forwarded, got %d", repo.lowInThreshold)
	}
}

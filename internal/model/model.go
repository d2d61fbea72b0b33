// Package model defines domain entities used by services and repositories.
package model

import "time"

// Book is a catalog entry with its copy counters. AvailableQuantity is the
// number of physical copies not currently on loan and never exceeds
// TotalQuantity.
type Book struct {
	ID                int64
	Title             string
	Author            string
	ISBN              string // 10 or 13 digits, globally unique
	AvailableQuantity int
	TotalQuantity     int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Borrower is a registered library member.
type Borrower struct {
	ID           int64
	Name         string
	Email        string // unique
	RegisteredAt time.Time
}

// Borrowing is a single loan. A nil ReturnDate means the loan is active;
// once set it never changes. Borrowings are never deleted.
type Borrowing struct {
	ID              int64
	BookID          int64
	BorrowerID      int64
	CheckoutDate    time.Time
	DueDate         time.Time
	ReturnDate      *time.Time
	ExtensionCount  int
	ExtensionReason *string // only the latest reason is retained
}

// Active reports whether the loan is still outstanding.
func (b *Borrowing) Active() bool { return b.ReturnDate == nil }

// OverdueAt reports whether the loan is active and past due as of now.
func (b *Borrowing) OverdueAt(now time.Time) bool {
	return b.Active() && DateOf(b.DueDate).Before(DateOf(now))
}

// DaysOverdueAt returns the whole days elapsed since the due date, or 0 when
// the loan is not overdue.
func (b *Borrowing) DaysOverdueAt(now time.Time) int {
	if !b.OverdueAt(now) {
		return 0
	}
	return int(DateOf(now).Sub(DateOf(b.DueDate)).Hours() / 24)
}

// DateOf truncates t to midnight UTC so day arithmetic ignores clock time.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BookSummary carries the denormalized book fields on enriched results.
type BookSummary struct {
	Title  string
	Author string
	ISBN   string
}

// BorrowerSummary carries the denormalized borrower fields on enriched results.
type BorrowerSummary struct {
	Name  string
	Email string
}

// BorrowingDetails is a Borrowing enriched with book/borrower summaries and
// overdue state computed at read time.
type BorrowingDetails struct {
	Borrowing
	Book        BookSummary
	Borrower    BorrowerSummary
	IsOverdue   bool
	DaysOverdue int
}

// Enrich fills the derived overdue fields as of now.
func (d *BorrowingDetails) Enrich(now time.Time) {
	d.IsOverdue = d.OverdueAt(now)
	d.DaysOverdue = d.DaysOverdueAt(now)
}

// Status selects a lifecycle subset in listing queries.
type Status string

// Listing status filters.
const (
	StatusAll      Status = "all"
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"
)

// Valid reports whether s is a known status filter.
func (s Status) Valid() bool {
	switch s {
	case StatusAll, StatusActive, StatusReturned, StatusOverdue:
		return true
	}
	return false
}

// SortField selects the listing sort column.
type SortField string

// Listing sort fields.
const (
	SortCheckoutDate SortField = "checkout_date"
	SortDueDate      SortField = "due_date"
	SortReturnDate   SortField = "return_date"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortCheckoutDate, SortDueDate, SortReturnDate:
		return true
	}
	return false
}

// SortOrder selects ascending or descending listing order.
type SortOrder string

// Listing sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is a known sort order.
func (o SortOrder) Valid() bool { return o == SortAsc || o == SortDesc }

// BorrowingFilter narrows listing queries; nil/zero fields match everything.
type BorrowingFilter struct {
	BorrowerID *int64
	BookID     *int64
	Status     Status
	SortBy     SortField
	SortOrder  SortOrder
	Page       int
	Limit      int
}

// PageInfo describes the pagination of a listing result.
type PageInfo struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// BorrowingPage is one page of enriched borrowings.
type BorrowingPage struct {
	Borrowings []BorrowingDetails
	Pagination PageInfo
}

// BorrowingStats aggregates loans whose checkout date falls in [From, To].
type BorrowingStats struct {
	From     time.Time
	To       time.Time
	Total    int
	Returned int
	Active   int
	Overdue  int
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBorrowing_OverdueAt(t *testing.T) {
	t.Parallel()

	due := date(2024, 1, 1)
	now := date(2024, 1, 10)

	active := Borrowing{DueDate: due}
	require.True(t, active.OverdueAt(now))
	require.Equal(t, 9, active.DaysOverdueAt(now))

	// Due today is not overdue yet, regardless of clock time.
	lateEvening := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	require.False(t, active.OverdueAt(lateEvening))
	require.Equal(t, 0, active.DaysOverdueAt(lateEvening))

	// A returned loan is never overdue.
	ret := date(2024, 1, 5)
	closed := Borrowing{DueDate: due, ReturnDate: &ret}
	require.False(t, closed.OverdueAt(now))
	require.Equal(t, 0, closed.DaysOverdueAt(now))
}

func TestBorrowingDetails_Enrich(t *testing.T) {
	t.Parallel()

	d := BorrowingDetails{Borrowing: Borrowing{DueDate: date(2024, 1, 1)}}
	d.Enrich(date(2024, 1, 10))
	require.True(t, d.IsOverdue)
	require.Equal(t, 9, d.DaysOverdue)

	d = BorrowingDetails{Borrowing: Borrowing{DueDate: date(2024, 1, 20)}}
	d.Enrich(date(2024, 1, 10))
	require.False(t, d.IsOverdue)
	require.Equal(t, 0, d.DaysOverdue)
}

func TestEnums_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusAll, StatusActive, StatusReturned, StatusOverdue} {
		require.True(t, s.Valid(), s)
	}
	require.False(t, Status("archived").Valid())

	for _, f := range []SortField{SortCheckoutDate, SortDueDate, SortReturnDate} {
		require.True(t, f.Valid(), f)
	}
	require.False(t, SortField("title").Valid())

	require.True(t, SortAsc.Valid())
	require.True(t, SortDesc.Valid())
	require.False(t, SortOrder("random").Valid())
}

package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"circulation/internal/errs"
	"circulation/internal/model"
)

func TestBuildListQueries_Filters(t *testing.T) {
	t.Parallel()

	borrower := int64(3)
	book := int64(2)
	now := day(2024, 1, 10)

	f := model.BorrowingFilter{
		BorrowerID: &borrower,
		BookID:     &book,
		Status:     model.StatusActive,
		SortBy:     model.SortDueDate,
		SortOrder:  model.SortAsc,
		Page:       2,
		Limit:      10,
	}
	countSQL, pageSQL, err := buildListQueries(f, now)
	require.NoError(t, err)

	require.Contains(t, countSQL, `SELECT COUNT(*)`)
	require.Contains(t, countSQL, `"b"."borrower_id" = 3`)
	require.Contains(t, countSQL, `"b"."book_id" = 2`)
	require.Contains(t, countSQL, `"b"."return_date" IS NULL`)

	require.Contains(t, pageSQL, `INNER JOIN "books" AS "bk"`)
	require.Contains(t, pageSQL, `INNER JOIN "borrowers" AS "br"`)
	require.Contains(t, pageSQL, `ORDER BY "b"."due_date" ASC, "b"."id" ASC`)
	require.Contains(t, pageSQL, `LIMIT 10`)
	require.Contains(t, pageSQL, `OFFSET 10`)
}

func TestBuildListQueries_OverdueStatus(t *testing.T) {
	t.Parallel()

	f := model.BorrowingFilter{
		Status:    model.StatusOverdue,
		SortBy:    model.SortCheckoutDate,
		SortOrder: model.SortDesc,
		Page:      1,
		Limit:     20,
	}
	countSQL, pageSQL, err := buildListQueries(f, day(2024, 1, 10))
	require.NoError(t, err)

	require.Contains(t, countSQL, `"b"."return_date" IS NULL`)
	require.Contains(t, countSQL, `"b"."due_date" <`)
	require.Contains(t, pageSQL, `ORDER BY "b"."checkout_date" DESC, "b"."id" DESC`)
	require.NotContains(t, pageSQL, `OFFSET`)
}

func TestBuildStatsQuery(t *testing.T) {
	t.Parallel()

	sql, err := buildStatsQuery(day(2024, 1, 1), day(2024, 1, 31), day(2024, 2, 5))
	require.NoError(t, err)

	require.Contains(t, sql, `COUNT(*) AS "total"`)
	require.Contains(t, sql, `FILTER (WHERE return_date IS NOT NULL) AS "returned"`)
	require.Contains(t, sql, `FILTER (WHERE return_date IS NULL) AS "active"`)
	require.Contains(t, sql, `FILTER (WHERE return_date IS NULL AND due_date <`)
	require.Contains(t, sql, `"checkout_date" >=`)
	require.Contains(t, sql, `"checkout_date" <=`)
}

func TestBorrowingRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBorrowingRepo(db)

	now := day(2024, 1, 10)
	f := model.BorrowingFilter{
		Status:    model.StatusAll,
		SortBy:    model.SortCheckoutDate,
		SortOrder: model.SortDesc,
		Page:      1,
		Limit:     2,
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "borrowings" AS "b"`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	ret := day(2024, 1, 8)
	rows := pgxmock.NewRows([]string{
		"id", "book_id", "borrower_id", "checkout_date", "due_date", "return_date",
		"extension_count", "extension_reason", "title", "author", "isbn", "name", "email",
	}).
		AddRow(int64(6), int64(2), int64(3), day(2024, 1, 9), day(2024, 1, 23), nil,
			0, nil, "Dune", "Frank Herbert", "9780441013593", "Ada", "ada@example.com").
		AddRow(int64(5), int64(2), int64(4), day(2024, 1, 2), day(2024, 1, 7), &ret,
			1, nil, "Dune", "Frank Herbert", "9780441013593", "Grace", "grace@example.com")

	mock.ExpectQuery(`SELECT "b"\."id", "b"\."book_id", "b"\."borrower_id"`).
		WillReturnRows(rows)

	page, err := r.List(context.Background(), f, now)
	require.NoError(t, err)
	require.Len(t, page.Borrowings, 2)
	require.Equal(t, 3, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.Equal(t, 1, page.Pagination.Page)

	require.True(t, page.Borrowings[0].Active())
	require.False(t, page.Borrowings[1].Active())
	require.Equal(t, "grace@example.com", page.Borrowings[1].Borrower.Email)
}

func TestBorrowingRepo_Stats(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBorrowingRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS "total"`).
		WillReturnRows(pgxmock.NewRows([]string{"total", "returned", "active", "overdue"}).
			AddRow(10, 6, 4, 2))

	s, err := r.Stats(context.Background(), day(2024, 1, 1), day(2024, 1, 31), day(2024, 2, 5))
	require.NoError(t, err)
	require.Equal(t, 10, s.Total)
	require.Equal(t, 6, s.Returned)
	require.Equal(t, 4, s.Active)
	require.Equal(t, 2, s.Overdue)
	require.Equal(t, day(2024, 1, 1), s.From)
}

func TestBorrowingRepo_GetDetails_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBorrowingRepo(db)

	mock.ExpectQuery(`FROM borrowings b JOIN books bk ON bk\.id = b\.book_id`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.GetDetails(context.Background(), 42)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

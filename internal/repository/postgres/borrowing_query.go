package postgres

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration

	"circulation/internal/model"
)

const dialectPostgres = "postgres"

// listColumns is the projection shared by List and GetDetails readers.
var listColumns = []any{
	goqu.I("b.id"), goqu.I("b.book_id"), goqu.I("b.borrower_id"),
	goqu.I("b.checkout_date"), goqu.I("b.due_date"), goqu.I("b.return_date"),
	goqu.I("b.extension_count"), goqu.I("b.extension_reason"),
	goqu.I("bk.title"), goqu.I("bk.author"), goqu.I("bk.isbn"),
	goqu.I("br.name"), goqu.I("br.email"),
}

// listWhere translates the optional filter fields into goqu expressions.
func listWhere(f model.BorrowingFilter, now time.Time) []goqu.Expression {
	exprs := make([]goqu.Expression, 0, 4)
	if f.BorrowerID != nil {
		exprs = append(exprs, goqu.I("b.borrower_id").Eq(*f.BorrowerID))
	}
	if f.BookID != nil {
		exprs = append(exprs, goqu.I("b.book_id").Eq(*f.BookID))
	}
	switch f.Status {
	case model.StatusActive:
		exprs = append(exprs, goqu.I("b.return_date").IsNull())
	case model.StatusReturned:
		exprs = append(exprs, goqu.I("b.return_date").IsNotNull())
	case model.StatusOverdue:
		exprs = append(exprs,
			goqu.I("b.return_date").IsNull(),
			goqu.I("b.due_date").Lt(model.DateOf(now)),
		)
	}
	return exprs
}

// buildListQueries renders the count and page SELECTs for a listing. The
// filter is expected to arrive normalized; unset paging and sort fields get
// safe fallbacks rather than producing broken SQL.
func buildListQueries(f model.BorrowingFilter, now time.Time) (countSQL, pageSQL string, err error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if !f.SortBy.Valid() {
		f.SortBy = model.SortCheckoutDate
	}

	base := goqu.Dialect(dialectPostgres).
		From(goqu.T("borrowings").As("b")).
		Join(goqu.T("books").As("bk"), goqu.On(goqu.I("bk.id").Eq(goqu.I("b.book_id")))).
		Join(goqu.T("borrowers").As("br"), goqu.On(goqu.I("br.id").Eq(goqu.I("b.borrower_id")))).
		Where(listWhere(f, now)...)

	countSQL, _, err = base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return "", "", err
	}

	sortCol := goqu.I("b." + string(f.SortBy))
	order := sortCol.Desc()
	tie := goqu.I("b.id").Desc()
	if f.SortOrder == model.SortAsc {
		order = sortCol.Asc()
		tie = goqu.I("b.id").Asc()
	}

	pageSQL, _, err = base.
		Select(listColumns...).
		Order(order, tie).
		Limit(uint(f.Limit)).
		Offset(uint((f.Page - 1) * f.Limit)).
		ToSQL()
	if err != nil {
		return "", "", err
	}
	return countSQL, pageSQL, nil
}

// buildStatsQuery renders the date-range aggregate over checkout_date.
func buildStatsQuery(from, to, now time.Time) (string, error) {
	sql, _, err := goqu.Dialect(dialectPostgres).
		From("borrowings").
		Select(
			goqu.COUNT(goqu.Star()).As("total"),
			goqu.L("COUNT(*) FILTER (WHERE return_date IS NOT NULL)").As("returned"),
			goqu.L("COUNT(*) FILTER (WHERE return_date IS NULL)").As("active"),
			goqu.L("COUNT(*) FILTER (WHERE return_date IS NULL AND due_date < ?)", model.DateOf(now)).As("overdue"),
		).
		Where(
			goqu.C("checkout_date").Gte(model.DateOf(from)),
			goqu.C("checkout_date").Lte(model.DateOf(to)),
		).
		ToSQL()
	return sql, err
}

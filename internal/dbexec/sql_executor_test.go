package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"mui-datatable/internal/datatable"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSelect_DefaultPage(t *testing.T) {
	state := usersState(t, nil)
	query, err := state.SelectQuery()
	require.NoError(t, err)

	plan, err := PlanSelect(MySQL, query)
	require.NoError(t, err)
	assertSQLMatches(t, plan.SQL,
		"SELECT `id`, `name`, `email` FROM `users` ORDER BY `id` ASC LIMIT 10 OFFSET 0",
		"SELECT `id`, `name`, `email` FROM `users` ORDER BY `id` ASC LIMIT ? OFFSET ?",
	)
	if len(plan.Args) > 0 {
		assertArgsEqual(t, plan.Args, []any{10, 0})
	}
}

func TestPlanSelect_PostgresPage(t *testing.T) {
	state := usersState(t, func(b *datatable.Builder) {
		page, rows := 2, 25
		_ = b.ApplyOptions(datatable.Options{Page: &page, RowsPerPage: &rows, SearchText: strPtr("ann")})
		_ = b.SortBy("email", "desc")
	})
	query, err := state.SelectQuery()
	require.NoError(t, err)

	plan, err := PlanSelect(Postgres, query)
	require.NoError(t, err)
	where := `WHERE (CAST("users"."id" AS TEXT) ILIKE $1 OR CAST("users"."name" AS TEXT) ILIKE $2 OR CAST("users"."email" AS TEXT) ILIKE $3)`
	assertSQLMatches(t, plan.SQL,
		`SELECT "id", "name", "email" FROM "users" `+where+` ORDER BY "email" DESC LIMIT 25 OFFSET 50`,
		`SELECT "id", "name", "email" FROM "users" `+where+` ORDER BY "email" DESC LIMIT $4 OFFSET $5`,
	)
}

func TestPlanSelect_Invalid(t *testing.T) {
	_, err := PlanSelect(MySQL, datatable.SelectQuery{Table: "users"})
	assert.ErrorIs(t, err, datatable.ErrNoColumns)

	_, err = PlanSelect(MySQL, datatable.SelectQuery{Table: "users", Columns: []string{"id"}, Offset: -1})
	assert.Error(t, err)
}

func TestPlanCount(t *testing.T) {
	state := usersState(t, func(b *datatable.Builder) {
		b.SetSoftDelete("deleted_at")
	})
	plan, err := PlanCount(MySQL, "users", state.Predicate())
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM `users` WHERE `users`.`deleted_at` IS NULL", normalizeSQL(plan.SQL))
	assert.Empty(t, plan.Args)

	plan, err = PlanCount(SQLite, "users", datatable.And{datatable.Or{}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "users"`, normalizeSQL(plan.SQL))
}

func TestSQLExecutor_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `users` WHERE `status` = ?")).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	exec := NewSQLExecutor(NewStandardExecutor(db), MySQL)
	count, err := exec.Count(context.Background(), "users", datatable.And{
		datatable.Compare{Field: "status", Op: "=", Value: "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_Select(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name`, `email` FROM `users` ORDER BY `id` ASC LIMIT")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(int64(1), []byte("Ann"), "ann@example.com").
			AddRow(int64(2), "Bob", nil))

	state := usersState(t, nil)
	query, err := state.SelectQuery()
	require.NoError(t, err)

	exec := NewSQLExecutor(NewStandardExecutor(db), MySQL)
	rows, err := exec.Select(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, []datatable.Row{
		{"id": int64(1), "name": "Ann", "email": "ann@example.com"},
		{"id": int64(2), "name": "Bob", "email": nil},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_ErrorsReturnedUnchanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	driverErr := errors.New("lost connection")
	mock.ExpectQuery("SELECT COUNT").WillReturnError(driverErr)

	state := usersState(t, nil)
	resp, err := state.Response(context.Background(), NewSQLExecutor(NewStandardExecutor(db), MySQL))
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, driverErr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_Response(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name`, `email` FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(int64(7), "Cy", "cy@example.com"))

	state := usersState(t, nil)
	resp, err := state.Response(context.Background(), NewSQLExecutor(NewStandardExecutor(db), MySQL))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(7), "Cy", "cy@example.com"}}, resp.Data)
	assert.Equal(t, int64(1), resp.Options.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStandardExecutor_NilDB(t *testing.T) {
	executor := &StandardExecutor{db: nil}
	_, err := executor.QueryContext(context.Background(), "SELECT 1")
	assert.Equal(t, sql.ErrConnDone, err)
}

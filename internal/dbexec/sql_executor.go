package dbexec

import (
	"context"
	"fmt"

	"mui-datatable/internal/datatable"

	sq "github.com/Masterminds/squirrel"
)

// SQLQuery represents a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []any
}

// SQLExecutor implements datatable.Executor on top of a QueryExecutor.
type SQLExecutor struct {
	exec    QueryExecutor
	dialect Dialect
}

var _ datatable.Executor = (*SQLExecutor)(nil)

// NewSQLExecutor creates an executor that renders queries in the given dialect.
func NewSQLExecutor(exec QueryExecutor, dialect Dialect) *SQLExecutor {
	return &SQLExecutor{exec: exec, dialect: dialect}
}

// Dialect returns the dialect queries are rendered in.
func (e *SQLExecutor) Dialect() Dialect {
	return e.dialect
}

// PlanCount builds the COUNT statement for the table and filter.
func PlanCount(d Dialect, table string, where datatable.Predicate) (SQLQuery, error) {
	cond, err := Render(d, where)
	if err != nil {
		return SQLQuery{}, err
	}
	builder := sq.Select("COUNT(*)").From(d.Quote(table))
	if cond != nil {
		builder = builder.Where(cond)
	}
	query, args, err := builder.PlaceholderFormat(d.Placeholder).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// PlanSelect builds the page fetch statement.
func PlanSelect(d Dialect, q datatable.SelectQuery) (SQLQuery, error) {
	if len(q.Columns) == 0 {
		return SQLQuery{}, datatable.ErrNoColumns
	}
	if q.Offset < 0 {
		return SQLQuery{}, fmt.Errorf("negative offset %d", q.Offset)
	}
	cond, err := Render(d, q.Where)
	if err != nil {
		return SQLQuery{}, err
	}

	columns := make([]string, len(q.Columns))
	for i, name := range q.Columns {
		columns[i] = d.quote(name)
	}
	builder := sq.Select(columns...).From(d.Quote(q.Table))
	if cond != nil {
		builder = builder.Where(cond)
	}
	if q.OrderBy != "" {
		builder = builder.OrderBy(d.quote(q.OrderBy) + " " + q.Direction.SQL())
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}
	builder = builder.Offset(uint64(q.Offset))

	query, args, err := builder.PlaceholderFormat(d.Placeholder).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// Count returns the number of rows matching where. Driver errors are returned unwrapped.
func (e *SQLExecutor) Count(ctx context.Context, table string, where datatable.Predicate) (int64, error) {
	plan, err := PlanCount(e.dialect, table, where)
	if err != nil {
		return 0, err
	}
	rows, err := e.exec.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("count query on %s returned no rows", table)
	}
	var count int64
	if err := rows.Scan(&count); err != nil {
		return 0, err
	}
	return count, rows.Err()
}

// Select fetches one page of rows keyed by column name.
func (e *SQLExecutor) Select(ctx context.Context, q datatable.SelectQuery) ([]datatable.Row, error) {
	plan, err := PlanSelect(e.dialect, q)
	if err != nil {
		return nil, err
	}
	rows, err := e.exec.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows, q.Columns)
}

func scanRows(rows Rows, columns []string) ([]datatable.Row, error) {
	results := make([]datatable.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(datatable.Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

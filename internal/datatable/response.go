package datatable

import (
	"context"
	"fmt"
)

// Row maps column names to values as returned by an Executor.
type Row map[string]any

// SelectQuery describes the page fetch handed to an Executor.
type SelectQuery struct {
	Table     string
	Columns   []string
	Where     Predicate
	OrderBy   string
	Direction SortDirection
	Offset    int
	Limit     int
}

// Executor runs the count and page queries against a data store. The two
// calls are not required to observe the same snapshot.
type Executor interface {
	Count(ctx context.Context, table string, where Predicate) (int64, error)
	Select(ctx context.Context, query SelectQuery) ([]Row, error)
}

// PageOptions is the pagination metadata of a response.
type PageOptions struct {
	Count              int64 `json:"count"`
	Page               int   `json:"page"`
	RowsPerPage        int   `json:"rowsPerPage"`
	RowsPerPageOptions []int `json:"rowsPerPageOptions"`
}

// Response is the payload returned to the grid.
type Response struct {
	Data    [][]any            `json:"data"`
	Columns []ColumnDescriptor `json:"columns"`
	Options PageOptions        `json:"options"`
}

// SelectQuery returns the page fetch for the state.
func (s *QueryState) SelectQuery() (SelectQuery, error) {
	orderBy, dir, err := activeSort(s.columns)
	if err != nil {
		return SelectQuery{}, err
	}
	return SelectQuery{
		Table:     s.table,
		Columns:   s.ColumnNames(),
		Where:     s.Predicate(),
		OrderBy:   orderBy,
		Direction: dir,
		Offset:    s.Offset(),
		Limit:     s.rowsPerPage,
	}, nil
}

// Response counts the matching rows, fetches the current page and assembles
// the payload. Executor errors are returned as is and no partial payload is built.
func (s *QueryState) Response(ctx context.Context, exec Executor) (*Response, error) {
	if exec == nil {
		return nil, fmt.Errorf("datatable: executor is required")
	}
	query, err := s.SelectQuery()
	if err != nil {
		return nil, err
	}

	count, err := exec.Count(ctx, s.table, query.Where)
	if err != nil {
		return nil, err
	}
	rows, err := exec.Select(ctx, query)
	if err != nil {
		return nil, err
	}

	return &Response{
		Data:    projectRows(rows, query.Columns),
		Columns: s.ColumnsWithOptions(),
		Options: PageOptions{
			Count:              count,
			Page:               s.page,
			RowsPerPage:        s.rowsPerPage,
			RowsPerPageOptions: s.PageSizeChoices(),
		},
	}, nil
}

func projectRows(rows []Row, columns []string) [][]any {
	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		values := make([]any, len(columns))
		for i, name := range columns {
			values[i] = row[name]
		}
		data = append(data, values)
	}
	return data
}

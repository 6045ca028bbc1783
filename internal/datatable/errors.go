// Package datatable turns MUI data grid requests into filtered, sorted and
// paginated queries, and shapes the columns the grid renders.
package datatable

import "errors"

var (
	// ErrNoColumns is returned when a sort or select is attempted without any columns.
	ErrNoColumns = errors.New("datatable: no columns configured")
	// ErrInvalidColumn is returned for a column entry that cannot be normalized.
	ErrInvalidColumn = errors.New("datatable: invalid column")
	// ErrInvalidClause is returned when a forced clause has the wrong shape.
	ErrInvalidClause = errors.New("datatable: invalid forced clause")
	// ErrInvalidSortDirection is returned for directions other than asc/desc.
	ErrInvalidSortDirection = errors.New("datatable: invalid sort direction")
	// ErrInvalidPageSize is returned when rowsPerPage is not positive or exceeds the configured maximum.
	ErrInvalidPageSize = errors.New("datatable: invalid rows per page")
	// ErrInvalidPage is returned when the page starts past the largest representable offset.
	ErrInvalidPage = errors.New("datatable: invalid page")
)

package datatable

import (
	"fmt"
	"math"
	"strings"
)

// Builder collects the configuration of one grid request. It is used by a
// single goroutine and frozen with Build before any query runs.
type Builder struct {
	table           string
	columns         []ColumnDefinition
	softDelete      string
	page            int
	rowsPerPage     int
	pageSizeChoices []int
	maxRowsPerPage  int
	search          string
	filters         FilterList
	forcedAnd       []Clause
	forcedRaw       []Clause
	forcedOr        []Clause
}

// NewBuilder normalizes the columns for table. An empty column list is
// accepted here and reported once a sort or select is needed.
func NewBuilder(table string, columns []RawColumn) (*Builder, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("datatable: table name is required")
	}
	normalized, err := NormalizeColumns(columns)
	if err != nil {
		return nil, err
	}
	return &Builder{
		table:           table,
		columns:         normalized,
		rowsPerPage:     DefaultRowsPerPage,
		pageSizeChoices: append([]int{}, DefaultPageSizeChoices...),
	}, nil
}

// SetSoftDelete names the column marking deleted rows. Empty disables the exclusion.
func (b *Builder) SetSoftDelete(column string) *Builder {
	b.softDelete = strings.TrimSpace(column)
	return b
}

// SetRowsPerPage sets the default page size used when the request omits one.
func (b *Builder) SetRowsPerPage(rowsPerPage int) *Builder {
	b.rowsPerPage = rowsPerPage
	return b
}

// SetPageSizeChoices replaces the default page-size choices.
func (b *Builder) SetPageSizeChoices(choices []int) *Builder {
	b.pageSizeChoices = append([]int{}, choices...)
	return b
}

// SetMaxRowsPerPage caps the page size a request may ask for. Zero means no cap.
func (b *Builder) SetMaxRowsPerPage(limit int) *Builder {
	b.maxRowsPerPage = limit
	return b
}

// SortBy makes name the single active sort column. Unknown names are ignored.
func (b *Builder) SortBy(name string, direction string) error {
	dir, err := ParseSortDirection(direction)
	if err != nil {
		return err
	}
	b.columns = sortColumns(b.columns, name, dir)
	return nil
}

// ColumnDownload toggles whether the column is included in downloads.
func (b *Builder) ColumnDownload(name string, download bool) *Builder {
	if idx := columnIndex(b.columns, name); idx >= 0 {
		b.columns[idx].Download = download
	}
	return b
}

// ColumnFilter toggles whether the column is offered as a filter.
func (b *Builder) ColumnFilter(name string, filter bool) *Builder {
	if idx := columnIndex(b.columns, name); idx >= 0 {
		b.columns[idx].Filter = filter
	}
	return b
}

// ColumnLabel sets the display label. An empty label falls back to the column name.
func (b *Builder) ColumnLabel(name string, label string) *Builder {
	if idx := columnIndex(b.columns, name); idx >= 0 {
		b.columns[idx].Label = label
	}
	return b
}

// AddForcedWhere appends forced clauses. Comparisons and raw fragments are
// kept in separate lists, each in insertion order.
func (b *Builder) AddForcedWhere(clauses ...Clause) *Builder {
	for _, clause := range clauses {
		if clause.raw {
			b.forcedRaw = append(b.forcedRaw, clause)
		} else {
			b.forcedAnd = append(b.forcedAnd, clause)
		}
	}
	return b
}

// AddForcedWhereTuples parses and appends tuples. The first malformed tuple
// aborts the call and nothing from it is added.
func (b *Builder) AddForcedWhereTuples(tuples ...[]any) error {
	clauses := make([]Clause, 0, len(tuples))
	for i, tuple := range tuples {
		clause, err := ClauseFromTuple(tuple...)
		if err != nil {
			return fmt.Errorf("forced where %d: %w", i, err)
		}
		clauses = append(clauses, clause)
	}
	b.AddForcedWhere(clauses...)
	return nil
}

// ClearForcedWhere drops every forced comparison and raw clause.
func (b *Builder) ClearForcedWhere() *Builder {
	b.forcedAnd = nil
	b.forcedRaw = nil
	return b
}

// AddForcedOrWhere appends comparisons to the OR group. Raw clauses are rejected.
func (b *Builder) AddForcedOrWhere(clauses ...Clause) error {
	for i, clause := range clauses {
		if clause.raw {
			return fmt.Errorf("forced or where %d: %w: raw clauses cannot be OR grouped", i, ErrInvalidClause)
		}
	}
	b.forcedOr = append(b.forcedOr, clauses...)
	return nil
}

// AddForcedOrWhereTuples parses and appends three-element tuples to the OR group.
func (b *Builder) AddForcedOrWhereTuples(tuples ...[]any) error {
	clauses := make([]Clause, 0, len(tuples))
	for i, tuple := range tuples {
		clause, err := OrClauseFromTuple(tuple...)
		if err != nil {
			return fmt.Errorf("forced or where %d: %w", i, err)
		}
		clauses = append(clauses, clause)
	}
	return b.AddForcedOrWhere(clauses...)
}

// ClearForcedOrWhere drops the OR group.
func (b *Builder) ClearForcedOrWhere() *Builder {
	b.forcedOr = nil
	return b
}

// ApplyOptions merges a grid request into the builder. The page is clamped
// to zero; only the first column carrying a sort direction is applied.
func (b *Builder) ApplyOptions(opts Options) error {
	if opts.Page != nil {
		b.page = clampPage(*opts.Page)
	}
	if opts.RowsPerPage != nil {
		b.rowsPerPage = *opts.RowsPerPage
	}
	if opts.SearchText != nil {
		b.search = *opts.SearchText
	}
	if opts.FilterList != nil {
		b.filters = alignFilters(b.columns, opts.FilterList)
	}
	for _, col := range opts.Columns {
		direction := col.requestedSort()
		dir, err := ParseSortDirection(direction)
		if err != nil {
			return err
		}
		if dir == SortNone {
			continue
		}
		b.columns = sortColumns(b.columns, col.Name(), dir)
		break
	}
	return nil
}

// Build validates the configuration and freezes it.
func (b *Builder) Build() (*QueryState, error) {
	if b.rowsPerPage <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, b.rowsPerPage)
	}
	if b.maxRowsPerPage > 0 && b.rowsPerPage > b.maxRowsPerPage {
		return nil, fmt.Errorf("%w: %d exceeds the maximum of %d", ErrInvalidPageSize, b.rowsPerPage, b.maxRowsPerPage)
	}
	if b.page > math.MaxInt/b.rowsPerPage {
		return nil, fmt.Errorf("%w: page %d with %d rows per page overflows the offset", ErrInvalidPage, b.page, b.rowsPerPage)
	}

	return &QueryState{
		table:           b.table,
		columns:         cloneColumns(b.columns),
		softDelete:      b.softDelete,
		page:            b.page,
		rowsPerPage:     b.rowsPerPage,
		pageSizeChoices: PageSizeChoices(b.rowsPerPage, b.pageSizeChoices),
		search:          b.search,
		filters:         cloneFilters(b.filters),
		forcedAnd:       append([]Clause{}, b.forcedAnd...),
		forcedRaw:       append([]Clause{}, b.forcedRaw...),
		forcedOr:        append([]Clause{}, b.forcedOr...),
	}, nil
}

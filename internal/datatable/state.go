package datatable

// QueryState is the frozen configuration of one grid request.
type QueryState struct {
	table           string
	columns         []ColumnDefinition
	softDelete      string
	page            int
	rowsPerPage     int
	pageSizeChoices []int
	search          string
	filters         FilterList
	forcedAnd       []Clause
	forcedRaw       []Clause
	forcedOr        []Clause
}

// Table is the table the grid reads from.
func (s *QueryState) Table() string { return s.table }

// SoftDelete is the column marking deleted rows, or empty when disabled.
func (s *QueryState) SoftDelete() string { return s.softDelete }

// Page is the zero-based page number.
func (s *QueryState) Page() int { return s.page }

// RowsPerPage is the page size.
func (s *QueryState) RowsPerPage() int { return s.rowsPerPage }

// SearchText is the free-text search, or empty for none.
func (s *QueryState) SearchText() string { return s.search }

// Offset is the first row of the current page.
func (s *QueryState) Offset() int {
	return Offset(s.page, s.rowsPerPage)
}

// PageSizeChoices includes the current page size.
func (s *QueryState) PageSizeChoices() []int {
	return append([]int{}, s.pageSizeChoices...)
}

// Columns returns a copy of the normalized columns.
func (s *QueryState) Columns() []ColumnDefinition {
	return cloneColumns(s.columns)
}

// ColumnNames returns the select list in column order.
func (s *QueryState) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return names
}

// Filter returns the filter values attached to every column with this name,
// in column order.
func (s *QueryState) Filter(column string) []string {
	values := []string{}
	for i, col := range s.columns {
		if col.Name != column {
			continue
		}
		if entry, ok := s.filterAt(i); ok {
			values = append(values, entry...)
		}
	}
	return values
}

// filterAt returns the request entry for the column at i and whether the
// request carried one.
func (s *QueryState) filterAt(i int) ([]string, bool) {
	if i >= len(s.filters) {
		return nil, false
	}
	return s.filters[i], true
}

// ActiveSortColumn returns the name of the column the page is ordered by.
func (s *QueryState) ActiveSortColumn() (string, error) {
	name, _, err := activeSort(s.columns)
	return name, err
}

// ActiveSortDirection returns the direction of the active sort.
func (s *QueryState) ActiveSortDirection() (SortDirection, error) {
	_, dir, err := activeSort(s.columns)
	return dir, err
}

// Predicate builds the filter tree for the request. The result is the AND of,
// in order: the soft-delete exclusion, forced comparisons, forced raw
// fragments, the forced OR group and the search/filter OR group. Search and
// filter matches share one OR group, so a row matching the search on any
// column is kept even when it fails a column filter.
func (s *QueryState) Predicate() Predicate {
	pred := And{}
	if s.softDelete != "" {
		pred = append(pred, IsNull{Column: ColumnRef{Table: s.table, Name: s.softDelete}})
	}
	for _, clause := range s.forcedAnd {
		pred = append(pred, clause.predicate())
	}
	for _, clause := range s.forcedRaw {
		pred = append(pred, clause.predicate())
	}
	if len(s.forcedOr) > 0 {
		group := make(Or, 0, len(s.forcedOr))
		for _, clause := range s.forcedOr {
			group = append(group, clause.predicate())
		}
		pred = append(pred, group)
	}
	return append(pred, s.searchGroup())
}

func (s *QueryState) searchGroup() Or {
	group := Or{}
	if s.search != "" {
		for _, col := range s.columns {
			group = append(group, Contains{Column: ColumnRef{Table: s.table, Name: col.Name}, Value: s.search})
		}
	}
	for i, col := range s.columns {
		values, _ := s.filterAt(i)
		for _, value := range values {
			group = append(group, Contains{Column: ColumnRef{Table: s.table, Name: col.Name}, Value: value})
		}
	}
	return group
}

package datatable

func activeSortIndex(columns []ColumnDefinition) int {
	for i, col := range columns {
		if col.SortDirection != SortNone {
			return i
		}
	}
	return -1
}

func columnIndex(columns []ColumnDefinition, name string) int {
	for i, col := range columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// sortColumns makes name the only sorted column. An unknown name leaves the
// columns untouched, so the previously active sort survives.
func sortColumns(columns []ColumnDefinition, name string, dir SortDirection) []ColumnDefinition {
	idx := columnIndex(columns, name)
	if idx < 0 {
		return columns
	}
	if dir == SortNone {
		dir = SortAsc
	}

	out := cloneColumns(columns)
	for i := range out {
		out[i].SortDirection = SortNone
	}
	out[idx].SortDirection = dir
	return out
}

// activeSort returns the first sorted column. Without one it falls back to
// the first column ascending.
func activeSort(columns []ColumnDefinition) (string, SortDirection, error) {
	if len(columns) == 0 {
		return "", SortNone, ErrNoColumns
	}
	if idx := activeSortIndex(columns); idx >= 0 {
		return columns[idx].Name, columns[idx].SortDirection, nil
	}
	return columns[0].Name, SortAsc, nil
}

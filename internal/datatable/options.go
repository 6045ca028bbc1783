package datatable

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// Options is the state object a MUI data grid sends with each server-side request.
// Nil fields keep the configured defaults.
type Options struct {
	Page        *int        `json:"page"`
	RowsPerPage *int        `json:"rowsPerPage"`
	SearchText  *string     `json:"searchText"`
	FilterList  FilterList  `json:"filterList"`
	Columns     []RawColumn `json:"columns"`
}

// FilterList holds per-column filter values, aligned with the column order.
type FilterList [][]string

// UnmarshalJSON accepts scalar filter values of any JSON type and null entries.
func (f *FilterList) UnmarshalJSON(data []byte) error {
	var raw [][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("filterList: %w", err)
	}
	if raw == nil {
		*f = nil
		return nil
	}

	out := make(FilterList, len(raw))
	for i, entry := range raw {
		values := make([]string, 0, len(entry))
		for _, value := range entry {
			if value == nil {
				continue
			}
			s, err := cast.ToStringE(value)
			if err != nil {
				return fmt.Errorf("filterList[%d]: %w", i, err)
			}
			values = append(values, s)
		}
		out[i] = values
	}
	*f = out
	return nil
}

// alignFilters copies the entries that line up with a column. Entries past
// the last column are dropped. Two columns sharing a name keep separate entries.
func alignFilters(columns []ColumnDefinition, list FilterList) FilterList {
	n := min(len(list), len(columns))
	filters := make(FilterList, n)
	for i := range n {
		filters[i] = append([]string{}, list[i]...)
	}
	return filters
}

func cloneFilters(list FilterList) FilterList {
	out := make(FilterList, len(list))
	for i, values := range list {
		out[i] = append([]string{}, values...)
	}
	return out
}

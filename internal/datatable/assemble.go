package datatable

// ColumnDescriptor is a column as the grid expects it: descriptive keys at
// the top level and rendering keys nested under "options".
type ColumnDescriptor map[string]any

// optionKeys are routed into the nested options bag.
var optionKeys = map[string]struct{}{
	"display":          {},
	"filterList":       {},
	"filterOptions":    {},
	"filter":           {},
	"sort":             {},
	"sortDirection":    {},
	"download":         {},
	"hint":             {},
	"customHeadRender": {},
	"customBodyRender": {},
	"setCellProps":     {},
}

// IsOptionKey reports whether a column key belongs in the options bag.
func IsOptionKey(key string) bool {
	_, ok := optionKeys[key]
	return ok
}

// ColumnsWithOptions shapes every column for the response, with the active
// filter values in options.filterList.
func (s *QueryState) ColumnsWithOptions() []ColumnDescriptor {
	descriptors := make([]ColumnDescriptor, 0, len(s.columns))
	for i, col := range s.columns {
		values, ok := s.filterAt(i)
		descriptors = append(descriptors, describeColumn(col, values, ok))
	}
	return descriptors
}

func describeColumn(col ColumnDefinition, filter []string, requested bool) ColumnDescriptor {
	desc := ColumnDescriptor{}
	options := map[string]any{"filterList": []string{}}

	for key, value := range col.Fields() {
		if IsOptionKey(key) {
			options[key] = value
		} else {
			desc[key] = value
		}
	}
	desc["label"] = col.DisplayLabel()

	if requested {
		options["filterList"] = append([]string{}, filter...)
	} else if options["filterList"] == nil {
		options["filterList"] = []string{}
	}
	desc["options"] = options
	return desc
}

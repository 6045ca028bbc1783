package datatable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// SortDirection is the ordering applied to the active sort column.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts asc/desc in any case. Empty and "none" mean no direction.
func ParseSortDirection(value string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return SortNone, nil
	case "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return SortNone, fmt.Errorf("%w: %q", ErrInvalidSortDirection, value)
	}
}

// SQL returns the ORDER BY keyword for the direction.
func (d SortDirection) SQL() string {
	if d == SortDesc {
		return "DESC"
	}
	return "ASC"
}

// ColumnDefinition is the canonical form of one grid column.
type ColumnDefinition struct {
	Name          string
	Label         string
	Display       bool
	Download      bool
	Filter        bool
	Sort          bool
	ViewColumns   bool
	SortDirection SortDirection
	// Extra holds free-form rendering keys (hint, customBodyRender, ...).
	Extra map[string]any
}

func defaultColumn(name string) ColumnDefinition {
	return ColumnDefinition{
		Name:        name,
		Display:     true,
		Download:    true,
		Filter:      true,
		Sort:        true,
		ViewColumns: true,
	}
}

// DisplayLabel returns the label, falling back to the column name.
func (c ColumnDefinition) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

// Fields returns every key of the column, free-form keys included.
// Unset label and sortDirection are reported as nil.
func (c ColumnDefinition) Fields() map[string]any {
	fields := make(map[string]any, 8+len(c.Extra))
	for key, value := range c.Extra {
		fields[key] = value
	}
	fields["name"] = c.Name
	fields["label"] = nil
	if c.Label != "" {
		fields["label"] = c.Label
	}
	fields["display"] = c.Display
	fields["download"] = c.Download
	fields["filter"] = c.Filter
	fields["sort"] = c.Sort
	fields["viewColumns"] = c.ViewColumns
	fields["sortDirection"] = nil
	if c.SortDirection != SortNone {
		fields["sortDirection"] = string(c.SortDirection)
	}
	return fields
}

func (c ColumnDefinition) clone() ColumnDefinition {
	if c.Extra != nil {
		extra := make(map[string]any, len(c.Extra))
		for key, value := range c.Extra {
			extra[key] = value
		}
		c.Extra = extra
	}
	return c
}

func cloneColumns(columns []ColumnDefinition) []ColumnDefinition {
	out := make([]ColumnDefinition, len(columns))
	for i, col := range columns {
		out[i] = col.clone()
	}
	return out
}

// RawColumn is a column as supplied by a caller: either a bare name or a partial object.
type RawColumn struct {
	name    string
	fields  map[string]any
	partial bool
}

// ColumnName is the bare-name shorthand for a column.
func ColumnName(name string) RawColumn {
	return RawColumn{name: name}
}

// PartialColumn is a column object whose keys override the defaults.
func PartialColumn(fields map[string]any) RawColumn {
	return RawColumn{fields: fields, partial: true}
}

// IsPartial reports whether the column was given as an object.
func (r RawColumn) IsPartial() bool {
	return r.partial
}

// Name returns the column name as supplied, without validation.
func (r RawColumn) Name() string {
	if !r.partial {
		return r.name
	}
	value, _ := lookupFold(r.fields, "name")
	return cast.ToString(value)
}

func (r RawColumn) requestedSort() string {
	if !r.partial {
		return ""
	}
	value, _ := lookupFold(r.fields, "sortDirection")
	return cast.ToString(value)
}

// UnmarshalJSON accepts either a JSON string or a JSON object.
func (r *RawColumn) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = ColumnName(name)
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return fmt.Errorf("%w: expected a column name or object", ErrInvalidColumn)
	}
	*r = PartialColumn(fields)
	return nil
}

// RawColumnFromValue converts a decoded config or JSON value into a RawColumn.
func RawColumnFromValue(value any) (RawColumn, error) {
	switch v := value.(type) {
	case string:
		return ColumnName(v), nil
	case RawColumn:
		return v, nil
	case ColumnDefinition:
		return PartialColumn(v.Fields()), nil
	case map[string]any:
		return PartialColumn(v), nil
	case map[any]any:
		fields, err := cast.ToStringMapE(v)
		if err != nil {
			return RawColumn{}, fmt.Errorf("%w: %v", ErrInvalidColumn, err)
		}
		return PartialColumn(fields), nil
	default:
		return RawColumn{}, fmt.Errorf("%w: unsupported column value of type %T", ErrInvalidColumn, value)
	}
}

// ParseColumns converts a list of decoded values into raw columns.
func ParseColumns(values []any) ([]RawColumn, error) {
	columns := make([]RawColumn, 0, len(values))
	for i, value := range values {
		col, err := RawColumnFromValue(value)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

type columnFields struct {
	Name          string         `mapstructure:"name"`
	Label         *string        `mapstructure:"label"`
	Display       bool           `mapstructure:"display"`
	Download      bool           `mapstructure:"download"`
	Filter        bool           `mapstructure:"filter"`
	Sort          bool           `mapstructure:"sort"`
	ViewColumns   bool           `mapstructure:"viewColumns"`
	SortDirection *string        `mapstructure:"sortDirection"`
	Extra         map[string]any `mapstructure:",remain"`
}

func (r RawColumn) normalize() (ColumnDefinition, error) {
	if !r.partial {
		name := strings.TrimSpace(r.name)
		if name == "" {
			return ColumnDefinition{}, fmt.Errorf("%w: empty column name", ErrInvalidColumn)
		}
		return defaultColumn(name), nil
	}

	// Decoding onto the defaults leaves every key the caller omitted untouched.
	fields := columnFields{Display: true, Download: true, Filter: true, Sort: true, ViewColumns: true}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fields,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ColumnDefinition{}, err
	}
	if err := decoder.Decode(r.fields); err != nil {
		return ColumnDefinition{}, fmt.Errorf("%w: %v", ErrInvalidColumn, err)
	}

	name := strings.TrimSpace(fields.Name)
	if name == "" {
		return ColumnDefinition{}, fmt.Errorf("%w: column object without a name", ErrInvalidColumn)
	}

	col := ColumnDefinition{
		Name:        name,
		Display:     fields.Display,
		Download:    fields.Download,
		Filter:      fields.Filter,
		Sort:        fields.Sort,
		ViewColumns: fields.ViewColumns,
		Extra:       canonicalExtra(fields.Extra),
	}
	if fields.Label != nil {
		col.Label = *fields.Label
	}
	if fields.SortDirection != nil {
		dir, err := ParseSortDirection(*fields.SortDirection)
		if err != nil {
			return ColumnDefinition{}, fmt.Errorf("column %q: %w", name, err)
		}
		col.SortDirection = dir
	}
	return col, nil
}

// NormalizeColumns fills defaults for each column and guarantees exactly one
// active sort when at least one column exists. The first column becomes the
// ascending sort when none is given; extra sorts after the first are cleared.
func NormalizeColumns(raw []RawColumn) ([]ColumnDefinition, error) {
	columns := make([]ColumnDefinition, 0, len(raw))
	for i, r := range raw {
		col, err := r.normalize()
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return columns, nil
	}

	if idx := activeSortIndex(columns); idx < 0 {
		columns[0].SortDirection = SortAsc
	} else {
		for i := idx + 1; i < len(columns); i++ {
			columns[i].SortDirection = SortNone
		}
	}
	return columns, nil
}

// canonicalKeys maps lowercased MUI column keys back to their camelCase form.
// Config files pass through viper, which lowercases every key.
var canonicalKeys = func() map[string]string {
	keys := []string{
		"filterList", "filterOptions", "filterType", "customFilterListOptions",
		"hint", "customHeadRender", "customBodyRender", "customBodyRenderLite",
		"setCellProps", "setCellHeaderProps", "searchable", "print", "empty",
		"sortCompare", "sortThirdClickReset", "sortDescFirst", "draggable",
		"customHeadLabelRender",
	}
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[strings.ToLower(key)] = key
	}
	return m
}()

func canonicalExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for key, value := range extra {
		if canonical, ok := canonicalKeys[strings.ToLower(key)]; ok {
			key = canonical
		}
		out[key] = value
	}
	return out
}

func lookupFold(fields map[string]any, key string) (any, bool) {
	if value, ok := fields[key]; ok {
		return value, true
	}
	for k, value := range fields {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}

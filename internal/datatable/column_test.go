package datatable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(values ...string) []RawColumn {
	cols := make([]RawColumn, len(values))
	for i, v := range values {
		cols[i] = ColumnName(v)
	}
	return cols
}

func sortedColumns(cols []ColumnDefinition) []string {
	var sorted []string
	for _, col := range cols {
		if col.SortDirection != SortNone {
			sorted = append(sorted, col.Name+" "+string(col.SortDirection))
		}
	}
	return sorted
}

func TestNormalizeColumns_BareNamesGetDefaults(t *testing.T) {
	cols, err := NormalizeColumns(names("id", "name", "email"))
	require.NoError(t, err)
	require.Len(t, cols, 3)

	for _, col := range cols {
		assert.True(t, col.Display, col.Name)
		assert.True(t, col.Download, col.Name)
		assert.True(t, col.Filter, col.Name)
		assert.True(t, col.Sort, col.Name)
		assert.True(t, col.ViewColumns, col.Name)
		assert.Empty(t, col.Label, col.Name)
		assert.Nil(t, col.Extra, col.Name)
	}
	assert.Equal(t, []string{"id asc"}, sortedColumns(cols))
}

func TestNormalizeColumns_PartialOverridesDefaults(t *testing.T) {
	cols, err := NormalizeColumns([]RawColumn{
		ColumnName("id"),
		PartialColumn(map[string]any{
			"name":     "email",
			"label":    "E-mail",
			"download": false,
			"hint":     "Primary address",
		}),
	})
	require.NoError(t, err)

	email := cols[1]
	assert.Equal(t, "email", email.Name)
	assert.Equal(t, "E-mail", email.Label)
	assert.False(t, email.Download)
	assert.True(t, email.Display)
	assert.True(t, email.Filter)
	assert.Equal(t, map[string]any{"hint": "Primary address"}, email.Extra)
}

func TestNormalizeColumns_ExplicitSortWins(t *testing.T) {
	cols, err := NormalizeColumns([]RawColumn{
		ColumnName("id"),
		PartialColumn(map[string]any{"name": "created_at", "sortDirection": "desc"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"created_at desc"}, sortedColumns(cols))
}

func TestNormalizeColumns_KeepsOnlyFirstSort(t *testing.T) {
	cols, err := NormalizeColumns([]RawColumn{
		PartialColumn(map[string]any{"name": "a", "sortDirection": "desc"}),
		PartialColumn(map[string]any{"name": "b", "sortDirection": "asc"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a desc"}, sortedColumns(cols))
}

func TestNormalizeColumns_LowercasedKeys(t *testing.T) {
	cols, err := NormalizeColumns([]RawColumn{
		PartialColumn(map[string]any{
			"name":             "status",
			"sortdirection":    "DESC",
			"viewcolumns":      false,
			"customheadrender": "renderStatus",
			"print":            false,
		}),
	})
	require.NoError(t, err)

	col := cols[0]
	assert.Equal(t, SortDesc, col.SortDirection)
	assert.False(t, col.ViewColumns)
	assert.Equal(t, map[string]any{"customHeadRender": "renderStatus", "print": false}, col.Extra)
}

func TestNormalizeColumns_Empty(t *testing.T) {
	cols, err := NormalizeColumns(nil)
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestNormalizeColumns_Errors(t *testing.T) {
	tests := []struct {
		name string
		cols []RawColumn
		want error
	}{
		{name: "empty bare name", cols: names(" "), want: ErrInvalidColumn},
		{name: "object without name", cols: []RawColumn{PartialColumn(map[string]any{"label": "x"})}, want: ErrInvalidColumn},
		{name: "bad direction", cols: []RawColumn{PartialColumn(map[string]any{"name": "x", "sortDirection": "up"})}, want: ErrInvalidSortDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeColumns(tt.cols)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeColumns_Idempotent(t *testing.T) {
	first, err := NormalizeColumns([]RawColumn{
		ColumnName("id"),
		PartialColumn(map[string]any{"name": "email", "label": "E-mail", "filter": false, "hint": "h"}),
		PartialColumn(map[string]any{"name": "created_at", "sortDirection": "desc"}),
	})
	require.NoError(t, err)

	again := make([]RawColumn, len(first))
	for i, col := range first {
		raw, err := RawColumnFromValue(col)
		require.NoError(t, err)
		again[i] = raw
	}
	second, err := NormalizeColumns(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRawColumn_UnmarshalJSON(t *testing.T) {
	var cols []RawColumn
	err := json.Unmarshal([]byte(`["id", {"name": "email", "sortDirection": "desc"}]`), &cols)
	require.NoError(t, err)
	require.Len(t, cols, 2)

	assert.False(t, cols[0].IsPartial())
	assert.Equal(t, "id", cols[0].Name())
	assert.True(t, cols[1].IsPartial())
	assert.Equal(t, "email", cols[1].Name())
	assert.Equal(t, "desc", cols[1].requestedSort())

	var bad []RawColumn
	err = json.Unmarshal([]byte(`[42]`), &bad)
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestParseColumns(t *testing.T) {
	cols, err := ParseColumns([]any{
		"id",
		map[string]any{"name": "email"},
		map[any]any{"name": "status"},
	})
	require.NoError(t, err)
	assert.Equal(t, "id", cols[0].Name())
	assert.Equal(t, "email", cols[1].Name())
	assert.Equal(t, "status", cols[2].Name())

	_, err = ParseColumns([]any{12})
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestParseSortDirection(t *testing.T) {
	tests := []struct {
		in   string
		want SortDirection
		err  bool
	}{
		{in: "asc", want: SortAsc},
		{in: "DESC", want: SortDesc},
		{in: " none ", want: SortNone},
		{in: "", want: SortNone},
		{in: "sideways", err: true},
	}

	for _, tt := range tests {
		got, err := ParseSortDirection(tt.in)
		if tt.err {
			assert.ErrorIs(t, err, ErrInvalidSortDirection, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

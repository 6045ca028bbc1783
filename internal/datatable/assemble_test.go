package datatable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsWithOptions_Routing(t *testing.T) {
	b, err := NewBuilder("users", []RawColumn{
		ColumnName("id"),
		PartialColumn(map[string]any{
			"name":          "email",
			"label":         "E-mail",
			"sortDirection": "desc",
			"hint":          "Primary address",
			"print":         false,
		}),
	})
	require.NoError(t, err)

	cols := build(t, b).ColumnsWithOptions()
	require.Len(t, cols, 2)

	assert.Equal(t, ColumnDescriptor{
		"name":        "id",
		"label":       "id",
		"viewColumns": true,
		"options": map[string]any{
			"display":       true,
			"download":      true,
			"filter":        true,
			"sort":          true,
			"sortDirection": nil,
			"filterList":    []string{},
		},
	}, cols[0])

	assert.Equal(t, ColumnDescriptor{
		"name":        "email",
		"label":       "E-mail",
		"viewColumns": true,
		"print":       false,
		"options": map[string]any{
			"display":       true,
			"download":      true,
			"filter":        true,
			"sort":          true,
			"sortDirection": "desc",
			"hint":          "Primary address",
			"filterList":    []string{},
		},
	}, cols[1])
}

func TestColumnsWithOptions_FilterListPrecedence(t *testing.T) {
	b, err := NewBuilder("users", []RawColumn{
		PartialColumn(map[string]any{"name": "status", "filterList": []any{"active"}}),
		PartialColumn(map[string]any{"name": "role", "filterList": []any{"admin"}}),
	})
	require.NoError(t, err)
	require.NoError(t, b.ApplyOptions(Options{FilterList: FilterList{{"archived"}}}))

	cols := build(t, b).ColumnsWithOptions()
	assert.Equal(t, []string{"archived"}, cols[0]["options"].(map[string]any)["filterList"])
	assert.Equal(t, []any{"admin"}, cols[1]["options"].(map[string]any)["filterList"])
}

func TestIsOptionKey(t *testing.T) {
	for _, key := range []string{"display", "filterList", "filterOptions", "customBodyRender", "setCellProps"} {
		assert.True(t, IsOptionKey(key), key)
	}
	for _, key := range []string{"name", "label", "viewColumns", "print", "filterOptons"} {
		assert.False(t, IsOptionKey(key), key)
	}
}

func TestOptions_UnmarshalJSON(t *testing.T) {
	var opts Options
	err := json.Unmarshal([]byte(`{
		"page": 2,
		"rowsPerPage": 25,
		"searchText": null,
		"filterList": [[], ["1", 2, true], null, ["a", null]],
		"columns": ["id", {"name": "email", "sortDirection": "desc"}]
	}`), &opts)
	require.NoError(t, err)

	require.NotNil(t, opts.Page)
	assert.Equal(t, 2, *opts.Page)
	assert.Equal(t, 25, *opts.RowsPerPage)
	assert.Nil(t, opts.SearchText)
	assert.Equal(t, FilterList{{}, {"1", "2", "true"}, {}, {"a"}}, opts.FilterList)
	require.Len(t, opts.Columns, 2)
	assert.Equal(t, "email", opts.Columns[1].Name())

	var empty Options
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.Nil(t, empty.FilterList)
	assert.Nil(t, empty.Columns)
}

func TestFilterList_RejectsNestedValues(t *testing.T) {
	var list FilterList
	err := json.Unmarshal([]byte(`[[{"a": 1}]]`), &list)
	assert.Error(t, err)
}

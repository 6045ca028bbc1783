package datatable

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	count     int64
	rows      []Row
	countErr  error
	selectErr error

	countCalls  int
	selectCalls int
	countWhere  Predicate
	lastSelect  SelectQuery
}

func (f *fakeExecutor) Count(_ context.Context, table string, where Predicate) (int64, error) {
	f.countCalls++
	f.countWhere = where
	return f.count, f.countErr
}

func (f *fakeExecutor) Select(_ context.Context, query SelectQuery) ([]Row, error) {
	f.selectCalls++
	f.lastSelect = query
	return f.rows, f.selectErr
}

func TestResponse(t *testing.T) {
	b := newUsersBuilder(t)
	require.NoError(t, b.ApplyOptions(Options{
		Page:        intPtr(1),
		RowsPerPage: intPtr(2),
		FilterList:  FilterList{{}, {}, {"gmail.com"}},
	}))
	state := build(t, b)

	exec := &fakeExecutor{
		count: 3,
		rows: []Row{
			{"email": "c@gmail.com", "id": 3, "name": "Cat"},
			{"id": 4, "name": "Dan"},
		},
	}
	resp, err := state.Response(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, [][]any{{3, "Cat", "c@gmail.com"}, {4, "Dan", nil}}, resp.Data)
	assert.Equal(t, PageOptions{Count: 3, Page: 1, RowsPerPage: 2, RowsPerPageOptions: []int{2, 10, 25, 50, 100}}, resp.Options)
	require.Len(t, resp.Columns, 3)
	assert.Equal(t, []string{"gmail.com"}, resp.Columns[2]["options"].(map[string]any)["filterList"])

	assert.Equal(t, 1, exec.countCalls)
	assert.Equal(t, 1, exec.selectCalls)
	assert.Equal(t, state.Predicate(), exec.countWhere)
	assert.Equal(t, 2, exec.lastSelect.Offset)
	assert.Equal(t, 2, exec.lastSelect.Limit)
}

func TestResponse_CountErrorStopsSelect(t *testing.T) {
	want := errors.New("connection reset")
	exec := &fakeExecutor{countErr: want}

	resp, err := build(t, newUsersBuilder(t)).Response(context.Background(), exec)
	assert.Nil(t, resp)
	assert.Equal(t, want, err)
	assert.Equal(t, 0, exec.selectCalls)
}

func TestResponse_SelectError(t *testing.T) {
	want := errors.New("query timeout")
	exec := &fakeExecutor{count: 10, selectErr: want}

	resp, err := build(t, newUsersBuilder(t)).Response(context.Background(), exec)
	assert.Nil(t, resp)
	assert.Equal(t, want, err)
}

func TestResponse_NoColumns(t *testing.T) {
	b, err := NewBuilder("users", nil)
	require.NoError(t, err)
	exec := &fakeExecutor{}

	_, err = build(t, b).Response(context.Background(), exec)
	assert.ErrorIs(t, err, ErrNoColumns)
	assert.Equal(t, 0, exec.countCalls)
}

func TestResponse_NilExecutor(t *testing.T) {
	_, err := build(t, newUsersBuilder(t)).Response(context.Background(), nil)
	assert.Error(t, err)
}

func TestResponse_JSON(t *testing.T) {
	state := build(t, newUsersBuilder(t, "id"))
	resp, err := state.Response(context.Background(), &fakeExecutor{})
	require.NoError(t, err)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": [],
		"columns": [{
			"name": "id",
			"label": "id",
			"viewColumns": true,
			"options": {
				"display": true,
				"download": true,
				"filter": true,
				"sort": true,
				"sortDirection": "asc",
				"filterList": []
			}
		}],
		"options": {"count": 0, "page": 0, "rowsPerPage": 10, "rowsPerPageOptions": [10, 25, 50, 100]}
	}`, string(body))
}

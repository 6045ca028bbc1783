package datatable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClauseFromTuple(t *testing.T) {
	tests := []struct {
		name  string
		parts []any
		want  Predicate
		raw   bool
	}{
		{
			name:  "comparison",
			parts: []any{"status", "=", "active"},
			want:  Compare{Field: "status", Op: "=", Value: "active"},
		},
		{
			name:  "comparator is normalized",
			parts: []any{"email", "NOT   LIKE", "%@test%"},
			want:  Compare{Field: "email", Op: "not like", Value: "%@test%"},
		},
		{
			name:  "two parts are always raw",
			parts: []any{"x", "="},
			want:  Raw{Expr: "x", Args: []any{"="}},
			raw:   true,
		},
		{
			name:  "raw bindings are spread",
			parts: []any{"a = ? AND b = ?", []any{1, 2}},
			want:  Raw{Expr: "a = ? AND b = ?", Args: []any{1, 2}},
			raw:   true,
		},
		{
			name:  "raw without bindings",
			parts: []any{"archived = 0", nil},
			want:  Raw{Expr: "archived = 0", Args: []any{}},
			raw:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, err := ClauseFromTuple(tt.parts...)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, clause.IsRaw())
			assert.Equal(t, tt.want, clause.predicate())
		})
	}
}

func TestClauseFromTuple_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		parts []any
	}{
		{name: "one part", parts: []any{"status"}},
		{name: "four parts", parts: []any{"a", "=", 1, 2}},
		{name: "unknown comparator", parts: []any{"a", "~", 1}},
		{name: "empty field", parts: []any{" ", "=", 1}},
		{name: "empty raw", parts: []any{"", nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ClauseFromTuple(tt.parts...)
			assert.ErrorIs(t, err, ErrInvalidClause)
		})
	}
}

func TestOrClauseFromTuple_RejectsRaw(t *testing.T) {
	_, err := OrClauseFromTuple("x", "=")
	assert.ErrorIs(t, err, ErrInvalidClause)

	clause, err := OrClauseFromTuple("role", "=", "admin")
	require.NoError(t, err)
	assert.False(t, clause.IsRaw())
	assert.Equal(t, "role = admin", clause.String())
}

package datatable

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Comparators accepted by forced comparison clauses.
var comparators = map[string]struct{}{
	"=":        {},
	"!=":       {},
	"<>":       {},
	"<":        {},
	"<=":       {},
	">":        {},
	">=":       {},
	"like":     {},
	"not like": {},
	"ilike":    {},
}

// Clause is a forced constraint added by the embedding application.
// It is either a comparison (field, comparator, value) or a raw fragment.
type Clause struct {
	raw   bool
	field string
	op    string
	value any
	expr  string
	args  []any
}

// Where builds a comparison clause.
func Where(field, op string, value any) (Clause, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return Clause{}, fmt.Errorf("%w: empty field", ErrInvalidClause)
	}
	op = strings.ToLower(strings.Join(strings.Fields(op), " "))
	if _, ok := comparators[op]; !ok {
		return Clause{}, fmt.Errorf("%w: unsupported comparator %q", ErrInvalidClause, op)
	}
	return Clause{field: field, op: op, value: value}, nil
}

// WhereRaw builds a raw clause. The expression uses "?" placeholders.
func WhereRaw(expr string, args ...any) (Clause, error) {
	if strings.TrimSpace(expr) == "" {
		return Clause{}, fmt.Errorf("%w: empty raw expression", ErrInvalidClause)
	}
	return Clause{raw: true, expr: expr, args: args}, nil
}

// ClauseFromTuple routes a tuple by its length: three parts form a comparison,
// two parts form a raw expression with its bindings. A two-part tuple is always
// raw, even when it looks like an incomplete comparison.
func ClauseFromTuple(parts ...any) (Clause, error) {
	switch len(parts) {
	case 3:
		field, err := cast.ToStringE(parts[0])
		if err != nil {
			return Clause{}, fmt.Errorf("%w: field: %v", ErrInvalidClause, err)
		}
		op, err := cast.ToStringE(parts[1])
		if err != nil {
			return Clause{}, fmt.Errorf("%w: comparator: %v", ErrInvalidClause, err)
		}
		return Where(field, op, parts[2])
	case 2:
		expr, err := cast.ToStringE(parts[0])
		if err != nil {
			return Clause{}, fmt.Errorf("%w: expression: %v", ErrInvalidClause, err)
		}
		return WhereRaw(expr, bindings(parts[1])...)
	default:
		return Clause{}, fmt.Errorf("%w: expected 2 or 3 elements, got %d", ErrInvalidClause, len(parts))
	}
}

// OrClauseFromTuple accepts only comparison triples.
func OrClauseFromTuple(parts ...any) (Clause, error) {
	if len(parts) != 3 {
		return Clause{}, fmt.Errorf("%w: OR clauses need 3 elements, got %d", ErrInvalidClause, len(parts))
	}
	return ClauseFromTuple(parts...)
}

func bindings(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	default:
		return []any{v}
	}
}

// IsRaw reports whether the clause is a raw fragment.
func (c Clause) IsRaw() bool {
	return c.raw
}

// String renders the clause for logs.
func (c Clause) String() string {
	if c.raw {
		return fmt.Sprintf("%s %v", c.expr, c.args)
	}
	return fmt.Sprintf("%s %s %v", c.field, c.op, c.value)
}

func (c Clause) predicate() Predicate {
	if c.raw {
		args := make([]any, len(c.args))
		copy(args, c.args)
		return Raw{Expr: c.expr, Args: args}
	}
	return Compare{Field: c.field, Op: c.op, Value: c.value}
}

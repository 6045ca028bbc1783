package dbexec

import (
	"fmt"

	"mui-datatable/internal/datatable"

	sq "github.com/Masterminds/squirrel"
)

// Render translates a predicate tree into a squirrel condition. Empty groups
// render to nil instead of squirrel's (1=1) / (1=0) placeholders.
func Render(d Dialect, p datatable.Predicate) (sq.Sqlizer, error) {
	switch p := p.(type) {
	case nil:
		return nil, nil
	case datatable.And:
		parts, err := renderAll(d, p)
		if err != nil || len(parts) == 0 {
			return nil, err
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return sq.And(parts), nil
	case datatable.Or:
		parts, err := renderAll(d, p)
		if err != nil || len(parts) == 0 {
			return nil, err
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return sq.Or(parts), nil
	case datatable.IsNull:
		return sq.Eq{d.column(p.Column): nil}, nil
	case datatable.Compare:
		return d.compare(p)
	case datatable.Raw:
		// Parenthesized so an OR inside the fragment cannot leak into the AND chain.
		return sq.Expr("("+p.Expr+")", p.Args...), nil
	case datatable.Contains:
		return d.contains(d.column(p.Column), "%"+p.Value+"%"), nil
	default:
		return nil, fmt.Errorf("unsupported predicate %T", p)
	}
}

// WhereSQL renders a predicate to SQL text with the dialect's placeholders.
// An empty predicate yields an empty string.
func WhereSQL(d Dialect, p datatable.Predicate) (string, []any, error) {
	cond, err := Render(d, p)
	if err != nil || cond == nil {
		return "", nil, err
	}
	query, args, err := cond.ToSql()
	if err != nil {
		return "", nil, err
	}
	query, err = d.Placeholder.ReplacePlaceholders(query)
	if err != nil {
		return "", nil, err
	}
	return query, args, nil
}

func renderAll(d Dialect, preds []datatable.Predicate) ([]sq.Sqlizer, error) {
	parts := make([]sq.Sqlizer, 0, len(preds))
	for _, pred := range preds {
		part, err := Render(d, pred)
		if err != nil {
			return nil, err
		}
		if part != nil {
			parts = append(parts, part)
		}
	}
	return parts, nil
}

func (d Dialect) column(ref datatable.ColumnRef) string {
	if ref.Table == "" {
		return d.quote(ref.Name)
	}
	return d.Quote(ref.Table) + "." + d.quote(ref.Name)
}

func (d Dialect) compare(c datatable.Compare) (sq.Sqlizer, error) {
	field := d.Quote(c.Field)
	switch c.Op {
	case "=":
		return sq.Eq{field: c.Value}, nil
	case "!=", "<>":
		return sq.NotEq{field: c.Value}, nil
	case "<":
		return sq.Lt{field: c.Value}, nil
	case "<=":
		return sq.LtOrEq{field: c.Value}, nil
	case ">":
		return sq.Gt{field: c.Value}, nil
	case ">=":
		return sq.GtOrEq{field: c.Value}, nil
	case "like":
		return sq.Like{field: c.Value}, nil
	case "not like":
		return sq.NotLike{field: c.Value}, nil
	case "ilike":
		return d.ilike(field, c.Value), nil
	default:
		return nil, fmt.Errorf("unsupported comparator %q", c.Op)
	}
}

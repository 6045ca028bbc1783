package dbexec

import (
	"fmt"
	"strings"

	"mui-datatable/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat

	quote        func(string) string
	ilike        func(column string, value any) sq.Sqlizer
	contains     func(column string, pattern string) sq.Sqlizer
	setRole      func(role string) string
	resetRole    string
	supportsRole bool
}

var (
	MySQL = Dialect{
		Name:         "mysql",
		Placeholder:  sq.Question,
		quote:        sqlutil.QuoteIdentifier,
		ilike:        lowerLike,
		contains:     func(column, pattern string) sq.Sqlizer { return lowerLike(column, pattern) },
		setRole:      func(role string) string { return "SET ROLE " + sqlutil.QuoteIdentifier(role) },
		resetRole:    "SET ROLE DEFAULT",
		supportsRole: true,
	}

	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: sq.Dollar,
		quote:       sqlutil.QuoteANSIIdentifier,
		ilike:       func(column string, value any) sq.Sqlizer { return sq.ILike{column: value} },
		// Casting lets the match run on numeric and date columns too.
		contains: func(column, pattern string) sq.Sqlizer {
			return sq.ILike{fmt.Sprintf("CAST(%s AS TEXT)", column): pattern}
		},
		setRole:      func(role string) string { return "SET ROLE " + sqlutil.QuoteANSIIdentifier(role) },
		resetRole:    "RESET ROLE",
		supportsRole: true,
	}

	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: sq.Question,
		quote:       sqlutil.QuoteANSIIdentifier,
		ilike:       lowerLike,
		contains:    func(column, pattern string) sq.Sqlizer { return lowerLike(column, pattern) },
	}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "tidb":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Quote quotes a possibly dotted identifier.
func (d Dialect) Quote(name string) string {
	return sqlutil.QuoteQualified(name, d.quote)
}

// SupportsRoles reports whether the database can switch roles per session.
func (d Dialect) SupportsRoles() bool {
	return d.supportsRole
}

func lowerLike(column string, value any) sq.Sqlizer {
	return sq.Expr(fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", column), value)
}

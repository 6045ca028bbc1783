package datatable

// Predicate is a dialect-free filter tree. Executors translate it into their
// own query language.
type Predicate interface {
	isPredicate()
}

// ColumnRef names a column, optionally qualified by its table.
type ColumnRef struct {
	Table string
	Name  string
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

// Or matches when any child matches. An empty Or contributes no condition.
type Or []Predicate

// IsNull matches rows where the column has no value.
type IsNull struct {
	Column ColumnRef
}

// Compare applies a comparator to a field. Field may be qualified ("users.status").
type Compare struct {
	Field string
	Op    string
	Value any
}

// Raw is a verbatim fragment with "?" placeholders bound to Args.
type Raw struct {
	Expr string
	Args []any
}

// Contains is a case-insensitive substring match.
type Contains struct {
	Column ColumnRef
	Value  string
}

func (And) isPredicate()      {}
func (Or) isPredicate()       {}
func (IsNull) isPredicate()   {}
func (Compare) isPredicate()  {}
func (Raw) isPredicate()      {}
func (Contains) isPredicate() {}

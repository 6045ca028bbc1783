package catalog

import (
	"fmt"
	"strings"

	"mui-datatable/internal/datatable"
)

type claimClause struct {
	column string
	claim  string
	op     string
}

// Table is a parsed TableConfig.
type Table struct {
	name            string
	source          string
	columns         []datatable.RawColumn
	softDelete      string
	forcedWhere     []datatable.Clause
	forcedOrWhere   []datatable.Clause
	claimWhere      []claimClause
	rowsPerPage     int
	pageSizeChoices []int
	maxRowsPerPage  int
}

func newTable(name string, cfg TableConfig, defaults Defaults) (*Table, error) {
	field := func(key string) string { return fmt.Sprintf("tables.%s.%s", name, key) }

	columns, err := datatable.ParseColumns(cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field("columns"), err)
	}
	normalized, err := datatable.NormalizeColumns(columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field("columns"), err)
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%s: %w", field("columns"), datatable.ErrNoColumns)
	}

	t := &Table{
		name:            name,
		source:          strings.TrimSpace(cfg.Source),
		columns:         columns,
		softDelete:      strings.TrimSpace(cfg.SoftDeleteColumn),
		rowsPerPage:     firstPositive(cfg.DefaultRowsPerPage, defaults.RowsPerPage, datatable.DefaultRowsPerPage),
		pageSizeChoices: cfg.RowsPerPageOptions,
		maxRowsPerPage:  firstPositive(cfg.MaxRowsPerPage, defaults.MaxRowsPerPage),
	}
	if t.source == "" {
		t.source = name
	}
	if len(t.pageSizeChoices) == 0 {
		t.pageSizeChoices = defaults.RowsPerPageOptions
	}
	if len(t.pageSizeChoices) == 0 {
		t.pageSizeChoices = datatable.DefaultPageSizeChoices
	}
	t.pageSizeChoices = append([]int{}, t.pageSizeChoices...)

	for _, size := range t.pageSizeChoices {
		if size <= 0 {
			return nil, fmt.Errorf("%s: %w: %d", field("rows_per_page_options"), datatable.ErrInvalidPageSize, size)
		}
	}
	if t.maxRowsPerPage > 0 && t.rowsPerPage > t.maxRowsPerPage {
		return nil, fmt.Errorf("%s: %w: %d exceeds max_rows_per_page %d",
			field("default_rows_per_page"), datatable.ErrInvalidPageSize, t.rowsPerPage, t.maxRowsPerPage)
	}

	for i, tuple := range cfg.ForcedWhere {
		clause, err := datatable.ClauseFromTuple(tuple...)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field("forced_where"), i, err)
		}
		t.forcedWhere = append(t.forcedWhere, clause)
	}
	for i, tuple := range cfg.ForcedOrWhere {
		clause, err := datatable.OrClauseFromTuple(tuple...)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field("forced_or_where"), i, err)
		}
		t.forcedOrWhere = append(t.forcedOrWhere, clause)
	}
	for i, cc := range cfg.ClaimWhere {
		clause, err := parseClaimClause(cc)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field("claim_where"), i, err)
		}
		t.claimWhere = append(t.claimWhere, clause)
	}
	return t, nil
}

func parseClaimClause(cfg ClaimClauseConfig) (claimClause, error) {
	op := cfg.Comparator
	if strings.TrimSpace(op) == "" {
		op = "="
	}
	// Validates the column and comparator; the value is bound per request.
	if _, err := datatable.Where(cfg.Column, op, nil); err != nil {
		return claimClause{}, err
	}
	claim := strings.TrimSpace(cfg.Claim)
	if claim == "" {
		return claimClause{}, fmt.Errorf("%w: claim is required", datatable.ErrInvalidClause)
	}
	return claimClause{column: strings.TrimSpace(cfg.Column), claim: claim, op: op}, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// Name is the catalog key of the table.
func (t *Table) Name() string { return t.name }

// Source is the table or view queried.
func (t *Table) Source() string { return t.source }

// RequiresClaims reports whether requests need an authenticated token.
func (t *Table) RequiresClaims() bool { return len(t.claimWhere) > 0 }

// NewBuilder returns a fresh builder with the table's forced configuration
// applied. claims are the authenticated token claims, or nil without auth.
func (t *Table) NewBuilder(claims map[string]any) (*datatable.Builder, error) {
	b, err := datatable.NewBuilder(t.source, t.columns)
	if err != nil {
		return nil, err
	}
	b.SetSoftDelete(t.softDelete).
		SetRowsPerPage(t.rowsPerPage).
		SetPageSizeChoices(t.pageSizeChoices).
		SetMaxRowsPerPage(t.maxRowsPerPage).
		AddForcedWhere(t.forcedWhere...)
	if err := b.AddForcedOrWhere(t.forcedOrWhere...); err != nil {
		return nil, err
	}

	for _, cc := range t.claimWhere {
		value, ok := ClaimValue(claims, cc.claim)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingClaim, cc.claim)
		}
		clause, err := datatable.Where(cc.column, cc.op, value)
		if err != nil {
			return nil, err
		}
		b.AddForcedWhere(clause)
	}
	return b, nil
}

// ClaimValue resolves a claim by name, following dots into nested objects.
// Null values count as missing.
func ClaimValue(claims map[string]any, path string) (any, bool) {
	if claims == nil {
		return nil, false
	}
	if value, ok := claims[path]; ok {
		return value, value != nil
	}

	var current any = claims
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

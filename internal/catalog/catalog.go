// Package catalog holds the tables exposed to grids, built once from configuration.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownTable is returned for names missing from the catalog.
	ErrUnknownTable = errors.New("unknown table")
	// ErrMissingClaim is returned when a claim-scoped clause has no value to bind.
	ErrMissingClaim = errors.New("missing claim")
)

// ClaimClauseConfig binds a column to a token claim.
type ClaimClauseConfig struct {
	Column     string `mapstructure:"column"`
	Claim      string `mapstructure:"claim"`
	Comparator string `mapstructure:"comparator"`
}

// TableConfig configures one grid table.
type TableConfig struct {
	// Source is the table or view queried. Defaults to the catalog key.
	Source           string `mapstructure:"source"`
	SoftDeleteColumn string `mapstructure:"soft_delete_column"`
	// Columns are bare names or column objects.
	Columns []interface{} `mapstructure:"columns"`
	// ForcedWhere entries are [field, comparator, value] or [expression, bindings].
	ForcedWhere        [][]interface{}     `mapstructure:"forced_where"`
	ForcedOrWhere      [][]interface{}     `mapstructure:"forced_or_where"`
	ClaimWhere         []ClaimClauseConfig `mapstructure:"claim_where"`
	RowsPerPageOptions []int               `mapstructure:"rows_per_page_options"`
	DefaultRowsPerPage int                 `mapstructure:"default_rows_per_page"`
	MaxRowsPerPage     int                 `mapstructure:"max_rows_per_page"`
}

// Defaults apply to every table that leaves a page setting unset.
type Defaults struct {
	RowsPerPage        int   `mapstructure:"rows_per_page"`
	RowsPerPageOptions []int `mapstructure:"rows_per_page_options"`
	MaxRowsPerPage     int   `mapstructure:"max_rows_per_page"`
}

// Catalog is read-only once built and safe for concurrent use.
type Catalog struct {
	tables map[string]*Table
	names  []string
}

// New parses every table up front so configuration errors surface at startup.
func New(tables map[string]TableConfig, defaults Defaults) (*Catalog, error) {
	c := &Catalog{tables: make(map[string]*Table, len(tables))}
	for name, cfg := range tables {
		key := normalizeName(name)
		if key == "" {
			return nil, fmt.Errorf("tables: empty table name")
		}
		if _, exists := c.tables[key]; exists {
			return nil, fmt.Errorf("tables.%s: duplicate table name", key)
		}
		table, err := newTable(key, cfg, defaults)
		if err != nil {
			return nil, err
		}
		c.tables[key] = table
		c.names = append(c.names, key)
	}
	sort.Strings(c.names)
	return c, nil
}

// Lookup returns the named table. Names are matched case-insensitively.
func (c *Catalog) Lookup(name string) (*Table, error) {
	if c != nil {
		if table, ok := c.tables[normalizeName(name)]; ok {
			return table, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// Names lists the configured tables in sorted order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string{}, c.names...)
}

// Len returns the number of configured tables.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tables)
}

// Config files pass through viper, which lowercases map keys.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

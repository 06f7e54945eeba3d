// Package query builds parameterized PostgreSQL SELECTs from a projection of
// logical field names onto table columns.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps logical field names to alias-qualified columns over a
// base table and any joined tables. Columns projected after a Join are
// qualified with that join's alias.
type ProjectionMap struct {
	base    string
	current string
	joins   []string
	columns map[string]string
	order   []string
}

// NewProjectionMap starts a projection over schema.table with the given alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		base:    fmt.Sprintf("%s.%s %s", schema, table, alias),
		current: alias,
		columns: make(map[string]string),
	}
}

// Project maps field to column on the most recently added table.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.current + "." + column
	p.columns[field] = qualified
	p.order = append(p.order, qualified)
	return p
}

// Join adds schema.table under alias using kind (e.g. "LEFT JOIN") and the
// ON condition. Later Project calls target the joined table.
func (p *ProjectionMap) Join(schema, table, alias, kind, on string) *ProjectionMap {
	p.joins = append(p.joins, fmt.Sprintf("%s %s.%s %s ON %s", kind, schema, table, alias, on))
	p.current = alias
	return p
}

// From returns the FROM clause body: the base table and every join.
func (p *ProjectionMap) From() string {
	return strings.Join(append([]string{p.base}, p.joins...), " ")
}

// Column returns the qualified column for field. Unmapped names pass through
// unchanged so callers can reference raw columns such as "f.project_id".
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.columns[field]; ok {
		return col
	}
	return field
}

// Has reports whether field is mapped.
func (p *ProjectionMap) Has(field string) bool {
	_, ok := p.columns[field]
	return ok
}

// Columns returns the projected columns in projection order.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.order, ", ")
}

package input

import (
	"fmt"
	"strings"
)

// Schema declares the tables an sql input may query.
type Schema struct {
	Tables []*Table `json:"tables" yaml:"tables"`
}

// Table declares a queryable table.
type Table struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []*Column `json:"columns" yaml:"columns"`
}

// Column declares a table column.
type Column struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Table returns the table with the given name (case insensitive) or nil.
func (s *Schema) Table(name string) *Table {
	for _, table := range s.Tables {
		if strings.EqualFold(table.Name, name) {
			return table
		}
	}
	return nil
}

// Column returns the column with the given name (case insensitive) or nil.
func (t *Table) Column(name string) *Column {
	for _, column := range t.Columns {
		if strings.EqualFold(column.Name, name) {
			return column
		}
	}
	return nil
}

// Check returns one message per table or column reference the schema does not declare.
func (s *Schema) Check(stmt *Statement) []string {
	var problems []string
	table := s.Table(stmt.Table)
	if table == nil {
		problems = append(problems, fmt.Sprintf("unknown table %q", stmt.Table))
	}
	for _, ref := range stmt.References {
		if ref.Qualifier != "" && !strings.EqualFold(ref.Qualifier, stmt.Table) {
			problems = append(problems, fmt.Sprintf("unknown table %q in reference %q", ref.Qualifier, ref.String()))
			continue
		}
		if ref.Column == "*" {
			continue
		}
		if table == nil {
			problems = append(problems, fmt.Sprintf("unknown column %q in unknown table %q", ref.Column, stmt.Table))
			continue
		}
		if table.Column(ref.Column) == nil {
			problems = append(problems, fmt.Sprintf("unknown column %q in table %q", ref.Column, table.Name))
		}
	}
	return problems
}

package tabular

// ColumnSpec declares one column of a schema contract.
type ColumnSpec struct {
	Name     string
	Type     Kind
	Required bool
}

// Contract is the declarative schema of one record kind: the columns an
// import batch may carry, which of them are required for reconciliation, and
// the natural-key column subset. Contracts are created once per kind and are
// immutable thereafter; they own no data.
type Contract struct {
	// Entity is the singular entity name, e.g. "facility".
	Entity string
	// Plural is the entity name used in operator messages, e.g. "facilities".
	Plural string
	// Columns declares every column the import batch may carry.
	Columns []ColumnSpec
	// KeyColumns is the natural-key column subset, checked for duplicates.
	KeyColumns []string
	// DisplayColumns identifies offending rows in operator output. Usually
	// the natural key; meter data displays the ean rather than the full
	// composite key.
	DisplayColumns []string
	// MonthStartColumns are date columns whose values must be the first
	// calendar day of a month.
	MonthStartColumns []string
}

// RequiredColumns returns the names of the required columns in declaration
// order.
func (c Contract) RequiredColumns() []string {
	var names []string
	for _, col := range c.Columns {
		if col.Required {
			names = append(names, col.Name)
		}
	}
	return names
}

// Column returns the spec of the named column.
func (c Contract) Column(name string) (ColumnSpec, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnSpec{}, false
}

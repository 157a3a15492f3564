// Package keymap implements the natural-key to surrogate-key mapper.
//
// The mapper performs a left outer join of an import batch against the
// mapping tables already persisted for an entity kind, built as explicit
// in-memory hash joins: each mapping table is indexed by its natural-key
// columns, then every import row probes the indexes. Rows that find a match
// receive the surrogate key and are later classified "update"; rows that do
// not receive a typed null and are classified "insert". Unresolved foreign
// lookups stay null; the reconciler decides whether that rejects the row.
//
// Output rows are ordered ascending by the primary natural key so results
// are deterministic and reproducible.
package keymap

import (
	"fmt"

	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
)

// Index is a hash index from a mapping table's natural key to its surrogate
// key. Build once per mapping table, probe once per import row.
type Index struct {
	keyColumns      []string
	surrogateColumn string
	surrogateKind   tabular.Kind
	byKey           map[string]tabular.Value
}

// BuildIndex indexes a mapping table by its natural-key columns. The mapping
// table must hold each natural key at most once; a duplicate key means the
// persisted data violates its uniqueness invariant and the whole run must
// abort rather than pick a winner.
func BuildIndex(table *tabular.Batch, keyColumns []string, surrogateColumn string) (*Index, error) {
	for _, name := range append(append([]string{}, keyColumns...), surrogateColumn) {
		if !table.HasColumn(name) {
			return nil, errs.Newf(errs.CategoryStructural, errs.CodeMissingColumns,
				"mapping table is missing column %q", name)
		}
	}

	var surrogateKind tabular.Kind
	for _, col := range table.Columns() {
		if col.Name == surrogateColumn {
			surrogateKind = col.Type
		}
	}

	idx := &Index{
		keyColumns:      keyColumns,
		surrogateColumn: surrogateColumn,
		surrogateKind:   surrogateKind,
		byKey:           make(map[string]tabular.Value, table.NumRows()),
	}
	for row := 0; row < table.NumRows(); row++ {
		key, err := table.Key(row, keyColumns)
		if err != nil {
			return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "index build failed")
		}
		if _, seen := idx.byKey[key]; seen {
			return nil, errs.Newf(errs.CategoryDataQuality, errs.CodeDuplicateMappingKey,
				"mapping table holds duplicate natural key %s", table.DisplayKey(row, keyColumns)).
				WithContext("key_columns", keyColumns)
		}
		surrogate, _ := table.Value(row, surrogateColumn)
		idx.byKey[key] = surrogate
	}
	return idx, nil
}

// SurrogateColumn returns the name of the surrogate-key column.
func (idx *Index) SurrogateColumn() string {
	return idx.surrogateColumn
}

// Len returns the number of indexed keys.
func (idx *Index) Len() int {
	return len(idx.byKey)
}

// Lookup returns the surrogate stored for an encoded key, as produced by
// Batch.Key over the index's key columns.
func (idx *Index) Lookup(key string) (tabular.Value, bool) {
	v, ok := idx.byKey[key]
	return v, ok
}

// probe looks up the surrogate for an import row's key values. A key with a
// null part never matches, matching left-outer-join semantics.
func (idx *Index) probe(imp *tabular.Batch, row int, importColumns []string) (tabular.Value, error) {
	for _, name := range importColumns {
		v, ok := imp.Value(row, name)
		if !ok {
			return tabular.Value{}, fmt.Errorf("probe: unknown import column %q", name)
		}
		if v.IsNull() {
			return tabular.Null(idx.surrogateKind), nil
		}
	}
	key, err := imp.Key(row, importColumns)
	if err != nil {
		return tabular.Value{}, err
	}
	if surrogate, ok := idx.byKey[key]; ok {
		return surrogate, nil
	}
	return tabular.Null(idx.surrogateKind), nil
}

// Join pairs batch columns with the index they probe. The probe columns line
// up positionally with the index's key columns.
type Join struct {
	// ProbeColumns are the columns of the probing batch whose values form
	// the join key. For the primary join they may name columns a lookup
	// resolved, e.g. facility_id resolved from ean.
	ProbeColumns []string
	Index        *Index
}

// MapKeys left-joins the import batch against its mapping tables. Lookups
// resolve first, so the primary join may probe on resolved surrogate columns
// (meter data joins on serie_type_id and facility_id, both resolved from
// their natural codes). The result carries the primary surrogate column
// first, then one surrogate column per lookup, then every import column, and
// is sorted ascending by orderBy.
func MapKeys(imp *tabular.Batch, primary Join, lookups []Join, orderBy []string) (*tabular.Batch, error) {
	resolved, err := resolveLookups(imp, lookups)
	if err != nil {
		return nil, err
	}

	cols := append([]tabular.Column{{Name: primary.Index.surrogateColumn, Type: primary.Index.surrogateKind}},
		resolved.Columns()...)
	out := tabular.NewBatch(cols...)
	for row := 0; row < resolved.NumRows(); row++ {
		surrogate, err := primary.Index.probe(resolved, row, primary.ProbeColumns)
		if err != nil {
			return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "key mapping failed")
		}
		values := append([]tabular.Value{surrogate}, resolved.Row(row)...)
		if err := out.AppendRow(values...); err != nil {
			return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "key mapping failed")
		}
	}

	if err := out.SortBy(orderBy...); err != nil {
		return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "key mapping failed")
	}
	return out, nil
}

// resolveLookups left-joins the import batch against each lookup index,
// prepending one surrogate column per lookup. Unresolved keys stay null.
func resolveLookups(imp *tabular.Batch, lookups []Join) (*tabular.Batch, error) {
	if len(lookups) == 0 {
		return imp, nil
	}

	cols := make([]tabular.Column, 0, len(lookups)+len(imp.Columns()))
	for _, lk := range lookups {
		cols = append(cols, tabular.Column{Name: lk.Index.surrogateColumn, Type: lk.Index.surrogateKind})
	}
	cols = append(cols, imp.Columns()...)

	out := tabular.NewBatch(cols...)
	for row := 0; row < imp.NumRows(); row++ {
		values := make([]tabular.Value, 0, len(cols))
		for _, lk := range lookups {
			v, err := lk.Index.probe(imp, row, lk.ProbeColumns)
			if err != nil {
				return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "lookup mapping failed")
			}
			values = append(values, v)
		}
		values = append(values, imp.Row(row)...)
		if err := out.AppendRow(values...); err != nil {
			return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "lookup mapping failed")
		}
	}
	return out, nil
}

// Package validate implements the column validator of the import pipeline.
//
// Validation is a pure function over an in-memory batch and its schema
// contract: no I/O, no side effects. Checks run in a fixed order and the
// first violated check aborts the batch:
//
//  1. required columns present in the batch
//  2. required columns have a value in every row
//  3. natural key unique within the batch
//  4. month-start date columns at the first day of a month
//
// Every failure names the exact count and the natural-key values of the
// offending rows so an operator can locate the source records.
package validate

import (
	"fmt"
	"sort"

	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
)

// Config tunes validation behavior.
type Config struct {
	// KeepLast inverts the duplicate policy: the earlier occurrence of a
	// repeated natural key is flagged instead of the later one.
	KeepLast bool
}

// Batch checks a record batch against its schema contract. It returns nil if
// the batch is fit for key mapping, or a *errs.TariffError describing the
// first violated check.
func Batch(b *tabular.Batch, contract tabular.Contract, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := requiredColumns(b, contract); err != nil {
		return err
	}
	if err := requiredValues(b, contract); err != nil {
		return err
	}
	if err := duplicateRows(b, contract, cfg); err != nil {
		return err
	}
	return monthStart(b, contract)
}

// requiredColumns checks that every required column of the contract exists in
// the batch.
func requiredColumns(b *tabular.Batch, contract tabular.Contract) error {
	required := contract.RequiredColumns()
	var missing []string
	for _, name := range required {
		if !b.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	available := b.ColumnNames()
	detail := fmt.Sprintf("Missing columns: %s\nRequired columns: %s\nAvailable columns: %s",
		errs.FormatColumnTuple(missing),
		errs.FormatColumnTuple(required),
		errs.FormatColumnTuple(available))

	return errs.New(errs.CategoryStructural, errs.CodeMissingColumns, "Missing the required columns!").
		WithDetail(detail).
		WithContext("missing_columns", sortedCopy(missing)).
		WithContext("required_columns", sortedCopy(required)).
		WithContext("available_columns", sortedCopy(available))
}

// requiredValues checks that no row has a null in a required column. Offending
// rows are reported by their display key, never dumped whole.
func requiredValues(b *tabular.Batch, contract tabular.Contract) error {
	required := presentRequired(b, contract)
	var keys []string
	for row := 0; row < b.NumRows(); row++ {
		for _, name := range required {
			v, _ := b.Value(row, name)
			if v.IsNull() {
				keys = append(keys, b.DisplayKey(row, contract.DisplayColumns))
				break
			}
		}
	}
	if len(keys) == 0 {
		return nil
	}
	msg := fmt.Sprintf("Found rows (%d) with missing values in required columns %s!",
		len(keys), errs.FormatColumnTuple(required))
	return errs.New(errs.CategoryDataQuality, errs.CodeMissingValues, msg).
		WithContext("keys", keys).
		WithContext("count", len(keys))
}

// duplicateRows checks natural-key uniqueness within the batch. With the
// default policy the first occurrence wins and the later one is flagged as
// the duplicate.
func duplicateRows(b *tabular.Batch, contract tabular.Contract, cfg *Config) error {
	if len(contract.KeyColumns) == 0 {
		return nil
	}
	last := make(map[string]int, b.NumRows())
	var flagged []int
	for row := 0; row < b.NumRows(); row++ {
		key, err := b.Key(row, contract.KeyColumns)
		if err != nil {
			return errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "duplicate check failed")
		}
		if prev, seen := last[key]; seen {
			if cfg.KeepLast {
				flagged = append(flagged, prev)
			} else {
				flagged = append(flagged, row)
			}
		}
		last[key] = row
	}
	if len(flagged) == 0 {
		return nil
	}
	sort.Ints(flagged)
	keys := make([]string, len(flagged))
	for i, row := range flagged {
		keys[i] = b.DisplayKey(row, contract.DisplayColumns)
	}
	msg := fmt.Sprintf("Found duplicate rows (%d) over columns: %s!",
		len(flagged), errs.FormatColumnTuple(contract.KeyColumns))
	return errs.New(errs.CategoryDataQuality, errs.CodeDuplicateRows, msg).
		WithContext("keys", keys).
		WithContext("count", len(flagged)).
		WithContext("key_columns", sortedCopy(contract.KeyColumns))
}

// monthStart checks that every value of the contract's month-start date
// columns falls on the first calendar day of a month.
func monthStart(b *tabular.Batch, contract tabular.Contract) error {
	var keys []string
	for row := 0; row < b.NumRows(); row++ {
		for _, name := range contract.MonthStartColumns {
			if !b.HasColumn(name) {
				continue
			}
			v, _ := b.Value(row, name)
			if v.IsNull() {
				continue // reported by the required-values check
			}
			if v.Time().Day() != 1 {
				keys = append(keys, b.DisplayKey(row, contract.DisplayColumns))
				break
			}
		}
	}
	if len(keys) == 0 {
		return nil
	}
	msg := fmt.Sprintf("Found rows (%d) not at start of month!", len(keys))
	return errs.New(errs.CategoryDataQuality, errs.CodeNotMonthStart, msg).
		WithContext("keys", keys).
		WithContext("count", len(keys))
}

// presentRequired returns the required columns that exist in the batch.
func presentRequired(b *tabular.Batch, contract tabular.Contract) []string {
	var names []string
	for _, name := range contract.RequiredColumns() {
		if b.HasColumn(name) {
			names = append(names, name)
		}
	}
	return names
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}

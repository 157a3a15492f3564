package validate

import (
	"strings"
	"testing"
	"time"

	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func facilityContract() tabular.Contract {
	return tabular.Contract{
		Entity: "facility",
		Plural: "facilities",
		Columns: []tabular.ColumnSpec{
			{Name: "ean", Type: tabular.KindUint, Required: true},
			{Name: "name", Type: tabular.KindString},
			{Name: "facility_type_code", Type: tabular.KindString, Required: true},
		},
		KeyColumns:     []string{"ean"},
		DisplayColumns: []string{"ean"},
	}
}

func meterContract() tabular.Contract {
	return tabular.Contract{
		Entity: "serie value",
		Plural: "serie values",
		Columns: []tabular.ColumnSpec{
			{Name: "ean", Type: tabular.KindUint, Required: true},
			{Name: "date_id", Type: tabular.KindDate, Required: true},
		},
		KeyColumns:        []string{"ean", "date_id"},
		DisplayColumns:    []string{"ean"},
		MonthStartColumns: []string{"date_id"},
	}
}

func requireTariffError(t *testing.T, err error, code errs.ErrorCode) *errs.TariffError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	te, ok := errs.AsTariffError(err)
	if !ok {
		t.Fatalf("not a TariffError: %v", err)
	}
	if te.Code != code {
		t.Fatalf("code = %q, want %q (message %q)", te.Code, code, te.Message)
	}
	return te
}

func TestBatchValidPasses(t *testing.T) {
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "name", Type: tabular.KindString},
		tabular.Column{Name: "facility_type_code", Type: tabular.KindString},
	)
	b.MustAppendRow(tabular.Uint(100), tabular.String("Plant"), tabular.String("consumption"))
	b.MustAppendRow(tabular.Uint(200), tabular.Null(tabular.KindString), tabular.String("production"))

	if err := Batch(b, facilityContract(), nil); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}
}

func TestBatchMissingColumns(t *testing.T) {
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "name", Type: tabular.KindString},
	)
	b.MustAppendRow(tabular.Uint(100), tabular.String("Plant"))

	te := requireTariffError(t, Batch(b, facilityContract(), nil), errs.CodeMissingColumns)
	if te.Message != "Missing the required columns!" {
		t.Errorf("message = %q", te.Message)
	}
	for _, want := range []string{
		"Missing columns: ('facility_type_code')",
		"Required columns: ('ean', 'facility_type_code')",
		"Available columns: ('ean', 'name')",
	} {
		if !strings.Contains(te.Detail, want) {
			t.Errorf("detail missing %q:\n%s", want, te.Detail)
		}
	}
}

func TestBatchMissingValues(t *testing.T) {
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "name", Type: tabular.KindString},
		tabular.Column{Name: "facility_type_code", Type: tabular.KindString},
	)
	b.MustAppendRow(tabular.Uint(100), tabular.String("Plant"), tabular.String("consumption"))
	b.MustAppendRow(tabular.Uint(200), tabular.String("Farm"), tabular.Null(tabular.KindString))
	b.MustAppendRow(tabular.Null(tabular.KindUint), tabular.String("Mill"), tabular.String("production"))

	te := requireTariffError(t, Batch(b, facilityContract(), nil), errs.CodeMissingValues)
	want := "Found rows (2) with missing values in required columns ('ean', 'facility_type_code')!"
	if te.Message != want {
		t.Errorf("message = %q, want %q", te.Message, want)
	}
	keys := te.Keys()
	if len(keys) != 2 || keys[0] != "200" || keys[1] != "<null>" {
		t.Errorf("keys = %v", keys)
	}
}

func TestBatchDuplicateRowsFirstWins(t *testing.T) {
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "name", Type: tabular.KindString},
		tabular.Column{Name: "facility_type_code", Type: tabular.KindString},
	)
	b.MustAppendRow(tabular.Uint(100), tabular.String("first"), tabular.String("consumption"))
	b.MustAppendRow(tabular.Uint(200), tabular.String("other"), tabular.String("consumption"))
	b.MustAppendRow(tabular.Uint(100), tabular.String("second"), tabular.String("production"))

	te := requireTariffError(t, Batch(b, facilityContract(), nil), errs.CodeDuplicateRows)
	want := "Found duplicate rows (1) over columns: ('ean')!"
	if te.Message != want {
		t.Errorf("message = %q, want %q", te.Message, want)
	}
	// The later occurrence is the duplicate under the default policy.
	if keys := te.Keys(); len(keys) != 1 || keys[0] != "100" {
		t.Errorf("keys = %v", keys)
	}
}

func TestBatchDuplicateRowsKeepLast(t *testing.T) {
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "name", Type: tabular.KindString},
		tabular.Column{Name: "facility_type_code", Type: tabular.KindString},
	)
	b.MustAppendRow(tabular.Uint(100), tabular.String("first"), tabular.String("consumption"))
	b.MustAppendRow(tabular.Uint(100), tabular.String("second"), tabular.String("production"))
	b.MustAppendRow(tabular.Uint(100), tabular.String("third"), tabular.String("production"))

	te := requireTariffError(t, Batch(b, facilityContract(), &Config{KeepLast: true}), errs.CodeDuplicateRows)
	want := "Found duplicate rows (2) over columns: ('ean')!"
	if te.Message != want {
		t.Errorf("message = %q, want %q", te.Message, want)
	}
}

func TestBatchDuplicateCompositeKey(t *testing.T) {
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "date_id", Type: tabular.KindDate},
	)
	b.MustAppendRow(tabular.Uint(100), tabular.Date(date("2025-11-01")))
	b.MustAppendRow(tabular.Uint(100), tabular.Date(date("2025-12-01")))
	if err := Batch(b, meterContract(), nil); err != nil {
		t.Fatalf("distinct composite keys rejected: %v", err)
	}

	b.MustAppendRow(tabular.Uint(100), tabular.Date(date("2025-11-01")))
	te := requireTariffError(t, Batch(b, meterContract(), nil), errs.CodeDuplicateRows)
	want := "Found duplicate rows (1) over columns: ('date_id', 'ean')!"
	if te.Message != want {
		t.Errorf("message = %q, want %q", te.Message, want)
	}
}

func TestBatchMonthStart(t *testing.T) {
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "date_id", Type: tabular.KindDate},
	)
	b.MustAppendRow(tabular.Uint(100), tabular.Date(date("2025-11-01")))
	b.MustAppendRow(tabular.Uint(200), tabular.Date(date("2025-11-15")))
	b.MustAppendRow(tabular.Uint(300), tabular.Date(date("2025-12-31")))

	te := requireTariffError(t, Batch(b, meterContract(), nil), errs.CodeNotMonthStart)
	want := "Found rows (2) not at start of month!"
	if te.Message != want {
		t.Errorf("message = %q, want %q", te.Message, want)
	}
	if keys := te.Keys(); len(keys) != 2 || keys[0] != "200" || keys[1] != "300" {
		t.Errorf("keys = %v", keys)
	}
}

func TestBatchCheckOrder(t *testing.T) {
	// A batch violating every check reports the missing column first.
	b := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
	)
	b.MustAppendRow(tabular.Null(tabular.KindUint))
	b.MustAppendRow(tabular.Uint(100))
	b.MustAppendRow(tabular.Uint(100))

	requireTariffError(t, Batch(b, facilityContract(), nil), errs.CodeMissingColumns)
}

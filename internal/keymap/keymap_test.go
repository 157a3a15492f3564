package keymap

import (
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

func facilityMapping() *tabular.Batch {
	b := tabular.NewBatch(
		tabular.Column{Name: "facility_id", Type: tabular.KindInt},
		tabular.Column{Name: "ean", Type: tabular.KindUint},
	)
	b.MustAppendRow(tabular.Int(11), tabular.Uint(100))
	b.MustAppendRow(tabular.Int(12), tabular.Uint(200))
	return b
}

func TestBuildIndexAndLookup(t *testing.T) {
	idx, err := BuildIndex(facilityMapping(), []string{"ean"}, "facility_id")
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len = %d", idx.Len())
	}
	if idx.SurrogateColumn() != "facility_id" {
		t.Errorf("SurrogateColumn = %q", idx.SurrogateColumn())
	}
	if v, ok := idx.Lookup(tabular.Uint(100).KeyPart()); !ok || v.Int() != 11 {
		t.Errorf("Lookup(100) = %v, %v", v, ok)
	}
	if _, ok := idx.Lookup(tabular.Uint(999).KeyPart()); ok {
		t.Error("Lookup of an unknown key should miss")
	}
}

func TestBuildIndexMissingColumn(t *testing.T) {
	if _, err := BuildIndex(facilityMapping(), []string{"ean"}, "missing"); err == nil {
		t.Error("missing surrogate column should fail")
	}
	if _, err := BuildIndex(facilityMapping(), []string{"missing"}, "facility_id"); err == nil {
		t.Error("missing key column should fail")
	}
}

func TestBuildIndexDuplicateKeyAborts(t *testing.T) {
	b := facilityMapping()
	b.MustAppendRow(tabular.Int(13), tabular.Uint(100))

	_, err := BuildIndex(b, []string{"ean"}, "facility_id")
	if err == nil {
		t.Fatal("duplicate mapping key should abort")
	}
	te, ok := errs.AsTariffError(err)
	if !ok || te.Code != errs.CodeDuplicateMappingKey {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMapKeysSplitsKnownAndNew(t *testing.T) {
	idx, err := BuildIndex(facilityMapping(), []string{"ean"}, "facility_id")
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	imp := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "name", Type: tabular.KindString},
	)
	imp.MustAppendRow(tabular.Uint(300), tabular.String("new"))
	imp.MustAppendRow(tabular.Uint(100), tabular.String("known"))

	out, err := MapKeys(imp, Join{ProbeColumns: []string{"ean"}, Index: idx}, nil, []string{"ean"})
	if err != nil {
		t.Fatalf("MapKeys: %v", err)
	}
	names := out.ColumnNames()
	if len(names) != 3 || names[0] != "facility_id" || names[1] != "ean" || names[2] != "name" {
		t.Fatalf("columns = %v", names)
	}

	// Sorted ascending by ean, so the known row comes first.
	v, _ := out.Value(0, "facility_id")
	if v.IsNull() || v.Int() != 11 {
		t.Errorf("row 0 facility_id = %v, want 11", v)
	}
	v, _ = out.Value(1, "facility_id")
	if !v.IsNull() {
		t.Errorf("row 1 facility_id = %v, want null", v)
	}
}

func TestMapKeysResolvesLookupsBeforePrimary(t *testing.T) {
	facilityIdx, err := BuildIndex(facilityMapping(), []string{"ean"}, "facility_id")
	if err != nil {
		t.Fatalf("BuildIndex facility: %v", err)
	}

	contracts := tabular.NewBatch(
		tabular.Column{Name: "facility_contract_id", Type: tabular.KindInt},
		tabular.Column{Name: "facility_id", Type: tabular.KindInt},
		tabular.Column{Name: "date_id", Type: tabular.KindDate},
	)
	contracts.MustAppendRow(tabular.Int(70), tabular.Int(11), tabular.Date(date("2025-11-01")))
	contractIdx, err := BuildIndex(contracts, []string{"facility_id", "date_id"}, "facility_contract_id")
	if err != nil {
		t.Fatalf("BuildIndex contract: %v", err)
	}

	imp := tabular.NewBatch(
		tabular.Column{Name: "ean", Type: tabular.KindUint},
		tabular.Column{Name: "date_id", Type: tabular.KindDate},
	)
	imp.MustAppendRow(tabular.Uint(100), tabular.Date(date("2025-11-01")))
	imp.MustAppendRow(tabular.Uint(999), tabular.Date(date("2025-11-01")))

	out, err := MapKeys(imp,
		Join{ProbeColumns: []string{"facility_id", "date_id"}, Index: contractIdx},
		[]Join{{ProbeColumns: []string{"ean"}, Index: facilityIdx}},
		[]string{"ean", "date_id"})
	if err != nil {
		t.Fatalf("MapKeys: %v", err)
	}
	names := out.ColumnNames()
	want := []string{"facility_contract_id", "facility_id", "ean", "date_id"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("columns = %v, want %v", names, want)
		}
	}

	// Row for ean 100 resolves the facility and finds its contract.
	v, _ := out.Value(0, "facility_id")
	if v.Int() != 11 {
		t.Errorf("facility_id = %v", v)
	}
	v, _ = out.Value(0, "facility_contract_id")
	if v.Int() != 70 {
		t.Errorf("facility_contract_id = %v", v)
	}

	// Row for ean 999 resolves nothing; the null facility_id must not
	// accidentally join the primary index.
	v, _ = out.Value(1, "facility_id")
	if !v.IsNull() {
		t.Errorf("unresolved facility_id = %v, want null", v)
	}
	v, _ = out.Value(1, "facility_contract_id")
	if !v.IsNull() {
		t.Errorf("contract surrogate for unresolved facility = %v, want null", v)
	}
}

func TestMapKeysOrdersByNaturalKey(t *testing.T) {
	idx, err := BuildIndex(facilityMapping(), []string{"ean"}, "facility_id")
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	imp := tabular.NewBatch(tabular.Column{Name: "ean", Type: tabular.KindUint})
	for _, ean := range []uint64{500, 100, 300} {
		imp.MustAppendRow(tabular.Uint(ean))
	}

	out, err := MapKeys(imp, Join{ProbeColumns: []string{"ean"}, Index: idx}, nil, []string{"ean"})
	if err != nil {
		t.Fatalf("MapKeys: %v", err)
	}
	var got []uint64
	for row := 0; row < out.NumRows(); row++ {
		v, _ := out.Value(row, "ean")
		got = append(got, v.Uint())
	}
	want := []uint64{100, 300, 500}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

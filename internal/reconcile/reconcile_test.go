package reconcile

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tariffant/internal/models"
	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
)

func facilityTypeTable(t *testing.T) *tabular.Batch {
	t.Helper()
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColFacilityTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColCode, Type: tabular.KindString},
	)
	b.MustAppendRow(tabular.Int(1), tabular.String("consumption"))
	b.MustAppendRow(tabular.Int(2), tabular.String("production"))
	return b
}

func facilityMapping(eans map[uint64]int64) *tabular.Batch {
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColEAN, Type: tabular.KindUint},
	)
	for ean, id := range eans {
		b.MustAppendRow(tabular.Int(id), tabular.Uint(ean))
	}
	return b
}

func facilityImport(rows ...[2]interface{}) *tabular.Batch {
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColEAN, Type: tabular.KindUint},
		tabular.Column{Name: models.ColEANProd, Type: tabular.KindUint},
		tabular.Column{Name: models.ColFacilityTypeCode, Type: tabular.KindString},
		tabular.Column{Name: models.ColName, Type: tabular.KindString},
		tabular.Column{Name: models.ColDescription, Type: tabular.KindString},
	)
	for _, r := range rows {
		b.MustAppendRow(
			tabular.Uint(r[0].(uint64)),
			tabular.Null(tabular.KindUint),
			tabular.String(r[1].(string)),
			tabular.String("facility"),
			tabular.Null(tabular.KindString),
		)
	}
	return b
}

func TestRunFacilityClassification(t *testing.T) {
	imp := facilityImport()
	for i := uint64(0); i < 10; i++ {
		imp.MustAppendRow(
			tabular.Uint(735999000000000100+i),
			tabular.Null(tabular.KindUint),
			tabular.String("consumption"),
			tabular.String(fmt.Sprintf("facility %d", i)),
			tabular.Null(tabular.KindString),
		)
	}
	tables := Tables{
		Mapping: facilityMapping(map[uint64]int64{
			735999000000000103: 17,
			735999000000000107: 23,
		}),
		Lookups: map[string]*tabular.Batch{"facility_type": facilityTypeTable(t)},
	}

	res := Run(imp, tables, FacilityPlan(), nil)
	if !res.Outcome.OK {
		t.Fatalf("Run() failed: %s", res.Outcome.Message)
	}
	want := "Successfully imported 8 new facilities and updated 2 existing facilities!"
	if res.Outcome.Message != want {
		t.Errorf("message = %q, want %q", res.Outcome.Message, want)
	}
	if res.Insert.NumRows() != 8 || res.Update.NumRows() != 2 || res.Reject.NumRows() != 0 {
		t.Fatalf("partition = %d/%d/%d, want 8/2/0",
			res.Insert.NumRows(), res.Update.NumRows(), res.Reject.NumRows())
	}

	// Inserts must not carry the surrogate or the type code; the resolved
	// type id takes its place.
	if res.Insert.HasColumn(models.ColFacilityID) {
		t.Error("insert set carries facility_id")
	}
	if res.Insert.HasColumn(models.ColFacilityTypeCode) {
		t.Error("insert set carries facility_type_code")
	}
	if !res.Insert.HasColumn(models.ColFacilityTypeID) {
		t.Error("insert set is missing facility_type_id")
	}
	if !res.Update.HasColumn(models.ColFacilityID) {
		t.Error("update set is missing facility_id")
	}

	// Both sets stay ordered ascending by EAN.
	var prev uint64
	for i := 0; i < res.Insert.NumRows(); i++ {
		v, _ := res.Insert.Value(i, models.ColEAN)
		if v.Uint() < prev {
			t.Fatalf("insert set out of order at row %d", i)
		}
		prev = v.Uint()
	}
	upd, _ := res.Update.Value(0, models.ColFacilityID)
	if upd.Int() != 17 {
		t.Errorf("first update facility_id = %d, want 17", upd.Int())
	}
}

func TestRunFacilityUnknownTypeRejected(t *testing.T) {
	imp := facilityImport(
		[2]interface{}{uint64(735999000000000201), "consumption"},
		[2]interface{}{uint64(735999000000000202), "windmill"},
	)
	tables := Tables{
		Mapping: facilityMapping(nil),
		Lookups: map[string]*tabular.Batch{"facility_type": facilityTypeTable(t)},
	}

	res := Run(imp, tables, FacilityPlan(), nil)
	if res.Outcome.OK {
		t.Fatal("Run() succeeded, want referential failure")
	}
	want := "Found facilities (1) with missing or invalid facility_type!"
	if res.Outcome.Message != want {
		t.Errorf("message = %q, want %q", res.Outcome.Message, want)
	}
	if res.Outcome.Err.Category != errs.CategoryReferential {
		t.Errorf("category = %s, want %s", res.Outcome.Err.Category, errs.CategoryReferential)
	}
	if got := res.Outcome.Keys(); len(got) != 1 || got[0] != "735999000000000202" {
		t.Errorf("offending keys = %v, want [735999000000000202]", got)
	}
	// The clean row is still classified so the operator sees the full
	// picture before fixing the source file.
	if res.Insert.NumRows() != 1 || res.Reject.NumRows() != 1 {
		t.Fatalf("partition = %d/-/%d, want 1/-/1", res.Insert.NumRows(), res.Reject.NumRows())
	}
	if !res.Reject.HasColumn(models.ColFacilityTypeCode) {
		t.Error("reject set is missing facility_type_code")
	}
}

func TestRunProductMissingColumn(t *testing.T) {
	imp := tabular.NewBatch(
		tabular.Column{Name: models.ColName, Type: tabular.KindString},
	)
	imp.MustAppendRow(tabular.String("spot price"))

	res := Run(imp, Tables{Mapping: productMapping(nil)}, ProductPlan(), nil)
	if res.Outcome.OK {
		t.Fatal("Run() succeeded, want structural failure")
	}
	if res.Outcome.Message != "Missing the required columns!" {
		t.Errorf("message = %q", res.Outcome.Message)
	}
	if !strings.Contains(res.Outcome.Detail, "('external_id')") {
		t.Errorf("detail %q does not name the missing column", res.Outcome.Detail)
	}
}

func productMapping(ids map[string]int64) *tabular.Batch {
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColProductID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColExternalID, Type: tabular.KindString},
	)
	for ext, id := range ids {
		b.MustAppendRow(tabular.Int(id), tabular.String(ext))
	}
	return b
}

func customerTypeTable() *tabular.Batch {
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColCustomerTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColCode, Type: tabular.KindString},
	)
	b.MustAppendRow(tabular.Int(1), tabular.String("private"))
	b.MustAppendRow(tabular.Int(2), tabular.String("company"))
	return b
}

func contractMapping() *tabular.Batch {
	return tabular.NewBatch(
		tabular.Column{Name: models.ColContractID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
	)
}

func contractRow(b *tabular.Batch, ean uint64, day time.Time, ctype string, extProduct tabular.Value) {
	b.MustAppendRow(
		tabular.Uint(ean),
		tabular.Date(day),
		tabular.Decimal(decimal.NewFromInt(25)),
		tabular.Null(tabular.KindDecimal),
		tabular.Null(tabular.KindDecimal),
		tabular.String("ACC-1"),
		tabular.String(ctype),
		extProduct,
	)
}

func newContractImport() *tabular.Batch {
	return tabular.NewBatch(
		tabular.Column{Name: models.ColEAN, Type: tabular.KindUint},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
		tabular.Column{Name: models.ColFuseSize, Type: tabular.KindDecimal},
		tabular.Column{Name: models.ColSubscribedPower, Type: tabular.KindDecimal},
		tabular.Column{Name: models.ColConnectionPower, Type: tabular.KindDecimal},
		tabular.Column{Name: models.ColAccountNr, Type: tabular.KindString},
		tabular.Column{Name: models.ColCustomerTypeCode, Type: tabular.KindString},
		tabular.Column{Name: models.ColExtProductID, Type: tabular.KindString},
	)
}

func TestRunFacilityContractUnknownFacilityRejected(t *testing.T) {
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	imp := newContractImport()
	contractRow(imp, 735999000000000301, nov, "private", tabular.Null(tabular.KindString))
	contractRow(imp, 735999000000000999, nov, "private", tabular.Null(tabular.KindString))

	tables := Tables{
		Mapping: contractMapping(),
		Lookups: map[string]*tabular.Batch{
			"facility":      facilityMapping(map[uint64]int64{735999000000000301: 5}),
			"customer_type": customerTypeTable(),
			"product":       productMapping(nil),
		},
	}

	res := Run(imp, tables, FacilityContractPlan(), nil)
	if res.Outcome.OK {
		t.Fatal("Run() succeeded, want referential failure")
	}
	want := `Found facility contracts (1) with unknown EAN codes in column "ean"!`
	if res.Outcome.Message != want {
		t.Errorf("message = %q, want %q", res.Outcome.Message, want)
	}
	keys := res.Outcome.Err.Keys()
	if len(keys) != 1 || keys[0] != "735999000000000999" {
		t.Errorf("keys = %v", keys)
	}
	if res.Insert.NumRows() != 1 {
		t.Fatalf("insert rows = %d, want 1", res.Insert.NumRows())
	}
}

func TestRunFacilityContractUnknownCustomerTypeRejected(t *testing.T) {
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	imp := newContractImport()
	contractRow(imp, 735999000000000301, nov, "private", tabular.Null(tabular.KindString))
	contractRow(imp, 735999000000000302, nov, "municipal", tabular.Null(tabular.KindString))

	tables := Tables{
		Mapping: contractMapping(),
		Lookups: map[string]*tabular.Batch{
			"facility": facilityMapping(map[uint64]int64{
				735999000000000301: 5,
				735999000000000302: 6,
			}),
			"customer_type": customerTypeTable(),
			"product":       productMapping(nil),
		},
	}

	res := Run(imp, tables, FacilityContractPlan(), nil)
	if res.Outcome.OK {
		t.Fatal("Run() succeeded, want referential failure")
	}
	want := `Found facility contracts (1) with invalid values for column "customer_type_code"!`
	if res.Outcome.Message != want {
		t.Errorf("message = %q, want %q", res.Outcome.Message, want)
	}
	keys := res.Outcome.Err.Keys()
	if len(keys) != 1 || keys[0] != "735999000000000302" {
		t.Errorf("keys = %v", keys)
	}
}

func TestRunFacilityContractUnknownEANReportedBeforeCustomerType(t *testing.T) {
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	imp := newContractImport()
	contractRow(imp, 735999000000000999, nov, "private", tabular.Null(tabular.KindString))
	contractRow(imp, 735999000000000301, nov, "municipal", tabular.Null(tabular.KindString))

	tables := Tables{
		Mapping: contractMapping(),
		Lookups: map[string]*tabular.Batch{
			"facility":      facilityMapping(map[uint64]int64{735999000000000301: 5}),
			"customer_type": customerTypeTable(),
			"product":       productMapping(nil),
		},
	}

	res := Run(imp, tables, FacilityContractPlan(), nil)
	want := `Found facility contracts (1) with unknown EAN codes in column "ean"!`
	if res.Outcome.Message != want {
		t.Errorf("message = %q, want %q", res.Outcome.Message, want)
	}
	if res.Reject.NumRows() != 2 {
		t.Errorf("reject rows = %d, want 2", res.Reject.NumRows())
	}
}

func TestRunFacilityContractOptionalProductStaysNull(t *testing.T) {
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	imp := newContractImport()
	contractRow(imp, 735999000000000301, nov, "company", tabular.String("EL-SPOT"))

	tables := Tables{
		Mapping: contractMapping(),
		Lookups: map[string]*tabular.Batch{
			"facility":      facilityMapping(map[uint64]int64{735999000000000301: 5}),
			"customer_type": customerTypeTable(),
			"product":       productMapping(nil),
		},
	}

	res := Run(imp, tables, FacilityContractPlan(), nil)
	if !res.Outcome.OK {
		t.Fatalf("Run() failed: %s", res.Outcome.Message)
	}
	if res.Insert.NumRows() != 1 {
		t.Fatalf("insert rows = %d, want 1", res.Insert.NumRows())
	}
	pid, ok := res.Insert.Value(0, models.ColProductID)
	if !ok {
		t.Fatal("insert set is missing product_id")
	}
	if !pid.IsNull() {
		t.Errorf("product_id = %s, want null", pid)
	}
	fid, _ := res.Insert.Value(0, models.ColFacilityID)
	if fid.Int() != 5 {
		t.Errorf("facility_id = %d, want 5", fid.Int())
	}
	if res.Insert.HasColumn(models.ColEAN) {
		t.Error("insert set carries ean")
	}
}

func serieTypeTable() *tabular.Batch {
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColSerieTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColCode, Type: tabular.KindString},
	)
	for i, src := range models.MeterDataSources() {
		b.MustAppendRow(tabular.Int(int64(i+1)), tabular.String(string(src)))
	}
	return b
}

func TestRunSerieValues(t *testing.T) {
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	dec25 := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	imp := tabular.NewBatch(
		tabular.Column{Name: models.ColSerieTypeCode, Type: tabular.KindString},
		tabular.Column{Name: models.ColEAN, Type: tabular.KindUint},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
		tabular.Column{Name: models.ColSerieValue, Type: tabular.KindDecimal},
		tabular.Column{Name: models.ColStatusID, Type: tabular.KindInt},
	)
	add := func(code string, ean uint64, day time.Time, val int64) {
		imp.MustAppendRow(
			tabular.String(code), tabular.Uint(ean), tabular.Date(day),
			tabular.Decimal(decimal.NewFromInt(val)), tabular.Null(tabular.KindInt),
		)
	}
	add("active_energy_cons", 735999000000000401, dec25, 1200)
	add("active_energy_cons", 735999000000000401, nov, 1100)
	add("active_energy_prod", 735999000000000401, nov, 40)

	mapping := tabular.NewBatch(
		tabular.Column{Name: models.ColSerieValueID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColSerieTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
	)
	// active_energy_cons for november already exists.
	mapping.MustAppendRow(tabular.Int(900), tabular.Int(1), tabular.Int(7), tabular.Date(nov))

	tables := Tables{
		Mapping: mapping,
		Lookups: map[string]*tabular.Batch{
			"serie_type": serieTypeTable(),
			"facility":   facilityMapping(map[uint64]int64{735999000000000401: 7}),
		},
	}

	res := Run(imp, tables, SerieValuePlan(), nil)
	if !res.Outcome.OK {
		t.Fatalf("Run() failed: %s", res.Outcome.Message)
	}
	want := "Successfully imported 2 new serie values and updated 1 existing serie values!"
	if res.Outcome.Message != want {
		t.Errorf("message = %q, want %q", res.Outcome.Message, want)
	}

	// December sorts after november within the same serie type.
	d0, _ := res.Insert.Value(0, models.ColDateID)
	if !d0.Time().Equal(dec25) {
		t.Errorf("first insert date = %s, want %s", d0.Time(), dec25)
	}
	sid, _ := res.Update.Value(0, models.ColSerieValueID)
	if sid.Int() != 900 {
		t.Errorf("update serie_value_id = %d, want 900", sid.Int())
	}
	for _, col := range []string{models.ColSerieTypeCode, models.ColEAN} {
		if res.Insert.HasColumn(col) {
			t.Errorf("insert set carries %s", col)
		}
	}
	for _, col := range []string{models.ColSerieTypeID, models.ColFacilityID} {
		if !res.Insert.HasColumn(col) {
			t.Errorf("insert set is missing %s", col)
		}
	}
}

func TestRunSerieValueUnknownCodeRejected(t *testing.T) {
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	imp := tabular.NewBatch(
		tabular.Column{Name: models.ColSerieTypeCode, Type: tabular.KindString},
		tabular.Column{Name: models.ColEAN, Type: tabular.KindUint},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
		tabular.Column{Name: models.ColSerieValue, Type: tabular.KindDecimal},
		tabular.Column{Name: models.ColStatusID, Type: tabular.KindInt},
	)
	imp.MustAppendRow(
		tabular.String("reactive_energy_cons"), tabular.Uint(1), tabular.Date(nov),
		tabular.Decimal(decimal.NewFromInt(1)), tabular.Null(tabular.KindInt),
	)

	mapping := tabular.NewBatch(
		tabular.Column{Name: models.ColSerieValueID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColSerieTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
	)
	tables := Tables{
		Mapping: mapping,
		Lookups: map[string]*tabular.Batch{
			"serie_type": serieTypeTable(),
			"facility":   facilityMapping(map[uint64]int64{1: 3}),
		},
	}

	res := Run(imp, tables, SerieValuePlan(), nil)
	if res.Outcome.OK {
		t.Fatal("Run() succeeded, want referential failure")
	}
	want := `Found rows (1) with invalid values for columns "serie_type_code" or "ean"!`
	if res.Outcome.Message != want {
		t.Errorf("message = %q, want %q", res.Outcome.Message, want)
	}
}

func TestPlanFor(t *testing.T) {
	for _, src := range models.MeterDataSources() {
		plan, ok := PlanFor(src)
		if !ok {
			t.Fatalf("PlanFor(%s) = false", src)
		}
		if plan.MappingTable != "serie_value" {
			t.Errorf("PlanFor(%s).MappingTable = %s", src, plan.MappingTable)
		}
	}
	if _, ok := PlanFor(models.DataSource("tariff")); ok {
		t.Error("PlanFor accepted an unknown source")
	}
}

package custgroup

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tariffant/internal/models"
	errs "tariffant/pkg/errors"
)

var (
	nov = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	dec = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
)

func mustInterval(t *testing.T) models.Interval {
	t.Helper()
	iv, err := models.ParseInterval("2025-11-01..2025-12-01")
	if err != nil {
		t.Fatalf("ParseInterval: %v", err)
	}
	return iv
}

func dec2(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func i64(v int64) *int64 { return &v }

func fuseGroup(id int64, min, max int64) models.CustomerGroup {
	return models.CustomerGroup{
		CustomerGroupID: id,
		Name:            "fuse group",
		Strategy:        models.StrategyFuseSize,
		Min:             dec2(min),
		Max:             dec2(max),
	}
}

func contract(facilityID int64, day time.Time, fuse int64) models.FacilityContract {
	return models.FacilityContract{
		FacilityID: facilityID,
		DateID:     day,
		FuseSize:   dec2(fuse),
	}
}

func TestRunNoGroups(t *testing.T) {
	r := New().Run(Inputs{Contracts: []models.FacilityContract{contract(1, nov, 16)}}, mustInterval(t))
	if r.State != StateAborted {
		t.Fatalf("state = %s, want %s", r.State, StateAborted)
	}
	if r.Outcome.Message != "No customer groups exist!" {
		t.Errorf("message = %q", r.Outcome.Message)
	}
	if r.Outcome.Err.Code != errs.CodeNoCustomerGroups {
		t.Errorf("code = %s", r.Outcome.Err.Code)
	}
}

func TestRunNoContracts(t *testing.T) {
	r := New().Run(Inputs{Groups: []models.CustomerGroup{fuseGroup(1, 0, 63)}}, mustInterval(t))
	if r.State != StateAborted {
		t.Fatalf("state = %s, want %s", r.State, StateAborted)
	}
	if r.Outcome.Message != "No facility contracts exist!" {
		t.Errorf("message = %q", r.Outcome.Message)
	}
}

func TestRunMapsAndPartitions(t *testing.T) {
	in := Inputs{
		Groups: []models.CustomerGroup{
			fuseGroup(1, 0, 25),
			fuseGroup(2, 26, 63),
		},
		Contracts: []models.FacilityContract{
			contract(10, nov, 16),
			contract(10, dec, 16),
			contract(11, nov, 35),
		},
		Existing: []models.FacilityCustomerGroupLink{
			{FacilityID: 10, DateID: nov, CustomerGroupID: 2},
		},
	}

	r := New().Run(in, mustInterval(t))
	if r.State != StateDone {
		t.Fatalf("state = %s, want %s: %s", r.State, StateDone, r.Outcome.Message)
	}
	want := "Successfully imported 2 new facility customer group links and updated 1 existing facility customer group links in interval 2025-11-01 - 2025-12-01!"
	if r.Outcome.Message != want {
		t.Errorf("message = %q, want %q", r.Outcome.Message, want)
	}
	if len(r.Insert) != 2 || len(r.Update) != 1 {
		t.Fatalf("partition = %d/%d, want 2/1", len(r.Insert), len(r.Update))
	}
	if r.Update[0].FacilityID != 10 || !r.Update[0].DateID.Equal(nov) || r.Update[0].CustomerGroupID != 1 {
		t.Errorf("update link = %+v", r.Update[0])
	}
	if len(r.Warnings) != 0 {
		t.Errorf("warnings = %v", r.Warnings)
	}
}

func TestRunProductStrategy(t *testing.T) {
	spot := i64(7)
	in := Inputs{
		Groups: []models.CustomerGroup{
			{CustomerGroupID: 1, Strategy: models.StrategyProduct, ProductID: spot},
			{
				CustomerGroupID: 2,
				Strategy:        models.StrategyFuseSize,
				Min:             dec2(0),
				Max:             dec2(63),
				NotProductID:    spot,
			},
		},
		Contracts: []models.FacilityContract{
			{FacilityID: 10, DateID: nov, FuseSize: dec2(16), ProductID: spot},
			{FacilityID: 11, DateID: nov, FuseSize: dec2(16)},
		},
	}

	r := New().Run(in, mustInterval(t))
	if r.State != StateDone {
		t.Fatalf("state = %s: %s", r.State, r.Outcome.Message)
	}
	byFacility := map[int64]int64{}
	for _, l := range r.Insert {
		byFacility[l.FacilityID] = l.CustomerGroupID
	}
	if byFacility[10] != 1 {
		t.Errorf("facility 10 mapped to group %d, want 1", byFacility[10])
	}
	if byFacility[11] != 2 {
		t.Errorf("facility 11 mapped to group %d, want 2", byFacility[11])
	}
}

func TestRunProductGroupWithoutProductSkipped(t *testing.T) {
	in := Inputs{
		Groups: []models.CustomerGroup{
			{CustomerGroupID: 9, Strategy: models.StrategyProduct},
			fuseGroup(1, 0, 63),
		},
		Contracts: []models.FacilityContract{contract(10, nov, 16)},
	}

	r := New().Run(in, mustInterval(t))
	if r.State != StateDone {
		t.Fatalf("state = %s: %s", r.State, r.Outcome.Message)
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", r.Warnings)
	}
	want := "Required product_id param is None for customer_group_id=9"
	if r.Warnings[0] != want {
		t.Errorf("warning = %q, want %q", r.Warnings[0], want)
	}
	if len(r.Insert) != 1 || r.Insert[0].CustomerGroupID != 1 {
		t.Fatalf("insert = %+v, want one link to group 1", r.Insert)
	}
}

func TestRunUnmappedContractWarns(t *testing.T) {
	in := Inputs{
		Groups: []models.CustomerGroup{fuseGroup(1, 0, 25)},
		Contracts: []models.FacilityContract{
			contract(10, nov, 16),
			contract(11, nov, 80),
		},
	}

	r := New().Run(in, mustInterval(t))
	if r.State != StateDone {
		t.Fatalf("state = %s: %s", r.State, r.Outcome.Message)
	}
	if len(r.Unmapped) != 1 || r.Unmapped[0] != 11 {
		t.Fatalf("unmapped = %v, want [11]", r.Unmapped)
	}
	found := false
	for _, w := range r.Warnings {
		if w == "Facility contracts (1) could not be mapped to a customer group!" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, missing unmapped warning", r.Warnings)
	}
	if len(r.Insert) != 1 {
		t.Fatalf("insert = %+v, want one link", r.Insert)
	}
}

func TestRunContractInTwoRangeGroupsAborts(t *testing.T) {
	in := Inputs{
		Groups: []models.CustomerGroup{
			fuseGroup(1, 0, 25),
			fuseGroup(2, 20, 63),
		},
		Contracts: []models.FacilityContract{contract(10, nov, 22)},
	}

	r := New().Run(in, mustInterval(t))
	if r.State != StateAborted {
		t.Fatalf("state = %s, want %s", r.State, StateAborted)
	}
	want := "Found duplicate facility customer group links (1)!"
	if r.Outcome.Message != want {
		t.Errorf("message = %q, want %q", r.Outcome.Message, want)
	}
	if r.Outcome.Err.Code != errs.CodeDuplicateRows {
		t.Errorf("code = %s", r.Outcome.Err.Code)
	}
	keys := r.Outcome.Keys()
	if len(keys) != 1 || !strings.Contains(keys[0], "facility_id=10") {
		t.Errorf("keys = %v", keys)
	}
}

func TestRunContractInRangeAndProductGroupAborts(t *testing.T) {
	spot := i64(7)
	in := Inputs{
		Groups: []models.CustomerGroup{
			fuseGroup(1, 0, 63),
			{CustomerGroupID: 2, Strategy: models.StrategyProduct, ProductID: spot},
		},
		Contracts: []models.FacilityContract{
			{FacilityID: 10, DateID: nov, FuseSize: dec2(16), ProductID: spot},
		},
	}

	r := New().Run(in, mustInterval(t))
	if r.State != StateAborted {
		t.Fatalf("state = %s, want %s", r.State, StateAborted)
	}
	want := "Found duplicate facility customer group links (1)!"
	if r.Outcome.Message != want {
		t.Errorf("message = %q, want %q", r.Outcome.Message, want)
	}
	keys := r.Outcome.Keys()
	if len(keys) != 1 || !strings.Contains(keys[0], "facility_id=10") {
		t.Errorf("keys = %v", keys)
	}
	if len(r.Insert)+len(r.Update) != 0 {
		t.Errorf("no links should be partitioned, got %d/%d", len(r.Insert), len(r.Update))
	}
}

func TestRunNullAttributeNeverMatchesRange(t *testing.T) {
	in := Inputs{
		Groups:    []models.CustomerGroup{fuseGroup(1, 0, 63)},
		Contracts: []models.FacilityContract{{FacilityID: 10, DateID: nov}},
	}

	r := New().Run(in, mustInterval(t))
	if r.State != StateDone {
		t.Fatalf("state = %s: %s", r.State, r.Outcome.Message)
	}
	if len(r.Unmapped) != 1 {
		t.Fatalf("unmapped = %v, want the null-fuse contract", r.Unmapped)
	}
}

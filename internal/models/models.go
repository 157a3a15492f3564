// Package models defines the domain types of the tariff analyzer: entity
// enums, the schema contracts of the importable record kinds, and the
// in-memory shapes of facility contracts and customer groups consumed by the
// customer-group mapping engine.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"tariffant/internal/tabular"
)

// FacilityType enumerates the available types of facilities.
type FacilityType int64

const (
	FacilityTypeConsumption FacilityType = 1
	FacilityTypeProduction  FacilityType = 2
)

// String returns the facility type name.
func (t FacilityType) String() string {
	switch t {
	case FacilityTypeConsumption:
		return "Consumption"
	case FacilityTypeProduction:
		return "Production"
	default:
		return "Unknown"
	}
}

// CalcStrategy enumerates the available tariff calculation strategies.
type CalcStrategy int64

const (
	CalcPerUnit                                   CalcStrategy = 1
	CalcPerYearPeriodizeOverMonthLength           CalcStrategy = 2
	CalcPerUnitPerYearPeriodizeOverMonthLength    CalcStrategy = 3
	CalcActivePowerOvershootSubscribedPower       CalcStrategy = 4
	CalcReactivePowerConsOvershootActivePowerCons CalcStrategy = 5
	CalcReactivePowerProdOvershootActivePowerCons CalcStrategy = 6
)

// String returns the strategy name used in the calc_strategy table.
func (s CalcStrategy) String() string {
	switch s {
	case CalcPerUnit:
		return "per_unit"
	case CalcPerYearPeriodizeOverMonthLength:
		return "per_year_periodize_over_month_length"
	case CalcPerUnitPerYearPeriodizeOverMonthLength:
		return "per_unit_per_year_periodize_over_month_length"
	case CalcActivePowerOvershootSubscribedPower:
		return "active_power_overshoot_subscribed_power"
	case CalcReactivePowerConsOvershootActivePowerCons:
		return "reactive_power_cons_overshoot_active_power_cons"
	case CalcReactivePowerProdOvershootActivePowerCons:
		return "reactive_power_prod_overshoot_active_power_cons"
	default:
		return "unknown"
	}
}

// MappingStrategy enumerates the rules for mapping a facility contract to a
// customer group.
type MappingStrategy int64

const (
	StrategyFuseSize        MappingStrategy = 1
	StrategySubscribedPower MappingStrategy = 2
	StrategyConnectionPower MappingStrategy = 3
	StrategyProduct         MappingStrategy = 4
)

// String returns the strategy name.
func (s MappingStrategy) String() string {
	switch s {
	case StrategyFuseSize:
		return "fuse_size"
	case StrategySubscribedPower:
		return "subscribed_power"
	case StrategyConnectionPower:
		return "connection_power"
	case StrategyProduct:
		return "product"
	default:
		return "unknown"
	}
}

// DataSource identifies an importable data source.
type DataSource string

const (
	SourceFacility                      DataSource = "facility"
	SourceFacilityContract              DataSource = "facility_contract"
	SourceActiveEnergyCons              DataSource = "active_energy_cons"
	SourceActiveEnergyProd              DataSource = "active_energy_prod"
	SourceMaxActivePowerCons            DataSource = "max_active_power_cons"
	SourceMaxActivePowerProd            DataSource = "max_active_power_prod"
	SourceMaxDebActivePowerConsHighLoad DataSource = "max_deb_active_power_cons_high_load"
	SourceMaxDebActivePowerConsLowLoad  DataSource = "max_deb_active_power_cons_low_load"
)

// MeterDataSources lists the data sources carrying meter data. The serie
// type code of a meter-data row equals its data source name.
func MeterDataSources() []DataSource {
	return []DataSource{
		SourceActiveEnergyCons,
		SourceActiveEnergyProd,
		SourceMaxActivePowerCons,
		SourceMaxActivePowerProd,
		SourceMaxDebActivePowerConsHighLoad,
		SourceMaxDebActivePowerConsLowLoad,
	}
}

// IsMeterData reports whether the source carries meter data.
func (s DataSource) IsMeterData() bool {
	for _, m := range MeterDataSources() {
		if s == m {
			return true
		}
	}
	return false
}

// ParseDataSource validates a data source name.
func ParseDataSource(name string) (DataSource, bool) {
	s := DataSource(name)
	if s == SourceFacility || s == SourceFacilityContract || s.IsMeterData() {
		return s, true
	}
	return "", false
}

// Column names shared by the schema contracts, the parsers and the store.
const (
	ColFacilityID       = "facility_id"
	ColEAN              = "ean"
	ColEANProd          = "ean_prod"
	ColFacilityTypeID   = "facility_type_id"
	ColFacilityTypeCode = "facility_type_code"
	ColName             = "name"
	ColDescription      = "description"

	ColProductID    = "product_id"
	ColExternalID   = "external_id"
	ColExtProductID = "ext_product_id"

	ColContractID       = "facility_contract_id"
	ColDateID           = "date_id"
	ColFuseSize         = "fuse_size"
	ColSubscribedPower  = "subscribed_power"
	ColConnectionPower  = "connection_power"
	ColAccountNr        = "account_nr"
	ColCustomerTypeID   = "customer_type_id"
	ColCustomerTypeCode = "customer_type_code"

	ColSerieValueID  = "serie_value_id"
	ColSerieTypeID   = "serie_type_id"
	ColSerieTypeCode = "serie_type_code"
	ColSerieValue    = "serie_value"
	ColStatusID      = "status_id"

	ColCustomerGroupID = "customer_group_id"
	ColCode            = "code"
)

// FacilityContract is the facility-and-month view of a contract consumed by
// the customer-group mapping engine.
type FacilityContract struct {
	FacilityID      int64
	DateID          time.Time
	FuseSize        *decimal.Decimal
	SubscribedPower *decimal.Decimal
	ConnectionPower *decimal.Decimal
	AccountNr       string
	CustomerTypeID  *int64
	ProductID       *int64
}

// CustomerGroup defines one customer group and its mapping parameters.
// Range strategies use the Min/Max bounds on the strategy attribute and may
// exclude contracts on a product through NotProductID; the product strategy
// requires ProductID.
type CustomerGroup struct {
	CustomerGroupID int64
	Name            string
	Strategy        MappingStrategy
	Min             *decimal.Decimal
	Max             *decimal.Decimal
	ProductID       *int64
	NotProductID    *int64
}

// FacilityCustomerGroupLink maps a facility to a customer group for one month.
type FacilityCustomerGroupLink struct {
	FacilityID      int64
	DateID          time.Time
	CustomerGroupID int64
}

// Matches evaluates the group's predicate against a facility contract.
// A null contract attribute never matches a range bound on it.
func (g CustomerGroup) Matches(fc FacilityContract) bool {
	switch g.Strategy {
	case StrategyFuseSize:
		return g.matchesRange(fc.FuseSize, fc.ProductID)
	case StrategySubscribedPower:
		return g.matchesRange(fc.SubscribedPower, fc.ProductID)
	case StrategyConnectionPower:
		return g.matchesRange(fc.ConnectionPower, fc.ProductID)
	case StrategyProduct:
		return g.ProductID != nil && fc.ProductID != nil && *g.ProductID == *fc.ProductID
	default:
		return false
	}
}

func (g CustomerGroup) matchesRange(attr *decimal.Decimal, productID *int64) bool {
	if attr == nil {
		return false
	}
	if g.Min != nil && attr.LessThan(*g.Min) {
		return false
	}
	if g.Max != nil && attr.GreaterThan(*g.Max) {
		return false
	}
	if g.NotProductID != nil && productID != nil && *g.NotProductID == *productID {
		return false
	}
	return true
}

// FacilityImportContract returns the schema contract of the facility import.
func FacilityImportContract() tabular.Contract {
	return tabular.Contract{
		Entity: "facility",
		Plural: "facilities",
		Columns: []tabular.ColumnSpec{
			{Name: ColEAN, Type: tabular.KindUint, Required: true},
			{Name: ColEANProd, Type: tabular.KindUint},
			{Name: ColFacilityTypeCode, Type: tabular.KindString, Required: true},
			{Name: ColName, Type: tabular.KindString},
			{Name: ColDescription, Type: tabular.KindString},
		},
		KeyColumns:     []string{ColEAN},
		DisplayColumns: []string{ColEAN},
	}
}

// ProductImportContract returns the schema contract of the product import.
func ProductImportContract() tabular.Contract {
	return tabular.Contract{
		Entity: "product",
		Plural: "products",
		Columns: []tabular.ColumnSpec{
			{Name: ColExternalID, Type: tabular.KindString, Required: true},
			{Name: ColName, Type: tabular.KindString, Required: true},
			{Name: ColDescription, Type: tabular.KindString},
		},
		KeyColumns:     []string{ColExternalID},
		DisplayColumns: []string{ColExternalID},
	}
}

// FacilityContractImportContract returns the schema contract of the facility
// contract import.
func FacilityContractImportContract() tabular.Contract {
	return tabular.Contract{
		Entity: "facility contract",
		Plural: "facility contracts",
		Columns: []tabular.ColumnSpec{
			{Name: ColEAN, Type: tabular.KindUint, Required: true},
			{Name: ColDateID, Type: tabular.KindDate, Required: true},
			{Name: ColFuseSize, Type: tabular.KindDecimal},
			{Name: ColSubscribedPower, Type: tabular.KindDecimal},
			{Name: ColConnectionPower, Type: tabular.KindDecimal},
			{Name: ColAccountNr, Type: tabular.KindString},
			{Name: ColCustomerTypeCode, Type: tabular.KindString, Required: true},
			{Name: ColExtProductID, Type: tabular.KindString},
		},
		KeyColumns:        []string{ColEAN, ColDateID},
		DisplayColumns:    []string{ColEAN},
		MonthStartColumns: []string{ColDateID},
	}
}

// SerieValueImportContract returns the schema contract of the meter-data
// import.
func SerieValueImportContract() tabular.Contract {
	return tabular.Contract{
		Entity: "serie value",
		Plural: "serie values",
		Columns: []tabular.ColumnSpec{
			{Name: ColSerieTypeCode, Type: tabular.KindString, Required: true},
			{Name: ColEAN, Type: tabular.KindUint, Required: true},
			{Name: ColDateID, Type: tabular.KindDate, Required: true},
			{Name: ColSerieValue, Type: tabular.KindDecimal, Required: true},
			{Name: ColStatusID, Type: tabular.KindInt},
		},
		KeyColumns:        []string{ColSerieTypeCode, ColEAN, ColDateID},
		DisplayColumns:    []string{ColEAN},
		MonthStartColumns: []string{ColDateID},
	}
}

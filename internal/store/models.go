package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// FacilityType is a seeded reference row, either consumption or production.
type FacilityType struct {
	FacilityTypeID int64  `gorm:"column:facility_type_id;primaryKey;autoIncrement"`
	Code           string `gorm:"column:code;uniqueIndex;size:32;not null"`
	Name           string `gorm:"column:name;size:64"`
}

func (FacilityType) TableName() string { return "facility_type" }

// Facility is a connection point in the grid, identified by its EAN.
type Facility struct {
	FacilityID     int64   `gorm:"column:facility_id;primaryKey;autoIncrement"`
	EAN            uint64  `gorm:"column:ean;uniqueIndex;not null"`
	EANProd        *uint64 `gorm:"column:ean_prod"`
	FacilityTypeID int64   `gorm:"column:facility_type_id;not null"`
	Name           *string `gorm:"column:name;size:128"`
	Description    *string `gorm:"column:description;size:256"`
}

func (Facility) TableName() string { return "facility" }

// Product is a sellable tariff product, identified by the id of the external
// system it was imported from.
type Product struct {
	ProductID   int64   `gorm:"column:product_id;primaryKey;autoIncrement"`
	ExternalID  string  `gorm:"column:external_id;uniqueIndex;size:64;not null"`
	Name        string  `gorm:"column:name;size:128;not null"`
	Description *string `gorm:"column:description;size:256"`
}

func (Product) TableName() string { return "product" }

// CustomerType is a seeded reference row, e.g. private or company.
type CustomerType struct {
	CustomerTypeID int64  `gorm:"column:customer_type_id;primaryKey;autoIncrement"`
	Code           string `gorm:"column:code;uniqueIndex;size:32;not null"`
	Name           string `gorm:"column:name;size:64"`
}

func (CustomerType) TableName() string { return "customer_type" }

// FacilityContract holds the contract attributes of one facility for one
// month. The natural key is (facility_id, date_id).
type FacilityContract struct {
	FacilityContractID int64            `gorm:"column:facility_contract_id;primaryKey;autoIncrement"`
	FacilityID         int64            `gorm:"column:facility_id;uniqueIndex:ux_contract_facility_month;not null"`
	DateID             time.Time        `gorm:"column:date_id;uniqueIndex:ux_contract_facility_month;not null"`
	FuseSize           *decimal.Decimal `gorm:"column:fuse_size;type:numeric"`
	SubscribedPower    *decimal.Decimal `gorm:"column:subscribed_power;type:numeric"`
	ConnectionPower    *decimal.Decimal `gorm:"column:connection_power;type:numeric"`
	AccountNr          *string          `gorm:"column:account_nr;size:64"`
	CustomerTypeID     int64            `gorm:"column:customer_type_id;not null"`
	ProductID          *int64           `gorm:"column:product_id"`
}

func (FacilityContract) TableName() string { return "facility_contract" }

// SerieType is a seeded reference row naming one meter data source.
type SerieType struct {
	SerieTypeID int64  `gorm:"column:serie_type_id;primaryKey;autoIncrement"`
	Code        string `gorm:"column:code;uniqueIndex;size:64;not null"`
	Name        string `gorm:"column:name;size:128"`
}

func (SerieType) TableName() string { return "serie_type" }

// SerieValue is one month's meter reading of one serie for one facility.
type SerieValue struct {
	SerieValueID int64           `gorm:"column:serie_value_id;primaryKey;autoIncrement"`
	SerieTypeID  int64           `gorm:"column:serie_type_id;uniqueIndex:ux_serie_value_natural;not null"`
	FacilityID   int64           `gorm:"column:facility_id;uniqueIndex:ux_serie_value_natural;not null"`
	DateID       time.Time       `gorm:"column:date_id;uniqueIndex:ux_serie_value_natural;not null"`
	SerieValue   decimal.Decimal `gorm:"column:serie_value;type:numeric;not null"`
	StatusID     *int64          `gorm:"column:status_id"`
}

func (SerieValue) TableName() string { return "serie_value" }

// CalcStrategy is a seeded reference row naming one tariff calculation rule.
type CalcStrategy struct {
	CalcStrategyID int64  `gorm:"column:calc_strategy_id;primaryKey;autoIncrement"`
	Code           string `gorm:"column:code;uniqueIndex;size:64;not null"`
}

func (CalcStrategy) TableName() string { return "calc_strategy" }

// CustomerGroup defines one customer group and its mapping parameters.
type CustomerGroup struct {
	CustomerGroupID   int64            `gorm:"column:customer_group_id;primaryKey;autoIncrement"`
	Name              string           `gorm:"column:name;size:128;not null"`
	MappingStrategyID int64            `gorm:"column:mapping_strategy_id;not null"`
	Min               *decimal.Decimal `gorm:"column:min;type:numeric"`
	Max               *decimal.Decimal `gorm:"column:max;type:numeric"`
	ProductID         *int64           `gorm:"column:product_id"`
	NotProductID      *int64           `gorm:"column:not_product_id"`
}

func (CustomerGroup) TableName() string { return "customer_group" }

// FacilityCustomerGroupLink maps a facility to a customer group for one
// month. At most one link exists per facility and month.
type FacilityCustomerGroupLink struct {
	FacilityCustomerGroupLinkID int64     `gorm:"column:facility_customer_group_link_id;primaryKey;autoIncrement"`
	FacilityID                  int64     `gorm:"column:facility_id;uniqueIndex:ux_link_facility_month;not null"`
	DateID                      time.Time `gorm:"column:date_id;uniqueIndex:ux_link_facility_month;not null"`
	CustomerGroupID             int64     `gorm:"column:customer_group_id;not null"`
}

func (FacilityCustomerGroupLink) TableName() string { return "facility_customer_group_link" }

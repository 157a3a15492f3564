package reconcile

import (
	"fmt"

	"tariffant/internal/models"
)

// FacilityPlan classifies a facility import batch. Facilities are keyed by
// EAN and carry a facility_type_code lookup that must resolve.
func FacilityPlan() Plan {
	return Plan{
		Contract:          models.FacilityImportContract(),
		MappingTable:      "facility",
		MappingKeyColumns: []string{models.ColEAN},
		ProbeColumns:      []string{models.ColEAN},
		SurrogateColumn:   models.ColFacilityID,
		Lookups: []LookupPlan{
			{
				Table:           "facility_type",
				ProbeColumns:    []string{models.ColFacilityTypeCode},
				TableKeyColumns: []string{models.ColCode},
				SurrogateColumn: models.ColFacilityTypeID,
				Required:        true,
			},
		},
		RejectMessage: func(n int) string {
			return fmt.Sprintf("Found facilities (%d) with missing or invalid facility_type!", n)
		},
	}
}

// ProductPlan classifies a product import batch. Products are keyed by
// external_id and reference nothing, so no row can be rejected.
func ProductPlan() Plan {
	return Plan{
		Contract:          models.ProductImportContract(),
		MappingTable:      "product",
		MappingKeyColumns: []string{models.ColExternalID},
		ProbeColumns:      []string{models.ColExternalID},
		SurrogateColumn:   models.ColProductID,
		RejectMessage: func(n int) string {
			return fmt.Sprintf("Found products (%d) with unresolved references!", n)
		},
	}
}

// FacilityContractPlan classifies a facility contract import batch. The
// contract natural key is (facility_id, date_id) where facility_id is
// resolved from the EAN, so a contract for an unknown facility is rejected.
// The product reference is optional and stays null when unresolved.
func FacilityContractPlan() Plan {
	return Plan{
		Contract:          models.FacilityContractImportContract(),
		MappingTable:      "facility_contract",
		MappingKeyColumns: []string{models.ColFacilityID, models.ColDateID},
		ProbeColumns:      []string{models.ColFacilityID, models.ColDateID},
		SurrogateColumn:   models.ColContractID,
		Lookups: []LookupPlan{
			{
				Table:           "facility",
				ProbeColumns:    []string{models.ColEAN},
				TableKeyColumns: []string{models.ColEAN},
				SurrogateColumn: models.ColFacilityID,
				Required:        true,
				RejectMessage: func(n int) string {
					return fmt.Sprintf("Found facility contracts (%d) with unknown EAN codes in column \"ean\"!", n)
				},
			},
			{
				Table:           "customer_type",
				ProbeColumns:    []string{models.ColCustomerTypeCode},
				TableKeyColumns: []string{models.ColCode},
				SurrogateColumn: models.ColCustomerTypeID,
				Required:        true,
				RejectMessage: func(n int) string {
					return fmt.Sprintf("Found facility contracts (%d) with invalid values for column \"customer_type_code\"!", n)
				},
			},
			{
				Table:           "product",
				ProbeColumns:    []string{models.ColExtProductID},
				TableKeyColumns: []string{models.ColExternalID},
				SurrogateColumn: models.ColProductID,
				Required:        false,
			},
		},
		RejectMessage: func(n int) string {
			return fmt.Sprintf("Found facility contracts (%d) with unresolved references!", n)
		},
	}
}

// SerieValuePlan classifies a meter data import batch for one data source.
// Both the serie type and the facility must resolve before the row can be
// matched against existing values on (serie_type_id, facility_id, date_id).
func SerieValuePlan() Plan {
	return Plan{
		Contract:          models.SerieValueImportContract(),
		MappingTable:      "serie_value",
		MappingKeyColumns: []string{models.ColSerieTypeID, models.ColFacilityID, models.ColDateID},
		ProbeColumns:      []string{models.ColSerieTypeID, models.ColFacilityID, models.ColDateID},
		SurrogateColumn:   models.ColSerieValueID,
		Lookups: []LookupPlan{
			{
				Table:           "serie_type",
				ProbeColumns:    []string{models.ColSerieTypeCode},
				TableKeyColumns: []string{models.ColCode},
				SurrogateColumn: models.ColSerieTypeID,
				Required:        true,
			},
			{
				Table:           "facility",
				ProbeColumns:    []string{models.ColEAN},
				TableKeyColumns: []string{models.ColEAN},
				SurrogateColumn: models.ColFacilityID,
				Required:        true,
			},
		},
		RejectMessage: func(n int) string {
			return fmt.Sprintf("Found rows (%d) with invalid values for columns \"serie_type_code\" or \"ean\"!", n)
		},
	}
}

// PlanFor returns the classification plan for a data source. All meter data
// sources share the serie value plan.
func PlanFor(src models.DataSource) (Plan, bool) {
	switch src {
	case models.SourceFacility:
		return FacilityPlan(), true
	case models.SourceFacilityContract:
		return FacilityContractPlan(), true
	default:
		if src.IsMeterData() {
			return SerieValuePlan(), true
		}
	}
	return Plan{}, false
}

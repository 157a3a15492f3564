package store

import (
	"time"

	"github.com/shopspring/decimal"

	"tariffant/internal/models"
	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

func writeFailed(err error, table string) error {
	return errs.Wrap(err, errs.CategoryStorage, errs.CodeWriteFailed, "persist failed").
		WithContext("table", table)
}

// ApplyFacilities persists a classified facility batch.
func (s *Store) ApplyFacilities(insert, update *tabular.Batch) error {
	rows := make([]Facility, 0, insert.NumRows())
	for i := 0; i < insert.NumRows(); i++ {
		rows = append(rows, facilityAt(insert, i, 0))
	}
	if len(rows) > 0 {
		if err := s.db.Create(&rows).Error; err != nil {
			return writeFailed(err, "facility")
		}
	}
	for i := 0; i < update.NumRows(); i++ {
		row := facilityAt(update, i, intAt(update, i, models.ColFacilityID))
		if err := s.db.Save(&row).Error; err != nil {
			return writeFailed(err, "facility")
		}
	}
	s.logApplied("facility", insert.NumRows(), update.NumRows())
	return nil
}

func facilityAt(b *tabular.Batch, row int, id int64) Facility {
	return Facility{
		FacilityID:     id,
		EAN:            uintAt(b, row, models.ColEAN),
		EANProd:        optUintAt(b, row, models.ColEANProd),
		FacilityTypeID: intAt(b, row, models.ColFacilityTypeID),
		Name:           optStrAt(b, row, models.ColName),
		Description:    optStrAt(b, row, models.ColDescription),
	}
}

// ApplyProducts persists a classified product batch.
func (s *Store) ApplyProducts(insert, update *tabular.Batch) error {
	rows := make([]Product, 0, insert.NumRows())
	for i := 0; i < insert.NumRows(); i++ {
		rows = append(rows, productAt(insert, i, 0))
	}
	if len(rows) > 0 {
		if err := s.db.Create(&rows).Error; err != nil {
			return writeFailed(err, "product")
		}
	}
	for i := 0; i < update.NumRows(); i++ {
		row := productAt(update, i, intAt(update, i, models.ColProductID))
		if err := s.db.Save(&row).Error; err != nil {
			return writeFailed(err, "product")
		}
	}
	s.logApplied("product", insert.NumRows(), update.NumRows())
	return nil
}

func productAt(b *tabular.Batch, row int, id int64) Product {
	return Product{
		ProductID:   id,
		ExternalID:  strAt(b, row, models.ColExternalID),
		Name:        strAt(b, row, models.ColName),
		Description: optStrAt(b, row, models.ColDescription),
	}
}

// ApplyFacilityContracts persists a classified facility contract batch.
func (s *Store) ApplyFacilityContracts(insert, update *tabular.Batch) error {
	rows := make([]FacilityContract, 0, insert.NumRows())
	for i := 0; i < insert.NumRows(); i++ {
		rows = append(rows, contractAt(insert, i, 0))
	}
	if len(rows) > 0 {
		if err := s.db.Create(&rows).Error; err != nil {
			return writeFailed(err, "facility_contract")
		}
	}
	for i := 0; i < update.NumRows(); i++ {
		row := contractAt(update, i, intAt(update, i, models.ColContractID))
		if err := s.db.Save(&row).Error; err != nil {
			return writeFailed(err, "facility_contract")
		}
	}
	s.logApplied("facility_contract", insert.NumRows(), update.NumRows())
	return nil
}

func contractAt(b *tabular.Batch, row int, id int64) FacilityContract {
	return FacilityContract{
		FacilityContractID: id,
		FacilityID:         intAt(b, row, models.ColFacilityID),
		DateID:             dateAt(b, row, models.ColDateID),
		FuseSize:           optDecAt(b, row, models.ColFuseSize),
		SubscribedPower:    optDecAt(b, row, models.ColSubscribedPower),
		ConnectionPower:    optDecAt(b, row, models.ColConnectionPower),
		AccountNr:          optStrAt(b, row, models.ColAccountNr),
		CustomerTypeID:     intAt(b, row, models.ColCustomerTypeID),
		ProductID:          optIntAt(b, row, models.ColProductID),
	}
}

// ApplySerieValues persists a classified meter data batch.
func (s *Store) ApplySerieValues(insert, update *tabular.Batch) error {
	rows := make([]SerieValue, 0, insert.NumRows())
	for i := 0; i < insert.NumRows(); i++ {
		rows = append(rows, serieValueAt(insert, i, 0))
	}
	if len(rows) > 0 {
		if err := s.db.Create(&rows).Error; err != nil {
			return writeFailed(err, "serie_value")
		}
	}
	for i := 0; i < update.NumRows(); i++ {
		row := serieValueAt(update, i, intAt(update, i, models.ColSerieValueID))
		if err := s.db.Save(&row).Error; err != nil {
			return writeFailed(err, "serie_value")
		}
	}
	s.logApplied("serie_value", insert.NumRows(), update.NumRows())
	return nil
}

func serieValueAt(b *tabular.Batch, row int, id int64) SerieValue {
	return SerieValue{
		SerieValueID: id,
		SerieTypeID:  intAt(b, row, models.ColSerieTypeID),
		FacilityID:   intAt(b, row, models.ColFacilityID),
		DateID:       dateAt(b, row, models.ColDateID),
		SerieValue:   decAt(b, row, models.ColSerieValue),
		StatusID:     optIntAt(b, row, models.ColStatusID),
	}
}

// ApplyLinks persists the customer-group mapping result.
func (s *Store) ApplyLinks(insert, update []models.FacilityCustomerGroupLink) error {
	rows := make([]FacilityCustomerGroupLink, 0, len(insert))
	for _, l := range insert {
		rows = append(rows, FacilityCustomerGroupLink{
			FacilityID:      l.FacilityID,
			DateID:          l.DateID,
			CustomerGroupID: l.CustomerGroupID,
		})
	}
	if len(rows) > 0 {
		if err := s.db.Create(&rows).Error; err != nil {
			return writeFailed(err, "facility_customer_group_link")
		}
	}
	for _, l := range update {
		err := s.db.Model(&FacilityCustomerGroupLink{}).
			Where("facility_id = ? AND date_id = ?", l.FacilityID, l.DateID).
			Update("customer_group_id", l.CustomerGroupID).Error
		if err != nil {
			return writeFailed(err, "facility_customer_group_link")
		}
	}
	s.logApplied("facility_customer_group_link", len(insert), len(update))
	return nil
}

func (s *Store) logApplied(table string, inserted, updated int) {
	s.log.WithFields(logger.Fields{
		"table": table, "inserted": inserted, "updated": updated,
	}).Debug("rows applied")
}

// Batch cell readers. The classified sets come from the reconciler with the
// kinds the contracts declared, so a kind mismatch here is a programming
// error, not bad input.

func intAt(b *tabular.Batch, row int, col string) int64 {
	v, _ := b.Value(row, col)
	return v.Int()
}

func uintAt(b *tabular.Batch, row int, col string) uint64 {
	v, _ := b.Value(row, col)
	return v.Uint()
}

func strAt(b *tabular.Batch, row int, col string) string {
	v, _ := b.Value(row, col)
	return v.Str()
}

func dateAt(b *tabular.Batch, row int, col string) time.Time {
	v, _ := b.Value(row, col)
	return v.Time()
}

func decAt(b *tabular.Batch, row int, col string) decimal.Decimal {
	v, _ := b.Value(row, col)
	return v.Dec()
}

func optIntAt(b *tabular.Batch, row int, col string) *int64 {
	v, ok := b.Value(row, col)
	if !ok || v.IsNull() {
		return nil
	}
	n := v.Int()
	return &n
}

func optUintAt(b *tabular.Batch, row int, col string) *uint64 {
	v, ok := b.Value(row, col)
	if !ok || v.IsNull() {
		return nil
	}
	n := v.Uint()
	return &n
}

func optStrAt(b *tabular.Batch, row int, col string) *string {
	v, ok := b.Value(row, col)
	if !ok || v.IsNull() {
		return nil
	}
	s := v.Str()
	return &s
}

func optDecAt(b *tabular.Batch, row int, col string) *decimal.Decimal {
	v, ok := b.Value(row, col)
	if !ok || v.IsNull() {
		return nil
	}
	d := v.Dec()
	return &d
}

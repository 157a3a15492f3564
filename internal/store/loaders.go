package store

import (
	"tariffant/internal/models"
	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
)

func queryFailed(err error, table string) error {
	return errs.Wrap(err, errs.CategoryStorage, errs.CodeQueryFailed, "mapping load failed").
		WithContext("table", table)
}

// FacilityMapping loads the ean to facility_id mapping.
func (s *Store) FacilityMapping() (*tabular.Batch, error) {
	var rows []Facility
	if err := s.db.Select("facility_id", "ean").Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "facility")
	}
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColEAN, Type: tabular.KindUint},
	)
	for _, r := range rows {
		b.MustAppendRow(tabular.Int(r.FacilityID), tabular.Uint(r.EAN))
	}
	return b, nil
}

// ProductMapping loads the external_id to product_id mapping.
func (s *Store) ProductMapping() (*tabular.Batch, error) {
	var rows []Product
	if err := s.db.Select("product_id", "external_id").Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "product")
	}
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColProductID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColExternalID, Type: tabular.KindString},
	)
	for _, r := range rows {
		b.MustAppendRow(tabular.Int(r.ProductID), tabular.String(r.ExternalID))
	}
	return b, nil
}

// FacilityTypeLookup loads the code to facility_type_id mapping.
func (s *Store) FacilityTypeLookup() (*tabular.Batch, error) {
	var rows []FacilityType
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "facility_type")
	}
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColFacilityTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColCode, Type: tabular.KindString},
	)
	for _, r := range rows {
		b.MustAppendRow(tabular.Int(r.FacilityTypeID), tabular.String(r.Code))
	}
	return b, nil
}

// CustomerTypeLookup loads the code to customer_type_id mapping.
func (s *Store) CustomerTypeLookup() (*tabular.Batch, error) {
	var rows []CustomerType
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "customer_type")
	}
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColCustomerTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColCode, Type: tabular.KindString},
	)
	for _, r := range rows {
		b.MustAppendRow(tabular.Int(r.CustomerTypeID), tabular.String(r.Code))
	}
	return b, nil
}

// SerieTypeLookup loads the code to serie_type_id mapping.
func (s *Store) SerieTypeLookup() (*tabular.Batch, error) {
	var rows []SerieType
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "serie_type")
	}
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColSerieTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColCode, Type: tabular.KindString},
	)
	for _, r := range rows {
		b.MustAppendRow(tabular.Int(r.SerieTypeID), tabular.String(r.Code))
	}
	return b, nil
}

// ContractMapping loads the (facility_id, date_id) to facility_contract_id
// mapping.
func (s *Store) ContractMapping() (*tabular.Batch, error) {
	var rows []FacilityContract
	if err := s.db.Select("facility_contract_id", "facility_id", "date_id").Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "facility_contract")
	}
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColContractID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
	)
	for _, r := range rows {
		b.MustAppendRow(tabular.Int(r.FacilityContractID), tabular.Int(r.FacilityID), tabular.Date(r.DateID))
	}
	return b, nil
}

// SerieValueMapping loads the (serie_type_id, facility_id, date_id) to
// serie_value_id mapping.
func (s *Store) SerieValueMapping() (*tabular.Batch, error) {
	var rows []SerieValue
	if err := s.db.Select("serie_value_id", "serie_type_id", "facility_id", "date_id").Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "serie_value")
	}
	b := tabular.NewBatch(
		tabular.Column{Name: models.ColSerieValueID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColSerieTypeID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
	)
	for _, r := range rows {
		b.MustAppendRow(tabular.Int(r.SerieValueID), tabular.Int(r.SerieTypeID),
			tabular.Int(r.FacilityID), tabular.Date(r.DateID))
	}
	return b, nil
}

// ImportTables assembles the reconciliation inputs for a data source.
func (s *Store) ImportTables(src models.DataSource) (mapping *tabular.Batch, lookups map[string]*tabular.Batch, err error) {
	switch {
	case src == models.SourceFacility:
		mapping, err = s.FacilityMapping()
		if err != nil {
			return nil, nil, err
		}
		ft, err := s.FacilityTypeLookup()
		if err != nil {
			return nil, nil, err
		}
		return mapping, map[string]*tabular.Batch{"facility_type": ft}, nil

	case src == models.SourceFacilityContract:
		mapping, err = s.ContractMapping()
		if err != nil {
			return nil, nil, err
		}
		lookups = make(map[string]*tabular.Batch, 3)
		if lookups["facility"], err = s.FacilityMapping(); err != nil {
			return nil, nil, err
		}
		if lookups["customer_type"], err = s.CustomerTypeLookup(); err != nil {
			return nil, nil, err
		}
		if lookups["product"], err = s.ProductMapping(); err != nil {
			return nil, nil, err
		}
		return mapping, lookups, nil

	case src.IsMeterData():
		mapping, err = s.SerieValueMapping()
		if err != nil {
			return nil, nil, err
		}
		lookups = make(map[string]*tabular.Batch, 2)
		if lookups["serie_type"], err = s.SerieTypeLookup(); err != nil {
			return nil, nil, err
		}
		if lookups["facility"], err = s.FacilityMapping(); err != nil {
			return nil, nil, err
		}
		return mapping, lookups, nil
	}
	return nil, nil, errs.Newf(errs.CategoryInternal, errs.CodeUnexpectedError,
		"no import tables for source %q", src)
}

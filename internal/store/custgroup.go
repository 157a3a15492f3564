package store

import (
	"tariffant/internal/models"
	errs "tariffant/pkg/errors"
)

// LoadCustomerGroups loads every customer group definition.
func (s *Store) LoadCustomerGroups() ([]models.CustomerGroup, error) {
	var rows []CustomerGroup
	if err := s.db.Order("customer_group_id").Find(&rows).Error; err != nil {
		return nil, queryFailed(err, "customer_group")
	}
	groups := make([]models.CustomerGroup, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, models.CustomerGroup{
			CustomerGroupID: r.CustomerGroupID,
			Name:            r.Name,
			Strategy:        models.MappingStrategy(r.MappingStrategyID),
			Min:             r.Min,
			Max:             r.Max,
			ProductID:       r.ProductID,
			NotProductID:    r.NotProductID,
		})
	}
	return groups, nil
}

// LoadFacilityContracts loads the facility contracts whose month falls inside
// the interval.
func (s *Store) LoadFacilityContracts(iv models.Interval) ([]models.FacilityContract, error) {
	var rows []FacilityContract
	err := s.db.Where("date_id >= ? AND date_id < ?", iv.Start, iv.End).
		Order("facility_id, date_id").Find(&rows).Error
	if err != nil {
		return nil, queryFailed(err, "facility_contract")
	}
	contracts := make([]models.FacilityContract, 0, len(rows))
	for _, r := range rows {
		ctype := r.CustomerTypeID
		fc := models.FacilityContract{
			FacilityID:      r.FacilityID,
			DateID:          r.DateID,
			FuseSize:        r.FuseSize,
			SubscribedPower: r.SubscribedPower,
			ConnectionPower: r.ConnectionPower,
			CustomerTypeID:  &ctype,
			ProductID:       r.ProductID,
		}
		if r.AccountNr != nil {
			fc.AccountNr = *r.AccountNr
		}
		contracts = append(contracts, fc)
	}
	return contracts, nil
}

// LoadLinks loads the customer group links whose month falls inside the
// interval.
func (s *Store) LoadLinks(iv models.Interval) ([]models.FacilityCustomerGroupLink, error) {
	var rows []FacilityCustomerGroupLink
	err := s.db.Where("date_id >= ? AND date_id < ?", iv.Start, iv.End).
		Order("facility_id, date_id").Find(&rows).Error
	if err != nil {
		return nil, queryFailed(err, "facility_customer_group_link")
	}
	links := make([]models.FacilityCustomerGroupLink, 0, len(rows))
	for _, r := range rows {
		links = append(links, models.FacilityCustomerGroupLink{
			FacilityID:      r.FacilityID,
			DateID:          r.DateID,
			CustomerGroupID: r.CustomerGroupID,
		})
	}
	return links, nil
}

// CreateCustomerGroup stores a group definition. Used by tests and by the
// seeding of demo data.
func (s *Store) CreateCustomerGroup(g models.CustomerGroup) (int64, error) {
	row := CustomerGroup{
		CustomerGroupID:   g.CustomerGroupID,
		Name:              g.Name,
		MappingStrategyID: int64(g.Strategy),
		Min:               g.Min,
		Max:               g.Max,
		ProductID:         g.ProductID,
		NotProductID:      g.NotProductID,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, errs.Wrap(err, errs.CategoryStorage, errs.CodeWriteFailed, "persist failed").
			WithContext("table", "customer_group")
	}
	return row.CustomerGroupID, nil
}

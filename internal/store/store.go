// Package store persists the tariff schema through gorm on sqlite and
// renders the mapping tables as batches for the key mapper.
package store

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tariffant/internal/models"
	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

// Store wraps the database handle. All queries go through it so transactions
// and logging stay in one place.
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open opens (or creates) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.CategoryStorage, errs.CodeQueryFailed,
			"could not open database").WithContext("path", path)
	}
	return &Store{db: db, log: logger.GetGlobalLogger().WithComponent("store")}, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&FacilityType{},
		&Facility{},
		&Product{},
		&CustomerType{},
		&FacilityContract{},
		&SerieType{},
		&SerieValue{},
		&CalcStrategy{},
		&CustomerGroup{},
		&FacilityCustomerGroupLink{},
	)
	if err != nil {
		return errs.Wrap(err, errs.CategoryStorage, errs.CodeWriteFailed, "schema migration failed")
	}
	return nil
}

// Seed inserts the reference rows an empty database needs: facility types,
// serie types and calculation strategies. Existing rows are left untouched so
// seeding is idempotent.
func (s *Store) Seed() error {
	facilityTypes := []FacilityType{
		{FacilityTypeID: int64(models.FacilityTypeConsumption), Code: "consumption", Name: "Consumption"},
		{FacilityTypeID: int64(models.FacilityTypeProduction), Code: "production", Name: "Production"},
	}
	for _, ft := range facilityTypes {
		if err := s.ensure(&FacilityType{}, "code = ?", ft.Code, &ft); err != nil {
			return err
		}
	}

	for i, src := range models.MeterDataSources() {
		st := SerieType{SerieTypeID: int64(i + 1), Code: string(src)}
		if err := s.ensure(&SerieType{}, "code = ?", st.Code, &st); err != nil {
			return err
		}
	}

	strategies := []models.CalcStrategy{
		models.CalcPerUnit,
		models.CalcPerYearPeriodizeOverMonthLength,
		models.CalcPerUnitPerYearPeriodizeOverMonthLength,
		models.CalcActivePowerOvershootSubscribedPower,
		models.CalcReactivePowerConsOvershootActivePowerCons,
		models.CalcReactivePowerProdOvershootActivePowerCons,
	}
	for _, cs := range strategies {
		row := CalcStrategy{CalcStrategyID: int64(cs), Code: cs.String()}
		if err := s.ensure(&CalcStrategy{}, "code = ?", row.Code, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensure(model interface{}, query string, arg interface{}, row interface{}) error {
	var count int64
	if err := s.db.Model(model).Where(query, arg).Count(&count).Error; err != nil {
		return errs.Wrap(err, errs.CategoryStorage, errs.CodeQueryFailed, "seed lookup failed")
	}
	if count > 0 {
		return nil
	}
	if err := s.db.Create(row).Error; err != nil {
		return errs.Wrap(err, errs.CategoryStorage, errs.CodeWriteFailed, "seed insert failed")
	}
	return nil
}

// WithTx runs fn inside one database transaction. The import and mapping
// paths load their state and persist their results through the same tx so a
// late failure rolls everything back.
func (s *Store) WithTx(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log})
	})
}

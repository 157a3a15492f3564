package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tariffant/cmd/tariffant/config"
	"tariffant/internal/display"
	"tariffant/internal/fileops"
	"tariffant/internal/models"
	"tariffant/internal/parsers"
	"tariffant/internal/reconcile"
	"tariffant/internal/store"
	"tariffant/internal/tabular"
	"tariffant/internal/validate"
	errs "tariffant/pkg/errors"
)

var importDirFlag string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import CSV exports into the tariff database",
	Long: `Import reads the CSV files of one data source, classifies every row as
new or existing against the database, and persists the result in one
transaction. Processed files are moved into a success/ subdirectory.`,
}

var importFacilityCmd = &cobra.Command{
	Use:   "facility",
	Short: "Import facilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(string(models.SourceFacility), reconcile.FacilityPlan(),
			func(tx *store.Store) (*tabular.Batch, map[string]*tabular.Batch, error) {
				return tx.ImportTables(models.SourceFacility)
			},
			func(tx *store.Store, res *reconcile.Result) error {
				return tx.ApplyFacilities(res.Insert, res.Update)
			})
	},
}

var importProductCmd = &cobra.Command{
	Use:   "product",
	Short: "Import products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport("product", reconcile.ProductPlan(),
			func(tx *store.Store) (*tabular.Batch, map[string]*tabular.Batch, error) {
				mapping, err := tx.ProductMapping()
				return mapping, nil, err
			},
			func(tx *store.Store, res *reconcile.Result) error {
				return tx.ApplyProducts(res.Insert, res.Update)
			})
	},
}

var importContractCmd = &cobra.Command{
	Use:   "facility-contract",
	Short: "Import facility contracts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(string(models.SourceFacilityContract), reconcile.FacilityContractPlan(),
			func(tx *store.Store) (*tabular.Batch, map[string]*tabular.Batch, error) {
				return tx.ImportTables(models.SourceFacilityContract)
			},
			func(tx *store.Store, res *reconcile.Result) error {
				return tx.ApplyFacilityContracts(res.Insert, res.Update)
			})
	},
}

var importMeterDataCmd = &cobra.Command{
	Use:   "meter-data <source>",
	Short: "Import monthly meter data for one source",
	Long: "Import monthly meter data. Valid sources:\n\n" +
		meterSourceList(),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, ok := models.ParseDataSource(args[0])
		if !ok || !src.IsMeterData() {
			return errs.ConfigurationError(errs.CodeInvalidConfig, "source", args[0], nil).
				WithDetail("Valid sources:\n" + meterSourceList())
		}
		return runImport(string(src), reconcile.SerieValuePlan(),
			func(tx *store.Store) (*tabular.Batch, map[string]*tabular.Batch, error) {
				return tx.ImportTables(src)
			},
			func(tx *store.Store, res *reconcile.Result) error {
				return tx.ApplySerieValues(res.Insert, res.Update)
			})
	},
}

func meterSourceList() string {
	var s string
	for _, src := range models.MeterDataSources() {
		s += "  " + string(src) + "\n"
	}
	return s
}

type loadTablesFunc func(tx *store.Store) (*tabular.Batch, map[string]*tabular.Batch, error)
type applyFunc func(tx *store.Store, res *reconcile.Result) error

// runImport is the shared import pipeline: list files, parse, classify inside
// one transaction, persist, archive the files and render the report.
func runImport(source string, plan reconcile.Plan, load loadTablesFunc, apply applyFunc) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	renderer := display.NewRenderer(os.Stdout, cfg.DisplayOptions())

	dir := importDirFlag
	if dir == "" {
		dir = filepath.Join(cfg.ImportDir, source)
	}
	files, err := fileops.ListImportFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errs.FileError(errs.CodeEmptyImport, dir, nil)
	}

	batch, err := parsers.NewParser(plan.Contract, cfg.ParserConfig()).ParseFiles(files)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	if err := st.Migrate(); err != nil {
		return err
	}

	var res *reconcile.Result
	txErr := st.WithTx(func(tx *store.Store) error {
		mapping, lookups, err := load(tx)
		if err != nil {
			return err
		}
		res = reconcile.Run(batch, reconcile.Tables{Mapping: mapping, Lookups: lookups}, plan,
			&validate.Config{KeepLast: cfg.KeepLast})
		if !res.Outcome.OK {
			return res.Outcome.Err
		}
		return apply(tx, res)
	})
	if txErr != nil {
		if res != nil && !res.Outcome.OK {
			if err := renderer.Import(source, res, nil); err != nil {
				return err
			}
			return reported(res.Outcome.Err)
		}
		return txErr
	}

	moved, err := fileops.MoveToSuccess(files, time.Now())
	if err != nil {
		// The import is committed; a failed archive must not look like a
		// failed import.
		fmt.Fprintf(os.Stderr, "Warning: could not archive import files: %v\n", err)
	}
	return renderer.Import(source, res, moved)
}

func init() {
	importCmd.PersistentFlags().StringVar(&importDirFlag, "dir", "",
		"import directory (default <import_dir>/<source>)")
	importCmd.AddCommand(importFacilityCmd, importProductCmd, importContractCmd, importMeterDataCmd)
	rootCmd.AddCommand(importCmd)
}

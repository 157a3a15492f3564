package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"tariffant/cmd/tariffant/config"
	"tariffant/internal/custgroup"
	"tariffant/internal/display"
	"tariffant/internal/models"
	"tariffant/internal/store"
)

var intervalFlag string

var customerGroupCmd = &cobra.Command{
	Use:   "customer-group",
	Short: "Manage customer group mappings",
}

var mapFacilitiesCmd = &cobra.Command{
	Use:   "map-facilities",
	Short: "Map facility contracts onto customer groups for an interval",
	Long: `Map-facilities assigns every facility contract in the interval to exactly
one customer group by evaluating the group predicates. The interval is
closed-open and both endpoints must be first-of-month dates, e.g.
--interval 2025-11-01..2025-12-01.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMapFacilities(intervalFlag)
	},
}

func runMapFacilities(expr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	interval, err := models.ParseInterval(expr)
	if err != nil {
		return err
	}
	renderer := display.NewRenderer(os.Stdout, cfg.DisplayOptions())

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	if err := st.Migrate(); err != nil {
		return err
	}

	var report *custgroup.Report
	txErr := st.WithTx(func(tx *store.Store) error {
		groups, err := tx.LoadCustomerGroups()
		if err != nil {
			return err
		}
		contracts, err := tx.LoadFacilityContracts(interval)
		if err != nil {
			return err
		}
		existing, err := tx.LoadLinks(interval)
		if err != nil {
			return err
		}

		report = custgroup.New().Run(custgroup.Inputs{
			Groups:    groups,
			Contracts: contracts,
			Existing:  existing,
		}, interval)
		if !report.Outcome.OK {
			return report.Outcome.Err
		}
		return tx.ApplyLinks(report.Insert, report.Update)
	})
	if txErr != nil {
		if report != nil && !report.Outcome.OK {
			if err := renderer.Mapping(report); err != nil {
				return err
			}
			return reported(report.Outcome.Err)
		}
		return txErr
	}
	return renderer.Mapping(report)
}

func init() {
	mapFacilitiesCmd.Flags().StringVar(&intervalFlag, "interval", "",
		"closed-open month interval, START..END")
	mapFacilitiesCmd.MarkFlagRequired("interval")
	customerGroupCmd.AddCommand(mapFacilitiesCmd)
	rootCmd.AddCommand(customerGroupCmd)
}

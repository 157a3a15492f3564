package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tariffant/cmd/tariffant/config"
	"tariffant/internal/store"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database schema and seed the reference tables",
	Long: `Initdb creates or migrates the database schema and seeds the reference
tables: facility types, serie types and calculation strategies. It is safe to
run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
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
		if err := st.Seed(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database initialized at %s\n", cfg.DatabasePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}

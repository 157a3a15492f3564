package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tariffant/cmd/tariffant/config"
	"tariffant/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tariffant",
	Short: "Electricity grid tariff data management tool",
	Long: `Tariffant manages the tariff data of an electricity grid operator. It
imports facilities, products, facility contracts and monthly meter data from
CSV exports, classifies every row as new or existing against the database,
and maps facility contracts onto customer groups.

Examples:
  tariffant initdb
  tariffant import facility
  tariffant import meter-data active_energy_cons
  tariffant customer-group map-facilities --interval 2025-11-01..2025-12-01
  tariffant version`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       getVersionString(),
}

// Execute adds all child commands to the root command and runs it. Called by
// main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in the config file and matching environment variables.
func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(2)
		}
	}

	viper.SetEnvPrefix("TARIFFANT")
	viper.AutomaticEnv()

	if viper.GetBool("verbose") {
		viper.Set("log.level", string(logger.DebugLevel))
	}
	initLogger()
}

func initLogger() {
	cfg := &logger.Config{
		Level:  logger.Level(viper.GetString("log.level")),
		Format: logger.Format(viper.GetString("log.format")),
		File:   viper.GetString("log.file"),
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %s\n", err)
		os.Exit(2)
	}
	logger.SetGlobalLogger(log)
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "tariffant "+getVersionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Package config loads the CLI configuration from file, environment and
// flags through viper.
package config

import (
	"github.com/spf13/viper"

	"tariffant/internal/display"
	"tariffant/internal/parsers"
	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

// Config is the resolved runtime configuration of the CLI.
type Config struct {
	// DatabasePath is the sqlite database file.
	DatabasePath string `mapstructure:"database"`
	// ImportDir is the root directory import files are read from; each
	// data source reads its own subdirectory under it.
	ImportDir string `mapstructure:"import_dir"`
	// OutputFormat is console or json.
	OutputFormat string `mapstructure:"output_format"`
	// KeepLast inverts the duplicate policy of imports: the last
	// occurrence of a repeated natural key wins instead of the first.
	KeepLast bool `mapstructure:"keep_last"`
	// DateFormat is the layout of date cells in import files.
	DateFormat string `mapstructure:"date_format"`
	// MaxRejectRows caps the reject table in console output; zero shows
	// all rows.
	MaxRejectRows int `mapstructure:"max_reject_rows"`

	Log logger.Config `mapstructure:"log"`
}

// SetDefaults registers the configuration defaults on viper.
func SetDefaults() {
	viper.SetDefault("database", "tariffant.db")
	viper.SetDefault("import_dir", "import")
	viper.SetDefault("output_format", string(display.FormatConsole))
	viper.SetDefault("keep_last", false)
	viper.SetDefault("date_format", "2006-01-02")
	viper.SetDefault("max_reject_rows", 50)
	viper.SetDefault("log.level", string(logger.InfoLevel))
	viper.SetDefault("log.format", string(logger.TextFormat))
}

// Load resolves the configuration from viper's current state.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errs.ConfigurationError(errs.CodeInvalidConfig, "config", viper.ConfigFileUsed(), err)
	}
	if !display.OutputFormat(cfg.OutputFormat).IsValid() {
		return nil, errs.ConfigurationError(errs.CodeInvalidConfig, "output_format", cfg.OutputFormat, nil)
	}
	return &cfg, nil
}

// ParserConfig builds the CSV parser configuration.
func (c *Config) ParserConfig() *parsers.ParseConfig {
	pc := parsers.DefaultParseConfig()
	pc.DateFormat = c.DateFormat
	return pc
}

// DisplayOptions builds the rendering options.
func (c *Config) DisplayOptions() *display.Options {
	return &display.Options{
		Format:          display.OutputFormat(c.OutputFormat),
		MaxRows:         c.MaxRejectRows,
		ShowSuggestions: true,
	}
}

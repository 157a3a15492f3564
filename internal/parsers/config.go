package parsers

// ParseConfig holds configuration for CSV parsing.
type ParseConfig struct {
	Delimiter        rune
	Comment          rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	// DateFormat is the layout of date cells, in Go reference time form.
	DateFormat string
	// Aliases maps alternative header names onto contract column names, so
	// exports from systems with their own vocabulary parse without
	// preprocessing.
	Aliases map[string]string
}

// DefaultParseConfig returns a configuration with sensible defaults.
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:        ',',
		Comment:          0,
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		DateFormat:       "2006-01-02",
	}
}

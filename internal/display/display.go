// Package display renders import and mapping results for the operator.
//
// Two formats are supported: console output for terminal use and JSON for
// programmatic consumption. Failed runs render the offending rows as a table
// so the operator can locate them in the source files without re-running
// with extra flags.
package display

import (
	"encoding/json"
	"fmt"
	"io"

	"tariffant/internal/custgroup"
	"tariffant/internal/reconcile"
)

// OutputFormat names a supported rendering format.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	return f == FormatConsole || f == FormatJSON
}

// Options tunes the rendering.
type Options struct {
	Format OutputFormat
	// MaxRows caps the rows shown in a reject table; zero means all.
	MaxRows int
	// ShowSuggestions adds the error's remediation hint to console output.
	ShowSuggestions bool
}

// DefaultOptions returns console rendering with suggestions.
func DefaultOptions() *Options {
	return &Options{Format: FormatConsole, ShowSuggestions: true}
}

// Renderer writes reports to one output stream.
type Renderer struct {
	w    io.Writer
	opts *Options
}

// NewRenderer creates a renderer. Nil options mean defaults.
func NewRenderer(w io.Writer, opts *Options) *Renderer {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Renderer{w: w, opts: opts}
}

type importReport struct {
	Entity     string   `json:"entity"`
	OK         bool     `json:"ok"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Inserted   int      `json:"inserted"`
	Updated    int      `json:"updated"`
	Rejected   int      `json:"rejected"`
	Keys       []string `json:"keys,omitempty"`
	Rejects    []row    `json:"rejects,omitempty"`
	MovedFiles []string `json:"moved_files,omitempty"`
}

type row map[string]string

// Import renders the result of one import run. movedFiles lists the archived
// source files and is only set on success.
func (r *Renderer) Import(entity string, res *reconcile.Result, movedFiles []string) error {
	rep := importReport{
		Entity:     entity,
		OK:         res.Outcome.OK,
		Message:    res.Outcome.Message,
		Detail:     res.Outcome.Detail,
		MovedFiles: movedFiles,
	}
	if res.Insert != nil {
		rep.Inserted = res.Insert.NumRows()
	}
	if res.Update != nil {
		rep.Updated = res.Update.NumRows()
	}
	if res.Reject != nil {
		rep.Rejected = res.Reject.NumRows()
		rep.Rejects = batchRows(res.Reject, r.opts.MaxRows)
	}
	if res.Outcome.Err != nil {
		rep.Suggestion = res.Outcome.Err.Suggestion
		rep.Keys = res.Outcome.Keys()
	}

	if r.opts.Format == FormatJSON {
		return r.renderJSON(rep)
	}
	return r.renderImportConsole(rep, res)
}

func (r *Renderer) renderImportConsole(rep importReport, res *reconcile.Result) error {
	fmt.Fprintln(r.w, rep.Message)
	if rep.Detail != "" {
		fmt.Fprintln(r.w, rep.Detail)
	}
	if res.Reject != nil && res.Reject.NumRows() > 0 {
		fmt.Fprintln(r.w)
		renderTable(r.w, res.Reject, r.opts.MaxRows)
	} else if len(rep.Keys) > 0 {
		renderKeys(r.w, rep.Keys, r.opts.MaxRows)
	}
	if r.opts.ShowSuggestions && rep.Suggestion != "" {
		fmt.Fprintf(r.w, "\nSuggestion: %s\n", rep.Suggestion)
	}
	if len(rep.MovedFiles) > 0 {
		fmt.Fprintln(r.w, "Processed files:")
		for i, f := range rep.MovedFiles {
			fmt.Fprintf(r.w, "  %d. %s\n", i+1, f)
		}
	}
	return nil
}

type mappingReport struct {
	State      string   `json:"state"`
	OK         bool     `json:"ok"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Unmapped   []int64  `json:"unmapped_facility_ids,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	Inserted   int      `json:"inserted"`
	Updated    int      `json:"updated"`
}

// Mapping renders the result of a customer-group mapping run.
func (r *Renderer) Mapping(report *custgroup.Report) error {
	rep := mappingReport{
		State:    string(report.State),
		OK:       report.Outcome.OK,
		Message:  report.Outcome.Message,
		Warnings: report.Warnings,
		Unmapped: report.Unmapped,
		Inserted: len(report.Insert),
		Updated:  len(report.Update),
	}
	if report.Outcome.Err != nil {
		rep.Suggestion = report.Outcome.Err.Suggestion
		rep.Keys = report.Outcome.Keys()
	}

	if r.opts.Format == FormatJSON {
		return r.renderJSON(rep)
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(r.w, "Warning: %s\n", w)
	}
	if len(report.Unmapped) > 0 {
		fmt.Fprintf(r.w, "Unmapped facility_ids: %s\n", joinInt64(report.Unmapped))
	}
	fmt.Fprintln(r.w, rep.Message)
	if len(rep.Keys) > 0 {
		renderKeys(r.w, rep.Keys, r.opts.MaxRows)
	}
	if r.opts.ShowSuggestions && rep.Suggestion != "" {
		fmt.Fprintf(r.w, "\nSuggestion: %s\n", rep.Suggestion)
	}
	return nil
}

func (r *Renderer) renderJSON(v interface{}) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

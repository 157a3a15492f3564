// Package parsers reads import CSV files into typed record batches.
//
// A parser is bound to one schema contract: header names are matched against
// the contract's columns (case-insensitive, with optional aliases) and each
// cell is parsed to the column's kind. Columns the contract does not know
// are carried along as text so structural validation can report exactly what
// the file contained. Cell-level failures are reported with file, line and
// column so the operator can fix the source instead of guessing.
package parsers

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

// Parser reads CSV files for one record kind.
type Parser struct {
	contract tabular.Contract
	config   *ParseConfig
	logger   logger.Logger
}

// NewParser creates a parser bound to a schema contract.
func NewParser(contract tabular.Contract, config *ParseConfig) *Parser {
	if config == nil {
		config = DefaultParseConfig()
	}
	log := logger.GetGlobalLogger().WithComponent("parser").
		WithField("entity", contract.Entity)
	return &Parser{contract: contract, config: config, logger: log}
}

// ParseFile reads one CSV file into a typed batch.
func (p *Parser) ParseFile(path string) (*tabular.Batch, error) {
	p.logger.WithField("file_path", path).Debug("opening import file")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.FileError(errs.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errs.FileError(errs.CodeFilePermission, path, err)
		}
		return nil, errs.FileError(errs.CodeDirectoryError, path, err)
	}
	defer file.Close()

	return p.Parse(file, path)
}

// Parse reads CSV content into a typed batch. The name is used in error
// reports only.
func (p *Parser) Parse(r io.Reader, name string) (*tabular.Batch, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.config.Delimiter
	reader.Comment = p.config.Comment
	reader.TrimLeadingSpace = p.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errs.FileError(errs.CodeEmptyImport, name, nil)
	}
	if err != nil {
		return nil, errs.ParseError(errs.CodeInvalidFormat, name, 1, "", "", err)
	}

	cols := p.headerColumns(header)
	batch := tabular.NewBatch(cols...)

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errs.ParseError(errs.CodeInvalidFormat, name, line, "", "", err)
		}
		if p.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		if len(record) != len(cols) {
			return nil, errs.ParseError(errs.CodeInvalidFormat, name, line, "", "", nil).
				WithDetail("row has a different number of cells than the header")
		}

		values := make([]tabular.Value, len(cols))
		for i, col := range cols {
			v, err := p.parseCell(record[i], col.Type)
			if err != nil {
				return nil, errs.ParseError(errs.CodeInvalidData, name, line, col.Name,
					record[i], err)
			}
			values[i] = v
		}
		if err := batch.AppendRow(values...); err != nil {
			return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "batch append failed")
		}
	}

	if batch.NumRows() == 0 {
		return nil, errs.FileError(errs.CodeEmptyImport, name, nil)
	}
	p.logger.WithFields(logger.Fields{"file_path": name, "rows": batch.NumRows()}).
		Debug("import file parsed")
	return batch, nil
}

// ParseFiles reads several CSV files into one batch. Every file must carry
// the same header as the first; an import directory mixing layouts is a
// structural problem the operator has to resolve.
func (p *Parser) ParseFiles(paths []string) (*tabular.Batch, error) {
	if len(paths) == 0 {
		return nil, errs.New(errs.CategoryFile, errs.CodeEmptyImport, "no data to import")
	}

	var combined *tabular.Batch
	for _, path := range paths {
		batch, err := p.ParseFile(path)
		if err != nil {
			return nil, err
		}
		if combined == nil {
			combined = batch
			continue
		}
		if !sameColumns(combined.Columns(), batch.Columns()) {
			return nil, errs.ParseError(errs.CodeInvalidFormat, path, 1, "", "", nil).
				WithDetail("file header differs from the other import files")
		}
		for row := 0; row < batch.NumRows(); row++ {
			if err := combined.AppendRow(batch.Row(row)...); err != nil {
				return nil, errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "batch append failed")
			}
		}
	}
	return combined, nil
}

func sameColumns(a, b []tabular.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// headerColumns maps header names to typed columns. Names the contract knows
// get the contract's kind; everything else stays text.
func (p *Parser) headerColumns(header []string) []tabular.Column {
	cols := make([]tabular.Column, len(header))
	for i, raw := range header {
		name := p.canonicalName(raw)
		if spec, ok := p.contract.Column(name); ok {
			cols[i] = tabular.Column{Name: spec.Name, Type: spec.Type}
			continue
		}
		cols[i] = tabular.Column{Name: name, Type: tabular.KindString}
	}
	return cols
}

func (p *Parser) canonicalName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := p.config.Aliases[name]; ok {
		return alias
	}
	return name
}

func (p *Parser) parseCell(cell string, kind tabular.Kind) (tabular.Value, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return tabular.Null(kind), nil
	}
	switch kind {
	case tabular.KindInt:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return tabular.Value{}, err
		}
		return tabular.Int(n), nil
	case tabular.KindUint:
		return tabular.ParseUint(cell)
	case tabular.KindDate:
		t, err := time.ParseInLocation(p.config.DateFormat, cell, time.UTC)
		if err != nil {
			return tabular.Value{}, err
		}
		return tabular.Date(t), nil
	case tabular.KindDecimal:
		d, err := decimal.NewFromString(cell)
		if err != nil {
			return tabular.Value{}, err
		}
		return tabular.Decimal(d), nil
	case tabular.KindBool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return tabular.Value{}, err
		}
		return tabular.Bool(b), nil
	default:
		return tabular.String(cell), nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Package errors defines the error taxonomy of the tariff analyzer.
//
// Every failure the application reports to an operator is a *TariffError
// carrying a category, a machine-friendly code, an operator-safe message and
// optional structured context (offending natural keys, column sets, counts).
// The CLI layer maps categories to process exit codes; the core packages only
// construct and return these errors, they never decide how to render them.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by how the batch run must react to them.
type ErrorCategory string

const (
	// CategoryStructural marks required columns absent from a batch.
	// Always aborts the whole batch, never partially processed.
	CategoryStructural ErrorCategory = "structural"
	// CategoryDataQuality marks missing required values, duplicate natural
	// keys, unresolved required foreign keys and ambiguous group matches.
	CategoryDataQuality ErrorCategory = "data_quality"
	// CategoryReferential marks recorded-but-not-fatal findings such as
	// facility contracts that match no customer group.
	CategoryReferential ErrorCategory = "referential"
	// CategoryFile marks filesystem problems around import directories.
	CategoryFile ErrorCategory = "file"
	// CategoryParse marks malformed import file content.
	CategoryParse ErrorCategory = "parse"
	// CategoryConfiguration marks invalid or missing configuration.
	CategoryConfiguration ErrorCategory = "configuration"
	// CategoryStorage marks database failures.
	CategoryStorage ErrorCategory = "storage"
	// CategoryInternal marks bugs and unexpected conditions.
	CategoryInternal ErrorCategory = "internal"
)

// ErrorCode identifies the specific failure within a category.
type ErrorCode string

const (
	// Structural errors
	CodeMissingColumns ErrorCode = "missing_columns"

	// Data quality errors
	CodeMissingValues       ErrorCode = "missing_values"
	CodeDuplicateRows       ErrorCode = "duplicate_rows"
	CodeNotMonthStart       ErrorCode = "not_month_start"
	CodeUnresolvedReference ErrorCode = "unresolved_reference"
	CodeDuplicateMappingKey ErrorCode = "duplicate_mapping_key"
	CodeNoCustomerGroups    ErrorCode = "no_customer_groups"
	CodeNoFacilityContracts ErrorCode = "no_facility_contracts"
	CodeValueOverflow       ErrorCode = "value_overflow"

	// Referential warnings
	CodeUnmappedContracts    ErrorCode = "unmapped_contracts"
	CodeMissingStrategyParam ErrorCode = "missing_strategy_param"

	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeDirectoryError ErrorCode = "directory_error"
	CodeEmptyImport    ErrorCode = "empty_import"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeEncodingError ErrorCode = "encoding_error"

	// Configuration errors
	CodeInvalidConfig   ErrorCode = "invalid_config"
	CodeMissingConfig   ErrorCode = "missing_config"
	CodeInvalidInterval ErrorCode = "invalid_interval"

	// Storage errors
	CodeQueryFailed ErrorCode = "query_failed"
	CodeWriteFailed ErrorCode = "write_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// Context carries structured diagnostic data alongside an error, for example
// the natural keys of the offending rows or the missing column set.
type Context map[string]interface{}

// TariffError is the error type returned by all packages of the application.
type TariffError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Detail     string            `json:"detail,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface.
func (e *TariffError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *TariffError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit code for the error: 1 for structural and
// data failures, 2 for configuration or usage problems.
func (e *TariffError) ExitCode() int {
	switch e.Category {
	case CategoryConfiguration:
		return 2
	default:
		return 1
	}
}

// WithContext attaches a structured context value to the error.
func (e *TariffError) WithContext(key string, value interface{}) *TariffError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithDetail attaches a longer diagnostic message. The detail may contain row
// dumps and is only shown on request, never in the one-line summary.
func (e *TariffError) WithDetail(detail string) *TariffError {
	e.Detail = detail
	return e
}

// WithSuggestion attaches a hint for fixing the error.
func (e *TariffError) WithSuggestion(suggestion string) *TariffError {
	e.Suggestion = suggestion
	return e
}

// Keys returns the natural-key values recorded for the offending rows, if any.
func (e *TariffError) Keys() []string {
	if e.Context == nil {
		return nil
	}
	if keys, ok := e.Context["keys"].([]string); ok {
		return keys
	}
	return nil
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new TariffError.
func New(category ErrorCategory, code ErrorCode, message string) *TariffError {
	return &TariffError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Newf creates a new TariffError with a formatted message.
func Newf(category ErrorCategory, code ErrorCode, format string, args ...interface{}) *TariffError {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with category and code context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *TariffError {
	if err == nil {
		return nil
	}
	return &TariffError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// AsTariffError extracts a *TariffError from an error chain.
func AsTariffError(err error) (*TariffError, bool) {
	var te *TariffError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// ExitCodeFor returns the exit code for an arbitrary error value.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if te, ok := AsTariffError(err); ok {
		return te.ExitCode()
	}
	return 1
}

// Specific error constructors

// FileError creates a file-related error for the given path.
func FileError(code ErrorCode, path string, err error) *TariffError {
	var message, suggestion string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is accessible"
	case CodeEmptyImport:
		message = fmt.Sprintf("no data to import in: %s", path)
		suggestion = "place at least one non-empty import file in the directory"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *TariffError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("path", path)
}

// ParseError creates an error for malformed import file content.
func ParseError(code ErrorCode, file string, line int, column, value string, err error) *TariffError {
	var message, suggestion string
	switch code {
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s at line %d, column %q: %q", file, line, column, value)
		suggestion = "correct the value or remove the invalid row"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
		suggestion = "ensure the file is saved in UTF-8 encoding"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *TariffError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column)
}

// ConfigurationError creates a configuration-related error.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *TariffError {
	var message, suggestion string
	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for %q: %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting in the config file or environment"
	case CodeInvalidInterval:
		message = fmt.Sprintf("invalid interval %q", value)
		suggestion = "use START..END with first-of-month dates, e.g. 2025-11-01..2025-12-01"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *TariffError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("setting", setting)
}

// StorageError wraps a database failure.
func StorageError(code ErrorCode, operation string, err error) *TariffError {
	message := fmt.Sprintf("database %s failed", operation)
	return Wrap(err, CategoryStorage, code, message).
		WithContext("operation", operation).
		WithSuggestion("check the database file and retry the run")
}

// FormatColumnTuple renders a column set as a sorted quoted tuple, the format
// operators see in structural error output, e.g. ('date_id', 'ean').
func FormatColumnTuple(cols []string) string {
	sorted := make([]string, len(cols))
	copy(sorted, cols)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, c := range sorted {
		quoted[i] = "'" + c + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

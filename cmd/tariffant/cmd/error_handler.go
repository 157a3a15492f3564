package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

// reportedError wraps a failure whose report was already rendered to the
// operator. The handler only maps it to an exit code.
type reportedError struct {
	err *errs.TariffError
}

func (e *reportedError) Error() string { return e.err.Message }

func (e *reportedError) Unwrap() error { return e.err }

func reported(err *errs.TariffError) error { return &reportedError{err: err} }

// ErrorHandler maps command failures to operator messages and exit codes:
// 0 for success, 1 for data problems, 2 for configuration and usage problems.
type ErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewErrorHandler creates an error handler for the CLI.
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// Handle prints the error (unless it was already rendered) and returns the
// process exit code.
func (h *ErrorHandler) Handle(err error) int {
	if err == nil {
		return 0
	}

	if re, ok := err.(*reportedError); ok {
		h.logger.WithError(re.err).Debug("command failed with rendered report")
		return re.err.ExitCode()
	}

	h.logger.WithError(err).Error("command failed")

	te, ok := errs.AsTariffError(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", te.Message)
	if te.Detail != "" {
		fmt.Fprintln(os.Stderr, te.Detail)
	}
	if te.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", te.Suggestion)
	}
	if h.verbose && te.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", te.Cause)
	}
	return te.ExitCode()
}

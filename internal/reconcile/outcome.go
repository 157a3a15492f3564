package reconcile

import (
	errs "tariffant/pkg/errors"
)

// Outcome is the structured result of a batch operation, safe to hand to the
// CLI layer for rendering: a success flag, a short operator-safe message, an
// optional longer diagnostic detail and the underlying error for exit-code
// selection.
type Outcome struct {
	OK      bool
	Message string
	Detail  string
	Err     *errs.TariffError
}

// Success creates a successful outcome with an operator message.
func Success(message string) Outcome {
	return Outcome{OK: true, Message: message}
}

// Failure creates a failed outcome from a domain error.
func Failure(err *errs.TariffError) Outcome {
	return Outcome{OK: false, Message: err.Message, Detail: err.Detail, Err: err}
}

// Keys returns the natural-key values of the offending rows, if the outcome
// failed with row-level diagnostics.
func (o Outcome) Keys() []string {
	if o.Err == nil {
		return nil
	}
	return o.Err.Keys()
}

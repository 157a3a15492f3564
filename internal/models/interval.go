package models

import (
	"fmt"
	"strings"
	"time"

	errs "tariffant/pkg/errors"
)

// Interval is a closed-open [Start, End) date interval of whole months.
// Both endpoints are first-of-month dates and Start is before End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// ParseInterval parses an interval expression of the form
// "2025-11-01..2025-12-01". Both endpoints must be the first calendar day of
// a month and the start must precede the end.
func ParseInterval(expr string) (Interval, error) {
	parts := strings.Split(expr, "..")
	if len(parts) != 2 {
		return Interval{}, errs.ConfigurationError(errs.CodeInvalidInterval, "interval", expr, nil)
	}

	start, err := time.Parse("2006-01-02", strings.TrimSpace(parts[0]))
	if err != nil {
		return Interval{}, errs.ConfigurationError(errs.CodeInvalidInterval, "interval", expr, err)
	}
	end, err := time.Parse("2006-01-02", strings.TrimSpace(parts[1]))
	if err != nil {
		return Interval{}, errs.ConfigurationError(errs.CodeInvalidInterval, "interval", expr, err)
	}

	if start.Day() != 1 || end.Day() != 1 {
		return Interval{}, errs.ConfigurationError(errs.CodeInvalidInterval, "interval", expr,
			fmt.Errorf("both endpoints must be the first day of a month"))
	}
	if !start.Before(end) {
		return Interval{}, errs.ConfigurationError(errs.CodeInvalidInterval, "interval", expr,
			fmt.Errorf("start must be before end"))
	}

	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Contains reports whether the date falls inside the interval.
func (iv Interval) Contains(date time.Time) bool {
	return !date.Before(iv.Start) && date.Before(iv.End)
}

// Months returns the first-of-month dates covered by the interval.
func (iv Interval) Months() []time.Time {
	var months []time.Time
	for m := iv.Start; m.Before(iv.End); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// String renders the interval the way operator messages state it,
// e.g. "2025-11-01 - 2025-12-01".
func (iv Interval) String() string {
	return iv.Start.Format("2006-01-02") + " - " + iv.End.Format("2006-01-02")
}

// Package tabular implements the typed record batches the import pipeline
// operates on.
//
// A Batch is an ordered collection of rows sharing one column set, standing in
// for an import file or a database query result. Cells are typed Values; a
// Contract declares which columns a record kind must expose and which of them
// are required for reconciliation. The package owns no I/O: parsers and the
// store produce batches, the validator and key mapper consume them.
package tabular

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	errs "tariffant/pkg/errors"
)

// Kind enumerates the scalar types a cell can hold.
type Kind int

const (
	KindInt Kind = iota + 1
	KindUint
	KindString
	KindDate
	KindDecimal
	KindBool
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a typed scalar cell. The zero Value is a null of no particular
// kind; typed nulls are created with Null.
type Value struct {
	kind Kind
	null bool

	i int64
	u uint64
	s string
	t time.Time
	d decimal.Decimal
	b bool
}

// Int creates an integer value. Used for surrogate keys.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Uint creates an unsigned integer value. Used for EAN codes, which occupy
// the full 64-bit unsigned range.
func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }

// String creates a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Date creates a date value. The time-of-day part is truncated.
func Date(v time.Time) Value {
	return Value{kind: KindDate, t: time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
}

// Decimal creates a decimal value.
func Decimal(v decimal.Decimal) Value { return Value{kind: KindDecimal, d: v} }

// Bool creates a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Null creates a typed null value.
func Null(kind Kind) Value { return Value{kind: kind, null: true} }

// Kind returns the declared kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null. The zero Value is null.
func (v Value) IsNull() bool { return v.null || v.kind == 0 }

// Int returns the integer payload. Zero when null or of another kind.
func (v Value) Int() int64 { return v.i }

// Uint returns the unsigned integer payload.
func (v Value) Uint() uint64 { return v.u }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Time returns the date payload.
func (v Value) Time() time.Time { return v.t }

// Dec returns the decimal payload.
func (v Value) Dec() decimal.Decimal { return v.d }

// Boolean returns the boolean payload.
func (v Value) Boolean() bool { return v.b }

// String renders the value for operator display.
func (v Value) String() string {
	if v.IsNull() {
		return "<null>"
	}
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindString:
		return v.s
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindDecimal:
		return v.d.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// KeyPart encodes the value for use inside a hash-join key. The encoding is
// canonical: two values encode equal iff they join equal.
func (v Value) KeyPart() string {
	if v.IsNull() {
		return "\x00null"
	}
	switch v.kind {
	case KindInt:
		return "i" + strconv.FormatInt(v.i, 10)
	case KindUint:
		return "u" + strconv.FormatUint(v.u, 10)
	case KindString:
		return "s" + v.s
	case KindDate:
		return "t" + v.t.Format("2006-01-02")
	case KindDecimal:
		return "d" + v.d.String()
	case KindBool:
		return "b" + strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Less orders values of the same kind ascending, with nulls first. Used for
// the deterministic natural-key ordering of mapped batches.
func (v Value) Less(other Value) bool {
	if v.IsNull() != other.IsNull() {
		return v.IsNull()
	}
	if v.IsNull() {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i < other.i
	case KindUint:
		return v.u < other.u
	case KindString:
		return v.s < other.s
	case KindDate:
		return v.t.Before(other.t)
	case KindDecimal:
		return v.d.LessThan(other.d)
	case KindBool:
		return !v.b && other.b
	default:
		return false
	}
}

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.IsNull() || other.IsNull() {
		return v.IsNull() && other.IsNull()
	}
	switch v.kind {
	case KindDecimal:
		return v.d.Equal(other.d)
	case KindDate:
		return v.t.Equal(other.t)
	default:
		return v == other
	}
}

// ParseUint parses an unsigned 64-bit natural key such as an EAN code.
// Overflow and malformed input fail loudly instead of truncating.
func ParseUint(s string) (Value, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Value{}, errs.Newf(errs.CategoryDataQuality, errs.CodeValueOverflow,
			"value %q does not fit a 64-bit unsigned natural key", s)
	}
	return Uint(u), nil
}

// Package xdecimal is the exact-arithmetic type every price and quantity in
// the matching core flows through. Floating point is forbidden on the hot
// path (spec §4.1); this package exists so nobody has to import
// shopspring/decimal directly and re-derive the quantisation rule at every
// call site.
package xdecimal

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
)

// Decimal is an arbitrary-precision, exact, base-10 signed rational. Equality
// is exact, comparison is total, and arithmetic never rounds except where a
// function name says so explicitly (TruncatingQuotient).
type Decimal = decimal.Decimal

// Zero is the distinguished zero value.
func Zero() Decimal { return decimal.Zero }

// FromInt64 builds a Decimal from a whole number.
func FromInt64(v int64) Decimal { return decimal.NewFromInt(v) }

// MustParse parses a decimal literal, panicking on malformed input. Intended
// for constants and tests, never for untrusted input on the wire.
func MustParse(s string) Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse parses a decimal literal from untrusted input (wire messages, config).
func Parse(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

// DefaultScale is the quantisation scale used for market-order quantity
// clamping (spec §4.1) when no instrument-specific scale is configured.
const DefaultScale int32 = 8

// TruncatingQuotient computes num/den truncated toward zero to the given
// scale, per spec §4.1: "division appears only in market-order re-sizing and
// must ... truncate toward zero ... never round up (prevents over-spending
// locked quote)". den must be non-zero; callers are expected to have already
// checked that (matching the spec's "if locked_quote < level_price, stop"
// guard, which runs before any division).
func TruncatingQuotient(num, den Decimal, scale int32) Decimal {
	q, _ := num.QuoRem(den, scale)
	return q
}

// IsPositive reports whether d > 0.
func IsPositive(d Decimal) bool { return d.Sign() > 0 }

// IsNegative reports whether d < 0.
func IsNegative(d Decimal) bool { return d.Sign() < 0 }

// IsPositiveOrZero reports whether d >= 0.
func IsPositiveOrZero(d Decimal) bool { return d.Sign() >= 0 }

// decimal.Decimal satisfies driver.Valuer (and *decimal.Decimal sql.Scanner)
// directly; this var block asserts the Valuer half for readers grepping for
// Scan/Value.
var (
	_ driver.Valuer = decimal.Decimal{}
)

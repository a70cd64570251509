// Package money implements exact fixed-point currency arithmetic.
//
// The corpus this engine was grounded on has no third-party decimal library
// in its dependency graph (no shopspring/decimal, no cockroachdb/apd), so
// amounts are represented as integer cents rather than float64; see
// DESIGN.md for the justification.
package money

import "fmt"

// Cents represents a currency amount as an integer number of cents.
// Zero value is zero dollars.
type Cents int64

// FromDollarsCents builds a Cents value from whole dollars and cents.
func FromDollarsCents(dollars, cents int64) Cents {
	return Cents(dollars*100 + cents)
}

// Zero reports whether the amount is exactly zero.
func (c Cents) Zero() bool { return c == 0 }

// Add returns c + other.
func (c Cents) Add(other Cents) Cents { return c + other }

// Sub returns c - other.
func (c Cents) Sub(other Cents) Cents { return c - other }

// Min returns the smaller of c and other.
func (c Cents) Min(other Cents) Cents {
	if c < other {
		return c
	}
	return other
}

// Max returns the larger of c and other.
func (c Cents) Max(other Cents) Cents {
	if c > other {
		return c
	}
	return other
}

// ClampNonNegative returns c, or zero if c is negative. Every handler that
// decrements a remaining balance must route the result through this before
// storing it back into the context (§3 invariant: remaining >= 0 always).
func (c Cents) ClampNonNegative() Cents {
	if c < 0 {
		return 0
	}
	return c
}

// LessEq reports whether c <= other.
func (c Cents) LessEq(other Cents) bool { return c <= other }

// String renders the amount as "$NNN.NN".
func (c Cents) String() string {
	neg := ""
	v := int64(c)
	if v < 0 {
		neg = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", neg, v/100, v%100)
}

// Percent applies a 0-100 percentage to c and rounds the result to the
// nearest cent using banker's rounding (round-half-to-even), per spec.
//
// amount_cents * pct / 100 is computed in float64, so a half-cent tie is
// recognised only when that quotient is exactly representable.
func (c Cents) Percent(pct float64) Cents {
	// scaled = c * pct, in units of (cent * percent); divide by 100 with
	// banker's rounding to land back on whole cents.
	scaled := float64(c) * pct
	return Cents(roundHalfToEven(scaled / 100))
}

// roundHalfToEven rounds x to the nearest integer, breaking exact .5 ties
// toward the nearest even integer (IEEE 754 "banker's rounding"), as spec.md
// pins for coinsurance computation.
func roundHalfToEven(x float64) int64 {
	floor := float64(int64(x))
	if x < 0 && x != floor {
		floor -= 1
	}
	diff := x - floor
	switch {
	case diff < 0.5:
		return int64(floor)
	case diff > 0.5:
		return int64(floor) + 1
	default:
		// Exact tie: round to even.
		i := int64(floor)
		if i%2 == 0 {
			return i
		}
		return i + 1
	}
}

// OptionalCents models a possibly-absent remaining balance (e.g. an OOP max
// or deductible that the member's plan doesn't track at a given level).
// A nil *OptionalCents and an OptionalCents{Valid: false} both mean "absent".
type OptionalCents struct {
	Value Cents
	Valid bool
}

// Some wraps a present value.
func Some(v Cents) OptionalCents { return OptionalCents{Value: v, Valid: true} }

// None represents an absent value.
func None() OptionalCents { return OptionalCents{} }

// MinOptional returns the defined minimum of a and b, nil-aware: if exactly
// one is defined, that one wins; if both are absent, the result is absent.
func MinOptional(a, b OptionalCents) OptionalCents {
	switch {
	case !a.Valid && !b.Valid:
		return None()
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	default:
		return Some(a.Value.Min(b.Value))
	}
}

// LessEqZero reports whether the value is defined and <= 0. An absent value
// is never "<= 0" (nil is not "met"), per spec.md's nil-aware comparison rule.
func (o OptionalCents) LessEqZero() bool {
	return o.Valid && o.Value <= 0
}

// GreaterZero reports whether the value is defined and > 0.
func (o OptionalCents) GreaterZero() bool {
	return o.Valid && o.Value > 0
}

// ClampNonNegative clamps the wrapped value if present; absent values pass through.
func (o OptionalCents) ClampNonNegative() OptionalCents {
	if !o.Valid {
		return o
	}
	return Some(o.Value.ClampNonNegative())
}

// Sub subtracts amt from the wrapped value if present, clamping at zero;
// absent values pass through unchanged (an absent accumulator is never
// decremented because there's nothing to track).
func (o OptionalCents) Sub(amt Cents) OptionalCents {
	if !o.Valid {
		return o
	}
	return Some(o.Value.Sub(amt).ClampNonNegative())
}

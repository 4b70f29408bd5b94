// Package fixedpoint wraps github.com/holiman/uint256 with the checked
// mul-div helpers the vault's accounting needs: every intermediate product in
// the settlement engine's math must be computed without silently wrapping,
// and every division truncates toward zero (§3, Design Notes).
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// PricePrecision and Precision are the two fixed-point scales used
// throughout the engine (§3).
var (
	PricePrecision = uint256.MustFromDecimal("1000000000000000000") // 10^18
	Precision      = uint256.NewInt(1_000_000)                      // 10^6
)

// ErrOverflow is returned by any helper whose intermediate result would not
// fit in 256 bits.
var ErrOverflow = errors.New("fixedpoint: arithmetic overflow")

// ErrDivByZero guards division by a zero divisor.
var ErrDivByZero = errors.New("fixedpoint: division by zero")

// Zero returns a fresh zero-valued Int; callers must never share the result.
func Zero() *uint256.Int { return new(uint256.Int) }

// New builds a *uint256.Int from a non-negative uint64, for literals in call
// sites and tests.
func New(v uint64) *uint256.Int { return new(uint256.Int).SetUint64(v) }

// Add returns a+b, erroring on overflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Sub returns a-b, erroring on underflow (uint256 has no negative range).
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Mul returns a*b, erroring on overflow. Used where no division follows, so
// MulDiv's wide intermediate isn't needed.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// MulDiv computes floor(a*b/c) with a 512-bit intermediate product,
// truncating toward zero, exactly the "classical pattern" the spec's Design
// Notes call for (`(a × b) / c` with wide intermediate). Every scaled
// multiplication in the vault (fees, funding, entry-price averaging) goes
// through this.
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, ErrDivByZero
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	quotient := new(big.Int).Quo(product, c.ToBig()) // Quo truncates toward zero
	out, overflow := uint256.FromBig(quotient)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// MulPrecision computes floor(a*b/PRECISION) — the basis-point-style scale
// used for fee and funding factors.
func MulPrecision(a, b *uint256.Int) (*uint256.Int, error) {
	return MulDiv(a, b, Precision)
}

// AbsDiff returns |a-b| — never errors, since subtraction in either
// direction is always representable once the smaller is chosen.
func AbsDiff(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Sub(b, a)
	}
	return new(uint256.Int).Sub(a, b)
}

// Gt, Lt, Gte, Lte, Eq are thin, readable wrappers over uint256's Cmp-style
// comparisons, used throughout the vault invariant checks.
func Gt(a, b *uint256.Int) bool  { return a.Gt(b) }
func Lt(a, b *uint256.Int) bool  { return a.Lt(b) }
func Gte(a, b *uint256.Int) bool { return !a.Lt(b) }
func Lte(a, b *uint256.Int) bool { return !a.Gt(b) }
func Eq(a, b *uint256.Int) bool  { return a.Eq(b) }

// IsZero reports whether v is the zero value (including a nil pointer,
// which is treated as zero so callers need not nil-check optional deltas).
func IsZero(v *uint256.Int) bool {
	return v == nil || v.IsZero()
}

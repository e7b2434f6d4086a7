// Package fixedmath implements checked fixed-point arithmetic on 128-bit
// unsigned amounts. Amounts are carried in uint256.Int values so that every
// product has a native double-width intermediate; a 128-bit cap is enforced
// after each operation and violations surface as ErrArithmeticOverflow.
// No floating point is used anywhere.
package fixedmath

import "github.com/holiman/uint256"

const (
	// BpsScale is the basis-point scale used for growth factors (1.5% = 150).
	BpsScale = 10_000

	// wadExp is the decimal exponent of the internal exponentiation scale.
	// Squaring at basis-point precision would accumulate rounding error of
	// several price units over a hundred steps, so Pow runs at 1e18 and only
	// the final result is rescaled.
	wadExp = 18

	maxBits = 128
)

var (
	bpsScale = uint256.NewInt(BpsScale)
	wad      = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(wadExp))
	two      = uint256.NewInt(2)
)

// U64 wraps a uint64 into an amount.
func U64(v uint64) *uint256.Int { return uint256.NewInt(v) }

// Wad returns the internal fixed-point unit (1e18).
func Wad() *uint256.Int { return wad.Clone() }

// Fits128 reports whether v is inside the 128-bit amount range.
func Fits128(v *uint256.Int) bool { return v.BitLen() <= maxBits }

// Add returns a+b with a 128-bit overflow check.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum := new(uint256.Int).Add(a, b)
	if !Fits128(sum) {
		return nil, ErrArithmeticOverflow
	}
	return sum, nil
}

// Sub returns a-b, failing with ErrArithmeticUnderflow if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Lt(b) {
		return nil, ErrArithmeticUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// MulDiv returns a*b/denom. The product is computed at full 256-bit width so
// it cannot overflow for 128-bit inputs; the quotient must fit 128 bits.
func MulDiv(a, b, denom *uint256.Int) (*uint256.Int, error) {
	if denom.IsZero() {
		return nil, ErrDivisionByZero
	}
	if !Fits128(a) || !Fits128(b) {
		return nil, ErrArithmeticOverflow
	}
	prod := new(uint256.Int).Mul(a, b)
	q := prod.Div(prod, denom)
	if !Fits128(q) {
		return nil, ErrArithmeticOverflow
	}
	return q, nil
}

// GrowthFactorWad converts a per-token growth rate in basis points into the
// wad-scaled factor (1 + rate/10000) * 1e18. The conversion is exact.
func GrowthFactorWad(rateBps uint64) *uint256.Int {
	step := new(uint256.Int).Div(wad, bpsScale) // 1e14, one basis point
	step.Mul(step, uint256.NewInt(rateBps))
	return step.Add(step, wad)
}

// PowWad raises a wad-scaled factor to an integer exponent using iterative
// squaring. Every multiplication is range-checked; the function fails with
// ErrArithmeticOverflow as soon as an intermediate leaves the 128-bit range
// rather than wrapping or saturating.
func PowWad(factorWad *uint256.Int, exp uint64) (*uint256.Int, error) {
	if !Fits128(factorWad) {
		return nil, ErrArithmeticOverflow
	}
	result := wad.Clone()
	base := factorWad.Clone()
	for exp > 0 {
		if exp&1 == 1 {
			result.Mul(result, base)
			result.Div(result, wad)
			if !Fits128(result) {
				return nil, ErrArithmeticOverflow
			}
		}
		exp >>= 1
		if exp > 0 {
			base.Mul(base, base)
			base.Div(base, wad)
			if !Fits128(base) {
				return nil, ErrArithmeticOverflow
			}
		}
	}
	return result, nil
}

// PowBps raises a basis-point factor (10000 = 1.0) to an integer exponent and
// returns the result at basis-point scale, rounded half-up. Exponentiation is
// delegated to PowWad so precision is not lost to repeated bps truncation.
func PowBps(factorBps *uint256.Int, exp uint64) (*uint256.Int, error) {
	factorWad, err := MulDiv(factorBps, wad, bpsScale)
	if err != nil {
		return nil, err
	}
	r, err := PowWad(factorWad, exp)
	if err != nil {
		return nil, err
	}
	half := new(uint256.Int).Div(wad, two)
	r.Mul(r, bpsScale)
	r.Add(r, half)
	r.Div(r, wad)
	if !Fits128(r) {
		return nil, ErrArithmeticOverflow
	}
	return r, nil
}

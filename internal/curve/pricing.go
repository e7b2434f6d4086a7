// Package curve implements the exponential bonding-curve pricing engine.
//
// The unit price at supply s is
//
//	price(s) = BasePrice * (1 + GrowthRateBps/10000)^s
//
// and the cost of buying the token range [s, s+n) is the trapezoidal
// integral (price(s) + price(s+n)) * n / 2. All quoting is pure: nothing in
// this package mutates state, so the same functions back both read-only
// quotes and the mutating trade path.
package curve

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedmath"
)

// PriceAt returns the unit price at the given supply.
func (p *Params) PriceAt(supply uint64) (*uint256.Int, error) {
	factor, err := fixedmath.PowWad(fixedmath.GrowthFactorWad(p.GrowthRateBps), supply)
	if err != nil {
		return nil, fmt.Errorf("price at supply %d: %w", supply, err)
	}
	return fixedmath.MulDiv(p.BasePrice, factor, fixedmath.Wad())
}

// QuoteBuy returns the exact cost of buying n tokens starting at the given
// supply. A zero n quotes to zero; the mutating path rejects zero amounts
// before quoting.
func (p *Params) QuoteBuy(supply, n uint64) (*uint256.Int, error) {
	if n == 0 {
		return uint256.NewInt(0), nil
	}
	if supply > p.MaxSupply || n > p.MaxSupply-supply {
		return nil, ErrSupplyExceeded
	}
	startPrice, err := p.PriceAt(supply)
	if err != nil {
		return nil, err
	}
	endPrice, err := p.PriceAt(supply + n)
	if err != nil {
		return nil, err
	}
	sum, err := fixedmath.Add(startPrice, endPrice)
	if err != nil {
		return nil, err
	}
	// Trapezoid: (price(s) + price(s+n)) * n / 2, floor division.
	return fixedmath.MulDiv(sum, fixedmath.U64(n), fixedmath.U64(2))
}

// QuoteSell returns the payout for selling n tokens at the given supply.
// It is defined as QuoteBuy(supply-n, n), which makes the round-trip
// symmetry property hold exactly: buying n tokens and immediately selling
// them returns the buyer's base balance bit for bit.
func (p *Params) QuoteSell(supply, n uint64) (*uint256.Int, error) {
	if n == 0 {
		return uint256.NewInt(0), nil
	}
	if n > supply {
		return nil, ErrInsufficientSupply
	}
	return p.QuoteBuy(supply-n, n)
}

// MarketCap returns supply * price(supply).
func (p *Params) MarketCap(supply uint64) (*uint256.Int, error) {
	price, err := p.PriceAt(supply)
	if err != nil {
		return nil, err
	}
	return fixedmath.MulDiv(price, fixedmath.U64(supply), fixedmath.U64(1))
}

// TokensForBase inverts QuoteBuy: it returns the largest n whose buy cost at
// the given supply does not exceed amountIn. The curve is strictly monotonic
// in n so a bounded binary search is exact; the token quantity always rounds
// down, leaving the unspent remainder with the buyer.
func (p *Params) TokensForBase(supply uint64, amountIn *uint256.Int) (uint64, error) {
	if supply >= p.MaxSupply {
		return 0, ErrSupplyExceeded
	}
	lo, hi := uint64(0), p.MaxSupply-supply
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		cost, err := p.QuoteBuy(supply, mid)
		if errors.Is(err, fixedmath.ErrArithmeticOverflow) || errors.Is(err, ErrSupplyExceeded) {
			hi = mid - 1
			continue
		}
		if err != nil {
			return 0, err
		}
		if cost.Cmp(amountIn) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// DisplayPrice renders the unit price at the given supply as a decimal,
// computed independently of the integer path. Intended for metadata and
// human-facing output, never for trade settlement.
func (p *Params) DisplayPrice(supply uint64) decimal.Decimal {
	rate := decimal.New(int64(p.GrowthRateBps), -4).Add(decimal.NewFromInt(1))
	base := decimal.NewFromBigInt(p.BasePrice.ToBig(), 0)
	return base.Mul(rate.Pow(decimal.NewFromInt(int64(supply))))
}

package curve

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

// Params holds the immutable shape of a bonding curve. Once a token is
// deployed its Params never change.
type Params struct {
	// BasePrice is the price of the first token in smallest base-currency units.
	BasePrice *uint256.Int
	// GrowthRateBps is the price increase per token, in basis points.
	GrowthRateBps uint64
	// MaxSupply is the hard cap on minted tokens, in whole tokens.
	MaxSupply uint64
	// BaseCurrency is the reserve asset the curve trades against.
	BaseCurrency BaseCurrency

	// MarketCapThreshold and LiquidityThreshold gate graduation: crossing
	// either one satisfies the value leg of the criteria.
	MarketCapThreshold *uint256.Int
	LiquidityThreshold *uint256.Int
	// MinimumUniqueHolders is the holder-count leg of the criteria.
	MinimumUniqueHolders int
	// MinimumAge is the minimum time a token must trade before graduating.
	MinimumAge time.Duration
}

// Validate checks the construction-time invariants.
func (p *Params) Validate() error {
	if p.BasePrice == nil || p.BasePrice.IsZero() {
		return fmt.Errorf("%w: base price must be positive", ErrInvalidParams)
	}
	if p.GrowthRateBps == 0 {
		return fmt.Errorf("%w: growth rate must be positive", ErrInvalidParams)
	}
	if p.MaxSupply == 0 {
		return fmt.Errorf("%w: max supply must be positive", ErrInvalidParams)
	}
	if !p.BaseCurrency.Valid() {
		return fmt.Errorf("%w: unknown base currency", ErrInvalidParams)
	}
	if p.MarketCapThreshold == nil || p.LiquidityThreshold == nil {
		return fmt.Errorf("%w: graduation thresholds must be set", ErrInvalidParams)
	}
	if p.MinimumUniqueHolders < 0 {
		return fmt.Errorf("%w: minimum holders cannot be negative", ErrInvalidParams)
	}
	if p.MinimumAge < 0 {
		return fmt.Errorf("%w: minimum age cannot be negative", ErrInvalidParams)
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias the big-integer fields.
func (p *Params) Clone() Params {
	out := *p
	out.BasePrice = p.BasePrice.Clone()
	out.MarketCapThreshold = p.MarketCapThreshold.Clone()
	out.LiquidityThreshold = p.LiquidityThreshold.Clone()
	return out
}

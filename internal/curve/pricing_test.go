package curve

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedmath"
)

func testParams() Params {
	return Params{
		BasePrice:            uint256.NewInt(1000),
		GrowthRateBps:        150,
		MaxSupply:            1_000_000,
		BaseCurrency:         BaseBUSD,
		MarketCapThreshold:   uint256.NewInt(6_900_000_000),
		LiquidityThreshold:   uint256.NewInt(3_450_000_000),
		MinimumUniqueHolders: 2,
		MinimumAge:           time.Hour,
	}
}

func TestPriceAt(t *testing.T) {
	p := testParams()

	price, err := p.PriceAt(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), price.Uint64(), "price at zero supply is the base price")

	price, err = p.PriceAt(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1015), price.Uint64(), "one step of 1.5%")
}

func TestQuoteBuyFirstToken(t *testing.T) {
	p := testParams()

	// Trapezoid on [0,1): (1000 + 1015) / 2, floored.
	cost, err := p.QuoteBuy(0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1007), cost.Uint64())
}

func TestQuoteBuyHundredthToken(t *testing.T) {
	p := testParams()

	cost, err := p.QuoteBuy(99, 1)
	require.NoError(t, err)

	// Reference: 1000 * 1.015^99.5 (trapezoid midpoint), computed with an
	// independent decimal path. The integer quote must land within one unit.
	factor := decimal.NewFromFloat(1.015)
	mid, err2 := factor.PowWithPrecision(decimal.NewFromFloat(99.5), 30)
	require.NoError(t, err2)
	want := mid.Mul(decimal.NewFromInt(1000))

	diff := want.Sub(decimal.NewFromBigInt(cost.ToBig(), 0)).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromInt(1)),
		"quote %s deviates from reference %s", cost.Dec(), want.String())
}

func TestRoundTripSymmetry(t *testing.T) {
	p := testParams()

	for _, tc := range []struct{ supply, n uint64 }{
		{0, 1}, {0, 100}, {50, 25}, {99, 1}, {500, 500}, {1000, 137},
	} {
		buy, err := p.QuoteBuy(tc.supply, tc.n)
		require.NoError(t, err)
		sell, err := p.QuoteSell(tc.supply+tc.n, tc.n)
		require.NoError(t, err)
		assert.Zerof(t, buy.Cmp(sell), "asymmetry at supply=%d n=%d", tc.supply, tc.n)
	}
}

func TestQuoteBuySupplyExceeded(t *testing.T) {
	p := testParams()
	_, err := p.QuoteBuy(p.MaxSupply-10, 11)
	assert.ErrorIs(t, err, ErrSupplyExceeded)
}

func TestQuoteSellInsufficientSupply(t *testing.T) {
	p := testParams()
	_, err := p.QuoteSell(10, 11)
	assert.ErrorIs(t, err, ErrInsufficientSupply)
}

func TestQuoteZeroAmount(t *testing.T) {
	p := testParams()

	cost, err := p.QuoteBuy(42, 0)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())

	payout, err := p.QuoteSell(42, 0)
	require.NoError(t, err)
	assert.True(t, payout.IsZero())
}

func TestTokensForBase(t *testing.T) {
	p := testParams()

	cost, err := p.QuoteBuy(0, 100)
	require.NoError(t, err)

	// Exactly the cost of 100 tokens buys 100 tokens.
	n, err := p.TokensForBase(0, cost)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)

	// One unit less buys strictly fewer.
	short := new(uint256.Int).Sub(cost, uint256.NewInt(1))
	n, err = p.TokensForBase(0, short)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), n)

	// Dust below the first token buys nothing.
	n, err = p.TokensForBase(0, uint256.NewInt(3))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokensForBaseExhaustedSupply(t *testing.T) {
	p := testParams()
	_, err := p.TokensForBase(p.MaxSupply, uint256.NewInt(1_000_000))
	assert.ErrorIs(t, err, ErrSupplyExceeded)
}

func TestTokensForBaseOverflowBounded(t *testing.T) {
	// Huge budget against a steep curve: the search must shrink past the
	// overflow region instead of failing.
	p := testParams()
	p.GrowthRateBps = 1000

	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 127)
	n, err := p.TokensForBase(0, huge)
	require.NoError(t, err)
	assert.Greater(t, n, uint64(0))

	cost, err := p.QuoteBuy(0, n)
	require.NoError(t, err)
	assert.LessOrEqual(t, cost.Cmp(huge), 0)
}

func TestMarketCap(t *testing.T) {
	p := testParams()
	mc, err := p.MarketCap(100)
	require.NoError(t, err)

	price, err := p.PriceAt(100)
	require.NoError(t, err)
	want := new(uint256.Int).Mul(price, uint256.NewInt(100))
	assert.Zero(t, mc.Cmp(want))
}

func TestParamsValidate(t *testing.T) {
	p := testParams()
	require.NoError(t, p.Validate())

	bad := testParams()
	bad.BasePrice = uint256.NewInt(0)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)

	bad = testParams()
	bad.GrowthRateBps = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)

	bad = testParams()
	bad.MaxSupply = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)

	bad = testParams()
	bad.BaseCurrency = BaseCurrency(99)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)
}

func TestDisplayPriceMatchesIntegerPath(t *testing.T) {
	p := testParams()

	display := p.DisplayPrice(99)
	price, err := p.PriceAt(99)
	require.NoError(t, err)

	diff := display.Sub(decimal.NewFromBigInt(price.ToBig(), 0)).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromInt(1)))
}

func TestPriceOverflowDetected(t *testing.T) {
	p := testParams()
	p.MaxSupply = 1 << 62

	// 1.015^(huge) cannot fit 128 bits; the failure must be explicit.
	_, err := p.PriceAt(1 << 40)
	assert.ErrorIs(t, err, fixedmath.ErrArithmeticOverflow)
}

package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/amm"
	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/lpdist"
)

func testConfig() Config {
	return Config{
		Mint:       solana.NewWallet().PublicKey(),
		Name:       "Test Token",
		Symbol:     "TST",
		Creator:    solana.NewWallet().PublicKey(),
		Governance: solana.NewWallet().PublicKey(),
		Curve: curve.Params{
			BasePrice:            uint256.NewInt(1000),
			GrowthRateBps:        150,
			MaxSupply:            1_000_000,
			BaseCurrency:         curve.BaseBUSD,
			MarketCapThreshold:   uint256.NewInt(6_900_000_000),
			LiquidityThreshold:   uint256.NewInt(3_450_000_000),
			MinimumUniqueHolders: 2,
			MinimumAge:           time.Hour,
		},
		Strategy: lpdist.FullBurn,
	}
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestToken(t *testing.T, cfg Config) (*Token, *amm.Local, *testClock) {
	t.Helper()
	venue := amm.NewLocal(zap.NewNop())
	clock := &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	tok, err := New(cfg, venue, zap.NewNop(), WithClock(clock.now))
	require.NoError(t, err)
	return tok, venue, clock
}

func TestNewValidation(t *testing.T) {
	venue := amm.NewLocal(zap.NewNop())

	cfg := testConfig()
	cfg.Name = ""
	_, err := New(cfg, venue, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Curve.BasePrice = uint256.NewInt(0)
	_, err = New(cfg, venue, zap.NewNop())
	assert.ErrorIs(t, err, curve.ErrInvalidParams)

	cfg = testConfig()
	_, err = New(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestBuyMintsAndRefunds(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())
	buyer := solana.NewWallet().PublicKey()

	// 2000 base buys exactly the first token at 1007 and refunds 993.
	rcpt, err := tok.Buy(context.Background(), buyer, uint256.NewInt(2000), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rcpt.Tokens)
	assert.Equal(t, "1007", rcpt.Cost.Dec())
	assert.Equal(t, "993", rcpt.Refund.Dec())
	assert.False(t, rcpt.Graduated)

	assert.Equal(t, uint64(1), tok.Supply())
	assert.Equal(t, "1007", tok.Reserves().Dec())
	assert.Equal(t, uint64(1), tok.BalanceOf(buyer))
	assert.Equal(t, 1, tok.HolderCount())
}

func TestBuyRejectsZeroAndDust(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())
	buyer := solana.NewWallet().PublicKey()

	_, err := tok.Buy(context.Background(), buyer, uint256.NewInt(0), 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = tok.Buy(context.Background(), buyer, nil, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	// Below the first token's cost nothing can be bought.
	_, err = tok.Buy(context.Background(), buyer, uint256.NewInt(500), 0)
	assert.ErrorIs(t, err, ErrAmountTooSmall)
}

func TestBuySlippage(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())
	buyer := solana.NewWallet().PublicKey()

	_, err := tok.Buy(context.Background(), buyer, uint256.NewInt(2000), 2)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	// State untouched after the rejection.
	assert.Equal(t, uint64(0), tok.Supply())
	assert.True(t, tok.Reserves().IsZero())
}

func TestBuyPerTransactionCap(t *testing.T) {
	cfg := testConfig()
	cfg.Curve.MaxSupply = 1000
	tok, _, _ := newTestToken(t, cfg)
	buyer := solana.NewWallet().PublicKey()

	// Enough base to afford far more than 100 tokens (10% of 1000).
	huge := uint256.NewInt(1_000_000_000)
	_, err := tok.Buy(context.Background(), buyer, huge, 0)
	assert.ErrorIs(t, err, ErrTradeTooLarge)

	// Exactly at the cap passes.
	cost, err := tok.QuoteBuy(100)
	require.NoError(t, err)
	rcpt, err := tok.Buy(context.Background(), buyer, cost, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), rcpt.Tokens)
	assert.True(t, rcpt.Refund.IsZero())
}

func TestBuySellRoundTripIsExact(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())
	buyer := solana.NewWallet().PublicKey()

	amountIn := uint256.NewInt(500_000)
	rcpt, err := tok.Buy(context.Background(), buyer, amountIn, 0)
	require.NoError(t, err)
	require.Greater(t, rcpt.Tokens, uint64(0))

	sell, err := tok.Sell(context.Background(), buyer, rcpt.Tokens, nil)
	require.NoError(t, err)

	// Cost equals payout bit for bit; refund + payout restores the input.
	assert.Equal(t, rcpt.Cost.Dec(), sell.Payout.Dec())
	total := new(uint256.Int).Add(rcpt.Refund, sell.Payout)
	assert.Equal(t, amountIn.Dec(), total.Dec())

	assert.Equal(t, uint64(0), tok.Supply())
	assert.True(t, tok.Reserves().IsZero())
	assert.Equal(t, 0, tok.HolderCount())
}

func TestSellRejections(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())
	buyer := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()

	_, err := tok.Sell(context.Background(), buyer, 0, nil)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = tok.Sell(context.Background(), stranger, 5, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	rcpt, err := tok.Buy(context.Background(), buyer, uint256.NewInt(100_000), 0)
	require.NoError(t, err)

	_, err = tok.Sell(context.Background(), buyer, rcpt.Tokens+1, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Min payout above the actual quote trips slippage.
	quote, err := tok.QuoteSell(rcpt.Tokens)
	require.NoError(t, err)
	min := new(uint256.Int).AddUint64(quote, 1)
	_, err = tok.Sell(context.Background(), buyer, rcpt.Tokens, min)
	assert.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestSellPayoutCannotExceedReserves(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())
	buyer := solana.NewWallet().PublicKey()

	// Buy one token at a time. Each buy floors its own one-token trapezoid
	// panel, so the reserves collect slightly less than what one coarse
	// panel over the whole position quotes on the way out.
	for i := 0; i < 20; i++ {
		cost, err := tok.QuoteBuy(1)
		require.NoError(t, err)
		rcpt, err := tok.Buy(context.Background(), buyer, cost, 1)
		require.NoError(t, err)
		require.Equal(t, uint64(1), rcpt.Tokens)
	}
	require.Equal(t, uint64(20), tok.Supply())

	payout, err := tok.QuoteSell(20)
	require.NoError(t, err)
	require.Equal(t, 1, payout.Cmp(tok.Reserves()), "coarse sell quote must exceed collected reserves")

	before := tok.State()

	_, err = tok.Sell(context.Background(), buyer, 20, nil)
	assert.ErrorIs(t, err, ErrInsufficientReserves)

	// The failed sell left everything untouched.
	after := tok.State()
	assert.Equal(t, before.Supply, after.Supply)
	assert.Equal(t, before.Reserves.Dec(), after.Reserves.Dec())
	assert.Equal(t, before.HolderCount, after.HolderCount)
	assert.Equal(t, uint64(20), tok.BalanceOf(buyer))

	// Unwinding the position panel by panel stays inside the reserves.
	for i := 0; i < 20; i++ {
		_, err := tok.Sell(context.Background(), buyer, 1, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(0), tok.Supply())
}

// graduationConfig makes the thresholds reachable with a couple of trades.
func graduationConfig() Config {
	cfg := testConfig()
	cfg.Curve.MaxSupply = 10_000_000
	cfg.Curve.LiquidityThreshold = uint256.NewInt(200_000)
	cfg.Curve.MarketCapThreshold = uint256.NewInt(100_000_000)
	cfg.Curve.MinimumUniqueHolders = 2
	cfg.Curve.MinimumAge = time.Hour
	return cfg
}

func TestGraduateRequiresCriteria(t *testing.T) {
	tok, _, clock := newTestToken(t, graduationConfig())
	a := solana.NewWallet().PublicKey()

	// Too young.
	_, err := tok.Graduate(context.Background())
	assert.ErrorIs(t, err, ErrGraduationCriteriaNotMet)

	clock.advance(2 * time.Hour)

	// Old enough but only one holder.
	_, err = tok.Buy(context.Background(), a, uint256.NewInt(300_000), 0)
	require.NoError(t, err)
	_, err = tok.Graduate(context.Background())
	assert.ErrorIs(t, err, ErrGraduationCriteriaNotMet)
	assert.False(t, tok.IsGraduated())
}

func TestBuyTriggersGraduation(t *testing.T) {
	tok, venue, clock := newTestToken(t, graduationConfig())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	clock.advance(2 * time.Hour)
	_, err := tok.Buy(context.Background(), a, uint256.NewInt(150_000), 0)
	require.NoError(t, err)
	require.False(t, tok.IsGraduated())

	// The second holder's buy pushes reserves over the threshold and the
	// trade itself settles before graduation runs.
	rcpt, err := tok.Buy(context.Background(), b, uint256.NewInt(150_000), 0)
	require.NoError(t, err)
	assert.True(t, rcpt.Graduated)
	assert.True(t, tok.IsGraduated())
	assert.Equal(t, PhaseGraduated, tok.Phase())

	// Buyer still holds the tokens from the triggering trade.
	assert.Greater(t, tok.BalanceOf(b), uint64(0))

	// Reserves were swept into the pool.
	assert.True(t, tok.Reserves().IsZero())
	pool, ok := tok.Pool()
	require.True(t, ok)
	assert.Equal(t, amm.PoolAddress(tok.Mint(), curve.BaseBUSD.Mint()), pool)

	rec, ok := tok.Record()
	require.True(t, ok)
	assert.False(t, rec.BaseLiquidity.IsZero())
	assert.False(t, rec.LPReceived.IsZero())
	assert.Equal(t, lpdist.FullBurn, rec.Plan.Strategy)

	// FullBurn strategy burns everything that was minted.
	assert.Equal(t, rec.LPReceived.Dec(), venue.LPBurned(pool).Dec())

	// The curve is closed for good.
	_, err = tok.Buy(context.Background(), a, uint256.NewInt(10_000), 0)
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
	_, err = tok.Sell(context.Background(), b, 1, nil)
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
	_, err = tok.Graduate(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
}

func TestGraduationRollbackOnPoolFailure(t *testing.T) {
	tok, venue, clock := newTestToken(t, graduationConfig())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	clock.advance(2 * time.Hour)
	_, err := tok.Buy(context.Background(), a, uint256.NewInt(150_000), 0)
	require.NoError(t, err)

	venue.FailCreatePool = errors.New("venue unavailable")

	// The triggering buy still succeeds; the graduation inside it fails and
	// leaves the curve open.
	rcpt, err := tok.Buy(context.Background(), b, uint256.NewInt(150_000), 0)
	require.NoError(t, err)
	assert.False(t, rcpt.Graduated)
	assert.False(t, tok.IsGraduated())

	before := tok.State()

	// An explicit graduation attempt fails and changes nothing.
	_, err = tok.Graduate(context.Background())
	assert.ErrorIs(t, err, ErrPoolCreationFailed)

	after := tok.State()
	assert.Equal(t, before.Supply, after.Supply)
	assert.Equal(t, before.Reserves.Dec(), after.Reserves.Dec())
	assert.Equal(t, PhaseTrading, after.Phase)
	assert.Equal(t, before.HolderCount, after.HolderCount)

	// Once the venue recovers the same call succeeds.
	venue.FailCreatePool = nil
	rec, err := tok.Graduate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.Reserves.Dec(), rec.BaseLiquidity.Dec())
	assert.True(t, tok.IsGraduated())
}

func TestGraduationRollbackOnLiquidityFailure(t *testing.T) {
	tok, venue, clock := newTestToken(t, graduationConfig())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	clock.advance(2 * time.Hour)
	_, err := tok.Buy(context.Background(), a, uint256.NewInt(150_000), 0)
	require.NoError(t, err)

	venue.FailAddLiquidity = errors.New("deposit rejected")
	_, err = tok.Buy(context.Background(), b, uint256.NewInt(150_000), 0)
	require.NoError(t, err)

	_, err = tok.Graduate(context.Background())
	assert.ErrorIs(t, err, ErrLiquidityTransferFailed)
	assert.False(t, tok.IsGraduated())
	assert.False(t, tok.Reserves().IsZero())

	before := tok.State()

	// The aborted attempt already created the pool. Once the deposit works
	// again the retry must go through, reusing that pool.
	venue.FailAddLiquidity = nil
	rec, err := tok.Graduate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.Reserves.Dec(), rec.BaseLiquidity.Dec())
	assert.Equal(t, amm.PoolAddress(tok.Mint(), curve.BaseBUSD.Mint()), rec.Pool)
	assert.True(t, tok.IsGraduated())
	assert.False(t, venue.LPBurned(rec.Pool).IsZero())
}

func TestAgeFallbackGraduation(t *testing.T) {
	cfg := graduationConfig()
	// Thresholds far out of reach.
	cfg.Curve.LiquidityThreshold = uint256.NewInt(0).SetAllOne()
	cfg.Curve.LiquidityThreshold.Rsh(cfg.Curve.LiquidityThreshold, 130)
	cfg.Curve.MarketCapThreshold = cfg.Curve.LiquidityThreshold.Clone()
	cfg.Curve.MinimumUniqueHolders = 50
	tok, _, clock := newTestToken(t, cfg)
	a := solana.NewWallet().PublicKey()

	_, err := tok.Buy(context.Background(), a, uint256.NewInt(10_000), 0)
	require.NoError(t, err)

	// Past minimum age but criteria unreachable.
	clock.advance(2 * time.Hour)
	_, err = tok.Graduate(context.Background())
	assert.ErrorIs(t, err, ErrGraduationCriteriaNotMet)

	// Past four times the minimum age any nonzero reserves suffice.
	clock.advance(3 * time.Hour)
	rec, err := tok.Graduate(context.Background())
	require.NoError(t, err)
	assert.False(t, rec.BaseLiquidity.IsZero())
	assert.True(t, tok.IsGraduated())
}

func TestCommunityRewardsDistribution(t *testing.T) {
	cfg := graduationConfig()
	cfg.Strategy = lpdist.CommunityRewards
	tok, venue, clock := newTestToken(t, cfg)
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	clock.advance(2 * time.Hour)
	_, err := tok.Buy(context.Background(), a, uint256.NewInt(220_000), 0)
	require.NoError(t, err)
	rcpt, err := tok.Buy(context.Background(), b, uint256.NewInt(90_000), 0)
	require.NoError(t, err)
	require.True(t, rcpt.Graduated)

	rec, ok := tok.Record()
	require.True(t, ok)
	require.Len(t, rec.Plan.Transfers, 2)

	// Pro-rata shares landed with the holders, the rest was burned, and the
	// plan conserves the minted LP exactly.
	pool, _ := tok.Pool()
	gotA := venue.LPBalance(pool, a)
	gotB := venue.LPBalance(pool, b)
	assert.False(t, gotA.IsZero())
	assert.False(t, gotB.IsZero())
	assert.True(t, gotA.Gt(gotB))

	total := new(uint256.Int).Add(gotA, gotB)
	total.Add(total, venue.LPBurned(pool))
	assert.Equal(t, rec.LPReceived.Dec(), total.Dec())
}

func TestDataBlob(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())

	blob, err := tok.Data()
	require.NoError(t, err)
	s := string(blob)
	assert.Contains(t, s, `"name":"Test Token"`)
	assert.Contains(t, s, `"symbol":"TST"`)
	assert.Contains(t, s, `"base_currency":"BUSD"`)
	assert.Contains(t, s, `"lp_strategy":"full_burn"`)
	assert.Contains(t, s, `"spot_price":"1000"`)
}

func TestStateSnapshotIsDetached(t *testing.T) {
	tok, _, _ := newTestToken(t, testConfig())
	a := solana.NewWallet().PublicKey()

	_, err := tok.Buy(context.Background(), a, uint256.NewInt(10_000), 0)
	require.NoError(t, err)

	st := tok.State()
	st.Reserves.Clear()
	assert.False(t, tok.Reserves().IsZero())
}

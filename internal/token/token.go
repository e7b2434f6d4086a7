// Package token implements one deployed bonding-curve token: its reserve
// ledger, lifecycle state machine and graduation orchestration.
//
// Each Token exclusively owns its CurveState. All mutating operations follow
// checks-effects-interactions: inputs and slippage bounds are validated
// first, quotes computed, postconditions verified, and only then are supply,
// reserves and balances written. External invocations are serialized by a
// per-token mutex; an operation either fully commits or leaves no trace.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/amm"
	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedmath"
	"github.com/rovshanmuradov/curvelaunch/internal/lpdist"
)

// Phase is the lifecycle state of a token. Trading is initial, Graduated is
// terminal; there is no transition out of Graduated.
type Phase uint8

const (
	PhaseTrading Phase = iota
	PhaseGraduated
)

func (p Phase) String() string {
	switch p {
	case PhaseTrading:
		return "trading"
	case PhaseGraduated:
		return "graduated"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// maxTradeDivisor caps a single buy at 1/10 of the remaining supply.
const maxTradeDivisor = 10

// Config is the immutable identity and curve shape of a token.
type Config struct {
	Mint       solana.PublicKey
	Name       string
	Symbol     string
	ImageURI   string
	Creator    solana.PublicKey
	Governance solana.PublicKey
	Curve      curve.Params
	Strategy   lpdist.Strategy
}

// State is a point-in-time copy of the mutable curve state.
type State struct {
	Supply      uint64
	Reserves    *uint256.Int
	Phase       Phase
	Pool        solana.PublicKey
	HolderCount int
	CreatedAt   time.Time
}

// Token is one deployed bonding-curve instance.
type Token struct {
	mu  sync.Mutex
	cfg Config

	supply    uint64
	reserves  *uint256.Int
	phase     Phase
	pool      solana.PublicKey
	balances  map[solana.PublicKey]uint64
	createdAt time.Time
	record    *GraduationRecord

	venue  amm.Venue
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Token at construction time.
type Option func(*Token)

// WithClock overrides the time source, used by age-based graduation tests.
func WithClock(now func() time.Time) Option {
	return func(t *Token) { t.now = now }
}

// New validates the config and creates a token in the Trading phase with
// zero supply and zero reserves.
func New(cfg Config, venue amm.Venue, logger *zap.Logger, opts ...Option) (*Token, error) {
	if err := cfg.Curve.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Strategy.Valid() {
		return nil, fmt.Errorf("invalid lp distribution strategy %d", cfg.Strategy)
	}
	if cfg.Name == "" || cfg.Symbol == "" {
		return nil, fmt.Errorf("token name and symbol cannot be empty")
	}
	if venue == nil {
		return nil, fmt.Errorf("amm venue is required")
	}

	t := &Token{
		cfg:      cfg,
		reserves: uint256.NewInt(0),
		phase:    PhaseTrading,
		balances: make(map[solana.PublicKey]uint64),
		venue:    venue,
		logger:   logger.With(zap.String("mint", cfg.Mint.String())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.createdAt = t.now()
	return t, nil
}

// BuyReceipt reports the outcome of a buy. Cost is what was taken into
// reserves; Refund is the unspent remainder returned to the buyer so that an
// immediate sell of the same amount is an exact round trip.
type BuyReceipt struct {
	Tokens    uint64
	Cost      *uint256.Int
	Refund    *uint256.Int
	Graduated bool
}

// SellReceipt reports the outcome of a sell.
type SellReceipt struct {
	Tokens    uint64
	Payout    *uint256.Int
	Graduated bool
}

// Buy converts amountIn of base currency into tokens at the current curve
// position. The token quantity is found by inverting the buy integral and
// rounds down; anything the quantity does not cost is refunded.
func (t *Token) Buy(ctx context.Context, buyer solana.PublicKey, amountIn *uint256.Int, minTokensOut uint64) (*BuyReceipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Checks.
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	if t.phase == PhaseGraduated {
		return nil, ErrAlreadyGraduated
	}
	remaining := t.cfg.Curve.MaxSupply - t.supply
	if remaining == 0 {
		return nil, curve.ErrSupplyExceeded
	}

	tokens, err := t.cfg.Curve.TokensForBase(t.supply, amountIn)
	if err != nil {
		return nil, err
	}
	if tokens == 0 {
		return nil, ErrAmountTooSmall
	}
	maxBuy := remaining / maxTradeDivisor
	if maxBuy == 0 {
		maxBuy = 1
	}
	if tokens > maxBuy {
		return nil, fmt.Errorf("%w: %d tokens, cap %d", ErrTradeTooLarge, tokens, maxBuy)
	}
	if tokens < minTokensOut {
		return nil, fmt.Errorf("%w: got %d tokens, expected at least %d", ErrSlippageExceeded, tokens, minTokensOut)
	}

	cost, err := t.cfg.Curve.QuoteBuy(t.supply, tokens)
	if err != nil {
		return nil, err
	}
	refund, err := fixedmath.Sub(amountIn, cost)
	if err != nil {
		return nil, err
	}
	newReserves, err := fixedmath.Add(t.reserves, cost)
	if err != nil {
		return nil, err
	}

	// Effects.
	t.supply += tokens
	t.reserves = newReserves
	t.credit(buyer, tokens)

	t.logger.Info("tokens bought",
		zap.String("buyer", buyer.String()),
		zap.Uint64("tokens", tokens),
		zap.String("cost", cost.Dec()),
		zap.String("refund", refund.Dec()),
		zap.Uint64("supply", t.supply),
		zap.String("reserves", t.reserves.Dec()))

	// Graduation is evaluated opportunistically after every settled trade;
	// there is no background scheduler in this execution model.
	graduated := t.maybeGraduate(ctx)

	return &BuyReceipt{Tokens: tokens, Cost: cost, Refund: refund, Graduated: graduated}, nil
}

// Sell burns tokenAmount of the seller's tokens and pays out base currency.
// The payout equals the buy cost of the same range, so a buy immediately
// followed by a sell of the same amount is value-neutral.
func (t *Token) Sell(ctx context.Context, seller solana.PublicKey, tokenAmount uint64, minBaseOut *uint256.Int) (*SellReceipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Checks.
	if tokenAmount == 0 {
		return nil, ErrZeroAmount
	}
	if t.phase == PhaseGraduated {
		return nil, ErrAlreadyGraduated
	}
	if t.balances[seller] < tokenAmount {
		return nil, fmt.Errorf("%w: have %d, want to sell %d", ErrInsufficientBalance, t.balances[seller], tokenAmount)
	}

	payout, err := t.cfg.Curve.QuoteSell(t.supply, tokenAmount)
	if err != nil {
		return nil, err
	}
	if minBaseOut != nil && payout.Lt(minBaseOut) {
		return nil, fmt.Errorf("%w: payout %s below minimum %s", ErrSlippageExceeded, payout.Dec(), minBaseOut.Dec())
	}
	// A position bought in fine panels and sold in one coarse panel can
	// quote more than the reserves collected, since flooring happened per
	// panel on the way in. Solvency wins over the quote.
	if payout.Gt(t.reserves) {
		return nil, fmt.Errorf("%w: payout %s, reserves %s", ErrInsufficientReserves, payout.Dec(), t.reserves.Dec())
	}
	newReserves, err := fixedmath.Sub(t.reserves, payout)
	if err != nil {
		return nil, err
	}

	// Effects.
	t.supply -= tokenAmount
	t.reserves = newReserves
	t.debit(seller, tokenAmount)

	t.logger.Info("tokens sold",
		zap.String("seller", seller.String()),
		zap.Uint64("tokens", tokenAmount),
		zap.String("payout", payout.Dec()),
		zap.Uint64("supply", t.supply),
		zap.String("reserves", t.reserves.Dec()))

	graduated := t.maybeGraduate(ctx)

	return &SellReceipt{Tokens: tokenAmount, Payout: payout, Graduated: graduated}, nil
}

func (t *Token) credit(owner solana.PublicKey, amount uint64) {
	t.balances[owner] += amount
}

func (t *Token) debit(owner solana.PublicKey, amount uint64) {
	rest := t.balances[owner] - amount
	if rest == 0 {
		delete(t.balances, owner)
	} else {
		t.balances[owner] = rest
	}
}

// QuoteBuy is the read-only buy quote for n tokens at the current supply.
func (t *Token) QuoteBuy(n uint64) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Curve.QuoteBuy(t.supply, n)
}

// QuoteSell is the read-only sell quote for n tokens at the current supply.
func (t *Token) QuoteSell(n uint64) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Curve.QuoteSell(t.supply, n)
}

// Views.

func (t *Token) Mint() solana.PublicKey    { return t.cfg.Mint }
func (t *Token) Name() string              { return t.cfg.Name }
func (t *Token) Symbol() string            { return t.cfg.Symbol }
func (t *Token) Creator() solana.PublicKey { return t.cfg.Creator }

// Params returns a copy of the curve parameters.
func (t *Token) Params() curve.Params { return t.cfg.Curve.Clone() }

// Supply returns the current minted supply.
func (t *Token) Supply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supply
}

// Reserves returns a copy of the current base reserves.
func (t *Token) Reserves() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reserves.Clone()
}

// Phase returns the current lifecycle phase.
func (t *Token) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// IsGraduated reports whether the curve has closed.
func (t *Token) IsGraduated() bool {
	return t.Phase() == PhaseGraduated
}

// Pool returns the AMM pool reference, which is only set after graduation.
func (t *Token) Pool() (solana.PublicKey, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pool, t.phase == PhaseGraduated
}

// HolderCount returns the number of addresses with a nonzero balance.
func (t *Token) HolderCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.balances)
}

// BalanceOf returns the token balance of an address.
func (t *Token) BalanceOf(owner solana.PublicKey) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[owner]
}

// CreatedAt returns the deployment time.
func (t *Token) CreatedAt() time.Time { return t.createdAt }

// Record returns the graduation record, if graduation has completed.
func (t *Token) Record() (*GraduationRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.record == nil {
		return nil, false
	}
	return t.record, true
}

// State returns a snapshot of the mutable curve state.
func (t *Token) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Supply:      t.supply,
		Reserves:    t.reserves.Clone(),
		Phase:       t.phase,
		Pool:        t.pool,
		HolderCount: len(t.balances),
		CreatedAt:   t.createdAt,
	}
}

// Data returns the serialized metadata blob for the token.
func (t *Token) Data() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	blob := struct {
		Name          string `json:"name"`
		Symbol        string `json:"symbol"`
		ImageURI      string `json:"image_uri,omitempty"`
		Creator       string `json:"creator"`
		BaseCurrency  string `json:"base_currency"`
		BasePrice     string `json:"base_price"`
		GrowthRateBps uint64 `json:"growth_rate_bps"`
		MaxSupply     uint64 `json:"max_supply"`
		LPStrategy    string `json:"lp_strategy"`
		SpotPrice     string `json:"spot_price"`
		CreatedAt     string `json:"created_at"`
	}{
		Name:          t.cfg.Name,
		Symbol:        t.cfg.Symbol,
		ImageURI:      t.cfg.ImageURI,
		Creator:       t.cfg.Creator.String(),
		BaseCurrency:  t.cfg.Curve.BaseCurrency.String(),
		BasePrice:     t.cfg.Curve.BasePrice.Dec(),
		GrowthRateBps: t.cfg.Curve.GrowthRateBps,
		MaxSupply:     t.cfg.Curve.MaxSupply,
		LPStrategy:    t.cfg.Strategy.String(),
		SpotPrice:     t.cfg.Curve.DisplayPrice(t.supply).String(),
		CreatedAt:     t.createdAt.UTC().Format(time.RFC3339),
	}
	return json.Marshal(blob)
}

package token

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedmath"
	"github.com/rovshanmuradov/curvelaunch/internal/lpdist"
)

// stuckAgeMultiplier scales MinimumAge into the fallback deadline after
// which any curve with nonzero reserves may graduate regardless of the
// holder and value thresholds.
const stuckAgeMultiplier = 4

// GraduationRecord is the permanent audit record of a completed graduation.
type GraduationRecord struct {
	ID             uuid.UUID
	Mint           solana.PublicKey
	Pool           solana.PublicKey
	BaseLiquidity  *uint256.Int
	TokenLiquidity uint64
	LPReceived     *uint256.Int
	Plan           *lpdist.Plan
	At             time.Time
}

// eligible evaluates the graduation criteria against the current state.
// Caller holds t.mu.
func (t *Token) eligible() error {
	if t.phase == PhaseGraduated {
		return ErrAlreadyGraduated
	}
	age := t.now().Sub(t.createdAt)
	if age < t.cfg.Curve.MinimumAge {
		return fmt.Errorf("%w: age %s below minimum %s", ErrGraduationCriteriaNotMet, age, t.cfg.Curve.MinimumAge)
	}

	// A curve that has been live far past its minimum age graduates on any
	// nonzero reserves, so thin launches are not stranded forever. A zero
	// minimum age disables the fallback.
	if t.cfg.Curve.MinimumAge > 0 && age >= stuckAgeMultiplier*t.cfg.Curve.MinimumAge && !t.reserves.IsZero() {
		return nil
	}

	if len(t.balances) < t.cfg.Curve.MinimumUniqueHolders {
		return fmt.Errorf("%w: %d holders, need %d", ErrGraduationCriteriaNotMet, len(t.balances), t.cfg.Curve.MinimumUniqueHolders)
	}
	if t.reserves.Cmp(t.cfg.Curve.LiquidityThreshold) >= 0 {
		return nil
	}
	mcap, err := t.cfg.Curve.MarketCap(t.supply)
	if err != nil {
		return err
	}
	if mcap.Cmp(t.cfg.Curve.MarketCapThreshold) >= 0 {
		return nil
	}
	return fmt.Errorf("%w: reserves %s below %s and market cap %s below %s",
		ErrGraduationCriteriaNotMet,
		t.reserves.Dec(), t.cfg.Curve.LiquidityThreshold.Dec(),
		mcap.Dec(), t.cfg.Curve.MarketCapThreshold.Dec())
}

// Graduate closes the curve and migrates reserves to the AMM. It fails with
// ErrGraduationCriteriaNotMet when the criteria do not hold; any external
// failure leaves the curve state untouched and still trading.
func (t *Token) Graduate(ctx context.Context) (*GraduationRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.eligible(); err != nil {
		return nil, err
	}
	return t.graduate(ctx)
}

// maybeGraduate runs the criteria check after a settled trade and graduates
// when they pass. A failed graduation never fails the trade that triggered
// it. Caller holds t.mu.
func (t *Token) maybeGraduate(ctx context.Context) bool {
	if err := t.eligible(); err != nil {
		return false
	}
	if _, err := t.graduate(ctx); err != nil {
		t.logger.Warn("graduation attempt failed, curve stays open", zap.Error(err))
		return false
	}
	return true
}

// graduate performs the migration. All external calls happen against staged
// values; local state is written only after every call has succeeded, so a
// failure at any stage leaves supply, reserves, phase and balances exactly
// as they were. Caller holds t.mu and has verified eligibility.
func (t *Token) graduate(ctx context.Context) (*GraduationRecord, error) {
	baseMint := t.cfg.Curve.BaseCurrency.Mint()

	// Size the deposit before touching the venue. The token side is chosen
	// so the pool opens at the curve's final spot price:
	// reserves / price(supply).
	price, err := t.cfg.Curve.PriceAt(t.supply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLiquidityTransferFailed, err)
	}
	tokenLiq, err := fixedmath.MulDiv(t.reserves, fixedmath.U64(1), price)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLiquidityTransferFailed, err)
	}
	if !tokenLiq.IsUint64() || tokenLiq.IsZero() {
		return nil, fmt.Errorf("%w: token liquidity %s out of range", ErrLiquidityTransferFailed, tokenLiq.Dec())
	}
	baseLiq := t.reserves.Clone()

	// Stage 1: pool creation. The venue hands an existing empty pool back,
	// so a prior attempt that died after this stage does not strand the
	// curve.
	pool, err := t.venue.CreatePool(ctx, t.cfg.Mint, baseMint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolCreationFailed, err)
	}

	// Stage 2: seed liquidity.
	lpReceived, err := t.venue.AddLiquidity(ctx, pool, tokenLiq.Uint64(), baseLiq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLiquidityTransferFailed, err)
	}

	// Stage 3: distribute the LP per the configured strategy.
	plan, err := lpdist.Build(t.cfg.Strategy, lpReceived, lpdist.Snapshot{
		Holders:    t.holderSnapshot(),
		Creator:    t.cfg.Creator,
		Governance: t.cfg.Governance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLiquidityTransferFailed, err)
	}
	if !plan.Burn.IsZero() {
		if err := t.venue.BurnLP(ctx, pool, plan.Burn); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLiquidityTransferFailed, err)
		}
	}
	for _, tr := range plan.Transfers {
		if err := t.venue.TransferLP(ctx, pool, tr.To, tr.Amount); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLiquidityTransferFailed, err)
		}
	}

	// Commit. Everything external succeeded; flip local state atomically.
	rec := &GraduationRecord{
		ID:             uuid.New(),
		Mint:           t.cfg.Mint,
		Pool:           pool,
		BaseLiquidity:  baseLiq,
		TokenLiquidity: tokenLiq.Uint64(),
		LPReceived:     lpReceived,
		Plan:           plan,
		At:             t.now(),
	}
	t.phase = PhaseGraduated
	t.pool = pool
	t.reserves = uint256.NewInt(0)
	t.record = rec

	t.logger.Info("curve graduated",
		zap.String("pool", pool.String()),
		zap.String("base_liquidity", rec.BaseLiquidity.Dec()),
		zap.Uint64("token_liquidity", rec.TokenLiquidity),
		zap.String("lp_received", rec.LPReceived.Dec()),
		zap.String("strategy", t.cfg.Strategy.String()))

	return rec, nil
}

// holderSnapshot copies the balance map into a deterministic slice for the
// LP distribution planner. Caller holds t.mu.
func (t *Token) holderSnapshot() []lpdist.Holder {
	holders := make([]lpdist.Holder, 0, len(t.balances))
	for addr, bal := range t.balances {
		holders = append(holders, lpdist.Holder{Address: addr, Balance: bal})
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Balance != holders[j].Balance {
			return holders[i].Balance > holders[j].Balance
		}
		return holders[i].Address.String() < holders[j].Address.String()
	})
	return holders
}

// Package factory is the launch registry: it deploys bonding-curve tokens,
// collects launch fees, routes trades to the right curve and persists the
// audit trail of everything that happened.
package factory

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/amm"
	"github.com/rovshanmuradov/curvelaunch/internal/config"
	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/events"
	"github.com/rovshanmuradov/curvelaunch/internal/lpdist"
	"github.com/rovshanmuradov/curvelaunch/internal/metrics"
	"github.com/rovshanmuradov/curvelaunch/internal/storage"
	"github.com/rovshanmuradov/curvelaunch/internal/storage/models"
	"github.com/rovshanmuradov/curvelaunch/internal/token"
)

// Parameter bounds enforced on every launch.
const (
	MinBasePrice     = 1_000
	MaxBasePrice     = 1_000_000_000
	MinGrowthRateBps = 10
	MaxGrowthRateBps = 1_000
	MinMaxSupply     = 1_000_000
	MaxMaxSupply     = 100_000_000_000
)

// LaunchParams describes one token launch. Zero-valued curve fields take
// the factory defaults.
type LaunchParams struct {
	Name       string
	Symbol     string
	ImageURI   string
	Creator    solana.PublicKey
	Governance solana.PublicKey

	BaseCurrency curve.BaseCurrency
	Strategy     lpdist.Strategy

	BasePrice          uint64
	GrowthRateBps      uint64
	MaxSupply          uint64
	MarketCapThreshold uint64

	// FeePayment must cover the launch fee of the chosen base currency.
	FeePayment *uint256.Int
}

// Factory owns the registry of live tokens.
type Factory struct {
	mu        sync.RWMutex
	tokens    map[solana.PublicKey]*token.Token
	order     []solana.PublicKey
	bySymbol  map[string]solana.PublicKey
	byCreator map[solana.PublicKey][]solana.PublicKey
	fees      map[curve.BaseCurrency]*uint256.Int
	seq       uint64

	cfg     *config.Config
	venue   amm.Venue
	store   storage.Storage
	metrics *metrics.Collector
	bus     *events.Bus
	logger  *zap.Logger
	now     func() time.Time

	tokenOpts []token.Option
}

// Option configures a Factory at construction time.
type Option func(*Factory)

// WithClock overrides the factory's time source and is propagated to every
// token it launches.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		f.now = now
		f.tokenOpts = append(f.tokenOpts, token.WithClock(now))
	}
}

// WithEventBus makes the factory publish launch, trade and graduation
// events.
func WithEventBus(bus *events.Bus) Option {
	return func(f *Factory) { f.bus = bus }
}

// New builds a factory. The store may be nil, in which case nothing is
// persisted; venue and cfg are required.
func New(cfg *config.Config, venue amm.Venue, store storage.Storage, collector *metrics.Collector, logger *zap.Logger, opts ...Option) (*Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if venue == nil {
		return nil, fmt.Errorf("amm venue is required")
	}
	f := &Factory{
		tokens:    make(map[solana.PublicKey]*token.Token),
		bySymbol:  make(map[string]solana.PublicKey),
		byCreator: make(map[solana.PublicKey][]solana.PublicKey),
		fees: map[curve.BaseCurrency]*uint256.Int{
			curve.BaseBUSD:  uint256.NewInt(0),
			curve.BaseFRBTC: uint256.NewInt(0),
		},
		cfg:     cfg,
		venue:   venue,
		store:   store,
		metrics: collector,
		logger:  logger.Named("factory"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// launchFee returns the configured flat fee for the base currency.
func (f *Factory) launchFee(bc curve.BaseCurrency) *uint256.Int {
	switch bc {
	case curve.BaseFRBTC:
		return uint256.NewInt(f.cfg.LaunchFeeFRBTC)
	default:
		return uint256.NewInt(f.cfg.LaunchFeeBUSD)
	}
}

// deriveMint computes a deterministic mint address from the creator and the
// factory launch sequence number.
func (f *Factory) deriveMint(creator solana.PublicKey, seq uint64) solana.PublicKey {
	h := sha256.New()
	h.Write([]byte("curvelaunch/mint"))
	h.Write(creator[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	h.Write(buf[:])
	return solana.PublicKeyFromBytes(h.Sum(nil))
}

func (f *Factory) validateLaunch(p LaunchParams) error {
	if p.Name == "" || len(p.Name) > 64 {
		return fmt.Errorf("%w: name must be 1-64 characters", ErrInvalidLaunch)
	}
	if p.Symbol == "" || len(p.Symbol) > 16 {
		return fmt.Errorf("%w: symbol must be 1-16 characters", ErrInvalidLaunch)
	}
	if p.Creator.IsZero() {
		return fmt.Errorf("%w: creator is required", ErrInvalidLaunch)
	}
	if !p.BaseCurrency.Valid() {
		return fmt.Errorf("%w: unknown base currency", ErrInvalidLaunch)
	}
	if !p.Strategy.Valid() {
		return fmt.Errorf("%w: unknown lp distribution strategy", ErrInvalidLaunch)
	}
	if p.BasePrice != 0 && (p.BasePrice < MinBasePrice || p.BasePrice > MaxBasePrice) {
		return fmt.Errorf("%w: base price %d out of range [%d, %d]", ErrInvalidLaunch, p.BasePrice, MinBasePrice, MaxBasePrice)
	}
	if p.GrowthRateBps != 0 && (p.GrowthRateBps < MinGrowthRateBps || p.GrowthRateBps > MaxGrowthRateBps) {
		return fmt.Errorf("%w: growth rate %d out of range [%d, %d]", ErrInvalidLaunch, p.GrowthRateBps, MinGrowthRateBps, MaxGrowthRateBps)
	}
	if p.MaxSupply != 0 && (p.MaxSupply < MinMaxSupply || p.MaxSupply > MaxMaxSupply) {
		return fmt.Errorf("%w: max supply %d out of range [%d, %d]", ErrInvalidLaunch, p.MaxSupply, MinMaxSupply, MaxMaxSupply)
	}
	return nil
}

// curveParams fills zero-valued launch fields with the factory defaults.
// The liquidity threshold is pinned at half the market-cap threshold.
func (f *Factory) curveParams(p LaunchParams) curve.Params {
	basePrice := p.BasePrice
	if basePrice == 0 {
		basePrice = f.cfg.DefaultBasePrice
	}
	growth := p.GrowthRateBps
	if growth == 0 {
		growth = f.cfg.DefaultGrowthRateBps
	}
	maxSupply := p.MaxSupply
	if maxSupply == 0 {
		maxSupply = f.cfg.DefaultMaxSupply
	}
	mcap := p.MarketCapThreshold
	if mcap == 0 {
		mcap = f.cfg.DefaultMarketCapThreshold
	}
	return curve.Params{
		BasePrice:            uint256.NewInt(basePrice),
		GrowthRateBps:        growth,
		MaxSupply:            maxSupply,
		BaseCurrency:         p.BaseCurrency,
		MarketCapThreshold:   uint256.NewInt(mcap),
		LiquidityThreshold:   uint256.NewInt(mcap / 2),
		MinimumUniqueHolders: f.cfg.DefaultMinHolders,
		MinimumAge:           time.Duration(f.cfg.DefaultMinAgeSeconds) * time.Second,
	}
}

// Launch deploys a new bonding-curve token and registers it.
func (f *Factory) Launch(ctx context.Context, p LaunchParams) (*token.Token, error) {
	if err := f.validateLaunch(p); err != nil {
		return nil, err
	}

	fee := f.launchFee(p.BaseCurrency)
	if !fee.IsZero() && (p.FeePayment == nil || p.FeePayment.Lt(fee)) {
		return nil, fmt.Errorf("%w: need %s %s", ErrInsufficientFee, fee.Dec(), p.BaseCurrency)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	symKey := p.Name + "/" + p.Symbol
	if _, ok := f.bySymbol[symKey]; ok {
		return nil, ErrTokenExists
	}

	f.seq++
	mint := f.deriveMint(p.Creator, f.seq)

	tok, err := token.New(token.Config{
		Mint:       mint,
		Name:       p.Name,
		Symbol:     p.Symbol,
		ImageURI:   p.ImageURI,
		Creator:    p.Creator,
		Governance: p.Governance,
		Curve:      f.curveParams(p),
		Strategy:   p.Strategy,
	}, f.venue, f.logger, f.tokenOpts...)
	if err != nil {
		f.seq--
		return nil, err
	}

	if f.store != nil {
		params := tok.Params()
		rec := &models.Token{
			Mint:          mint.String(),
			Name:          p.Name,
			Symbol:        p.Symbol,
			ImageURI:      p.ImageURI,
			Creator:       p.Creator.String(),
			BaseCurrency:  p.BaseCurrency.String(),
			BasePrice:     params.BasePrice.Dec(),
			GrowthRateBps: params.GrowthRateBps,
			MaxSupply:     params.MaxSupply,
			LPStrategy:    p.Strategy.String(),
			LaunchedAt:    tok.CreatedAt(),
		}
		if err := f.store.SaveToken(ctx, rec); err != nil {
			f.seq--
			return nil, fmt.Errorf("failed to persist token: %w", err)
		}
	}

	f.tokens[mint] = tok
	f.order = append(f.order, mint)
	f.bySymbol[symKey] = mint
	f.byCreator[p.Creator] = append(f.byCreator[p.Creator], mint)
	f.fees[p.BaseCurrency] = new(uint256.Int).Add(f.fees[p.BaseCurrency], fee)

	f.metrics.RecordLaunch()
	f.publish(events.TokenLaunchedEvent{
		BaseEvent: events.BaseEvent{EventType: events.TokenLaunched, EventTime: f.now()},
		Mint:      mint,
		Name:      p.Name,
		Symbol:    p.Symbol,
		Creator:   p.Creator,
	})
	f.logger.Info("token launched",
		zap.String("mint", mint.String()),
		zap.String("name", p.Name),
		zap.String("symbol", p.Symbol),
		zap.String("creator", p.Creator.String()),
		zap.String("base_currency", p.BaseCurrency.String()),
		zap.String("fee_collected", fee.Dec()))

	return tok, nil
}

// Get returns the live token for a mint.
func (f *Factory) Get(mint solana.PublicKey) (*token.Token, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tok, ok := f.tokens[mint]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return tok, nil
}

// List returns every registered token in launch order.
func (f *Factory) List() []*token.Token {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*token.Token, 0, len(f.order))
	for _, mint := range f.order {
		out = append(out, f.tokens[mint])
	}
	return out
}

// ByCreator returns the tokens launched by one creator, oldest first.
func (f *Factory) ByCreator(creator solana.PublicKey) []*token.Token {
	f.mu.RLock()
	defer f.mu.RUnlock()
	mints := f.byCreator[creator]
	out := make([]*token.Token, 0, len(mints))
	for _, mint := range mints {
		out = append(out, f.tokens[mint])
	}
	return out
}

// Count returns the number of registered tokens.
func (f *Factory) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.tokens)
}

// FeesCollected returns the accumulated launch fees for a base currency.
func (f *Factory) FeesCollected(bc curve.BaseCurrency) *uint256.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fees[bc].Clone()
}

// Buy executes a buy on the token's curve and persists the trade.
func (f *Factory) Buy(ctx context.Context, mint solana.PublicKey, buyer solana.PublicKey, amountIn *uint256.Int, minTokensOut uint64) (*token.BuyReceipt, error) {
	tok, err := f.Get(mint)
	if err != nil {
		return nil, err
	}

	start := f.now()
	rcpt, err := tok.Buy(ctx, buyer, amountIn, minTokensOut)
	f.metrics.RecordTrade("buy", f.now().Sub(start), err == nil)
	if err != nil {
		return nil, err
	}

	f.afterTrade(ctx, tok, &models.Trade{
		TradeID:     uuid.NewString(),
		Mint:        mint.String(),
		Direction:   "buy",
		Trader:      buyer.String(),
		TokenAmount: rcpt.Tokens,
		BaseAmount:  rcpt.Cost.Dec(),
		ExecutedAt:  f.now(),
	}, rcpt.Graduated)
	f.publishTrade(mint, "buy", buyer, rcpt.Tokens, rcpt.Cost, tok.Supply())
	return rcpt, nil
}

// Sell executes a sell on the token's curve and persists the trade.
func (f *Factory) Sell(ctx context.Context, mint solana.PublicKey, seller solana.PublicKey, tokenAmount uint64, minBaseOut *uint256.Int) (*token.SellReceipt, error) {
	tok, err := f.Get(mint)
	if err != nil {
		return nil, err
	}

	start := f.now()
	rcpt, err := tok.Sell(ctx, seller, tokenAmount, minBaseOut)
	f.metrics.RecordTrade("sell", f.now().Sub(start), err == nil)
	if err != nil {
		return nil, err
	}

	f.afterTrade(ctx, tok, &models.Trade{
		TradeID:     uuid.NewString(),
		Mint:        mint.String(),
		Direction:   "sell",
		Trader:      seller.String(),
		TokenAmount: rcpt.Tokens,
		BaseAmount:  rcpt.Payout.Dec(),
		ExecutedAt:  f.now(),
	}, rcpt.Graduated)
	f.publishTrade(mint, "sell", seller, rcpt.Tokens, rcpt.Payout, tok.Supply())
	return rcpt, nil
}

// afterTrade records the post-trade state, persists the trade row and, when
// the trade tipped the curve over the line, the graduation record. Storage
// failures are logged, not propagated: the trade has already settled.
func (f *Factory) afterTrade(ctx context.Context, tok *token.Token, row *models.Trade, graduated bool) {
	st := tok.State()
	row.SupplyAfter = st.Supply
	row.ReservesAfter = st.Reserves.Dec()

	f.metrics.SetCurveState(row.Mint, float64(st.Supply), reservesGauge(st.Reserves))

	if f.store != nil {
		if err := f.store.SaveTrade(ctx, row); err != nil {
			f.logger.Error("failed to persist trade",
				zap.String("mint", row.Mint),
				zap.String("trade_id", row.TradeID),
				zap.Error(err))
		}
	}
	if graduated {
		f.metrics.RecordGraduation(true)
		f.persistGraduation(ctx, tok)
		f.publishGraduation(tok)
	}
}

// publish drops the event if no bus is configured.
func (f *Factory) publish(ev events.Event) {
	if f.bus == nil {
		return
	}
	if err := f.bus.Publish(ev); err != nil {
		f.logger.Debug("event not published", zap.Error(err))
	}
}

func (f *Factory) publishTrade(mint solana.PublicKey, direction string, trader solana.PublicKey, tokens uint64, base *uint256.Int, supply uint64) {
	if f.bus == nil {
		return
	}
	f.publish(events.TradeExecutedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.TradeExecuted, EventTime: f.now()},
		Mint:        mint,
		Direction:   direction,
		Trader:      trader,
		TokenAmount: tokens,
		BaseAmount:  base.Clone(),
		SupplyAfter: supply,
	})
}

func (f *Factory) publishGraduation(tok *token.Token) {
	if f.bus == nil {
		return
	}
	rec, ok := tok.Record()
	if !ok {
		return
	}
	f.publish(events.CurveGraduatedEvent{
		BaseEvent:     events.BaseEvent{EventType: events.CurveGraduated, EventTime: f.now()},
		Mint:          rec.Mint,
		Pool:          rec.Pool,
		BaseLiquidity: rec.BaseLiquidity.Clone(),
		LPReceived:    rec.LPReceived.Clone(),
		Strategy:      rec.Plan.Strategy.String(),
	})
}

// Graduate forces a graduation attempt on a token.
func (f *Factory) Graduate(ctx context.Context, mint solana.PublicKey) (*token.GraduationRecord, error) {
	tok, err := f.Get(mint)
	if err != nil {
		return nil, err
	}
	rec, err := tok.Graduate(ctx)
	if err != nil {
		// A criteria miss is a routine probe outcome, not a failure.
		if errors.Is(err, token.ErrPoolCreationFailed) || errors.Is(err, token.ErrLiquidityTransferFailed) {
			f.metrics.RecordGraduation(false)
			f.publish(events.GraduationFailedEvent{
				BaseEvent: events.BaseEvent{EventType: events.GraduationFailed, EventTime: f.now()},
				Mint:      mint,
				Error:     err,
			})
		}
		return nil, err
	}
	f.metrics.RecordGraduation(true)
	st := tok.State()
	f.metrics.SetCurveState(mint.String(), float64(st.Supply), 0)
	f.persistGraduation(ctx, tok)
	f.publishGraduation(tok)
	return rec, nil
}

func (f *Factory) persistGraduation(ctx context.Context, tok *token.Token) {
	if f.store == nil {
		return
	}
	rec, ok := tok.Record()
	if !ok {
		return
	}
	row := &models.Graduation{
		GraduationID:   rec.ID.String(),
		Mint:           rec.Mint.String(),
		Pool:           rec.Pool.String(),
		BaseLiquidity:  rec.BaseLiquidity.Dec(),
		TokenLiquidity: rec.TokenLiquidity,
		LPReceived:     rec.LPReceived.Dec(),
		Strategy:       rec.Plan.Strategy.String(),
		GraduatedAt:    rec.At,
	}
	if err := f.store.SaveGraduation(ctx, row); err != nil {
		f.logger.Error("failed to persist graduation",
			zap.String("mint", row.Mint),
			zap.Error(err))
	}
}

// reservesGauge clamps a reserve amount into a float for the gauge; the
// gauge trades precision for observability.
func reservesGauge(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

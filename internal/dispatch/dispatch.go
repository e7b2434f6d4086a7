// Package dispatch exposes the launch engine as a closed set of operations.
// Every externally reachable action is one Op value; Apply is the single
// entry point, so the full command surface is visible in one switch.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/factory"
	"github.com/rovshanmuradov/curvelaunch/internal/lpdist"
	"github.com/rovshanmuradov/curvelaunch/internal/token"
)

// ErrNotGraduated is returned for pool queries on a token still trading.
var ErrNotGraduated = errors.New("token has not graduated")

// Op is one operation against the engine. The set is closed: only types in
// this package implement it.
type Op interface {
	isOp()
}

// CreateToken launches a new bonding-curve token.
type CreateToken struct {
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

	FeePayment *uint256.Int
}

// Buy purchases tokens with base currency.
type Buy struct {
	Mint         solana.PublicKey
	Buyer        solana.PublicKey
	AmountIn     *uint256.Int
	MinTokensOut uint64
}

// Sell burns tokens for base currency.
type Sell struct {
	Mint       solana.PublicKey
	Seller     solana.PublicKey
	Amount     uint64
	MinBaseOut *uint256.Int
}

// QuoteBuy prices a prospective buy without executing it.
type QuoteBuy struct {
	Mint   solana.PublicKey
	Amount uint64
}

// QuoteSell prices a prospective sell without executing it.
type QuoteSell struct {
	Mint   solana.PublicKey
	Amount uint64
}

// Graduate forces a graduation attempt.
type Graduate struct {
	Mint solana.PublicKey
}

// GetName returns the token name.
type GetName struct{ Mint solana.PublicKey }

// GetSymbol returns the token symbol.
type GetSymbol struct{ Mint solana.PublicKey }

// GetSupply returns the current minted supply.
type GetSupply struct{ Mint solana.PublicKey }

// GetReserves returns the current base reserves.
type GetReserves struct{ Mint solana.PublicKey }

// GetPool returns the AMM pool of a graduated token.
type GetPool struct{ Mint solana.PublicKey }

// IsGraduated reports whether the curve has closed.
type IsGraduated struct{ Mint solana.PublicKey }

// GetData returns the serialized token metadata blob.
type GetData struct{ Mint solana.PublicKey }

// GetState returns a snapshot of the mutable curve state.
type GetState struct{ Mint solana.PublicKey }

// TokenList lists every launched token.
type TokenList struct{}

// TokenInfo returns the summary of one token.
type TokenInfo struct{ Mint solana.PublicKey }

// CreatorTokens lists the tokens launched by one creator.
type CreatorTokens struct{ Creator solana.PublicKey }

func (CreateToken) isOp()   {}
func (Buy) isOp()           {}
func (Sell) isOp()          {}
func (QuoteBuy) isOp()      {}
func (QuoteSell) isOp()     {}
func (Graduate) isOp()      {}
func (GetName) isOp()       {}
func (GetSymbol) isOp()     {}
func (GetSupply) isOp()     {}
func (GetReserves) isOp()   {}
func (GetPool) isOp()       {}
func (IsGraduated) isOp()   {}
func (GetData) isOp()       {}
func (GetState) isOp()      {}
func (TokenList) isOp()     {}
func (TokenInfo) isOp()     {}
func (CreatorTokens) isOp() {}

// Summary is the listing row returned for token queries.
type Summary struct {
	Mint      string `json:"mint"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Creator   string `json:"creator"`
	Supply    uint64 `json:"supply"`
	Reserves  string `json:"reserves"`
	Phase     string `json:"phase"`
	Holders   int    `json:"holders"`
	Pool      string `json:"pool,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Engine applies operations to the factory.
type Engine struct {
	factory *factory.Factory
}

// NewEngine wraps a factory.
func NewEngine(f *factory.Factory) *Engine {
	return &Engine{factory: f}
}

// Apply executes one operation and returns its result. The result type
// depends on the operation; callers that need a specific shape assert it.
func (e *Engine) Apply(ctx context.Context, op Op) (any, error) {
	switch op := op.(type) {
	case CreateToken:
		tok, err := e.factory.Launch(ctx, factory.LaunchParams{
			Name:               op.Name,
			Symbol:             op.Symbol,
			ImageURI:           op.ImageURI,
			Creator:            op.Creator,
			Governance:         op.Governance,
			BaseCurrency:       op.BaseCurrency,
			Strategy:           op.Strategy,
			BasePrice:          op.BasePrice,
			GrowthRateBps:      op.GrowthRateBps,
			MaxSupply:          op.MaxSupply,
			MarketCapThreshold: op.MarketCapThreshold,
			FeePayment:         op.FeePayment,
		})
		if err != nil {
			return nil, err
		}
		return summarize(tok), nil

	case Buy:
		return e.factory.Buy(ctx, op.Mint, op.Buyer, op.AmountIn, op.MinTokensOut)

	case Sell:
		return e.factory.Sell(ctx, op.Mint, op.Seller, op.Amount, op.MinBaseOut)

	case QuoteBuy:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.QuoteBuy(op.Amount)

	case QuoteSell:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.QuoteSell(op.Amount)

	case Graduate:
		return e.factory.Graduate(ctx, op.Mint)

	case GetName:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.Name(), nil

	case GetSymbol:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.Symbol(), nil

	case GetSupply:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.Supply(), nil

	case GetReserves:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.Reserves(), nil

	case GetPool:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		pool, ok := tok.Pool()
		if !ok {
			return nil, ErrNotGraduated
		}
		return pool, nil

	case IsGraduated:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.IsGraduated(), nil

	case GetData:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		blob, err := tok.Data()
		if err != nil {
			return nil, err
		}
		return rawJSON(blob), nil

	case GetState:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return tok.State(), nil

	case TokenList:
		return summarizeAll(e.factory.List()), nil

	case TokenInfo:
		tok, err := e.factory.Get(op.Mint)
		if err != nil {
			return nil, err
		}
		return summarize(tok), nil

	case CreatorTokens:
		return summarizeAll(e.factory.ByCreator(op.Creator)), nil

	default:
		return nil, fmt.Errorf("unknown operation %T", op)
	}
}

func summarize(tok *token.Token) Summary {
	st := tok.State()
	s := Summary{
		Mint:      tok.Mint().String(),
		Name:      tok.Name(),
		Symbol:    tok.Symbol(),
		Creator:   tok.Creator().String(),
		Supply:    st.Supply,
		Reserves:  st.Reserves.Dec(),
		Phase:     st.Phase.String(),
		Holders:   st.HolderCount,
		CreatedAt: st.CreatedAt.UTC().Format(time.RFC3339),
	}
	if st.Phase == token.PhaseGraduated {
		s.Pool = st.Pool.String()
	}
	return s
}

func summarizeAll(tokens []*token.Token) []Summary {
	out := make([]Summary, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, summarize(tok))
	}
	return out
}

// rawJSON lets pre-serialized blobs pass through response encoding intact.
type rawJSON []byte

var _ json.Marshaler = rawJSON(nil)

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

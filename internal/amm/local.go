package amm

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedmath"
)

// Local is an in-process constant-product venue. Pool addresses are derived
// deterministically from the pair, and creating a pair's pool again while it
// still holds no liquidity returns the existing pool, so a graduation that
// aborted between pool creation and the deposit can retry.
//
// The Fail* fields inject faults for exercising the rollback paths; they are
// zero in production wiring.
type Local struct {
	mu     sync.Mutex
	pools  map[solana.PublicKey]*localPool
	logger *zap.Logger

	FailCreatePool   error
	FailAddLiquidity error
	FailBurnLP       error
	FailTransferLP   error
}

type localPool struct {
	tokenMint    solana.PublicKey
	baseMint     solana.PublicKey
	tokenReserve uint64
	baseReserve  *uint256.Int
	lpSupply     *uint256.Int
	lpBurned     *uint256.Int
	lpBalances   map[solana.PublicKey]*uint256.Int
}

// NewLocal returns an empty venue.
func NewLocal(logger *zap.Logger) *Local {
	return &Local{
		pools:  make(map[solana.PublicKey]*localPool),
		logger: logger,
	}
}

// PoolAddress derives the deterministic address for a pair.
func PoolAddress(tokenMint, baseMint solana.PublicKey) solana.PublicKey {
	h := sha256.New()
	h.Write([]byte("curvelaunch/pool"))
	h.Write(tokenMint.Bytes())
	h.Write(baseMint.Bytes())
	return solana.PublicKeyFromBytes(h.Sum(nil))
}

func (l *Local) CreatePool(_ context.Context, tokenMint, baseMint solana.PublicKey) (solana.PublicKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailCreatePool != nil {
		return solana.PublicKey{}, l.FailCreatePool
	}

	addr := PoolAddress(tokenMint, baseMint)
	if p, ok := l.pools[addr]; ok {
		// An empty pool is a leftover from an aborted deposit; hand it back.
		if p.lpSupply.IsZero() {
			return addr, nil
		}
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrPoolExists, addr)
	}
	l.pools[addr] = &localPool{
		tokenMint:   tokenMint,
		baseMint:    baseMint,
		baseReserve: uint256.NewInt(0),
		lpSupply:    uint256.NewInt(0),
		lpBurned:    uint256.NewInt(0),
		lpBalances:  make(map[solana.PublicKey]*uint256.Int),
	}

	l.logger.Debug("pool created",
		zap.String("pool", addr.String()),
		zap.String("token_mint", tokenMint.String()),
		zap.String("base_mint", baseMint.String()))
	return addr, nil
}

func (l *Local) AddLiquidity(_ context.Context, pool solana.PublicKey, tokenAmount uint64, baseAmount *uint256.Int) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailAddLiquidity != nil {
		return nil, l.FailAddLiquidity
	}

	p, ok := l.pools[pool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
	}
	if tokenAmount == 0 || baseAmount == nil || baseAmount.IsZero() {
		return nil, fmt.Errorf("initial liquidity must be positive on both sides")
	}
	if !fixedmath.Fits128(baseAmount) {
		return nil, fixedmath.ErrArithmeticOverflow
	}

	// Initial LP issuance: sqrt(token * base), the usual constant-product
	// convention for the first deposit.
	prod := new(uint256.Int).Mul(uint256.NewInt(tokenAmount), baseAmount)
	lp := new(uint256.Int).Sqrt(prod)
	if lp.IsZero() {
		lp = uint256.NewInt(1)
	}

	p.tokenReserve += tokenAmount
	p.baseReserve.Add(p.baseReserve, baseAmount)
	p.lpSupply.Add(p.lpSupply, lp)
	depositorLP := lp.Clone()

	l.logger.Debug("liquidity added",
		zap.String("pool", pool.String()),
		zap.Uint64("token_amount", tokenAmount),
		zap.String("base_amount", baseAmount.Dec()),
		zap.String("lp_minted", lp.Dec()))
	return depositorLP, nil
}

func (l *Local) BurnLP(_ context.Context, pool solana.PublicKey, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailBurnLP != nil {
		return l.FailBurnLP
	}

	p, ok := l.pools[pool]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
	}
	p.lpBurned.Add(p.lpBurned, amount)
	return nil
}

func (l *Local) TransferLP(_ context.Context, pool solana.PublicKey, to solana.PublicKey, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailTransferLP != nil {
		return l.FailTransferLP
	}

	p, ok := l.pools[pool]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
	}
	bal, ok := p.lpBalances[to]
	if !ok {
		bal = uint256.NewInt(0)
		p.lpBalances[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// Quote returns the base-currency output for swapping tokenIn against the
// pool, by the constant-product formula out = y*in/(x+in). Post-graduation
// pricing lives on the pool, so this is view-only convenience for callers
// that want to show a price after the curve has closed.
func (l *Local) Quote(pool solana.PublicKey, tokenIn uint64) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pools[pool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
	}
	if p.tokenReserve == 0 || p.baseReserve.IsZero() {
		return nil, fmt.Errorf("pool %s has no liquidity", pool)
	}
	return fixedmath.MulDiv(p.baseReserve, fixedmath.U64(tokenIn), fixedmath.U64(p.tokenReserve+tokenIn))
}

// LPBalance returns the LP amount held by an address in a pool.
func (l *Local) LPBalance(pool, owner solana.PublicKey) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.pools[pool]; ok {
		if bal, ok := p.lpBalances[owner]; ok {
			return bal.Clone()
		}
	}
	return uint256.NewInt(0)
}

// LPBurned returns how much LP has been destroyed in a pool.
func (l *Local) LPBurned(pool solana.PublicKey) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.pools[pool]; ok {
		return p.lpBurned.Clone()
	}
	return uint256.NewInt(0)
}

var _ Venue = (*Local)(nil)

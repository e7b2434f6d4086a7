// Package amm defines the external automated-market-maker boundary the
// graduation path hands liquidity to, plus an in-process venue used by the
// daemon and the test suite. Every method is fallible and none is retried
// within a single graduation attempt; retry is a caller-level concern.
package amm

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

var (
	// ErrPoolExists is returned when a pool for the pair already exists.
	ErrPoolExists = errors.New("pool already exists for pair")

	// ErrPoolNotFound is returned for operations on an unknown pool.
	ErrPoolNotFound = errors.New("pool not found")
)

// Venue is the AMM interface the graduation orchestrator talks to. The
// engine treats a Venue as an external system: a failure of any call must
// leave the caller free to abandon the attempt without local side effects.
type Venue interface {
	// CreatePool registers a pool for the (token, base) pair and returns
	// its address. The handle is discardable: creating a pool and never
	// adding liquidity leaves no obligation on the caller.
	CreatePool(ctx context.Context, tokenMint, baseMint solana.PublicKey) (solana.PublicKey, error)

	// AddLiquidity deposits both sides as initial liquidity and returns the
	// LP amount minted to the caller.
	AddLiquidity(ctx context.Context, pool solana.PublicKey, tokenAmount uint64, baseAmount *uint256.Int) (*uint256.Int, error)

	// BurnLP destroys part of the caller's LP balance.
	BurnLP(ctx context.Context, pool solana.PublicKey, amount *uint256.Int) error

	// TransferLP moves part of the caller's LP balance to a recipient.
	TransferLP(ctx context.Context, pool solana.PublicKey, to solana.PublicKey, amount *uint256.Int) error
}

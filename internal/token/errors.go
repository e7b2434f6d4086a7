package token

import "errors"

// Validation errors: rejected before any state is read.
var (
	ErrZeroAmount     = errors.New("amount must be positive")
	ErrAmountTooSmall = errors.New("base amount too small to buy any tokens")
)

// Economic errors: rejected after quoting, before any mutation.
var (
	ErrSlippageExceeded     = errors.New("slippage exceeded")
	ErrInsufficientReserves = errors.New("insufficient reserves for sell")
	ErrInsufficientBalance  = errors.New("insufficient token balance")
	ErrTradeTooLarge        = errors.New("trade exceeds per-transaction cap")
)

// Lifecycle errors: state-machine guard violations.
var (
	ErrAlreadyGraduated         = errors.New("bonding curve has graduated to AMM")
	ErrGraduationCriteriaNotMet = errors.New("graduation criteria not met")
)

// External errors: failures attributable to the AMM boundary. The local
// state is always left untouched when one of these is returned.
var (
	ErrPoolCreationFailed      = errors.New("pool creation failed")
	ErrLiquidityTransferFailed = errors.New("liquidity transfer failed")
)

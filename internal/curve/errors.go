package curve

import "errors"

var (
	// ErrSupplyExceeded is returned when a buy would push supply past MaxSupply.
	ErrSupplyExceeded = errors.New("purchase would exceed maximum supply")

	// ErrInsufficientSupply is returned when a sell quote asks for more tokens
	// than are currently minted.
	ErrInsufficientSupply = errors.New("cannot sell more tokens than current supply")

	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("invalid curve parameters")
)

package factory

import "errors"

var (
	ErrTokenNotFound   = errors.New("token not found")
	ErrTokenExists     = errors.New("token with this name and symbol already exists")
	ErrInsufficientFee = errors.New("launch fee payment too small")
	ErrInvalidLaunch   = errors.New("invalid launch parameters")
)

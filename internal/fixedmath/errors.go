package fixedmath

import "errors"

var (
	// ErrArithmeticOverflow is returned when a result does not fit the
	// 128-bit amount range. Results are never silently truncated.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrArithmeticUnderflow is returned when a subtraction would go negative.
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")

	// ErrDivisionByZero is returned when a denominator is zero.
	ErrDivisionByZero = errors.New("division by zero")
)

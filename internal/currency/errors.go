package currency

import "errors"

// Conversion errors. They are returned before any contract call is attempted.
var (
	// ErrInvalidAmount is returned for negative, non-numeric or out-of-range amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnknownUnit is returned when a unit or token symbol is not registered.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrUnitMismatch is returned when two amounts of different units are combined
	// or compared, or when no conversion is declared between two units.
	ErrUnitMismatch = errors.New("unit mismatch")
)

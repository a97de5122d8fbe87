// Package currency converts between human-readable decimal amounts and the
// fixed-point integers token contracts store on-chain.
package currency

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a currency unit, named by token symbol (e.g. "WETH", "DAI").
type Unit string

// String returns the symbol.
func (u Unit) String() string { return string(u) }

// Amount is an immutable decimal value tagged with a unit.
// The zero Amount has no unit and a zero value.
type Amount struct {
	value     decimal.Decimal
	unit      Unit
	unlimited bool
}

// NewAmount creates an amount of value in unit.
func NewAmount(value decimal.Decimal, unit Unit) Amount {
	return Amount{value: value, unit: unit}
}

// Parse parses a decimal string into an amount of unit.
// Returns ErrInvalidAmount for non-numeric input.
func Parse(s string, unit Unit) (Amount, error) {
	v, err := ParseDecimal(s)
	if err != nil {
		return Amount{}, err
	}
	return NewAmount(v, unit), nil
}

// ParseDecimal parses a decimal string. Returns ErrInvalidAmount for non-numeric input.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return v, nil
}

// Unlimited returns the unlimited-approval sentinel for unit.
// It has no numeric value and converts to the maximum uint256.
func Unlimited(unit Unit) Amount {
	return Amount{unit: unit, unlimited: true}
}

// Value returns the decimal value. The unlimited sentinel reports zero.
func (a Amount) Value() decimal.Decimal { return a.value }

// Unit returns the unit tag.
func (a Amount) Unit() Unit { return a.unit }

// IsUnlimited reports whether a is the unlimited sentinel.
func (a Amount) IsUnlimited() bool { return a.unlimited }

// IsZero reports whether a is a numeric zero.
func (a Amount) IsZero() bool { return !a.unlimited && a.value.IsZero() }

// IsNegative reports whether a is below zero.
func (a Amount) IsNegative() bool { return !a.unlimited && a.value.IsNegative() }

// String formats the amount with its unit, e.g. "1.5 WETH".
func (a Amount) String() string {
	if a.unlimited {
		return "unlimited " + a.unit.String()
	}
	return a.value.String() + " " + a.unit.String()
}

// Equal reports whether a and b have the same unit and numerically equal values.
func (a Amount) Equal(b Amount) bool {
	if a.unit != b.unit || a.unlimited != b.unlimited {
		return false
	}
	return a.unlimited || a.value.Equal(b.value)
}

// Cmp compares a and b. Returns ErrUnitMismatch if the units differ.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.sameUnit(b); err != nil {
		return 0, err
	}
	switch {
	case a.unlimited && b.unlimited:
		return 0, nil
	case a.unlimited:
		return 1, nil
	case b.unlimited:
		return -1, nil
	}
	return a.value.Cmp(b.value), nil
}

// Add returns a+b. Both must share a unit and neither may be unlimited.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.arithmetic(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.value.Add(b.value), a.unit), nil
}

// Sub returns a-b. Both must share a unit and neither may be unlimited.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.arithmetic(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.value.Sub(b.value), a.unit), nil
}

func (a Amount) sameUnit(b Amount) error {
	if a.unit != b.unit {
		return fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, a.unit, b.unit)
	}
	return nil
}

func (a Amount) arithmetic(b Amount) error {
	if err := a.sameUnit(b); err != nil {
		return err
	}
	if a.unlimited || b.unlimited {
		return fmt.Errorf("%w: arithmetic on unlimited amount", ErrInvalidAmount)
	}
	return nil
}

// amountJSON is the wire shape of an Amount.
type amountJSON struct {
	Value     string `json:"value"`
	Unit      Unit   `json:"unit"`
	Unlimited bool   `json:"unlimited,omitempty"`
}

// MarshalJSON encodes the amount as {"value":"1.5","unit":"WETH"}.
func (a Amount) MarshalJSON() ([]byte, error) {
	out := amountJSON{Unit: a.unit, Unlimited: a.unlimited}
	if !a.unlimited {
		out.Value = a.value.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var in amountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Unlimited {
		*a = Unlimited(in.Unit)
		return nil
	}
	v, err := ParseDecimal(in.Value)
	if err != nil {
		return err
	}
	*a = NewAmount(v, in.Unit)
	return nil
}

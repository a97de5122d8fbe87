package currency

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// ToRaw scales a by 10^decimals into the integer a contract expects.
//
// Values with more fractional digits than decimals are rounded half away from
// zero. Negative amounts and results above MaxUint256 fail with ErrInvalidAmount.
// The unlimited sentinel skips scaling and maps to MaxUint256.
func ToRaw(a Amount, decimals uint8) (RawAmount, error) {
	if a.unlimited {
		return UnlimitedRaw(), nil
	}
	if a.value.IsNegative() {
		return RawAmount{}, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, a)
	}

	scaled := a.value.Shift(int32(decimals)).Round(0)
	raw, err := NewRaw(scaled.BigInt())
	if err != nil {
		return RawAmount{}, fmt.Errorf("scale %s by 10^%d: %w", a, decimals, err)
	}
	return raw, nil
}

// FromRaw divides r by 10^decimals and tags the exact result with unit.
func FromRaw(r RawAmount, decimals uint8, unit Unit) Amount {
	if r.unlimited {
		return Unlimited(unit)
	}
	return NewAmount(decimal.NewFromBigInt(r.Int(), -int32(decimals)), unit)
}

// ToDisplay decodes an on-chain bytes value (e.g. a bytes32 oracle price) into
// ASCII text. Trailing NUL padding is dropped.
func ToDisplay(raw []byte) string {
	return string(bytes.TrimRight(raw, "\x00"))
}

// DisplayFromHex is ToDisplay for a 0x-prefixed hex string.
func DisplayFromHex(s string) (string, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", s, err)
	}
	return ToDisplay(b), nil
}

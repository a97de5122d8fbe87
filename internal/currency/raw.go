package currency

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

// MaxSafeInteger is the allowance reported in metadata for unlimited approvals.
// It is a display value only; the on-chain allowance is MaxUint256.
const MaxSafeInteger int64 = 1<<53 - 1

// MaxUint256 returns 2^256-1, the largest on-chain integer.
func MaxUint256() *big.Int {
	return new(big.Int).Set(math.MaxBig256)
}

// RawAmount is a non-negative integer in a token's smallest unit, or the
// unlimited-approval sentinel. The zero RawAmount is 0.
type RawAmount struct {
	v         *big.Int
	unlimited bool
}

// NewRaw validates v as an on-chain uint256. Returns ErrInvalidAmount when v is
// nil, negative or larger than MaxUint256.
func NewRaw(v *big.Int) (RawAmount, error) {
	if v == nil {
		return RawAmount{}, fmt.Errorf("%w: nil integer", ErrInvalidAmount)
	}
	if v.Sign() < 0 {
		return RawAmount{}, fmt.Errorf("%w: negative raw amount %s", ErrInvalidAmount, v)
	}
	if v.Cmp(math.MaxBig256) > 0 {
		return RawAmount{}, fmt.Errorf("%w: %s exceeds uint256", ErrInvalidAmount, v)
	}
	return RawAmount{v: new(big.Int).Set(v)}, nil
}

// UnlimitedRaw returns the unlimited-approval sentinel.
func UnlimitedRaw() RawAmount {
	return RawAmount{unlimited: true}
}

// IsUnlimited reports whether r is the unlimited sentinel.
func (r RawAmount) IsUnlimited() bool { return r.unlimited }

// Int returns a copy of the integer a contract should receive.
// The unlimited sentinel maps to MaxUint256.
func (r RawAmount) Int() *big.Int {
	if r.unlimited {
		return MaxUint256()
	}
	if r.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.v)
}

// String returns the decimal integer representation.
func (r RawAmount) String() string {
	return r.Int().String()
}

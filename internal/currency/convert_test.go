package currency

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad integer literal %s", s)
	return v
}

func TestToRaw(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals uint8
		want     string
	}{
		{name: "18 decimals fractional", value: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "oracle price", value: "400.00", decimals: 18, want: "400000000000000000000"},
		{name: "6 decimals", value: "12.345678", decimals: 6, want: "12345678"},
		{name: "zero decimals integer", value: "42", decimals: 0, want: "42"},
		{name: "zero decimals rounds half up", value: "42.5", decimals: 0, want: "43"},
		{name: "zero decimals rounds down", value: "42.49", decimals: 0, want: "42"},
		{name: "excess fraction rounded", value: "0.1234567", decimals: 6, want: "123457"},
		{name: "zero", value: "0", decimals: 18, want: "0"},
		{name: "large decimals", value: "0.000000000000000000000000000001", decimals: 30, want: "1"},
		{name: "float-unfriendly value", value: "0.1", decimals: 18, want: "100000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.value, "TKN")
			require.NoError(t, err)

			raw, err := ToRaw(a, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, raw.String())
			assert.False(t, raw.IsUnlimited())
		})
	}
}

func TestToRaw_Negative(t *testing.T) {
	_, err := ToRaw(NewAmount(decimal.RequireFromString("-1"), "DAI"), 18)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestToRaw_Overflow(t *testing.T) {
	max := decimal.NewFromBigInt(MaxUint256(), 0)

	raw, err := ToRaw(NewAmount(max, "DAI"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, raw.Int().Cmp(MaxUint256()))

	_, err = ToRaw(NewAmount(max.Add(decimal.NewFromInt(1)), "DAI"), 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ToRaw(NewAmount(max, "DAI"), 1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestToRaw_Unlimited(t *testing.T) {
	raw, err := ToRaw(Unlimited("WETH"), 18)
	require.NoError(t, err)
	assert.True(t, raw.IsUnlimited())
	assert.Equal(t, MaxUint256(), raw.Int())

	// decimals do not matter for the sentinel
	raw0, err := ToRaw(Unlimited("WETH"), 0)
	require.NoError(t, err)
	assert.Equal(t, raw.Int(), raw0.Int())
}

func TestFromRaw(t *testing.T) {
	raw, err := NewRaw(mustBig(t, "1500000000000000000"))
	require.NoError(t, err)

	a := FromRaw(raw, 18, "WETH")
	assert.Equal(t, Unit("WETH"), a.Unit())
	assert.True(t, a.Value().Equal(decimal.RequireFromString("1.5")), "got %s", a.Value())

	a = FromRaw(raw, 0, "WETH")
	assert.Equal(t, "1500000000000000000", a.Value().String())
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		value    string
		decimals uint8
	}{
		{"0", 0},
		{"7", 0},
		{"1.5", 18},
		{"0.000000000000000001", 18},
		{"123456789.123456", 6},
		{"999999999999.99999999", 8},
		{"3.14159265358979323846264338327950288", 35},
		{"1", 77},
	}

	for _, c := range cases {
		t.Run(c.value, func(t *testing.T) {
			in, err := Parse(c.value, "TKN")
			require.NoError(t, err)

			raw, err := ToRaw(in, c.decimals)
			require.NoError(t, err)

			out := FromRaw(raw, c.decimals, "TKN")
			assert.True(t, in.Equal(out), "round trip %s -> %s -> %s", in, raw, out)
		})
	}
}

func TestNewRaw_Validation(t *testing.T) {
	_, err := NewRaw(nil)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewRaw(big.NewInt(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)

	src := big.NewInt(10)
	raw, err := NewRaw(src)
	require.NoError(t, err)
	src.SetInt64(11)
	assert.Equal(t, "10", raw.String(), "RawAmount must not alias its input")
}

func TestToDisplay(t *testing.T) {
	assert.Equal(t, "400.00", ToDisplay([]byte{0x34, 0x30, 0x30, 0x2e, 0x30, 0x30}))

	var word [32]byte
	copy(word[:], "400.00")
	assert.Equal(t, "400.00", ToDisplay(word[:]))

	s, err := DisplayFromHex("0x3430302e3030")
	require.NoError(t, err)
	assert.Equal(t, "400.00", s)

	_, err = DisplayFromHex("not-hex")
	require.Error(t, err)
}

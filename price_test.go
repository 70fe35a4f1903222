package xchg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_MinorCost(t *testing.T) {
	p := NewPrice(7, 3)

	cost, ok := p.MinorCost(NewAmount(10))
	require.True(t, ok)
	assert.Equal(t, "23", cost.Dec())

	_, ok = p.MinorCost(NewAmount(0))
	assert.False(t, ok)

	_, code := NewPrice(1, 3).minorCost(NewAmount(2))
	assert.Equal(t, ErrCodeNotEnoughTokensAmount, code)

	_, code = NewPrice(2, 1).minorCost(MustParseAmount("340282366920938463463374607431768211455"))
	assert.Equal(t, ErrCodeTooBigTokensAmount, code)
}

func TestPrice_Valid(t *testing.T) {
	assert.True(t, NewPrice(1, 1).Valid())
	assert.False(t, NewPrice(0, 1).Valid())
	assert.False(t, NewPrice(1, 0).Valid())
}

func TestPrice_Decimal(t *testing.T) {
	assert.Equal(t, "2500", NewPrice(25, 10).Decimal(9, 6).String())
	assert.Equal(t, "2.5", NewPrice(25, 10).Decimal(6, 6).String())
	assert.Equal(t, "0", Price{}.Decimal(9, 6).String())
}

func TestFees(t *testing.T) {
	f := Fees{TakerNum: 3, MakerNum: 1, Denom: 1000}
	require.True(t, f.Valid())

	fee, vig, ok := f.split(NewAmount(2333))
	require.True(t, ok)
	assert.Equal(t, "6", fee.Dec())
	assert.Equal(t, "2", vig.Dec())

	small := Fees{TakerNum: 10, MakerNum: 5, Denom: 100}
	for _, tc := range []struct{ base, fee, vig uint64 }{
		{1, 1, 0},
		{9, 1, 0},
		{20, 2, 1},
		{25, 2, 1},
		{40, 4, 2},
	} {
		fee, vig, ok := small.split(NewAmount(tc.base))
		require.True(t, ok)
		assert.Equal(t, tc.fee, fee.Uint64(), "fee of %d", tc.base)
		assert.Equal(t, tc.vig, vig.Uint64(), "vig of %d", tc.base)
	}

	fee, vig, ok = small.split(Amount{})
	require.True(t, ok)
	assert.True(t, fee.IsZero())
	assert.True(t, vig.IsZero())

	assert.False(t, Fees{TakerNum: 1, MakerNum: 1, Denom: 100}.Valid())
	assert.False(t, Fees{TakerNum: 100, MakerNum: 1, Denom: 100}.Valid())
	assert.False(t, Fees{TakerNum: 2, MakerNum: 1}.Valid())
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, 128, v.BitLen())

	_, err = ParseAmount("340282366920938463463374607431768211456")
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = ParseAmount("12a")
	assert.Error(t, err)

	assert.Panics(t, func() { MustParseAmount("-1") })
}

func TestCheckedArithmetic(t *testing.T) {
	max := MustParseAmount("340282366920938463463374607431768211455")

	_, ok := addChecked(max, NewAmount(1))
	assert.False(t, ok)

	sum, ok := addChecked(NewAmount(2), NewAmount(3))
	require.True(t, ok)
	assert.Equal(t, "5", sum.Dec())

	floor := subFloor(NewAmount(3), NewAmount(5))
	assert.True(t, floor.IsZero())

	assert.True(t, isLastFill(NewAmount(10), NewAmount(10), NewAmount(1)))
	assert.True(t, isLastFill(NewAmount(10), NewAmount(8), NewAmount(3)))
	assert.False(t, isLastFill(NewAmount(10), NewAmount(5), NewAmount(3)))
}

func TestSha3WalletResolver(t *testing.T) {
	r := Sha3WalletResolver{}
	major := Tip3Config{Root: "0:major"}
	minor := Tip3Config{Root: "0:minor"}
	creds := Credentials{Pubkey: "pk"}

	a := r.ExpectedWallet(major, creds)
	assert.Equal(t, a, r.ExpectedWallet(major, creds))
	assert.NotEqual(t, a, r.ExpectedWallet(minor, creds))
	assert.NotEqual(t, a, r.ExpectedWallet(major, Credentials{Pubkey: "pk", Owner: "0:owner"}))
	assert.Len(t, string(a), 2+64)
}

func TestEvers_DealCost(t *testing.T) {
	cost := testConfig().Evers.DealCost()
	assert.Equal(t, "32", cost.Dec())
}

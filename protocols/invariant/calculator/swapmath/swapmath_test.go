package swapmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

func priceFromString(t *testing.T, s string) fixed.Dec {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return fixed.New(v, fixed.PriceScale)
}

func token(v uint64) fixed.Dec {
	return fixed.FromUint64(v, fixed.TokenScale)
}

var (
	priceOne = "1000000000000000000000000"
	priceT10 = "1000500100010000500010000" // tick 10
	priceT100 = "1005012269623051203500692" // tick 100
	priceTm10 = "999500149965006998740209" // tick -10
)

func TestDeltaX(t *testing.T) {
	a := priceFromString(t, priceTm10)
	b := priceFromString(t, priceOne)
	l := fixed.FromInteger(1_000_000, fixed.LiquidityScale)

	assert.Equal(t, "501", DeltaX(a, b, l, true).Big().String())
	assert.Equal(t, "500", DeltaX(a, b, l, false).Big().String())

	t.Run("order independent", func(t *testing.T) {
		assert.True(t, DeltaX(a, b, l, false).Eq(DeltaX(b, a, l, false)))
	})

	t.Run("zero interval", func(t *testing.T) {
		assert.True(t, DeltaX(a, a, l, true).IsZero())
	})
}

func TestDeltaY(t *testing.T) {
	a := priceFromString(t, priceTm10)
	b := priceFromString(t, priceOne)
	l := fixed.FromInteger(1_000_000, fixed.LiquidityScale)

	assert.Equal(t, "500", DeltaY(a, b, l, true).Big().String())
	assert.Equal(t, "499", DeltaY(a, b, l, false).Big().String())
}

func TestNextPrice(t *testing.T) {
	price := priceFromString(t, priceOne)
	l := fixed.FromInteger(1_000_000, fixed.LiquidityScale)

	t.Run("x input pushes price down", func(t *testing.T) {
		got := NextPriceFromInput(price, l, token(500), true)
		assert.Equal(t, "999500249875062468765618", got.Big().String())
	})

	t.Run("y input pushes price up", func(t *testing.T) {
		got := NextPriceFromInput(price, l, token(500), false)
		assert.Equal(t, "1000500000000000000000000", got.Big().String())
	})

	t.Run("zero amount leaves price alone", func(t *testing.T) {
		assert.True(t, price.Eq(NextPriceFromInput(price, l, token(0), true)))
	})
}

func TestComputeSwapStep(t *testing.T) {
	cur := priceFromString(t, priceOne)

	t.Run("input too small to move price becomes fee", func(t *testing.T) {
		target := priceFromString(t, priceT10)
		l := fixed.FromInteger(2000, fixed.LiquidityScale)
		fee := fixed.FromUint64(600_000_000, fixed.FixedPointScale) // 0.06%

		got := ComputeSwapStep(cur, target, l, token(1), true, fee)
		assert.True(t, got.NextPrice.Eq(cur), "price must not move")
		assert.Equal(t, "0", got.AmountIn.Big().String())
		assert.Equal(t, "0", got.AmountOut.Big().String())
		assert.Equal(t, "1", got.FeeAmount.Big().String())
	})

	t.Run("tiny exact-out reaches target", func(t *testing.T) {
		target := priceFromString(t, priceT10)
		l := fixed.FromInteger(2000, fixed.LiquidityScale)
		fee := fixed.FromUint64(600_000_000, fixed.FixedPointScale)

		got := ComputeSwapStep(cur, target, l, token(1), false, fee)
		assert.True(t, got.NextPrice.Eq(target))
		assert.Equal(t, "2", got.AmountIn.Big().String())
		assert.Equal(t, "0", got.AmountOut.Big().String())
		assert.Equal(t, "0", got.FeeAmount.Big().String())
	})

	t.Run("exact-in clamped at target", func(t *testing.T) {
		target := priceFromString(t, priceT100)
		l := fixed.FromInteger(300_000, fixed.LiquidityScale)
		fee := fixed.FromUint64(6_000_000_000, fixed.FixedPointScale) // 0.6%

		got := ComputeSwapStep(cur, target, l, token(1_000_000), true, fee)
		assert.True(t, got.NextPrice.Eq(target))
		assert.Equal(t, "1504", got.AmountIn.Big().String())
		assert.Equal(t, "1496", got.AmountOut.Big().String())
		assert.Equal(t, "9", got.FeeAmount.Big().String())
	})

	t.Run("zero liquidity jumps to target", func(t *testing.T) {
		target := priceFromString(t, priceTm10)
		fee := fixed.FromUint64(6_000_000_000, fixed.FixedPointScale)

		got := ComputeSwapStep(cur, target, fixed.Zero(fixed.LiquidityScale), token(1000), true, fee)
		assert.True(t, got.NextPrice.Eq(target))
		assert.True(t, got.AmountIn.IsZero())
		assert.True(t, got.AmountOut.IsZero())
		assert.True(t, got.FeeAmount.IsZero())
	})
}

func TestIsEnoughToPushPrice(t *testing.T) {
	price := priceFromString(t, priceOne)
	l := fixed.FromInteger(2000, fixed.LiquidityScale)
	fee := fixed.FromUint64(600_000_000, fixed.FixedPointScale)

	t.Run("dust input", func(t *testing.T) {
		assert.False(t, IsEnoughToPushPrice(token(1), price, l, fee, true, false))
	})

	t.Run("real input", func(t *testing.T) {
		assert.True(t, IsEnoughToPushPrice(token(1000), price, l, fee, true, false))
	})

	t.Run("exact-out always prices the output", func(t *testing.T) {
		assert.True(t, IsEnoughToPushPrice(token(1), price, l, fee, false, true))
	})

	t.Run("zero liquidity", func(t *testing.T) {
		assert.True(t, IsEnoughToPushPrice(token(1), price, fixed.Zero(fixed.LiquidityScale), fee, true, true))
	})
}

// Package swapmath computes a single constant-liquidity swap step: the token
// amounts spanned by a price interval, the price reached by a given amount,
// and the fee split of one step. All rounding directions favor the pool and
// match the settlement program exactly.
package swapmath

import (
	"math/big"

	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

var (
	one        = big.NewInt(1)
	priceDenom = fixed.Denominator(fixed.PriceScale)
	liqDenom   = fixed.Denominator(fixed.LiquidityScale)
	feeDenom   = fixed.Denominator(fixed.FixedPointScale)

	// priceLiqDenom = 10^(price+liquidity scale), the combined rescale used by
	// the Y-amount formulas.
	priceLiqDenom = new(big.Int).Mul(priceDenom, liqDenom)

	// liqToPrice lifts a liquidity-scaled value to price scale.
	liqToPrice = new(big.Int).Div(priceDenom, liqDenom)
)

// StepResult is the outcome of one bounded swap step.
type StepResult struct {
	NextPrice fixed.Dec // scale 24
	AmountIn  fixed.Dec // scale 0, fee not included
	AmountOut fixed.Dec // scale 0
	FeeAmount fixed.Dec // scale 0
}

// DeltaX returns the token X amount held between two square-root prices at
// the given liquidity. Operand order does not matter; up selects ceiling
// rounding on both divisions.
func DeltaX(a, b, liquidity fixed.Dec, up bool) fixed.Dec {
	d := new(big.Int).Sub(b.Big(), a.Big())
	d.Abs(d)

	nom := d.Mul(d, liquidity.Big())
	nom.Div(nom, liqDenom)
	den := new(big.Int).Mul(a.Big(), b.Big())
	den.Div(den, priceDenom)

	t := new(big.Int).Mul(nom, priceDenom)
	if up {
		ceilDiv(t, t, den)
		ceilDiv(t, t, priceDenom)
	} else {
		t.Div(t, den)
		t.Div(t, priceDenom)
	}
	return fixed.New(t, fixed.TokenScale)
}

// DeltaY returns the token Y amount held between two square-root prices at
// the given liquidity.
func DeltaY(a, b, liquidity fixed.Dec, up bool) fixed.Dec {
	d := new(big.Int).Sub(b.Big(), a.Big())
	d.Abs(d)
	d.Mul(d, liquidity.Big())
	if up {
		ceilDiv(d, d, priceLiqDenom)
	} else {
		d.Div(d, priceLiqDenom)
	}
	return fixed.New(d, fixed.TokenScale)
}

// nextPriceXUp solves the price after moving amount of token X in (add) or
// out (!add), rounding the resulting price up.
func nextPriceXUp(price, liquidity, amount fixed.Dec, add bool) fixed.Dec {
	if amount.IsZero() {
		return price
	}
	bigLiq := new(big.Int).Mul(liquidity.Big(), liqToPrice)

	product := new(big.Int).Mul(price.Big(), amount.Big())
	den := new(big.Int)
	if add {
		den.Add(bigLiq, product)
	} else {
		den.Sub(bigLiq, product)
	}

	next := new(big.Int).Mul(bigLiq, price.Big())
	ceilDiv(next, next, den)
	return fixed.New(next, fixed.PriceScale)
}

// nextPriceYDown solves the price after moving amount of token Y in (add) or
// out (!add), rounding the resulting price down.
func nextPriceYDown(price, liquidity, amount fixed.Dec, add bool) fixed.Dec {
	quotient := new(big.Int).Mul(amount.Big(), priceLiqDenom)
	next := price.Big()
	if add {
		quotient.Div(quotient, liquidity.Big())
		next.Add(next, quotient)
	} else {
		ceilDiv(quotient, quotient, liquidity.Big())
		next.Sub(next, quotient)
	}
	return fixed.New(next, fixed.PriceScale)
}

// NextPriceFromInput returns the price reached by consuming amount of the
// input token. Moving X to Y pushes the price down, Y to X pushes it up.
func NextPriceFromInput(price, liquidity, amount fixed.Dec, xToY bool) fixed.Dec {
	if xToY {
		return nextPriceXUp(price, liquidity, amount, true)
	}
	return nextPriceYDown(price, liquidity, amount, true)
}

// NextPriceFromOutput returns the price reached by producing amount of the
// output token.
func NextPriceFromOutput(price, liquidity, amount fixed.Dec, xToY bool) fixed.Dec {
	if xToY {
		return nextPriceYDown(price, liquidity, amount, false)
	}
	return nextPriceXUp(price, liquidity, amount, false)
}

// ComputeSwapStep runs one swap step from current toward target, bounded by
// remaining. With byAmountIn the remaining amount denominates input tokens
// and the fee is carved out of it up front; otherwise it denominates output
// tokens. The fee truncates except when the step cannot reach target on an
// exact-in swap, where the whole unconsumed remainder becomes the fee.
func ComputeSwapStep(current, target, liquidity, remaining fixed.Dec, byAmountIn bool, fee fixed.Dec) StepResult {
	if liquidity.IsZero() {
		return StepResult{
			NextPrice: target,
			AmountIn:  fixed.Zero(fixed.TokenScale),
			AmountOut: fixed.Zero(fixed.TokenScale),
			FeeAmount: fixed.Zero(fixed.TokenScale),
		}
	}

	xToY := current.Cmp(target) >= 0

	var next, amountIn, amountOut fixed.Dec
	if byAmountIn {
		afterFee := amountAfterFee(remaining, fee)
		if xToY {
			amountIn = DeltaX(target, current, liquidity, true)
		} else {
			amountIn = DeltaY(current, target, liquidity, true)
		}
		if afterFee.Cmp(amountIn) >= 0 {
			next = target
		} else {
			next = NextPriceFromInput(current, liquidity, afterFee, xToY)
		}
	} else {
		if xToY {
			amountOut = DeltaY(target, current, liquidity, false)
		} else {
			amountOut = DeltaX(current, target, liquidity, false)
		}
		if remaining.Cmp(amountOut) >= 0 {
			next = target
		} else {
			next = NextPriceFromOutput(current, liquidity, remaining, xToY)
		}
	}

	reachedTarget := target.Eq(next)

	// Recompute the amounts the actual price movement implies. The amount the
	// step was solved from keeps its pre-solve value only when the target was
	// reached exactly.
	if xToY {
		if !reachedTarget || !byAmountIn {
			amountIn = DeltaX(next, current, liquidity, true)
		}
		if !reachedTarget || byAmountIn {
			amountOut = DeltaY(next, current, liquidity, false)
		}
	} else {
		if !reachedTarget || !byAmountIn {
			amountIn = DeltaY(current, next, liquidity, true)
		}
		if !reachedTarget || byAmountIn {
			amountOut = DeltaX(current, next, liquidity, false)
		}
	}

	// Never hand out more than the trader asked for on exact-out steps.
	if !byAmountIn && amountOut.Cmp(remaining) > 0 {
		amountOut = remaining
	}

	var feeAmount fixed.Dec
	if byAmountIn && !reachedTarget {
		// The step consumed everything it could; the rest of the input is
		// swallowed as fee.
		feeAmount = mustSub(remaining, amountIn)
	} else {
		feeAmount = amountIn.BigMul(fee)
	}

	return StepResult{NextPrice: next, AmountIn: amountIn, AmountOut: amountOut, FeeAmount: feeAmount}
}

// IsEnoughToPushPrice reports whether the remaining amount moves the price at
// all from its current value. The swap loop uses it to decide whether a tick
// boundary reached in the X to Y direction is actually crossed.
func IsEnoughToPushPrice(amount, price, liquidity, fee fixed.Dec, byAmountIn, xToY bool) bool {
	if liquidity.IsZero() {
		return true
	}
	var next fixed.Dec
	if byAmountIn {
		next = NextPriceFromInput(price, liquidity, amountAfterFee(amount, fee), xToY)
	} else {
		next = NextPriceFromOutput(price, liquidity, amount, xToY)
	}
	return !price.Eq(next)
}

// amountAfterFee returns amount * (1 - fee), truncating in the pool's favor.
func amountAfterFee(amount, fee fixed.Dec) fixed.Dec {
	net := new(big.Int).Sub(feeDenom, fee.Big())
	net.Mul(net, amount.Big())
	net.Div(net, feeDenom)
	return fixed.New(net, fixed.TokenScale)
}

func mustSub(a, b fixed.Dec) fixed.Dec {
	d, err := a.Sub(b)
	if err != nil {
		panic(err)
	}
	return d
}

// ceilDiv writes ceil(a / b) into dest.
func ceilDiv(dest, a, b *big.Int) {
	var rem big.Int
	dest.QuoRem(a, b, &rem)
	if rem.Sign() != 0 {
		dest.Add(dest, one)
	}
}

// Package feemath accounts for swap fees: converting collected fee tokens
// into per-unit-liquidity growth, and back into the whole-token amounts a
// position may claim. Growth counters are 128-bit on chain and wrap, so all
// subtraction here is modulo 2^128.
package feemath

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

var (
	// mask128 reduces a wrapped difference to the chain's counter width.
	mask128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

	// growthToFee = 10^(growth+liquidity-fee scale), the divisor turning
	// liquidity * growth into a fee-scaled amount.
	growthToFee = fixed.Denominator(fixed.FeeGrowthScale + fixed.LiquidityScale - fixed.FixedPointScale)
)

// wrappingSub returns (a - b) mod 2^128 for two growth-scaled counters.
func wrappingSub(a, b fixed.Dec) fixed.Dec {
	ua, _ := uint256.FromBig(a.Big())
	ub, _ := uint256.FromBig(b.Big())
	ua.Sub(ua, ub)
	ua.And(ua, mask128)
	return fixed.New(ua.ToBig(), fixed.FeeGrowthScale)
}

// GrowthInside computes the fee growth accumulated strictly inside the range
// [lowerIndex, upperIndex] for one token axis. The outside counters flip
// meaning depending on which side of the range the current tick sits on.
func GrowthInside(global, lowerOutside, upperOutside fixed.Dec, lowerIndex, upperIndex, currentTick int32) fixed.Dec {
	below := lowerOutside
	if currentTick < lowerIndex {
		below = wrappingSub(global, lowerOutside)
	}
	above := upperOutside
	if currentTick >= upperIndex {
		above = wrappingSub(global, upperOutside)
	}
	return wrappingSub(wrappingSub(global, below), above)
}

// FromFee converts a fee amount in whole tokens into the growth increment it
// represents at the given liquidity, truncating.
func FromFee(liquidity, fee fixed.Dec) fixed.Dec {
	v := new(big.Int).Mul(fee.Big(), fixed.Denominator(fixed.FeeGrowthScale))
	v.Mul(v, fixed.Denominator(fixed.LiquidityScale))
	v.Div(v, liquidity.Big())
	return fixed.New(v, fixed.FeeGrowthScale)
}

// ToFee converts a growth delta back into a fee-scaled amount for the given
// liquidity.
func ToFee(growth, liquidity fixed.Dec) fixed.Dec {
	v := new(big.Int).Mul(liquidity.Big(), growth.Big())
	v.Div(v, growthToFee)
	return fixed.New(v, fixed.FixedPointScale)
}

// TokensOwed returns the whole tokens a position can claim on one axis: the
// wrapped growth delta since the position's last snapshot, scaled by its
// liquidity, added to the fee-scaled amount already carried, floored to
// token units.
func TokensOwed(liquidity, growthInside, lastGrowthInside, carriedOwed fixed.Dec) fixed.Dec {
	delta := wrappingSub(growthInside, lastGrowthInside)
	accrued := ToFee(delta, liquidity)

	total := new(big.Int).Add(carriedOwed.Big(), accrued.Big())
	total.Div(total, fixed.Denominator(fixed.FixedPointScale))
	return fixed.New(total, fixed.TokenScale)
}

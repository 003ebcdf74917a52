// Package calculator is the swap simulator: it drives the tickmap, the
// tick/price converter and the swap step math across tick boundaries until
// the requested amount is exhausted or a limit is hit. Inputs are immutable
// snapshots; the simulator works on local copies and returns a fresh report,
// so any number of simulations may run concurrently over the same data.
package calculator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/solstate/solstate-client-go/protocols/invariant"
	"github.com/solstate/solstate-client-go/protocols/invariant/calculator/feemath"
	"github.com/solstate/solstate-client-go/protocols/invariant/calculator/pricemath"
	"github.com/solstate/solstate-client-go/protocols/invariant/calculator/swapmath"
	"github.com/solstate/solstate-client-go/protocols/invariant/calculator/tickmap"
	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

var (
	// ErrPriceLimitOnWrongSide means the slippage-adjusted limit already sits
	// behind the current price in the trade direction.
	ErrPriceLimitOnWrongSide = errors.New("price limit on wrong side of current price")
	// ErrPriceWouldCrossLimit means a step landed exactly on the limit while
	// amount remained unconsumed.
	ErrPriceWouldCrossLimit = errors.New("requested amount would cross the price limit")
	// ErrTickCrossedButMissing means the loop had to cross an initialized tick
	// whose record was not supplied up front.
	ErrTickCrossedButMissing = errors.New("crossed tick record missing")
	// ErrStuckAtPriceRange guards against malformed tickmap data: two
	// consecutive iterations without tick progress while amount remains.
	ErrStuckAtPriceRange = errors.New("stuck at price range")
	// ErrNoGainSwap rejects swaps that complete with zero output.
	ErrNoGainSwap = errors.New("swap yields no output")

	mod128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

// SimulationResult is the report of one successful simulation. Pool is the
// simulator's local working copy after the swap; the caller's snapshot is
// never touched.
type SimulationResult struct {
	AmountPerTick        []fixed.Dec    `json:"amountPerTick"`
	AccumulatedAmountIn  fixed.Dec      `json:"accumulatedAmountIn"` // fee included
	AccumulatedAmountOut fixed.Dec      `json:"accumulatedAmountOut"`
	AccumulatedFee       fixed.Dec      `json:"accumulatedFee"`
	PriceAfterSwap       fixed.Dec      `json:"priceAfterSwap"`
	AveragePrice         fixed.Dec      `json:"averagePrice"`
	CrossedTicks         []int32        `json:"crossedTicks"`
	Pool                 invariant.Pool `json:"pool"`
}

// ApplySlippage returns the price bound implied by a slippage tolerance
// (fee-scaled fraction): price * (1 + slippage) when the trade moves the
// price up, price * (1 - slippage) when it moves down.
func ApplySlippage(price, slippage fixed.Dec, up bool) fixed.Dec {
	factor := new(big.Int).Set(fixed.Denominator(fixed.FixedPointScale))
	if up {
		factor.Add(factor, slippage.Big())
	} else {
		factor.Sub(factor, slippage.Big())
	}
	return price.BigMul(fixed.New(factor, fixed.FixedPointScale))
}

// SimulateSwap runs the cross-tick swap state machine. The ticks map must
// contain a record for every initialized tick the simulation can cross;
// missing records fail the run rather than being fetched lazily. A zero
// slippage leaves priceLimit as the only bound, otherwise the tighter of the
// two applies.
func SimulateSwap(
	pool invariant.Pool,
	tm invariant.Tickmap,
	ticks map[int32]invariant.Tick,
	xToY, byAmountIn bool,
	swapAmount, priceLimit, slippage fixed.Dec,
) (SimulationResult, error) {
	limit := priceLimit
	if !slippage.IsZero() {
		bound := ApplySlippage(pool.SqrtPrice, slippage, !xToY)
		if xToY && bound.Cmp(limit) > 0 {
			limit = bound
		} else if !xToY && bound.Cmp(limit) < 0 {
			limit = bound
		}
	}

	if xToY && pool.SqrtPrice.Cmp(limit) <= 0 {
		return SimulationResult{}, ErrPriceLimitOnWrongSide
	}
	if !xToY && pool.SqrtPrice.Cmp(limit) >= 0 {
		return SimulationResult{}, ErrPriceLimitOnWrongSide
	}

	local := pool.Clone()
	spacing := pool.TickSpacing
	s := int32(spacing)

	curPrice := local.SqrtPrice
	curTick := local.CurrentTickIndex
	liquidity := local.Liquidity

	remaining := swapAmount
	totalIn := fixed.Zero(fixed.TokenScale)
	totalOut := fixed.Zero(fixed.TokenScale)
	totalFee := fixed.Zero(fixed.TokenScale)
	segment := fixed.Zero(fixed.TokenScale)

	var perTick []fixed.Dec
	var crossed []int32
	notional := new(big.Int)
	weight := new(big.Int)
	stuck := 0

	// The LP share of a fee feeds the growth counter of the input token; the
	// protocol share is retained, rounded in its favor.
	accrueFee := func(feeAmount fixed.Dec) {
		if liquidity.IsZero() || feeAmount.IsZero() {
			return
		}
		protocol := feeAmount.BigMulUp(local.ProtocolFee)
		lpFee := mustSub(feeAmount, protocol)
		if xToY {
			local.FeeGrowthGlobalX = addGrowth(local.FeeGrowthGlobalX, feemath.FromFee(liquidity, lpFee))
			local.FeeProtocolTokenX = mustAdd(local.FeeProtocolTokenX, protocol)
		} else {
			local.FeeGrowthGlobalY = addGrowth(local.FeeGrowthGlobalY, feemath.FromFee(liquidity, lpFee))
			local.FeeProtocolTokenY = mustAdd(local.FeeProtocolTokenY, protocol)
		}
	}

	for remaining.Sign() != 0 {
		startTick := curTick

		var (
			idx   int32
			found bool
			err   error
		)
		if xToY {
			idx, found, err = tickmap.PrevInitialized(tm, curTick, spacing)
		} else {
			idx, found, err = tickmap.NextInitialized(tm, curTick, spacing)
		}
		if err != nil {
			return SimulationResult{}, fmt.Errorf("tickmap scan: %w", err)
		}
		initialized := found
		if !found {
			idx = pricemath.SearchLimit(curTick, spacing, !xToY)
		}
		tickPrice, err := pricemath.PriceFromTick(idx)
		if err != nil {
			return SimulationResult{}, fmt.Errorf("tick %d: %w", idx, err)
		}

		// The step runs toward the closer of the boundary tick's price and
		// the overall limit.
		swapLimit := limit
		limiting := false
		if xToY && tickPrice.Cmp(limit) > 0 {
			swapLimit, limiting = tickPrice, true
		} else if !xToY && tickPrice.Cmp(limit) < 0 {
			swapLimit, limiting = tickPrice, true
		}

		stepStart := curPrice
		step := swapmath.ComputeSwapStep(curPrice, swapLimit, liquidity, remaining, byAmountIn, local.Fee)

		inWithFee := mustAdd(step.AmountIn, step.FeeAmount)
		consumed := step.AmountOut
		if byAmountIn {
			consumed = inWithFee
		}
		remaining = mustSub(remaining, consumed)
		totalIn = mustAdd(totalIn, inWithFee)
		totalOut = mustAdd(totalOut, step.AmountOut)
		totalFee = mustAdd(totalFee, step.FeeAmount)
		segment = mustAdd(segment, consumed)

		// Average price accrues the spot price at the step's start weighted
		// by the amount the step consumed.
		spot := new(big.Int).Mul(stepStart.Big(), stepStart.Big())
		spot.Div(spot, fixed.Denominator(fixed.PriceScale))
		notional.Add(notional, spot.Mul(spot, consumed.Big()))
		weight.Add(weight, consumed.Big())

		accrueFee(step.FeeAmount)

		curPrice = step.NextPrice
		if curPrice.Eq(limit) && remaining.Sign() != 0 {
			return SimulationResult{}, ErrPriceWouldCrossLimit
		}

		crossedNow := false
		if limiting && curPrice.Eq(tickPrice) {
			enough := swapmath.IsEnoughToPushPrice(remaining, curPrice, liquidity, local.Fee, byAmountIn, xToY)
			if initialized {
				if !xToY || enough {
					tick, ok := ticks[idx]
					if !ok {
						return SimulationResult{}, fmt.Errorf("%w: tick %d", ErrTickCrossedButMissing, idx)
					}
					if (curTick >= tick.Index) != tick.Sign {
						liquidity = mustAdd(liquidity, tick.LiquidityChange)
					} else {
						liquidity = mustSub(liquidity, tick.LiquidityChange)
					}
					crossed = append(crossed, idx)
					crossedNow = true
				} else if remaining.Sign() != 0 {
					// Not enough left to push through the tick: the remainder
					// is charged as fee and the swap stops on the boundary.
					if byAmountIn {
						totalIn = mustAdd(totalIn, remaining)
						totalFee = mustAdd(totalFee, remaining)
						accrueFee(remaining)
					}
					remaining = fixed.Zero(fixed.TokenScale)
				}
			}
			// Pushing through a boundary moving down leaves the tick
			// exclusive, hence the extra spacing step; a swap that dies on
			// the boundary stays on it.
			if xToY && enough {
				curTick = idx - s
			} else {
				curTick = idx
			}
		} else {
			curTick, err = pricemath.TickFromPrice(curTick, spacing, curPrice, !xToY)
			if err != nil {
				return SimulationResult{}, fmt.Errorf("recompute tick: %w", err)
			}
		}

		if crossedNow || remaining.Sign() == 0 {
			perTick = append(perTick, segment)
			segment = fixed.Zero(fixed.TokenScale)
		}

		if curTick == startTick && remaining.Sign() != 0 {
			stuck++
			if stuck >= 2 {
				return SimulationResult{}, ErrStuckAtPriceRange
			}
		} else {
			stuck = 0
		}
	}

	if totalOut.IsZero() {
		return SimulationResult{}, ErrNoGainSwap
	}

	local.SqrtPrice = curPrice
	local.CurrentTickIndex = curTick
	local.Liquidity = liquidity

	avg := fixed.Zero(fixed.PriceScale)
	if weight.Sign() > 0 {
		avg = fixed.New(notional.Div(notional, weight), fixed.PriceScale)
	}

	return SimulationResult{
		AmountPerTick:        perTick,
		AccumulatedAmountIn:  totalIn,
		AccumulatedAmountOut: totalOut,
		AccumulatedFee:       totalFee,
		PriceAfterSwap:       curPrice,
		AveragePrice:         avg,
		CrossedTicks:         crossed,
		Pool:                 local,
	}, nil
}

// CalculateAveragePrice returns the notional-weighted execution price of the
// simulated swap: per-step spot price weighted by the amount each step
// consumed, not an arithmetic mean of boundary prices.
func CalculateAveragePrice(
	pool invariant.Pool,
	tm invariant.Tickmap,
	ticks map[int32]invariant.Tick,
	xToY, byAmountIn bool,
	swapAmount, priceLimit, slippage fixed.Dec,
) (fixed.Dec, error) {
	res, err := SimulateSwap(pool, tm, ticks, xToY, byAmountIn, swapAmount, priceLimit, slippage)
	if err != nil {
		return fixed.Dec{}, err
	}
	return res.AveragePrice, nil
}

// ClaimableFees returns the whole-token fees a position can currently claim
// on each axis.
func ClaimableFees(
	position invariant.Position,
	lower, upper invariant.Tick,
	currentTick int32,
	feeGrowthGlobalX, feeGrowthGlobalY fixed.Dec,
) (owedX, owedY fixed.Dec) {
	insideX := feemath.GrowthInside(feeGrowthGlobalX, lower.FeeGrowthOutsideX, upper.FeeGrowthOutsideX,
		lower.Index, upper.Index, currentTick)
	insideY := feemath.GrowthInside(feeGrowthGlobalY, lower.FeeGrowthOutsideY, upper.FeeGrowthOutsideY,
		lower.Index, upper.Index, currentTick)

	owedX = feemath.TokensOwed(position.Liquidity, insideX, position.FeeGrowthInsideX, position.TokensOwedX)
	owedY = feemath.TokensOwed(position.Liquidity, insideY, position.FeeGrowthInsideY, position.TokensOwedY)
	return owedX, owedY
}

func addGrowth(g, d fixed.Dec) fixed.Dec {
	v := new(big.Int).Add(g.Big(), d.Big())
	v.Mod(v, mod128)
	return fixed.New(v, fixed.FeeGrowthScale)
}

func mustAdd(a, b fixed.Dec) fixed.Dec {
	d, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return d
}

func mustSub(a, b fixed.Dec) fixed.Dec {
	d, err := a.Sub(b)
	if err != nil {
		panic(err)
	}
	return d
}

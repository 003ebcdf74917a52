// Package pricemath converts between tick indices and square-root prices.
// Every operation reproduces the settlement program bit-for-bit: scale-24
// fixed-point, truncating multiplication, and the same precomputed ratio
// table.
package pricemath

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/solstate/solstate-client-go/protocols/invariant"
	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

var (
	ErrTickOutOfBounds    = errors.New("tick out of bounds")
	ErrMisalignedTick     = errors.New("tick not aligned to spacing")
	ErrInvalidTickSpacing = errors.New("invalid tick spacing")

	denom24 = uint256.MustFromDecimal("1000000000000000000000000")
	denom48 = uint256.MustFromDecimal("1000000000000000000000000000000000000000000000000")

	// sqrtRatios[k] = floor(sqrt(1.0001)^(2^k) * 10^24). Eighteen entries cover
	// every bit of |tick| up to MaxTick (221_818 < 2^18).
	sqrtRatios = [18]*uint256.Int{
		uint256.MustFromDecimal("1000049998750062496094023"),
		uint256.MustFromDecimal("1000100000000000000000000"),
		uint256.MustFromDecimal("1000200010000000000000000"),
		uint256.MustFromDecimal("1000400060004000100000000"),
		uint256.MustFromDecimal("1000800280056007000560028"),
		uint256.MustFromDecimal("1001601200560182043688009"),
		uint256.MustFromDecimal("1003204964963598014666528"),
		uint256.MustFromDecimal("1006420201727613920156533"),
		uint256.MustFromDecimal("1012881622445451097078095"),
		uint256.MustFromDecimal("1025929181087729343658708"),
		uint256.MustFromDecimal("1052530684607338948386589"),
		uint256.MustFromDecimal("1107820842039993613899215"),
		uint256.MustFromDecimal("1227267018058200482050503"),
		uint256.MustFromDecimal("1506184333613467388107955"),
		uint256.MustFromDecimal("2268591246822644826925609"),
		uint256.MustFromDecimal("5146506245160322222537991"),
		uint256.MustFromDecimal("26486526531474198664033811"),
		uint256.MustFromDecimal("701536087702486644953017488"),
	}
)

// PriceFromTick returns sqrt(1.0001^tick) at price scale. The positive branch
// multiplies the ratio table entries selected by the bits of |tick|,
// truncating after each step; negative ticks take the reciprocal of the
// positive result.
func PriceFromTick(tick int32) (fixed.Dec, error) {
	if tick < invariant.MinTick || tick > invariant.MaxTick {
		return fixed.Dec{}, ErrTickOutOfBounds
	}

	abs := tick
	if abs < 0 {
		abs = -abs
	}

	ratio := new(uint256.Int).Set(denom24)
	product := new(uint256.Int)
	for k := range sqrtRatios {
		if abs&(1<<k) != 0 {
			ratio.Div(product.Mul(ratio, sqrtRatios[k]), denom24)
		}
	}
	if tick < 0 {
		ratio.Div(denom48, ratio)
	}

	return fixed.New(ratio.ToBig(), fixed.PriceScale), nil
}

// AlignTickToSpacing rounds a tick down to the nearest spacing multiple:
// toward zero for non-negative ticks, away from zero for negative ones, so
// the result never sits above the input.
func AlignTickToSpacing(tick int32, spacing uint16) int32 {
	s := int32(spacing)
	if tick >= 0 {
		return tick - tick%s
	}
	rem := (-tick) % s
	if rem == 0 {
		return tick
	}
	return tick - (s - rem)
}

// SearchLimit returns the furthest spacing-aligned tick a scan starting at
// tick may reach in the given direction. Three caps apply, all in spacing
// steps: the tickmap edge, the search range, and the global tick bound.
func SearchLimit(tick int32, spacing uint16, up bool) int32 {
	s := int32(spacing)
	index := tick / s

	var limit int32
	if up {
		limit = invariant.TickLimit - 1
		if r := index + invariant.TickSearchRange; r < limit {
			limit = r
		}
		if p := int32(invariant.MaxTick) / s; p < limit {
			limit = p
		}
	} else {
		limit = -(invariant.TickLimit - 1)
		if r := index - invariant.TickSearchRange; r > limit {
			limit = r
		}
		if p := -(int32(invariant.MaxTick) / s); p > limit {
			limit = p
		}
	}
	return limit * s
}

// TickFromPrice finds the greatest spacing-aligned tick whose price does not
// exceed the given price, searching between the current tick and its search
// limit in the direction of travel. The current tick must itself be aligned.
func TickFromPrice(currentTick int32, spacing uint16, price fixed.Dec, up bool) (int32, error) {
	if spacing == 0 || spacing > invariant.MaxTickSpacing {
		return 0, ErrInvalidTickSpacing
	}
	s := int32(spacing)
	if currentTick%s != 0 {
		return 0, ErrMisalignedTick
	}

	var lo, hi int32
	if up {
		lo, hi = currentTick/s, SearchLimit(currentTick, spacing, true)/s
	} else {
		lo, hi = SearchLimit(currentTick, spacing, false)/s, currentTick/s
	}

	// Binary search over aligned positions. When even the lowest tick's price
	// exceeds the target the result clamps to the window edge.
	best := lo
	for lo <= hi {
		mid := lo + (hi-lo)/2
		p, err := PriceFromTick(mid * s)
		if err != nil {
			return 0, err
		}
		if p.Cmp(price) <= 0 {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best * s, nil
}

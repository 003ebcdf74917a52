// Package fixed implements the scaled-integer arithmetic shared by every
// calculator package: an arbitrary-precision unsigned value paired with a
// power-of-ten denominator determined by the quantity kind. Distinct kinds use
// distinct scales and must never be mixed without an explicit rescale.
package fixed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Per-quantity decimal scales. These are part of the settlement engine's wire
// contract and must match it exactly.
const (
	TokenScale      = 0  // whole token units
	LiquidityScale  = 6  // virtual liquidity
	FixedPointScale = 12 // generic percentage / fee / protocol fee
	PriceScale      = 24 // price and square-root price
	FeeGrowthScale  = 24 // per-unit-liquidity fee accumulator
)

var (
	// ErrScaleMismatch is returned when an exact operation combines values of
	// incompatible fixed-point scale.
	ErrScaleMismatch = errors.New("fixed: scale mismatch")

	one = big.NewInt(1)

	// pow10 caches 10^0 .. 10^maxPow, covering every denominator product the
	// calculators form (at most price + liquidity scale on either side).
	pow10 [maxPow + 1]*big.Int
)

const maxPow = 2*PriceScale + LiquidityScale

func init() {
	ten := big.NewInt(10)
	pow10[0] = big.NewInt(1)
	for i := 1; i <= maxPow; i++ {
		pow10[i] = new(big.Int).Mul(pow10[i-1], ten)
	}
}

// Denominator returns 10^scale. The returned value is shared and must not be
// mutated.
func Denominator(scale uint8) *big.Int {
	return pow10[scale]
}

// Dec is an immutable scaled integer. The zero value is not usable; construct
// through New, FromUint64, FromInteger or FromScale.
type Dec struct {
	v     *big.Int
	scale uint8
}

// New wraps a copy of v at the given scale.
func New(v *big.Int, scale uint8) Dec {
	return Dec{v: new(big.Int).Set(v), scale: scale}
}

// FromUint64 wraps a raw (already scaled) value.
func FromUint64(v uint64, scale uint8) Dec {
	return Dec{v: new(big.Int).SetUint64(v), scale: scale}
}

// FromInteger returns n expressed at the given scale, i.e. n * 10^scale.
func FromInteger(n uint64, scale uint8) Dec {
	v := new(big.Int).SetUint64(n)
	return Dec{v: v.Mul(v, Denominator(scale)), scale: scale}
}

// FromScale converts a human-decimal input with the given number of decimal
// places to the target scale: val * 10^scale / 10^decimals, truncating.
func FromScale(val uint64, decimals uint8, scale uint8) Dec {
	v := new(big.Int).SetUint64(val)
	v.Mul(v, Denominator(scale))
	v.Div(v, Denominator(decimals))
	return Dec{v: v, scale: scale}
}

// Zero returns the zero value at the given scale.
func Zero(scale uint8) Dec {
	return Dec{v: new(big.Int), scale: scale}
}

// Scale returns the number of decimal digits in the implicit denominator.
func (d Dec) Scale() uint8 { return d.scale }

// Big returns a copy of the raw scaled value.
func (d Dec) Big() *big.Int { return new(big.Int).Set(d.v) }

// Uint64 returns the raw scaled value if it fits, else ok=false.
func (d Dec) Uint64() (v uint64, ok bool) {
	if d.v.Sign() < 0 || !d.v.IsUint64() {
		return 0, false
	}
	return d.v.Uint64(), true
}

func (d Dec) IsZero() bool { return d.v.Sign() == 0 }
func (d Dec) Sign() int    { return d.v.Sign() }

// Cmp compares two values of the same scale. Comparing across scales is a
// programming error and panics, mirroring the bitset size check.
func (d Dec) Cmp(o Dec) int {
	if d.scale != o.scale {
		panic(fmt.Sprintf("fixed: comparing scale %d against %d", d.scale, o.scale))
	}
	return d.v.Cmp(o.v)
}

// Eq reports whether two same-scale values are equal.
func (d Dec) Eq(o Dec) bool { return d.Cmp(o) == 0 }

// Add returns d + o. Both operands must share a scale; the addition itself is
// exact.
func (d Dec) Add(o Dec) (Dec, error) {
	if d.scale != o.scale {
		return Dec{}, fmt.Errorf("%w: %d + %d", ErrScaleMismatch, d.scale, o.scale)
	}
	return Dec{v: new(big.Int).Add(d.v, o.v), scale: d.scale}, nil
}

// Sub returns d - o. Both operands must share a scale. The result may be
// negative; callers that require unsigned values order their operands.
func (d Dec) Sub(o Dec) (Dec, error) {
	if d.scale != o.scale {
		return Dec{}, fmt.Errorf("%w: %d - %d", ErrScaleMismatch, d.scale, o.scale)
	}
	return Dec{v: new(big.Int).Sub(d.v, o.v), scale: d.scale}, nil
}

// BigMul returns d * o rescaled down by o's denominator, truncating. The
// result keeps d's scale; o supplies the unit denominator.
func (d Dec) BigMul(o Dec) Dec {
	v := new(big.Int).Mul(d.v, o.v)
	v.Div(v, Denominator(o.scale))
	return Dec{v: v, scale: d.scale}
}

// BigMulUp is BigMul rounding the quotient up.
func (d Dec) BigMulUp(o Dec) Dec {
	v := new(big.Int).Mul(d.v, o.v)
	return Dec{v: divUp(v, v, Denominator(o.scale)), scale: d.scale}
}

// BigDiv returns d / o scaled up by o's denominator, truncating. The result
// keeps d's scale.
func (d Dec) BigDiv(o Dec) Dec {
	v := new(big.Int).Mul(d.v, Denominator(o.scale))
	v.Div(v, o.v)
	return Dec{v: v, scale: d.scale}
}

// BigDivUp is BigDiv rounding the quotient up.
func (d Dec) BigDivUp(o Dec) Dec {
	v := new(big.Int).Mul(d.v, Denominator(o.scale))
	return Dec{v: divUp(v, v, o.v), scale: d.scale}
}

// String renders the value with a decimal point, e.g. scale 6 value 1500000 as
// "1.5".
func (d Dec) String() string {
	if d.scale == 0 {
		return d.v.String()
	}
	quo, rem := new(big.Int).QuoRem(d.v, Denominator(d.scale), new(big.Int))
	frac := strings.TrimRight(fmt.Sprintf("%0*s", d.scale, rem.Abs(rem).String()), "0")
	if frac == "" {
		return quo.String()
	}
	return quo.String() + "." + frac
}

type decJSON struct {
	Value string `json:"value"`
	Scale uint8  `json:"scale"`
}

// MarshalJSON encodes the raw scaled value together with its scale so that
// snapshots round-trip without any out-of-band scale knowledge.
func (d Dec) MarshalJSON() ([]byte, error) {
	return json.Marshal(decJSON{Value: d.v.String(), Scale: d.scale})
}

func (d *Dec) UnmarshalJSON(b []byte) error {
	var raw decJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(raw.Value, 10)
	if !ok {
		return fmt.Errorf("fixed: invalid value %q", raw.Value)
	}
	if raw.Scale > maxPow {
		return fmt.Errorf("fixed: scale %d out of range", raw.Scale)
	}
	d.v = v
	d.scale = raw.Scale
	return nil
}

// divUp writes ceil(a / b) into dest for non-negative a and positive b.
func divUp(dest, a, b *big.Int) *big.Int {
	var rem big.Int
	dest.QuoRem(a, b, &rem)
	if rem.Sign() > 0 {
		dest.Add(dest, one)
	}
	return dest
}

// Package invariant holds the snapshot model of an Invariant concentrated
// liquidity pool: the pool header, its initialized ticks and the tickmap that
// indexes them. The calculator packages consume these snapshots and never
// talk to the chain themselves.
package invariant

import (
	"github.com/gagliardetto/solana-go"

	"github.com/solstate/solstate-client-go/bitset"
	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

// TickmapBits is the number of addressable bits in a pool's tickmap: one bit
// per spacing-aligned tick in [-TickLimit, TickLimit].
const TickmapBits = 2*TickLimit + 1

// Pool is the dynamic state of a single pool account. All fixed.Dec fields
// carry the scale noted next to them; mixing scales is rejected by the fixed
// package.
type Pool struct {
	Address solana.PublicKey `json:"address"`
	TokenX  solana.PublicKey `json:"tokenX"`
	TokenY  solana.PublicKey `json:"tokenY"`

	TickSpacing uint16    `json:"tickSpacing"`
	Fee         fixed.Dec `json:"fee"`         // scale 12, fraction of input
	ProtocolFee fixed.Dec `json:"protocolFee"` // scale 12, fraction of the fee

	Liquidity        fixed.Dec `json:"liquidity"` // scale 6
	SqrtPrice        fixed.Dec `json:"sqrtPrice"` // scale 24
	CurrentTickIndex int32     `json:"currentTickIndex"`

	FeeGrowthGlobalX fixed.Dec `json:"feeGrowthGlobalX"` // scale 24
	FeeGrowthGlobalY fixed.Dec `json:"feeGrowthGlobalY"` // scale 24

	FeeProtocolTokenX fixed.Dec `json:"feeProtocolTokenX"` // scale 0
	FeeProtocolTokenY fixed.Dec `json:"feeProtocolTokenY"` // scale 0
}

// Clone returns an independent copy. fixed.Dec values are immutable, so a
// value copy is already deep; the method exists so call sites read as an
// explicit snapshot boundary.
func (p Pool) Clone() Pool {
	return p
}

// Tick is the state stored at one initialized tick boundary. Sign tells which
// way LiquidityChange applies when the price moves up through the tick: true
// adds, false removes.
type Tick struct {
	Index           int32     `json:"index"`
	Sign            bool      `json:"sign"`
	LiquidityChange fixed.Dec `json:"liquidityChange"` // scale 6
	LiquidityGross  fixed.Dec `json:"liquidityGross"`  // scale 6
	SqrtPrice       fixed.Dec `json:"sqrtPrice"`       // scale 24

	FeeGrowthOutsideX fixed.Dec `json:"feeGrowthOutsideX"` // scale 24
	FeeGrowthOutsideY fixed.Dec `json:"feeGrowthOutsideY"` // scale 24
}

// Clone returns an independent copy of the tick.
func (t Tick) Clone() Tick {
	return t
}

// Tickmap is the bitmap marking which spacing-aligned ticks are initialized.
type Tickmap struct {
	Bitmap bitset.BitSet `json:"bitmap"`
}

// NewTickmap returns an empty tickmap sized for the full tick range.
func NewTickmap() Tickmap {
	return Tickmap{Bitmap: bitset.NewBitSet(TickmapBits)}
}

// Clone returns a tickmap with its own backing words.
func (m Tickmap) Clone() Tickmap {
	c := bitset.NewBitSet(m.Bitmap.Len())
	c.SetFrom(m.Bitmap)
	return Tickmap{Bitmap: c}
}

// Position is a liquidity position owned by some account. The engine only
// needs it for fee claims, not for swap simulation.
type Position struct {
	Pool           solana.PublicKey `json:"pool"`
	LowerTickIndex int32            `json:"lowerTickIndex"`
	UpperTickIndex int32            `json:"upperTickIndex"`

	Liquidity        fixed.Dec `json:"liquidity"`        // scale 6
	FeeGrowthInsideX fixed.Dec `json:"feeGrowthInsideX"` // scale 24
	FeeGrowthInsideY fixed.Dec `json:"feeGrowthInsideY"` // scale 24
	TokensOwedX      fixed.Dec `json:"tokensOwedX"`      // scale 12
	TokensOwedY      fixed.Dec `json:"tokensOwedY"`      // scale 12
}

// Clone returns an independent copy of the position.
func (p Position) Clone() Position {
	return p
}

// CloneTicks deep-copies a tick registry keyed by index.
func CloneTicks(ticks map[int32]Tick) map[int32]Tick {
	if ticks == nil {
		return nil
	}
	out := make(map[int32]Tick, len(ticks))
	for idx, tick := range ticks {
		out[idx] = tick.Clone()
	}
	return out
}

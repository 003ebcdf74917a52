package invariant

// Protocol-wide tick bounds. These mirror the on-chain program exactly; every
// price the engine can quote lies between PriceFromTick(MinTick) and
// PriceFromTick(MaxTick).
const (
	// MaxTick is the greatest tick index any pool can reach regardless of
	// spacing.
	MaxTick = 221_818
	// MinTick is the symmetric lower bound.
	MinTick = -MaxTick

	// TickLimit bounds the tickmap: only ticks whose index divided by the pool
	// spacing falls inside (-TickLimit, TickLimit) are addressable in the
	// bitmap.
	TickLimit = 44_364

	// TickSearchRange caps how far (in tick-spacing steps) a single tickmap
	// scan or price-to-tick search may travel from its starting point.
	TickSearchRange = 256

	// MaxTickSpacing is the widest spacing any fee tier may use.
	MaxTickSpacing = 100
)

package invariant

// PoolChanged reports whether any dynamic pool field differs between two
// snapshots of the same pool. Static fields (addresses, spacing, fee tier)
// are ignored on purpose.
func PoolChanged(old, new Pool) bool {
	if old.CurrentTickIndex != new.CurrentTickIndex {
		return true
	}
	if !old.SqrtPrice.Eq(new.SqrtPrice) {
		return true
	}
	if !old.Liquidity.Eq(new.Liquidity) {
		return true
	}
	if !old.FeeGrowthGlobalX.Eq(new.FeeGrowthGlobalX) || !old.FeeGrowthGlobalY.Eq(new.FeeGrowthGlobalY) {
		return true
	}
	if !old.FeeProtocolTokenX.Eq(new.FeeProtocolTokenX) || !old.FeeProtocolTokenY.Eq(new.FeeProtocolTokenY) {
		return true
	}
	return false
}

// TicksChanged reports whether two tick registries differ in membership or in
// any per-tick liquidity or fee field.
func TicksChanged(old, new map[int32]Tick) bool {
	if len(old) != len(new) {
		return true
	}
	for idx, oldTick := range old {
		newTick, ok := new[idx]
		if !ok {
			return true
		}
		if tickChanged(oldTick, newTick) {
			return true
		}
	}
	return false
}

func tickChanged(old, new Tick) bool {
	if old.Sign != new.Sign {
		return true
	}
	if !old.LiquidityChange.Eq(new.LiquidityChange) {
		return true
	}
	if !old.FeeGrowthOutsideX.Eq(new.FeeGrowthOutsideX) || !old.FeeGrowthOutsideY.Eq(new.FeeGrowthOutsideY) {
		return true
	}
	return false
}

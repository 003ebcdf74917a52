// Package tickmap queries and maintains the initialized-tick bitmap. A tick
// occupies bit tick/spacing + TickLimit, so the bitmap is spacing-relative
// and symmetric around zero.
package tickmap

import (
	"errors"

	"github.com/solstate/solstate-client-go/protocols/invariant"
	"github.com/solstate/solstate-client-go/protocols/invariant/calculator/pricemath"
)

var (
	ErrMisalignedTick    = errors.New("tick not aligned to spacing")
	ErrTickLimitExceeded = errors.New("tick outside tickmap limits")
)

// tickToPosition maps an aligned tick to its bit position.
func tickToPosition(tick int32, spacing uint16) (uint64, error) {
	s := int32(spacing)
	if tick%s != 0 {
		return 0, ErrMisalignedTick
	}
	index := tick / s
	if index <= -invariant.TickLimit || index >= invariant.TickLimit {
		return 0, ErrTickLimitExceeded
	}
	return uint64(index + invariant.TickLimit), nil
}

// Get reports whether the tick is marked initialized.
func Get(m invariant.Tickmap, tick int32, spacing uint16) (bool, error) {
	pos, err := tickToPosition(tick, spacing)
	if err != nil {
		return false, err
	}
	return m.Bitmap.IsSet(pos), nil
}

// Flip toggles a tick to the given state. Flipping to the state the tick is
// already in indicates drifted bookkeeping and is rejected.
func Flip(m invariant.Tickmap, value bool, tick int32, spacing uint16) error {
	pos, err := tickToPosition(tick, spacing)
	if err != nil {
		return err
	}
	if m.Bitmap.IsSet(pos) == value {
		return errors.New("tickmap: flip to current state")
	}
	if value {
		m.Bitmap.Set(pos)
	} else {
		m.Bitmap.Unset(pos)
	}
	return nil
}

// NextInitialized returns the closest initialized tick strictly above the
// given tick, bounded by the upward search limit. The boolean is false when
// no initialized tick exists in range.
func NextInitialized(m invariant.Tickmap, tick int32, spacing uint16) (int32, bool, error) {
	s := int32(spacing)
	start := tick + s
	limit := pricemath.SearchLimit(tick, spacing, true)
	if start > limit {
		return 0, false, nil
	}

	startPos, err := tickToPosition(start, spacing)
	if err != nil {
		return 0, false, err
	}
	limitPos, err := tickToPosition(limit, spacing)
	if err != nil {
		return 0, false, err
	}

	bit, found := m.Bitmap.NextSet(startPos, limitPos)
	if !found {
		return 0, false, nil
	}
	return (int32(bit) - invariant.TickLimit) * s, true, nil
}

// PrevInitialized returns the closest initialized tick at or below the given
// tick, bounded by the downward search limit.
func PrevInitialized(m invariant.Tickmap, tick int32, spacing uint16) (int32, bool, error) {
	s := int32(spacing)
	limit := pricemath.SearchLimit(tick, spacing, false)

	startPos, err := tickToPosition(tick, spacing)
	if err != nil {
		return 0, false, err
	}
	limitPos, err := tickToPosition(limit, spacing)
	if err != nil {
		return 0, false, err
	}

	bit, found := m.Bitmap.PrevSet(startPos, limitPos)
	if !found {
		return 0, false, nil
	}
	return (int32(bit) - invariant.TickLimit) * s, true, nil
}

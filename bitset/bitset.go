package bitset

import (
	"fmt"
	"math/bits"
)

func NewBitSet(len uint64) BitSet {
	words := (len + 63) / 64
	bits := make([]uint64, words)
	return bits
}

type BitSet []uint64

func (b BitSet) Len() uint64 {
	return uint64(len(b)) * 64
}

func (b BitSet) IsSet(index uint64) bool {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	return (b[wordPosition] & mask) != 0
}

func (b BitSet) Set(index uint64) {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	b[wordPosition] |= mask
}

func (b BitSet) Unset(index uint64) {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	b[wordPosition] = b[wordPosition] &^ mask

}

func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

func (b BitSet) SetFrom(o BitSet) {
	if len(b) != len(o) {
		panic(fmt.Sprintf("bitsets must be same size: got %d vs %d", len(b), len(o)))
	}
	copy(b, o)
}

// NextSet returns the position of the first set bit in [from, to], scanning
// upward one word at a time with a trailing-zero count instead of per-bit
// iteration. The second return value is false when no bit in the range is set.
func (b BitSet) NextSet(from, to uint64) (uint64, bool) {
	if from > to || from >= b.Len() {
		return 0, false
	}
	if to >= b.Len() {
		to = b.Len() - 1
	}

	wordPosition := from / 64
	// Bits below `from` in the first word do not count.
	word := b[wordPosition] &^ ((uint64(1) << (from % 64)) - 1)
	for {
		if word != 0 {
			index := wordPosition*64 + uint64(bits.TrailingZeros64(word))
			if index > to {
				return 0, false
			}
			return index, true
		}
		wordPosition++
		if wordPosition > to/64 {
			return 0, false
		}
		word = b[wordPosition]
	}
}

// PrevSet returns the position of the last set bit in [downto, from], scanning
// downward with a leading-zero count. The second return value is false when no
// bit in the range is set.
func (b BitSet) PrevSet(from, downto uint64) (uint64, bool) {
	if downto > from {
		return 0, false
	}
	if from >= b.Len() {
		from = b.Len() - 1
	}

	wordPosition := from / 64
	// Bits above `from` in the first word do not count.
	word := b[wordPosition]
	if bit := from % 64; bit != 63 {
		word &= (uint64(1) << (bit + 1)) - 1
	}
	for {
		if word != 0 {
			index := wordPosition*64 + uint64(63-bits.LeadingZeros64(word))
			if index < downto {
				return 0, false
			}
			return index, true
		}
		if wordPosition == downto/64 {
			return 0, false
		}
		wordPosition--
		word = b[wordPosition]
	}
}

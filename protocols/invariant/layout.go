package invariant

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

// On-chain account layouts. Anchor accounts start with an 8-byte
// discriminator; everything after is little-endian with u128 decimals
// carrying only their raw value (the scale is implied by the field).

// TickmapAccountSize is the byte length of the on-chain bitmap:
// 2 * TickLimit bits.
const TickmapAccountSize = 2 * TickLimit / 8

// PoolAccount mirrors the settlement program's pool account field for field.
type PoolAccount struct {
	TokenX        solana.PublicKey
	TokenY        solana.PublicKey
	TokenXReserve solana.PublicKey
	TokenYReserve solana.PublicKey

	PositionIterator uint64
	TickSpacing      uint16
	Fee              uint128.Uint128
	ProtocolFee      uint128.Uint128

	Liquidity        uint128.Uint128
	SqrtPrice        uint128.Uint128
	CurrentTickIndex int32

	Tickmap solana.PublicKey

	FeeGrowthGlobalX  uint128.Uint128
	FeeGrowthGlobalY  uint128.Uint128
	FeeProtocolTokenX uint128.Uint128
	FeeProtocolTokenY uint128.Uint128

	Bump      uint8
	Nonce     uint8
	Authority solana.PublicKey
}

// TickAccount mirrors one initialized tick account.
type TickAccount struct {
	Pool  solana.PublicKey
	Index int32
	Sign  bool

	LiquidityChange   uint128.Uint128
	LiquidityGross    uint128.Uint128
	SqrtPrice         uint128.Uint128
	FeeGrowthOutsideX uint128.Uint128
	FeeGrowthOutsideY uint128.Uint128

	SecondsOutside uint64
	Bump           uint8
}

// TickmapAccount is the raw initialized-tick bitmap.
type TickmapAccount struct {
	Bitmap [TickmapAccountSize]byte
}

// DecodePoolAccount parses a pool account's data, discriminator included.
func DecodePoolAccount(data []byte) (*PoolAccount, error) {
	acc := new(PoolAccount)
	if err := decodeAnchor(data, acc); err != nil {
		return nil, fmt.Errorf("pool account: %w", err)
	}
	return acc, nil
}

// DecodeTickAccount parses a tick account's data, discriminator included.
func DecodeTickAccount(data []byte) (*TickAccount, error) {
	acc := new(TickAccount)
	if err := decodeAnchor(data, acc); err != nil {
		return nil, fmt.Errorf("tick account: %w", err)
	}
	return acc, nil
}

// DecodeTickmapAccount parses a tickmap account's data, discriminator
// included.
func DecodeTickmapAccount(data []byte) (*TickmapAccount, error) {
	acc := new(TickmapAccount)
	if err := decodeAnchor(data, acc); err != nil {
		return nil, fmt.Errorf("tickmap account: %w", err)
	}
	return acc, nil
}

func decodeAnchor(data []byte, dst any) error {
	if len(data) < 8 {
		return fmt.Errorf("short account data: %d bytes", len(data))
	}
	return bin.NewBinDecoder(data[8:]).Decode(dst)
}

// Snapshot converts the raw account into the calculator's pool model.
func (a *PoolAccount) Snapshot(address solana.PublicKey) Pool {
	return Pool{
		Address:           address,
		TokenX:            a.TokenX,
		TokenY:            a.TokenY,
		TickSpacing:       a.TickSpacing,
		Fee:               decFromU128(a.Fee, fixed.FixedPointScale),
		ProtocolFee:       decFromU128(a.ProtocolFee, fixed.FixedPointScale),
		Liquidity:         decFromU128(a.Liquidity, fixed.LiquidityScale),
		SqrtPrice:         decFromU128(a.SqrtPrice, fixed.PriceScale),
		CurrentTickIndex:  a.CurrentTickIndex,
		FeeGrowthGlobalX:  decFromU128(a.FeeGrowthGlobalX, fixed.FeeGrowthScale),
		FeeGrowthGlobalY:  decFromU128(a.FeeGrowthGlobalY, fixed.FeeGrowthScale),
		FeeProtocolTokenX: decFromU128(a.FeeProtocolTokenX, fixed.TokenScale),
		FeeProtocolTokenY: decFromU128(a.FeeProtocolTokenY, fixed.TokenScale),
	}
}

// Snapshot converts the raw account into the calculator's tick model.
func (a *TickAccount) Snapshot() Tick {
	return Tick{
		Index:             a.Index,
		Sign:              a.Sign,
		LiquidityChange:   decFromU128(a.LiquidityChange, fixed.LiquidityScale),
		LiquidityGross:    decFromU128(a.LiquidityGross, fixed.LiquidityScale),
		SqrtPrice:         decFromU128(a.SqrtPrice, fixed.PriceScale),
		FeeGrowthOutsideX: decFromU128(a.FeeGrowthOutsideX, fixed.FeeGrowthScale),
		FeeGrowthOutsideY: decFromU128(a.FeeGrowthOutsideY, fixed.FeeGrowthScale),
	}
}

// Snapshot expands the byte bitmap into the word-backed tickmap.
func (a *TickmapAccount) Snapshot() Tickmap {
	m := NewTickmap()
	for i, b := range a.Bitmap {
		if b == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				m.Bitmap.Set(uint64(i*8 + bit))
			}
		}
	}
	return m
}

// PDA seeds used by the settlement program.
var (
	poolSeed = []byte("poolv1")
	tickSeed = []byte("tickv1")
)

// DerivePoolAddress returns the program-derived address of the pool for a
// token pair and fee tier.
func DerivePoolAddress(programID, tokenX, tokenY, feeTier solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{poolSeed, tokenX.Bytes(), tokenY.Bytes(), feeTier.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool address: %w", err)
	}
	return addr, nil
}

// DeriveTickAddress returns the program-derived address of one tick account.
func DeriveTickAddress(programID, pool solana.PublicKey, index int32) (solana.PublicKey, error) {
	idx := make([]byte, 4)
	u := uint32(index)
	idx[0] = byte(u)
	idx[1] = byte(u >> 8)
	idx[2] = byte(u >> 16)
	idx[3] = byte(u >> 24)

	addr, _, err := solana.FindProgramAddress(
		[][]byte{tickSeed, pool.Bytes(), idx},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive tick address: %w", err)
	}
	return addr, nil
}

func decFromU128(v uint128.Uint128, scale uint8) fixed.Dec {
	return fixed.New(v.Big(), scale)
}

package fetcher

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstate/solstate-client-go/protocols/invariant"
)

type fakeGetter struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
}

func (g *fakeGetter) AccountData(_ context.Context, address solana.PublicKey) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (g *fakeGetter) put(address solana.PublicKey, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts[address] = data
}

func pk(fill byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = fill
	}
	return k
}

func le128(t *testing.T, s string) []byte {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	b := make([]byte, 16)
	v.FillBytes(b)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// poolBytes assembles a pool account at tick 0, price 1, spacing 10, with the
// given liquidity.
func poolBytes(t *testing.T, tickmapAddr solana.PublicKey, liquidity string) []byte {
	t.Helper()
	data := make([]byte, 0, 512)
	data = append(data, make([]byte, 8)...) // discriminator
	data = append(data, pk(1).Bytes()...)
	data = append(data, pk(2).Bytes()...)
	data = append(data, pk(3).Bytes()...)
	data = append(data, pk(4).Bytes()...)
	data = append(data, make([]byte, 8)...) // position iterator
	data = append(data, 10, 0)              // tick spacing
	data = append(data, le128(t, "6000000000")...)
	data = append(data, le128(t, "333333333333")...)
	data = append(data, le128(t, liquidity)...)
	data = append(data, le128(t, "1000000000000000000000000")...)
	data = append(data, make([]byte, 4)...) // current tick index
	data = append(data, tickmapAddr.Bytes()...)
	for i := 0; i < 4; i++ {
		data = append(data, le128(t, "0")...)
	}
	data = append(data, 255, 254)
	data = append(data, pk(5).Bytes()...)
	return data
}

func tickBytes(t *testing.T, pool solana.PublicKey, index int32, sign bool) []byte {
	t.Helper()
	data := make([]byte, 0, 160)
	data = append(data, make([]byte, 8)...)
	data = append(data, pool.Bytes()...)
	idx := make([]byte, 4)
	binary.LittleEndian.PutUint32(idx, uint32(index))
	data = append(data, idx...)
	if sign {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	data = append(data, le128(t, "1000000000000")...) // liquidity change
	data = append(data, le128(t, "1000000000000")...) // liquidity gross
	data = append(data, le128(t, "999500149965006998740209")...)
	data = append(data, le128(t, "0")...)
	data = append(data, le128(t, "0")...)
	data = append(data, make([]byte, 8)...) // seconds outside
	data = append(data, 250)
	return data
}

// tickmapBytes marks the given tick indices for spacing 10.
func tickmapBytes(indices ...int32) []byte {
	data := make([]byte, 8+invariant.TickmapAccountSize)
	for _, index := range indices {
		pos := index/10 + invariant.TickLimit
		data[8+pos/8] |= 1 << (pos % 8)
	}
	return data
}

func newTestFetcher(t *testing.T, getter AccountGetter) *Fetcher {
	t.Helper()
	f, err := New(&Config{
		ProgramID: pk(7),
		Getter:    getter,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:  prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return f
}

func TestConfigValidation(t *testing.T) {
	_, err := New(&Config{})
	assert.ErrorContains(t, err, "ProgramID")

	_, err = New(&Config{ProgramID: pk(7)})
	assert.ErrorContains(t, err, "Getter")
}

func TestFetchSwapContext(t *testing.T) {
	poolAddr := pk(20)
	tickmapAddr := pk(21)

	getter := &fakeGetter{accounts: map[solana.PublicKey][]byte{
		poolAddr:    poolBytes(t, tickmapAddr, "1000000000000"),
		tickmapAddr: tickmapBytes(-10, 30),
	}}
	for _, index := range []int32{-10, 30} {
		addr, err := invariant.DeriveTickAddress(pk(7), poolAddr, index)
		require.NoError(t, err)
		getter.put(addr, tickBytes(t, poolAddr, index, index < 0))
	}

	f := newTestFetcher(t, getter)
	snap, err := f.FetchSwapContext(context.Background(), poolAddr)
	require.NoError(t, err)

	assert.Equal(t, poolAddr, snap.PoolAddress)
	assert.Equal(t, uint16(10), snap.Pool.TickSpacing)
	assert.Equal(t, "1000000000000", snap.Pool.Liquidity.Big().String())

	require.Len(t, snap.Ticks, 2)
	assert.Equal(t, int32(-10), snap.Ticks[-10].Index)
	assert.True(t, snap.Ticks[-10].Sign)
	assert.Equal(t, int32(30), snap.Ticks[30].Index)
	assert.False(t, snap.Ticks[30].Sign)

	pos := uint64(-10/10 + invariant.TickLimit)
	assert.True(t, snap.Tickmap.Bitmap.IsSet(pos))
}

func TestFetchErrors(t *testing.T) {
	getter := &fakeGetter{accounts: map[solana.PublicKey][]byte{}}
	f := newTestFetcher(t, getter)

	t.Run("missing pool", func(t *testing.T) {
		_, err := f.FetchPool(context.Background(), pk(20))
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("garbage account data", func(t *testing.T) {
		getter.put(pk(22), []byte{1, 2, 3})
		_, err := f.FetchTickmap(context.Background(), pk(22))
		assert.ErrorContains(t, err, "short account data")
	})

	t.Run("missing tick behind tickmap", func(t *testing.T) {
		poolAddr, tickmapAddr := pk(30), pk(31)
		getter.put(poolAddr, poolBytes(t, tickmapAddr, "1000000000000"))
		getter.put(tickmapAddr, tickmapBytes(-10))
		_, err := f.FetchSwapContext(context.Background(), poolAddr)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestWatch(t *testing.T) {
	poolAddr := pk(40)
	tickmapAddr := pk(41)

	getter := &fakeGetter{accounts: map[solana.PublicKey][]byte{
		poolAddr:    poolBytes(t, tickmapAddr, "1000000000000"),
		tickmapAddr: tickmapBytes(),
	}}
	f := newTestFetcher(t, getter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := f.Watch(ctx, poolAddr, 5*time.Millisecond)

	select {
	case snap := <-w.Snapshots():
		assert.Equal(t, "1000000000000", snap.Pool.Liquidity.Big().String())
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	// An unchanged pool must stay quiet; liquidity is a dynamic field, so
	// bumping it forces the next emit.
	getter.put(poolAddr, poolBytes(t, tickmapAddr, "2000000000000"))

	select {
	case snap := <-w.Snapshots():
		assert.Equal(t, "2000000000000", snap.Pool.Liquidity.Big().String())
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after pool change")
	}

	cancel()
	select {
	case _, open := <-w.Snapshots():
		assert.False(t, open, "snapshot channel must close on cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

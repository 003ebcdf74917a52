// Package fetcher loads pool, tickmap and tick accounts from a Solana RPC
// node and assembles the snapshots the calculator consumes. It never mutates
// chain state; everything here is read-only account plumbing.
package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/solstate/solstate-client-go/protocols/invariant"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AccountGetter is the narrow slice of an RPC client the fetcher depends on.
type AccountGetter interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// ErrAccountNotFound is returned when the node has no data for an address.
var ErrAccountNotFound = errors.New("account not found")

// Config holds the fetcher's dependencies.
type Config struct {
	ProgramID solana.PublicKey
	Getter    AccountGetter
	Logger    Logger
	Registry  prometheus.Registerer
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *Config) validate() error {
	if c.ProgramID.IsZero() {
		return errors.New("config: ProgramID cannot be zero")
	}
	if c.Getter == nil {
		return errors.New("config: Getter cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	return nil
}

// Fetcher reads Invariant program accounts and converts them into snapshots.
type Fetcher struct {
	programID solana.PublicKey
	getter    AccountGetter
	logger    Logger
	metrics   *Metrics
}

// New constructs a Fetcher from a configuration, returning an error if the
// config is invalid.
func New(cfg *Config) (*Fetcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Fetcher{
		programID: cfg.ProgramID,
		getter:    cfg.Getter,
		logger:    cfg.Logger,
		metrics:   NewMetrics(cfg.Registry),
	}, nil
}

// SwapContext bundles everything SimulateSwap needs for one pool: the pool
// header, the tickmap and every initialized tick pre-resolved, so the
// simulation itself never touches the network.
type SwapContext struct {
	PoolAddress solana.PublicKey         `json:"poolAddress"`
	Pool        invariant.Pool           `json:"pool"`
	Tickmap     invariant.Tickmap        `json:"tickmap"`
	Ticks       map[int32]invariant.Tick `json:"ticks"`
}

// FetchPool loads and decodes one pool account.
func (f *Fetcher) FetchPool(ctx context.Context, address solana.PublicKey) (invariant.Pool, error) {
	acc, err := f.fetchPoolAccount(ctx, address)
	if err != nil {
		return invariant.Pool{}, err
	}
	return acc.Snapshot(address), nil
}

// FetchTickmap loads and decodes one tickmap account.
func (f *Fetcher) FetchTickmap(ctx context.Context, address solana.PublicKey) (invariant.Tickmap, error) {
	timer := prometheus.NewTimer(f.metrics.fetchDuration.WithLabelValues("tickmap"))
	defer timer.ObserveDuration()

	data, err := f.getter.AccountData(ctx, address)
	if err != nil {
		f.metrics.fetchErrors.WithLabelValues("tickmap").Inc()
		return invariant.Tickmap{}, fmt.Errorf("fetch tickmap %s: %w", address, err)
	}
	acc, err := invariant.DecodeTickmapAccount(data)
	if err != nil {
		f.metrics.fetchErrors.WithLabelValues("tickmap").Inc()
		return invariant.Tickmap{}, fmt.Errorf("fetch tickmap %s: %w", address, err)
	}
	return acc.Snapshot(), nil
}

// FetchTick loads the tick account for one index of a pool, deriving its
// program address.
func (f *Fetcher) FetchTick(ctx context.Context, pool solana.PublicKey, index int32) (invariant.Tick, error) {
	timer := prometheus.NewTimer(f.metrics.fetchDuration.WithLabelValues("tick"))
	defer timer.ObserveDuration()

	address, err := invariant.DeriveTickAddress(f.programID, pool, index)
	if err != nil {
		return invariant.Tick{}, err
	}
	data, err := f.getter.AccountData(ctx, address)
	if err != nil {
		f.metrics.fetchErrors.WithLabelValues("tick").Inc()
		return invariant.Tick{}, fmt.Errorf("fetch tick %d of pool %s: %w", index, pool, err)
	}
	acc, err := invariant.DecodeTickAccount(data)
	if err != nil {
		f.metrics.fetchErrors.WithLabelValues("tick").Inc()
		return invariant.Tick{}, fmt.Errorf("fetch tick %d of pool %s: %w", index, pool, err)
	}
	return acc.Snapshot(), nil
}

// FetchTicks loads every tick the tickmap marks as initialized for a pool
// with the given spacing.
func (f *Fetcher) FetchTicks(ctx context.Context, pool solana.PublicKey, tickmap invariant.Tickmap, tickSpacing uint16) (map[int32]invariant.Tick, error) {
	ticks := make(map[int32]invariant.Tick)
	spacing := int32(tickSpacing)
	pos := uint64(0)
	for {
		set, ok := tickmap.Bitmap.NextSet(pos, invariant.TickmapBits-1)
		if !ok {
			return ticks, nil
		}
		index := (int32(set) - invariant.TickLimit) * spacing
		tick, err := f.FetchTick(ctx, pool, index)
		if err != nil {
			return nil, err
		}
		ticks[index] = tick
		pos = set + 1
	}
}

// FetchSwapContext resolves a full simulation snapshot: the pool, its tickmap
// and every tick the tickmap marks as initialized.
func (f *Fetcher) FetchSwapContext(ctx context.Context, poolAddress solana.PublicKey) (*SwapContext, error) {
	poolAcc, err := f.fetchPoolAccount(ctx, poolAddress)
	if err != nil {
		return nil, err
	}
	pool := poolAcc.Snapshot(poolAddress)

	tickmap, err := f.FetchTickmap(ctx, poolAcc.Tickmap)
	if err != nil {
		return nil, err
	}

	ticks, err := f.FetchTicks(ctx, poolAddress, tickmap, pool.TickSpacing)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched swap context",
		"pool", poolAddress, "ticks", len(ticks), "current_tick", pool.CurrentTickIndex)

	return &SwapContext{
		PoolAddress: poolAddress,
		Pool:        pool,
		Tickmap:     tickmap,
		Ticks:       ticks,
	}, nil
}

func (f *Fetcher) fetchPoolAccount(ctx context.Context, address solana.PublicKey) (*invariant.PoolAccount, error) {
	timer := prometheus.NewTimer(f.metrics.fetchDuration.WithLabelValues("pool"))
	defer timer.ObserveDuration()

	data, err := f.getter.AccountData(ctx, address)
	if err != nil {
		f.metrics.fetchErrors.WithLabelValues("pool").Inc()
		return nil, fmt.Errorf("fetch pool %s: %w", address, err)
	}
	acc, err := invariant.DecodePoolAccount(data)
	if err != nil {
		f.metrics.fetchErrors.WithLabelValues("pool").Inc()
		return nil, fmt.Errorf("fetch pool %s: %w", address, err)
	}
	return acc, nil
}

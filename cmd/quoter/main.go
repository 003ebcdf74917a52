// Command quoter prices a swap against one Invariant pool without touching
// the chain: it loads a pool snapshot (live over RPC or from a saved file),
// runs the swap simulation and prints the quote.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/solstate/solstate-client-go/cmd/quoter/config"
	"github.com/solstate/solstate-client-go/protocols/invariant"
	"github.com/solstate/solstate-client-go/protocols/invariant/calculator"
	"github.com/solstate/solstate-client-go/protocols/invariant/calculator/pricemath"
	"github.com/solstate/solstate-client-go/protocols/invariant/fetcher"
	"github.com/solstate/solstate-client-go/protocols/invariant/fixed"
)

type flags struct {
	configPath string
	pool       string
	amount     string
	decimals   int
	xToY       bool
	exactOut   bool
	limit      string
	slippage   string
	asJSON     bool
}

func main() {
	rootLogHandler := slog.NewJSONHandler(os.Stderr, nil)
	close := func() {
		os.Exit(1)
	}

	rootLogger := slog.New(rootLogHandler)
	prometheusRegistry := prometheus.NewRegistry()

	f := parseFlags()
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		close()
	}

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := loadSnapshot(ctx, cfg, f, rootLogger, prometheusRegistry)
	if err != nil {
		rootLogger.Error("Failed to load pool snapshot", "error", err)
		close()
	}

	swapAmount, err := parseAmount(f.amount, f.decimals)
	if err != nil {
		rootLogger.Error("Failed to parse amount", "amount", f.amount, "error", err)
		close()
	}

	slippage, err := parseSlippage(f.slippage)
	if err != nil {
		rootLogger.Error("Failed to parse slippage", "slippage", f.slippage, "error", err)
		close()
	}

	limit, err := parseLimit(f.limit, f.xToY)
	if err != nil {
		rootLogger.Error("Failed to parse price limit", "limit", f.limit, "error", err)
		close()
	}

	result, err := calculator.SimulateSwap(
		snap.Pool, snap.Tickmap, snap.Ticks,
		f.xToY, !f.exactOut,
		swapAmount, limit, slippage,
	)
	if err != nil {
		rootLogger.Error("Simulation failed", "pool", snap.PoolAddress, "error", err)
		close()
	}

	if f.asJSON {
		if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
			rootLogger.Error("Failed to encode result", "error", err)
			close()
		}
		return
	}
	printReport(snap, result, f)
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "config.yaml", "Path to the configuration file.")
	flag.StringVar(&f.pool, "pool", "", "Pool address (base58), required with rpc_url.")
	flag.StringVar(&f.amount, "amount", "", "Swap amount in human units, e.g. 1.5.")
	flag.IntVar(&f.decimals, "decimals", 0, "Token decimals used to scale the amount.")
	flag.BoolVar(&f.xToY, "x-to-y", true, "Swap direction: sell token X for token Y.")
	flag.BoolVar(&f.exactOut, "exact-out", false, "Treat the amount as the desired output.")
	flag.StringVar(&f.limit, "limit", "", "Square-root price limit in human units; empty means the edge of the tick range.")
	flag.StringVar(&f.slippage, "slippage", "0", "Slippage tolerance in percent, e.g. 0.5.")
	flag.BoolVar(&f.asJSON, "json", false, "Print the raw simulation result as JSON.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", f.configPath)
	return f
}

func loadSnapshot(
	ctx context.Context,
	cfg *config.QuoterConfig,
	f flags,
	logger *slog.Logger,
	registry prometheus.Registerer,
) (*fetcher.SwapContext, error) {
	if cfg.SnapshotPath != "" {
		raw, err := os.ReadFile(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		snap := new(fetcher.SwapContext)
		if err := json.Unmarshal(raw, snap); err != nil {
			return nil, fmt.Errorf("parse snapshot: %w", err)
		}
		return snap, nil
	}

	poolAddress, err := solana.PublicKeyFromBase58(f.pool)
	if err != nil {
		return nil, fmt.Errorf("invalid pool address %q: %w", f.pool, err)
	}

	fet, err := fetcher.New(&fetcher.Config{
		ProgramID: cfg.Program(),
		Getter:    fetcher.NewRPCAccountGetter(cfg.RPCURL),
		Logger:    logger.With("component", "fetcher"),
		Registry:  registry,
	})
	if err != nil {
		return nil, err
	}
	return fet.FetchSwapContext(ctx, poolAddress)
}

// parseAmount scales a human amount into raw token units.
func parseAmount(s string, decimals int) (fixed.Dec, error) {
	if s == "" {
		return fixed.Dec{}, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fixed.Dec{}, err
	}
	raw := d.Shift(int32(decimals))
	if !raw.IsInteger() {
		return fixed.Dec{}, fmt.Errorf("amount %s has more than %d decimal places", s, decimals)
	}
	if raw.Sign() <= 0 {
		return fixed.Dec{}, fmt.Errorf("amount must be positive")
	}
	return fixed.New(raw.BigInt(), fixed.TokenScale), nil
}

// parseSlippage turns a percentage into a fee-scaled fraction.
func parseSlippage(s string) (fixed.Dec, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fixed.Dec{}, err
	}
	frac := d.Shift(10) // percent to a scale-12 fraction
	if !frac.IsInteger() || frac.Sign() < 0 {
		return fixed.Dec{}, fmt.Errorf("slippage %s%% is out of range", s)
	}
	return fixed.New(frac.BigInt(), fixed.FixedPointScale), nil
}

// parseLimit turns a human square-root price into scale-24 units, defaulting
// to the price at the edge of the tick range for the swap direction.
func parseLimit(s string, xToY bool) (fixed.Dec, error) {
	if s == "" {
		edge := int32(invariant.MaxTick)
		if xToY {
			edge = invariant.MinTick
		}
		return pricemath.PriceFromTick(edge)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fixed.Dec{}, err
	}
	raw := d.Shift(int32(fixed.PriceScale))
	if !raw.IsInteger() || raw.Sign() <= 0 {
		return fixed.Dec{}, fmt.Errorf("limit %s is out of range", s)
	}
	return fixed.New(raw.BigInt(), fixed.PriceScale), nil
}

func printReport(snap *fetcher.SwapContext, result calculator.SimulationResult, f flags) {
	direction := "x -> y"
	if !f.xToY {
		direction = "y -> x"
	}
	mode := "exact in"
	if f.exactOut {
		mode = "exact out"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintf(w, "pool\t%s\n", snap.PoolAddress)
	fmt.Fprintf(w, "direction\t%s (%s)\n", direction, mode)
	fmt.Fprintf(w, "amount in\t%s\n", result.AccumulatedAmountIn)
	fmt.Fprintf(w, "amount out\t%s\n", result.AccumulatedAmountOut)
	fmt.Fprintf(w, "fee\t%s\n", result.AccumulatedFee)
	fmt.Fprintf(w, "sqrt price\t%s -> %s\n", snap.Pool.SqrtPrice, result.PriceAfterSwap)
	fmt.Fprintf(w, "average price\t%s\n", result.AveragePrice)
	fmt.Fprintf(w, "tick\t%d -> %d\n", snap.Pool.CurrentTickIndex, result.Pool.CurrentTickIndex)
	fmt.Fprintf(w, "crossed ticks\t%s\n", formatTicks(result.CrossedTicks))
	w.Flush()
}

func formatTicks(ticks []int32) string {
	if len(ticks) == 0 {
		return "none"
	}
	parts := make([]string, len(ticks))
	for i, tick := range ticks {
		parts[i] = fmt.Sprintf("%d", tick)
	}
	return strings.Join(parts, ", ")
}

package fetcher

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solstate/solstate-client-go/protocols/invariant"
)

// Watcher polls one pool and emits a fresh snapshot whenever its dynamic
// state moved. Its lifecycle is bound to the context passed to Watch.
type Watcher struct {
	snapshotCh chan *SwapContext
	errCh      chan error
}

// Snapshots delivers changed swap contexts. The first fetch is always
// delivered.
func (w *Watcher) Snapshots() <-chan *SwapContext {
	return w.snapshotCh
}

// Err delivers fetch failures. The watcher keeps polling after a failure.
func (w *Watcher) Err() <-chan error {
	return w.errCh
}

// Watch starts polling the pool at the given interval. The returned Watcher
// stays active until ctx is cancelled.
func (f *Fetcher) Watch(ctx context.Context, poolAddress solana.PublicKey, interval time.Duration) *Watcher {
	w := &Watcher{
		snapshotCh: make(chan *SwapContext, 1),
		errCh:      make(chan error, 1),
	}
	go f.watchLoop(ctx, poolAddress, interval, w)
	f.logger.Info("watcher started", "pool", poolAddress, "interval", interval)
	return w
}

func (f *Fetcher) watchLoop(ctx context.Context, poolAddress solana.PublicKey, interval time.Duration, w *Watcher) {
	defer close(w.snapshotCh)
	defer close(w.errCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *SwapContext
	for {
		snap, err := f.FetchSwapContext(ctx, poolAddress)
		switch {
		case err != nil:
			f.logger.Warn("poll failed", "pool", poolAddress, "error", err)
			select {
			case w.errCh <- err:
			default:
			}
		case last == nil ||
			invariant.PoolChanged(last.Pool, snap.Pool) ||
			invariant.TicksChanged(last.Ticks, snap.Ticks):
			last = snap
			f.metrics.watchEmitted.Inc()
			select {
			case w.snapshotCh <- snap:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

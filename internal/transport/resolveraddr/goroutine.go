package resolveraddr

import (
	"context"
	"net"
	"sync/atomic"
)

// GoroutineResolver performs the lookup on a background goroutine and
// signals completion over a buffered channel, re-expressing the spec's
// dedicated-thread resolver strategy with Go's lighter-weight
// goroutine substrate.
type GoroutineResolver struct {
	inner Resolver
}

// NewGoroutineResolver wraps inner (typically a SyncResolver) so its
// lookup runs off the caller's goroutine.
func NewGoroutineResolver(inner Resolver) *GoroutineResolver {
	if inner == nil {
		inner = NewSyncResolver()
	}
	return &GoroutineResolver{inner: inner}
}

type goroutineResult struct {
	addrs []net.TCPAddr
	err   error
}

// Handle tracks an in-flight asynchronous resolution. Done can be
// polled without blocking on Wait, for callers that interleave other
// work with the pending lookup.
type Handle struct {
	done  atomic.Bool
	resCh chan goroutineResult
}

// Done reports whether the lookup has completed.
func (h *Handle) Done() bool {
	return h.done.Load()
}

// Wait blocks until the lookup completes or ctx is canceled.
func (h *Handle) Wait(ctx context.Context) ([]net.TCPAddr, error) {
	select {
	case res := <-h.resCh:
		return res.addrs, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ResolveAsync starts the lookup on a new goroutine and returns
// immediately with a Handle the caller can poll or wait on.
func (r *GoroutineResolver) ResolveAsync(ctx context.Context, host string, port int) *Handle {
	h := &Handle{resCh: make(chan goroutineResult, 1)}
	go func() {
		addrs, err := r.inner.Resolve(ctx, host, port)
		h.done.Store(true)
		h.resCh <- goroutineResult{addrs: addrs, err: err}
	}()
	return h
}

// Resolve implements Resolver by starting the lookup asynchronously and
// blocking until it completes or ctx is canceled.
func (r *GoroutineResolver) Resolve(ctx context.Context, host string, port int) ([]net.TCPAddr, error) {
	return r.ResolveAsync(ctx, host, port).Wait(ctx)
}

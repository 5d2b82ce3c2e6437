// ABOUTME: Lazy load gate runs a registry's first load exactly once
// ABOUTME: Callers racing the first load wait for it instead of loading again

package persist

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// LoadGate serializes the first load of a registry
type LoadGate struct {
	ready atomic.Bool
	group singleflight.Group
}

// Ready reports whether the load has completed
func (g *LoadGate) Ready() bool {
	return g.ready.Load()
}

// Wait returns once load has completed, running it if no other caller is.
// load runs detached from ctx cancellation; ctx only bounds how long this
// caller waits.
func (g *LoadGate) Wait(ctx context.Context, load func(ctx context.Context)) error {
	if g.ready.Load() {
		return nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan("load", func() (interface{}, error) {
		if g.ready.Load() {
			return nil, nil
		}
		load(loadCtx)
		g.ready.Store(true)
		return nil, nil
	})

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

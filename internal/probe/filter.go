package probe

import (
	"context"
	"log"
	"sync"

	"github.com/channelpick/channel-pick/internal/manifest"
)

// FilterReachable probes every entry's endpoint with a bounded worker pool
// and returns only the entries that probed Reachable, preserving input
// order. Transient outcomes are dropped like Unreachable ones but logged
// distinctly.
func FilterReachable(ctx context.Context, entries []manifest.Entry, p Prober, concurrency int) []manifest.Entry {
	if len(entries) == 0 {
		return entries
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(entries))
	for i := range entries {
		if ctx.Err() != nil {
			// Deadline hit: everything not yet scheduled counts as a timeout.
			results[i] = Result{Endpoint: entries[i].Endpoint, Status: Unreachable, Reason: ReasonTimeout, Err: ctx.Err()}
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = Result{Endpoint: entries[i].Endpoint, Status: Unreachable, Reason: ReasonTimeout, Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.Probe(ctx, entries[i].Endpoint)
		}(i)
	}
	wg.Wait()

	passed := make([]manifest.Entry, 0, len(entries))
	for i, e := range entries {
		res := results[i]
		switch res.Status {
		case Reachable:
			passed = append(passed, e)
		case Transient:
			log.Printf("probe: %s indeterminate (%v)", e.ChannelName, res.Err)
		}
	}
	return passed
}

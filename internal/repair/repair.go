// Package repair re-validates grouped channels against fresh probe results,
// promoting alternates when a primary goes dark and dropping groups with no
// live member.
package repair

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/channelpick/channel-pick/internal/group"
	"github.com/channelpick/channel-pick/internal/metrics"
	"github.com/channelpick/channel-pick/internal/probe"
	"github.com/channelpick/channel-pick/internal/sink"
)

// Options tunes a repair run.
type Options struct {
	// Concurrency caps in-flight probes. <= 0 means 10.
	Concurrency int
	// BatchSize is how many decided groups accumulate before a checkpoint
	// flush. <= 0 means 10.
	BatchSize int
	// Deadline, when > 0, bounds the whole run: once passed, no new probes
	// are scheduled and unprobed members count as unreachable timeouts.
	Deadline time.Duration
}

type probeJob struct {
	name string
	idx  int // 0 = primary, 1..n = overflow
	url  string
}

// Run probes every member of every group exactly once, re-derives each
// group's primary/overflow, and drops groups with no reachable member.
// Decided groups are flushed to checkpoint in sorted-name batches; a crash
// loses at most one partial batch. The returned mapping is the full result.
//
// Decision logic per group is a pure reduction applied only after all of
// that group's probes have completed; checkpoint writes happen from this
// single goroutine.
func Run(ctx context.Context, groups map[string]group.Group, p probe.Prober, checkpoint sink.Sink, opts Options) (map[string]group.Group, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	names := group.Names(groups)
	results := make(map[string][]probe.Result, len(groups))
	barriers := make(map[string]*sync.WaitGroup, len(groups))
	var jobs []probeJob
	for _, name := range names {
		g := groups[name]
		n := 1 + len(g.Overflow)
		results[name] = make([]probe.Result, n)
		wg := &sync.WaitGroup{}
		wg.Add(n)
		barriers[name] = wg
		jobs = append(jobs, probeJob{name: name, idx: 0, url: g.Primary.Endpoint})
		for i, alt := range g.Overflow {
			jobs = append(jobs, probeJob{name: name, idx: i + 1, url: alt.Endpoint})
		}
	}

	jobCh := make(chan probeJob)
	var workers sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for j := range jobCh {
				// Each slot is written exactly once, by one worker.
				if ctx.Err() != nil {
					results[j.name][j.idx] = probe.Result{
						Endpoint: j.url,
						Status:   probe.Unreachable,
						Reason:   probe.ReasonTimeout,
						Err:      ctx.Err(),
					}
				} else {
					results[j.name][j.idx] = p.Probe(ctx, j.url)
				}
				barriers[j.name].Done()
			}
		}()
	}
	go func() {
		for _, j := range jobs {
			jobCh <- j
		}
		close(jobCh)
	}()
	defer workers.Wait()

	repaired := make(map[string]group.Group, len(groups))
	var batch []group.Group
	flush := func() error {
		if len(batch) == 0 || checkpoint == nil {
			return nil
		}
		if err := checkpoint.WriteBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	decided := 0
	for _, name := range names {
		barriers[name].Wait()
		g, kept, promoted := decide(groups[name], results[name])
		switch {
		case !kept:
			metrics.GroupsRemoved.Inc()
			log.Printf("repair: %s removed (no reachable member)", name)
			continue
		case promoted:
			metrics.GroupsPromoted.Inc()
			log.Printf("repair: %s promoted %s to primary", name, g.Primary.Endpoint)
		}
		metrics.GroupsRepaired.Inc()
		repaired[name] = g
		batch = append(batch, g)
		decided++
		if decided%opts.BatchSize == 0 {
			if err := flush(); err != nil {
				return repaired, err
			}
		}
	}
	if err := flush(); err != nil {
		return repaired, err
	}
	if opts.Deadline > 0 && ctx.Err() != nil {
		// Finalized with partial probe coverage; callers decide whether the
		// truncated result is acceptable.
		return repaired, fmt.Errorf("repair: run deadline exceeded: %w", ctx.Err())
	}
	return repaired, nil
}

// decide re-derives one group from its probe results. results[0] is the
// primary, results[1..] align with the overflow list. Pure; no probing.
func decide(g group.Group, results []probe.Result) (out group.Group, kept, promoted bool) {
	var liveOverflow []group.Record
	for i, alt := range g.Overflow {
		if results[i+1].OK() {
			liveOverflow = append(liveOverflow, alt)
		}
	}
	if results[0].OK() {
		return group.Group{ChannelName: g.ChannelName, Primary: g.Primary, Overflow: liveOverflow}, true, false
	}
	if len(liveOverflow) > 0 {
		return group.Group{
			ChannelName: g.ChannelName,
			Primary:     liveOverflow[0],
			Overflow:    liveOverflow[1:],
		}, true, true
	}
	return group.Group{}, false, false
}

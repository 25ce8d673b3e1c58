package httpclient

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter is a process-global per-host concurrency and rate limiter.
// All probes and fetches in the process share the same limiter for a given
// host, preventing thundering-herd when many workers hit the same origin.
//
// Usage: acquire before sending a request, release when the response arrives.
//
//	release, err := limiter.Acquire(ctx, endpoint)
//	if err != nil { ... }
//	defer release()
type HostLimiter struct {
	mu       sync.Mutex
	hosts    map[string]*hostEntry
	maxConns int
	reqRate  rate.Limit
}

type hostEntry struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

// NewHostLimiter returns a limiter allowing maxConns concurrent requests and
// reqPerSec requests per second to each distinct host. reqPerSec <= 0 disables
// rate limiting (the concurrency cap still applies).
func NewHostLimiter(maxConns int, reqPerSec float64) *HostLimiter {
	if maxConns < 1 {
		maxConns = 1
	}
	r := rate.Inf
	if reqPerSec > 0 {
		r = rate.Limit(reqPerSec)
	}
	return &HostLimiter{
		hosts:    make(map[string]*hostEntry),
		maxConns: maxConns,
		reqRate:  r,
	}
}

// Acquire blocks until a slot is available for the host of rawURL and the
// host's rate limiter admits the request, then returns a release func.
// Returns ctx.Err() if the context expires while waiting.
func (h *HostLimiter) Acquire(ctx context.Context, rawURL string) (func(), error) {
	e := h.entryFor(rawURL)
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := e.limiter.Wait(ctx); err != nil {
		<-e.sem
		return nil, err
	}
	return func() { <-e.sem }, nil
}

func (h *HostLimiter) entryFor(rawURL string) *hostEntry {
	// Normalise: strip path/query, keep scheme+host.
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.hosts[host]
	if !ok {
		e = &hostEntry{
			sem:     make(chan struct{}, h.maxConns),
			limiter: rate.NewLimiter(h.reqRate, burstFor(h.reqRate)),
		}
		h.hosts[host] = e
	}
	return e
}

func burstFor(r rate.Limit) int {
	if r == rate.Inf {
		return 1
	}
	b := int(r)
	if b < 1 {
		b = 1
	}
	return b
}

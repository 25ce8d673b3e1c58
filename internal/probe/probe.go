// Package probe performs lightweight reachability checks against stream
// endpoints and classifies the outcome.
package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/channelpick/channel-pick/internal/httpclient"
	"github.com/channelpick/channel-pick/internal/metrics"
)

// Status is the coarse outcome of a probe.
type Status string

const (
	Reachable   Status = "reachable"
	Unreachable Status = "unreachable"
	// Transient marks an unexpected failure: treated as Unreachable for
	// grouping decisions but surfaced separately in logs and metrics so
	// operators can tell "confirmed dead" from "indeterminate".
	Transient Status = "transient"
)

// Reason refines a non-reachable Status.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonStatus  Reason = "status"
	ReasonTimeout Reason = "timeout"
	ReasonNetwork Reason = "network"
	ReasonOther   Reason = "other"
)

// Result is the outcome of probing one endpoint.
type Result struct {
	Endpoint   string
	Status     Status
	Reason     Reason
	HTTPStatus int
	Latency    time.Duration
	Err        error
}

// OK reports whether the endpoint is considered live.
func (r Result) OK() bool { return r.Status == Reachable }

// Prober checks a single endpoint. Implementations must be stateless and
// safe for concurrent use; retry policy belongs to callers.
type Prober interface {
	Probe(ctx context.Context, endpoint string) Result
}

// HTTPProber probes endpoints with a HEAD request, following redirects.
// A 200 after redirects is Reachable; any other status, a timeout, or a
// connection-level failure is Unreachable with the matching reason.
type HTTPProber struct {
	Client  *http.Client
	Timeout time.Duration
	// Limiter, when set, caps concurrent requests and request rate per host.
	Limiter *httpclient.HostLimiter
}

// NewHTTPProber returns a prober using a client derived from the shared
// transport with the given per-probe timeout.
func NewHTTPProber(timeout time.Duration, limiter *httpclient.HostLimiter) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		Client:  httpclient.WithTimeout(timeout),
		Timeout: timeout,
		Limiter: limiter,
	}
}

// Probe checks endpoint and classifies the outcome. The network call is the
// only blocking step; classification is pure.
func (p *HTTPProber) Probe(ctx context.Context, endpoint string) Result {
	res := p.probe(ctx, endpoint)
	metrics.ProbesTotal.WithLabelValues(string(res.Status), string(res.Reason)).Inc()
	metrics.ProbeSeconds.Observe(res.Latency.Seconds())
	return res
}

func (p *HTTPProber) probe(ctx context.Context, endpoint string) Result {
	if _, err := url.Parse(endpoint); err != nil {
		return Result{Endpoint: endpoint, Status: Unreachable, Reason: ReasonNetwork, Err: err}
	}
	if p.Limiter != nil {
		release, err := p.Limiter.Acquire(ctx, endpoint)
		if err != nil {
			return Result{Endpoint: endpoint, Status: Unreachable, Reason: ReasonTimeout, Err: err}
		}
		defer release()
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Result{Endpoint: endpoint, Status: Transient, Reason: ReasonOther, Err: err}
	}
	req.Header.Set("User-Agent", "channel-pick/1.0")
	client := p.Client
	if client == nil {
		client = httpclient.WithTimeout(p.Timeout)
	}
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return classifyErr(endpoint, err, latency)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{
			Endpoint:   endpoint,
			Status:     Unreachable,
			Reason:     ReasonStatus,
			HTTPStatus: resp.StatusCode,
			Latency:    latency,
		}
	}
	return Result{Endpoint: endpoint, Status: Reachable, HTTPStatus: resp.StatusCode, Latency: latency}
}

// classifyErr maps transport errors onto the probe taxonomy. Timeouts and
// connection-level failures are expected (Unreachable); anything else is
// Transient.
func classifyErr(endpoint string, err error, latency time.Duration) Result {
	r := Result{Endpoint: endpoint, Status: Unreachable, Latency: latency, Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		r.Reason = ReasonTimeout
		return r
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		r.Reason = ReasonNetwork
		return r
	}
	if errors.Is(err, context.Canceled) {
		r.Reason = ReasonTimeout
		return r
	}
	r.Status = Transient
	r.Reason = ReasonOther
	return r
}

// Package httpclient provides the shared HTTP client, per-host limiting and
// retry behavior used by the manifest fetcher and the prober.
package httpclient

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a whole fetch; probes use their own shorter one.
	DefaultTimeout      = 30 * time.Second
	idleConnTimeout     = 90 * time.Second
	maxIdleConnsPerHost = 16
)

// All clients share one transport so connection pools are reused across the
// fetcher and the prober instead of being rebuilt per component.
var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: maxIdleConnsPerHost,
	IdleConnTimeout:     idleConnTimeout,
}

var defaultClient = &http.Client{
	Timeout:   DefaultTimeout,
	Transport: sharedTransport,
}

// Default returns the shared tuned HTTP client.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client with the given overall timeout on the shared
// transport. timeout <= 0 falls back to DefaultTimeout.
func WithTimeout(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
